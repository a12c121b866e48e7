package routes

import (
	"blogpin-backend/handlers/users"
	"blogpin-backend/middleware"

	"github.com/gin-gonic/gin"
)

func UsersRoutes(r *gin.Engine) {
	usersRoutes := r.Group("/users")
	usersRoutes.Use(middleware.JWTAuth())
	{
		usersRoutes.GET("/me", users.GetMe)
		usersRoutes.PUT("/me", users.UpdateMe)
	}
}
