package routes

import (
	"blogpin-backend/handlers/pins"
	"blogpin-backend/middleware"

	"github.com/gin-gonic/gin"
)

func PinsRoutes(r *gin.Engine) {
	// Public route
	r.GET("/pins", pins.GetActivePins)

	// Protected routes
	pinsRoutes := r.Group("/pins")
	pinsRoutes.Use(middleware.JWTAuth())
	{
		pinsRoutes.POST("", pins.PinPost)
		pinsRoutes.DELETE("", pins.UnpinPost)
		pinsRoutes.GET("/me", pins.GetMyPin)
		pinsRoutes.GET("/can-pin/:postId", pins.CanPinPost)
	}
}
