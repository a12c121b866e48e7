package routes

import (
	"blogpin-backend/handlers/categories"
	"blogpin-backend/middleware"

	"github.com/gin-gonic/gin"
)

func CategoriesRoutes(r *gin.Engine) {
	// Public routes
	r.GET("/categories", categories.GetAllCategories)
	r.GET("/categories/:id", categories.GetCategoryByID)

	// Admin only routes
	categoriesPrivateRoutes := r.Group("/categories")
	categoriesPrivateRoutes.Use(middleware.JWTAuth())
	categoriesPrivateRoutes.Use(middleware.AdminAuth())
	{
		categoriesPrivateRoutes.POST("", categories.CreateCategory)
		categoriesPrivateRoutes.PUT("/:id", categories.UpdateCategory)
		categoriesPrivateRoutes.DELETE("/:id", categories.DeleteCategory)
	}
}
