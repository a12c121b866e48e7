package routes

import (
	"blogpin-backend/handlers/subscriptions"
	"blogpin-backend/middleware"

	"github.com/gin-gonic/gin"
)

func SubscriptionsRoutes(r *gin.Engine) {
	// Public routes
	r.GET("/subscriptions/plans", subscriptions.GetAllPlans)
	r.GET("/subscriptions/plans/:id", subscriptions.GetPlanByID)

	// Admin only routes
	plansAdminRoutes := r.Group("/subscriptions/plans")
	plansAdminRoutes.Use(middleware.JWTAuth())
	plansAdminRoutes.Use(middleware.AdminAuth())
	{
		plansAdminRoutes.POST("", subscriptions.CreatePlan)
		plansAdminRoutes.PUT("/:id", subscriptions.UpdatePlan)
		plansAdminRoutes.DELETE("/:id", subscriptions.DeactivatePlan)
	}

	// Protected routes
	meRoutes := r.Group("/subscriptions/me")
	meRoutes.Use(middleware.JWTAuth())
	{
		meRoutes.GET("", subscriptions.GetMySubscription)
		meRoutes.GET("/history", subscriptions.GetMySubscriptionHistory)
		meRoutes.POST("/cancel", subscriptions.CancelMySubscription)
	}
}
