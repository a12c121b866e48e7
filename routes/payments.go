package routes

import (
	"blogpin-backend/handlers/payments"
	"blogpin-backend/middleware"

	"github.com/gin-gonic/gin"
)

func PaymentsRoutes(r *gin.Engine) {
	// The webhook authenticates with the Stripe signature, not a JWT
	r.POST("/webhooks/stripe", payments.HandleStripeWebhook)

	paymentsRoutes := r.Group("/payments")
	paymentsRoutes.Use(middleware.JWTAuth())
	{
		paymentsRoutes.POST("/checkout", payments.CreateCheckout)
		paymentsRoutes.GET("", payments.GetMyPayments)
		paymentsRoutes.GET("/:id", payments.GetPaymentByID)
		paymentsRoutes.GET("/:id/status", payments.GetPaymentStatus)
		paymentsRoutes.POST("/:id/cancel", payments.CancelPayment)
	}

	// Admin only routes
	paymentsAdminRoutes := r.Group("/payments")
	paymentsAdminRoutes.Use(middleware.JWTAuth())
	paymentsAdminRoutes.Use(middleware.AdminAuth())
	{
		paymentsAdminRoutes.POST("/:id/refund", payments.RefundPayment)
		paymentsAdminRoutes.GET("/:id/refunds", payments.GetPaymentRefunds)
	}
}
