package payments

import (
	"errors"
	"io"
	"net/http"
	"os"

	"blogpin-backend/db"
	"blogpin-backend/models"
	"blogpin-backend/services"
	"blogpin-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
)

type checkoutRequest struct {
	PlanID     string `json:"planId" binding:"required"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// @Summary Start a subscription checkout
// @Description Create a pending subscription and a Stripe checkout session for it
// @Tags payments
// @Accept json
// @Produce json
// @Param checkout body checkoutRequest true "Checkout information"
// @Security BearerAuth
// @Success 201 {object} services.CheckoutResult
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 409 {object} map[string]string "error: Subscription already exists"
// @Failure 502 {object} map[string]string "error: Payment provider error"
// @Router /payments/checkout [post]
func CreateCheckout(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	var input checkoutRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var plan models.SubscriptionPlan
	err := db.DB.First(&plan, "id = ? AND is_active = ?", input.PlanID, true).Error
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plan not found or inactive"})
		return
	}

	successURL := input.SuccessURL
	if successURL == "" {
		successURL = os.Getenv("FRONTEND_URL") + "/subscription/success"
	}
	cancelURL := input.CancelURL
	if cancelURL == "" {
		cancelURL = os.Getenv("FRONTEND_URL") + "/subscription/cancel"
	}

	result, err := services.Payments.CreateSubscriptionCheckout(c.Request.Context(), &user, &plan, successURL, cancelURL)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error creating the checkout in CreateCheckout")
		c.JSON(services.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Checkout session created in CreateCheckout")
	c.JSON(http.StatusCreated, result)
}

// @Summary Get the connected user's payments
// @Description Retrieve the payments of the connected user, newest first
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Payment
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /payments [get]
func GetMyPayments(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	payments, err := services.Payments.ListPayments(userID.(string))
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error fetching payments in GetMyPayments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}

// @Summary Get a payment
// @Description Retrieve one payment of the connected user with its attempts and refunds
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Security BearerAuth
// @Success 200 {object} models.Payment
// @Failure 404 {object} map[string]string "error: Payment not found"
// @Router /payments/{id} [get]
func GetPaymentByID(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	payment, err := services.Payments.GetPayment(c.Param("id"), userID.(string))
	if err != nil {
		c.JSON(services.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// @Summary Poll a payment status
// @Description Re-check a pending payment against Stripe when the webhook has not arrived yet
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Security BearerAuth
// @Success 200 {object} models.Payment
// @Failure 404 {object} map[string]string "error: Payment not found"
// @Failure 502 {object} map[string]string "error: Payment provider error"
// @Router /payments/{id}/status [get]
func GetPaymentStatus(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	payment, err := services.Payments.GetPayment(c.Param("id"), userID.(string))
	if err != nil {
		c.JSON(services.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	payment, err = services.Payments.ReconcilePaymentStatus(c.Request.Context(), payment)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error reconciling the payment in GetPaymentStatus")
		c.JSON(services.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// @Summary Cancel a pending payment
// @Description Abort a checkout that has not settled yet, cancelling its pending subscription
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Payment cancelled"
// @Failure 404 {object} map[string]string "error: Payment not found"
// @Failure 409 {object} map[string]string "error: Payment already settled"
// @Router /payments/{id}/cancel [post]
func CancelPayment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	if err := services.Payments.CancelPayment(c.Param("id"), userID.(string)); err != nil {
		utils.LogErrorWithUser(userID, err, "Error cancelling the payment in CancelPayment")
		c.JSON(services.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Payment cancelled in CancelPayment")
	c.JSON(http.StatusOK, gin.H{"message": "Payment cancelled"})
}

// @Summary Refund a payment
// @Description Create a full or partial refund for a payment (admin only)
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param refund body models.RefundCreate true "Refund information"
// @Security BearerAuth
// @Success 201 {object} models.Refund
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 404 {object} map[string]string "error: Payment not found"
// @Failure 502 {object} map[string]string "error: Payment provider error"
// @Router /payments/{id}/refund [post]
func RefundPayment(c *gin.Context) {
	adminID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	var input models.RefundCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var payment models.Payment
	err := db.DB.First(&payment, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the payment"})
		return
	}

	refund, err := services.Payments.CreateRefund(c.Request.Context(), adminID.(string), &payment, input.AmountCents, input.Reason)
	if err != nil {
		utils.LogErrorWithUser(adminID, err, "Error creating the refund in RefundPayment")
		c.JSON(services.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	utils.LogSuccessWithUser(adminID, "Refund created in RefundPayment")
	c.JSON(http.StatusCreated, refund)
}

// @Summary Get the refunds of a payment
// @Description Retrieve all refunds attached to a payment (admin only)
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Security BearerAuth
// @Success 200 {array} models.Refund
// @Failure 404 {object} map[string]string "error: Payment not found"
// @Router /payments/{id}/refunds [get]
func GetPaymentRefunds(c *gin.Context) {
	var payment models.Payment
	if err := db.DB.First(&payment, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}

	var refunds []models.Refund
	err := db.DB.Where("payment_id = ?", payment.ID).Order("created_at DESC").Find(&refunds).Error
	if err != nil {
		utils.LogError(err, "Error fetching refunds in GetPaymentRefunds")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching refunds"})
		return
	}

	c.JSON(http.StatusOK, refunds)
}

// @Summary Handle Stripe webhook events
// @Description Verify and process incoming Stripe webhook notifications
// @Tags payments
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "status: processed or ignored"
// @Failure 400 {object} map[string]string "error: Invalid payload or signature"
// @Router /webhooks/stripe [post]
func HandleStripeWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error reading the request body"})
		return
	}

	event, err := webhook.ConstructEvent(body, c.GetHeader("Stripe-Signature"), os.Getenv("STRIPE_WEBHOOK_SECRET"))
	if err != nil {
		utils.LogError(err, "Invalid webhook signature in HandleStripeWebhook")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	result, err := services.Webhooks.ProcessStripeEvent(event, body)
	if err != nil {
		utils.LogError(err, "Error processing the webhook event in HandleStripeWebhook")
	}
	if result == services.IngestFailed {
		// Non-2xx makes Stripe redeliver, our hourly sweep also retries
		c.JSON(http.StatusBadRequest, gin.H{"status": string(result)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(result)})
}
