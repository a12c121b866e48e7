package subscriptions

import (
	"net/http"

	"blogpin-backend/db"
	"blogpin-backend/models"
	"blogpin-backend/services"
	"blogpin-backend/utils"

	"github.com/gin-gonic/gin"
)

// @Summary Get all subscription plans
// @Description Retrieve the active subscription plans
// @Tags subscriptions
// @Produce json
// @Success 200 {array} models.SubscriptionPlan
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /subscriptions/plans [get]
func GetAllPlans(c *gin.Context) {
	var plans []models.SubscriptionPlan
	err := db.DB.Where("is_active = ?", true).Order("price_cents ASC").Find(&plans).Error
	if err != nil {
		utils.LogError(err, "Error fetching plans in GetAllPlans")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching plans"})
		return
	}

	c.JSON(http.StatusOK, plans)
}

// @Summary Get a subscription plan
// @Description Retrieve one subscription plan by its id
// @Tags subscriptions
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} models.SubscriptionPlan
// @Failure 404 {object} map[string]string "error: Plan not found"
// @Router /subscriptions/plans/{id} [get]
func GetPlanByID(c *gin.Context) {
	var plan models.SubscriptionPlan
	if err := db.DB.First(&plan, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	c.JSON(http.StatusOK, plan)
}

// @Summary Create a subscription plan
// @Description Create a new subscription plan (admin only)
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param plan body models.SubscriptionPlanCreate true "Plan information"
// @Security BearerAuth
// @Success 201 {object} models.SubscriptionPlan
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 409 {object} map[string]string "error: Plan already exists"
// @Router /subscriptions/plans [post]
func CreatePlan(c *gin.Context) {
	var input models.SubscriptionPlanCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var existing models.SubscriptionPlan
	if err := db.DB.Where("name = ?", input.Name).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A plan with this name already exists"})
		return
	}

	currency := input.Currency
	if currency == "" {
		currency = "usd"
	}

	plan := models.SubscriptionPlan{
		Name:         input.Name,
		PriceCents:   input.PriceCents,
		Currency:     currency,
		DurationDays: input.DurationDays,
		IsActive:     true,
	}

	if err := db.DB.Create(&plan).Error; err != nil {
		utils.LogError(err, "Error creating the plan in CreatePlan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating the plan"})
		return
	}

	utils.LogSuccess("Plan created successfully in CreatePlan")
	c.JSON(http.StatusCreated, plan)
}

// @Summary Update a subscription plan
// @Description Update a subscription plan (admin only). Price and duration changes only affect future subscriptions.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param plan body models.SubscriptionPlanCreate true "Plan information"
// @Security BearerAuth
// @Success 200 {object} models.SubscriptionPlan
// @Failure 404 {object} map[string]string "error: Plan not found"
// @Router /subscriptions/plans/{id} [put]
func UpdatePlan(c *gin.Context) {
	var plan models.SubscriptionPlan
	if err := db.DB.First(&plan, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	var input models.SubscriptionPlanCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	updates := map[string]interface{}{
		"name":          input.Name,
		"price_cents":   input.PriceCents,
		"duration_days": input.DurationDays,
	}
	if input.Currency != "" {
		updates["currency"] = input.Currency
	}

	if err := db.DB.Model(&plan).Updates(updates).Error; err != nil {
		utils.LogError(err, "Error updating the plan in UpdatePlan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating the plan"})
		return
	}

	c.JSON(http.StatusOK, plan)
}

// @Summary Deactivate a subscription plan
// @Description Deactivate a subscription plan so it cannot be subscribed to anymore (admin only). Existing subscriptions keep running.
// @Tags subscriptions
// @Produce json
// @Param id path string true "Plan ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Plan deactivated"
// @Failure 404 {object} map[string]string "error: Plan not found"
// @Router /subscriptions/plans/{id} [delete]
func DeactivatePlan(c *gin.Context) {
	var plan models.SubscriptionPlan
	if err := db.DB.First(&plan, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	if err := db.DB.Model(&plan).Update("is_active", false).Error; err != nil {
		utils.LogError(err, "Error deactivating the plan in DeactivatePlan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deactivating the plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Plan deactivated"})
}

// @Summary Get the current subscription
// @Description Retrieve the connected user's subscription, if any
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Subscription
// @Failure 404 {object} map[string]string "error: No subscription"
// @Router /subscriptions/me [get]
func GetMySubscription(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	sub, err := services.Subscriptions.CurrentSubscription(userID.(string))
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error fetching the subscription in GetMySubscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the subscription"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "You have no subscription"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// @Summary Get the subscription history
// @Description Retrieve the audit trail of the connected user's subscription
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.SubscriptionHistory
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /subscriptions/me/history [get]
func GetMySubscriptionHistory(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	history, err := services.Subscriptions.History(userID.(string))
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error fetching the history in GetMySubscriptionHistory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the history"})
		return
	}

	c.JSON(http.StatusOK, history)
}

// @Summary Cancel the current subscription
// @Description Cancel the connected user's active subscription, removing its pinned post
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Subscription cancelled"
// @Failure 409 {object} map[string]string "error: No active subscription"
// @Router /subscriptions/me/cancel [post]
func CancelMySubscription(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	if err := services.Subscriptions.Cancel(userID.(string)); err != nil {
		utils.LogErrorWithUser(userID, err, "Error cancelling the subscription in CancelMySubscription")
		c.JSON(services.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Subscription cancelled in CancelMySubscription")
	c.JSON(http.StatusOK, gin.H{"message": "Subscription cancelled"})
}
