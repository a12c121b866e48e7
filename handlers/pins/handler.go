package pins

import (
	"net/http"

	"blogpin-backend/models"
	"blogpin-backend/services"
	"blogpin-backend/utils"

	"github.com/gin-gonic/gin"
)

// @Summary Pin a post
// @Description Pin one of the connected user's published posts, replacing any previous pin
// @Tags pins
// @Accept json
// @Produce json
// @Param pin body models.PinRequest true "Pin information"
// @Security BearerAuth
// @Success 201 {object} models.PinnedPost
// @Failure 403 {object} map[string]string "error: Active subscription required"
// @Failure 404 {object} map[string]string "error: Post not found"
// @Router /pins [post]
func PinPost(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	var input models.PinRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	pin, err := services.Pins.Pin(userID.(string), input.PostID)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error pinning the post in PinPost")
		c.JSON(services.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Post pinned in PinPost")
	c.JSON(http.StatusCreated, pin)
}

// @Summary Unpin the current post
// @Description Remove the connected user's pinned post
// @Tags pins
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Post unpinned"
// @Failure 404 {object} map[string]string "error: No pinned post"
// @Router /pins [delete]
func UnpinPost(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	if err := services.Pins.Unpin(userID.(string)); err != nil {
		c.JSON(services.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	utils.LogSuccessWithUser(userID, "Post unpinned in UnpinPost")
	c.JSON(http.StatusOK, gin.H{"message": "Post unpinned"})
}

// @Summary Get the current pin
// @Description Retrieve the connected user's pinned post, if any
// @Tags pins
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.PinnedPost
// @Failure 404 {object} map[string]string "error: No pinned post"
// @Router /pins/me [get]
func GetMyPin(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	pin, err := services.Pins.Current(userID.(string))
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error fetching the pin in GetMyPin")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the pin"})
		return
	}
	if pin == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "You have no pinned post"})
		return
	}

	c.JSON(http.StatusOK, pin)
}

// @Summary Get the active pinned posts
// @Description Retrieve the pinned posts whose owners still hold an active subscription
// @Tags pins
// @Produce json
// @Success 200 {array} models.PinnedPost
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /pins [get]
func GetActivePins(c *gin.Context) {
	pinsList, err := services.Pins.ListActive()
	if err != nil {
		utils.LogError(err, "Error fetching pins in GetActivePins")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching pins"})
		return
	}

	c.JSON(http.StatusOK, pinsList)
}

// @Summary Check whether a post can be pinned
// @Description Report each pin precondition for a post so the frontend can explain a disabled button
// @Tags pins
// @Produce json
// @Param postId path string true "Post ID"
// @Security BearerAuth
// @Success 200 {object} models.PinCapability
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /pins/can-pin/{postId} [get]
func CanPinPost(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	capability, err := services.Pins.CanPin(userID.(string), c.Param("postId"))
	if err != nil {
		c.JSON(services.HTTPStatus(err), gin.H{"error": err.Error(), "capability": capability})
		return
	}

	c.JSON(http.StatusOK, capability)
}
