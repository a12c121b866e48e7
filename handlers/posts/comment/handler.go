package comment

import (
	"net/http"

	"blogpin-backend/db"
	"blogpin-backend/models"
	"blogpin-backend/utils"

	"github.com/gin-gonic/gin"
)

// @Summary Add a comment to a post
// @Description Add a comment to a published post
// @Tags comments
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param comment body models.CommentCreate true "Comment content"
// @Security BearerAuth
// @Success 201 {object} models.Comment
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 404 {object} map[string]string "error: Post not found"
// @Router /posts/{id}/comments [post]
func CreateComment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	var post models.Post
	err := db.DB.First(&post, "id = ? AND status = ?", c.Param("id"), models.PostPublished).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	var input models.CommentCreate
	if !utils.ValidateRequestBody(c, &input) {
		return
	}

	comment := models.Comment{
		PostID:  post.ID,
		UserID:  userID.(string),
		Content: input.Content,
	}

	if err := db.DB.Create(&comment).Error; err != nil {
		utils.LogErrorWithUser(userID, err, "Error creating the comment in CreateComment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating the comment"})
		return
	}

	utils.LogSuccessWithUser(userID, "Comment created successfully in CreateComment")
	c.JSON(http.StatusCreated, comment)
}

// @Summary Get the comments of a post
// @Description Retrieve the active comments of a post, newest first
// @Tags comments
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {array} models.Comment
// @Failure 404 {object} map[string]string "error: Post not found"
// @Router /posts/{id}/comments [get]
func GetComments(c *gin.Context) {
	var post models.Post
	if err := db.DB.First(&post, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	var comments []models.Comment
	err := db.DB.Preload("User").
		Where("post_id = ? AND is_active = ?", post.ID, true).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		utils.LogError(err, "Error fetching comments in GetComments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching comments"})
		return
	}

	c.JSON(http.StatusOK, comments)
}

// @Summary Delete a comment
// @Description Delete a comment written by the connected user
// @Tags comments
// @Produce json
// @Param id path string true "Post ID"
// @Param commentId path string true "Comment ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Comment deleted"
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Comment not found"
// @Router /posts/{id}/comments/{commentId} [delete]
func DeleteComment(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	var comment models.Comment
	err := db.DB.First(&comment, "id = ? AND post_id = ?", c.Param("commentId"), c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	if comment.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not the author of this comment"})
		return
	}

	if err := db.DB.Delete(&comment).Error; err != nil {
		utils.LogErrorWithUser(userID, err, "Error deleting the comment in DeleteComment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting the comment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}
