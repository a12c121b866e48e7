package posts

import (
	"net/http"

	"blogpin-backend/db"
	"blogpin-backend/models"
	"blogpin-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @Summary Create a new post
// @Description Create a new post with the provided information
// @Tags posts
// @Accept json
// @Produce json
// @Param post body models.PostCreate true "Post information"
// @Security BearerAuth
// @Success 201 {object} models.Post
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /posts [post]
func CreatePost(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return
	}

	var input models.PostCreate
	if !utils.ValidateRequestBody(c, &input) {
		return
	}

	status := models.PostPublished
	if input.Status == string(models.PostDraft) {
		status = models.PostDraft
	}

	post := models.Post{
		AuthorID: userID.(string),
		Title:    input.Title,
		Content:  input.Content,
		Status:   status,
	}

	if input.CategoryID != "" {
		var category models.Category
		if err := db.DB.First(&category, "id = ?", input.CategoryID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category not found"})
			return
		}
		post.CategoryID = &category.ID
	}

	if err := db.DB.Create(&post).Error; err != nil {
		utils.LogErrorWithUser(userID, err, "Error creating the post in CreatePost")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating the post"})
		return
	}

	utils.LogSuccessWithUser(userID, "Post created successfully in CreatePost")
	c.JSON(http.StatusCreated, post)
}

// @Summary Get all posts
// @Description Retrieve published posts with optional filtering
// @Tags posts
// @Produce json
// @Param category query string false "Filter by category ID"
// @Param author query string false "Filter by author ID"
// @Success 200 {array} models.Post
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /posts [get]
func GetAllPosts(c *gin.Context) {
	query := db.DB.Preload("Author").Preload("Category").
		Where("status = ?", models.PostPublished).
		Order("created_at DESC")

	if category := c.Query("category"); category != "" {
		query = query.Where("category_id = ?", category)
	}
	if author := c.Query("author"); author != "" {
		query = query.Where("author_id = ?", author)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		utils.LogError(err, "Error fetching posts in GetAllPosts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching posts"})
		return
	}

	c.JSON(http.StatusOK, posts)
}

// @Summary Get a post
// @Description Retrieve one post by its id and increment its view counter
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} map[string]string "error: Post not found"
// @Router /posts/{id} [get]
func GetPostByID(c *gin.Context) {
	var post models.Post
	err := db.DB.Preload("Author").Preload("Category").
		First(&post, "id = ?", c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	db.DB.Model(&post).UpdateColumn("views_count", post.ViewsCount+1)
	post.ViewsCount++

	c.JSON(http.StatusOK, post)
}

// loadOwnPost fetches the post and checks ownership, replying on failure.
func loadOwnPost(c *gin.Context) (*models.Post, interface{}, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in token"})
		return nil, nil, false
	}

	var post models.Post
	if err := db.DB.First(&post, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, nil, false
	}

	if post.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not the author of this post"})
		return nil, nil, false
	}

	return &post, userID, true
}

// @Summary Update a post
// @Description Update a post owned by the connected user
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param post body models.PostUpdate true "Post information"
// @Security BearerAuth
// @Success 200 {object} models.Post
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Post not found"
// @Router /posts/{id} [put]
func UpdatePost(c *gin.Context) {
	post, userID, ok := loadOwnPost(c)
	if !ok {
		return
	}

	var input models.PostUpdate
	if !utils.ValidateRequestBody(c, &input) {
		return
	}

	updates := map[string]interface{}{}
	if input.Title != "" {
		updates["title"] = input.Title
	}
	if input.Content != "" {
		updates["content"] = input.Content
	}
	if input.Status == string(models.PostDraft) || input.Status == string(models.PostPublished) {
		updates["status"] = input.Status
	}
	if input.CategoryID != "" {
		var category models.Category
		if err := db.DB.First(&category, "id = ?", input.CategoryID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category not found"})
			return
		}
		updates["category_id"] = category.ID
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(post).Updates(updates).Error; err != nil {
			return err
		}
		// Unpublishing a post makes its pin invalid: the pin leaves in the
		// same transaction as the status change
		if updates["status"] == string(models.PostDraft) {
			return tx.Where("post_id = ?", post.ID).Delete(&models.PinnedPost{}).Error
		}
		return nil
	})
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error updating the post in UpdatePost")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating the post"})
		return
	}

	c.JSON(http.StatusOK, post)
}

// @Summary Delete a post
// @Description Delete a post owned by the connected user
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Post deleted"
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Failure 404 {object} map[string]string "error: Post not found"
// @Router /posts/{id} [delete]
func DeletePost(c *gin.Context) {
	post, userID, ok := loadOwnPost(c)
	if !ok {
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PinnedPost{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error deleting the post in DeletePost")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting the post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// @Summary Upload a post image
// @Description Upload an image for a post owned by the connected user
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Post ID"
// @Param image formData file true "Post image"
// @Security BearerAuth
// @Success 200 {object} models.Post
// @Failure 400 {object} map[string]string "error: Invalid image"
// @Failure 403 {object} map[string]string "error: Forbidden"
// @Router /posts/{id}/image [post]
func UploadPostImage(c *gin.Context) {
	post, userID, ok := loadOwnPost(c)
	if !ok {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image is required"})
		return
	}

	imageURL, err := utils.UploadImage(file, "post_images", "post")
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error uploading the image in UploadPostImage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error uploading the image: " + err.Error()})
		return
	}

	if err := db.DB.Model(post).Update("image_url", imageURL).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving the image URL"})
		return
	}

	post.ImageURL = imageURL
	c.JSON(http.StatusOK, post)
}
