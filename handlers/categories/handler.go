package categories

import (
	"errors"
	"net/http"

	"blogpin-backend/db"
	"blogpin-backend/models"
	"blogpin-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @Summary Get all categories
// @Description Retrieve all categories ordered by name
// @Tags categories
// @Produce json
// @Success 200 {array} models.Category
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /categories [get]
func GetAllCategories(c *gin.Context) {
	var categories []models.Category
	if err := db.DB.Order("name").Find(&categories).Error; err != nil {
		utils.LogError(err, "Error fetching categories in GetAllCategories")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching categories"})
		return
	}

	c.JSON(http.StatusOK, categories)
}

// @Summary Get a category
// @Description Retrieve one category by its id
// @Tags categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} models.Category
// @Failure 404 {object} map[string]string "error: Category not found"
// @Router /categories/{id} [get]
func GetCategoryByID(c *gin.Context) {
	var category models.Category
	if err := db.DB.First(&category, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	c.JSON(http.StatusOK, category)
}

// @Summary Create a category
// @Description Create a new category (admin only)
// @Tags categories
// @Accept json
// @Produce json
// @Param category body models.CategoryCreate true "Category information"
// @Security BearerAuth
// @Success 201 {object} models.Category
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 409 {object} map[string]string "error: Category already exists"
// @Router /categories [post]
func CreateCategory(c *gin.Context) {
	var input models.CategoryCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var existing models.Category
	if err := db.DB.Where("name = ?", input.Name).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A category with this name already exists"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking the category existence"})
		return
	}

	category := models.Category{
		Name:        input.Name,
		Description: input.Description,
	}
	if err := db.DB.Create(&category).Error; err != nil {
		utils.LogError(err, "Error creating the category in CreateCategory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating the category"})
		return
	}

	utils.LogSuccess("Category created successfully in CreateCategory")
	c.JSON(http.StatusCreated, category)
}

// @Summary Update a category
// @Description Update a category (admin only)
// @Tags categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param category body models.CategoryCreate true "Category information"
// @Security BearerAuth
// @Success 200 {object} models.Category
// @Failure 404 {object} map[string]string "error: Category not found"
// @Router /categories/{id} [put]
func UpdateCategory(c *gin.Context) {
	var category models.Category
	if err := db.DB.First(&category, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	var input models.CategoryCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	if err := db.DB.Model(&category).Updates(map[string]interface{}{
		"name":        input.Name,
		"description": input.Description,
	}).Error; err != nil {
		utils.LogError(err, "Error updating the category in UpdateCategory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating the category"})
		return
	}

	c.JSON(http.StatusOK, category)
}

// @Summary Delete a category
// @Description Delete a category (admin only)
// @Tags categories
// @Produce json
// @Param id path string true "Category ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Category deleted"
// @Failure 404 {object} map[string]string "error: Category not found"
// @Router /categories/{id} [delete]
func DeleteCategory(c *gin.Context) {
	var category models.Category
	if err := db.DB.First(&category, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	if err := db.DB.Delete(&category).Error; err != nil {
		utils.LogError(err, "Error deleting the category in DeleteCategory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting the category"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}
