package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string    `json:"name" gorm:"uniqueIndex" binding:"required"`
	Slug        string    `json:"slug" gorm:"uniqueIndex"`
	Description string    `json:"description"`
	Posts       []Post    `json:"posts,omitempty" gorm:"foreignKey:CategoryID"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CategoryCreate struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (Category) TableName() string {
	return "categories"
}

func (cat *Category) BeforeCreate(tx *gorm.DB) error {
	if cat.ID == "" {
		cat.ID = uuid.NewString()
	}
	if cat.Slug == "" {
		cat.Slug = Slugify(cat.Name)
	}
	return nil
}
