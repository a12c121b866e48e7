package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

type Post struct {
	ID         string     `json:"id" gorm:"primaryKey;type:uuid"`
	AuthorID   string     `json:"authorId" gorm:"type:uuid;not null;index"`
	Author     *User      `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	CategoryID *string    `json:"categoryId" gorm:"type:uuid;index"`
	Category   *Category  `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Title      string     `json:"title" binding:"required"`
	Slug       string     `json:"slug" gorm:"uniqueIndex"`
	Content    string     `json:"content"`
	ImageURL   string     `json:"imageUrl"`
	Status     PostStatus `json:"status" gorm:"type:varchar(20);default:'published';index"`
	ViewsCount int        `json:"viewsCount" gorm:"default:0"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type PostCreate struct {
	Title      string `json:"title" binding:"required"`
	Content    string `json:"content"`
	CategoryID string `json:"categoryId"`
	Status     string `json:"status"`
}

type PostUpdate struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID string `json:"categoryId"`
	Status     string `json:"status"`
}

func (Post) TableName() string {
	return "posts"
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Slug == "" {
		// Slugs must stay unique, the uuid suffix avoids collisions on identical titles
		p.Slug = Slugify(p.Title) + "-" + p.ID[:8]
	}
	return nil
}

// Slugify converts a title into a URL-safe slug
func Slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
