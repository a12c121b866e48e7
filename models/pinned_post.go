package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PinnedPost is the featured slot a paying subscriber fills with one of their
// own posts. The unique index on UserID is the exclusivity guarantee: two
// concurrent pin requests cannot both insert a row for the same user.
type PinnedPost struct {
	ID       string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID   string    `json:"userId" gorm:"type:uuid;not null;uniqueIndex"`
	PostID   string    `json:"postId" gorm:"type:uuid;not null"`
	Post     *Post     `json:"post,omitempty" gorm:"foreignKey:PostID"`
	PinnedAt time.Time `json:"pinnedAt"`
}

type PinRequest struct {
	PostID string `json:"postId" binding:"required"`
}

// PinCapability is the structured report returned by the can-pin endpoint.
type PinCapability struct {
	PostExists         bool `json:"post_exists"`
	IsOwnPost          bool `json:"is_own_post"`
	HasSubscription    bool `json:"has_subscription"`
	SubscriptionActive bool `json:"subscription_active"`
	CanPin             bool `json:"can_pin"`
}

func (PinnedPost) TableName() string {
	return "pinned_posts"
}

func (p *PinnedPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PinnedAt.IsZero() {
		p.PinnedAt = time.Now()
	}
	return nil
}
