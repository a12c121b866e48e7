package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// History action tags, one per meaningful transition.
const (
	HistoryCreated       = "created"
	HistoryActivated     = "activated"
	HistoryCancelled     = "cancelled"
	HistoryExpired       = "expired"
	HistoryPaymentFailed = "payment_failed"
	HistoryPostPinned    = "post_pinned"
	HistoryPostUnpinned  = "post_unpinned"
)

type SubscriptionPlan struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name          string    `json:"name" gorm:"uniqueIndex" binding:"required"`
	PriceCents    int64     `json:"priceCents" gorm:"not null"`
	Currency      string    `json:"currency" gorm:"type:varchar(3);default:'usd'"`
	DurationDays  int       `json:"durationDays" gorm:"not null"`
	IsActive      bool      `json:"isActive" gorm:"default:true"`
	StripePriceID string    `json:"stripePriceId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type SubscriptionPlanCreate struct {
	Name         string `json:"name" binding:"required"`
	PriceCents   int64  `json:"priceCents" binding:"required,gt=0"`
	Currency     string `json:"currency"`
	DurationDays int    `json:"durationDays" binding:"required,gt=0"`
}

// Subscription is the per-user entitlement slot. The unique index on UserID
// enforces at most one subscription row per user at the database level.
type Subscription struct {
	ID        string             `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string             `json:"userId" gorm:"type:uuid;not null;uniqueIndex"`
	PlanID    string             `json:"planId" gorm:"type:uuid;not null"`
	Plan      *SubscriptionPlan  `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
	Status    SubscriptionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	StartDate time.Time          `json:"startDate"`
	EndDate   time.Time          `json:"endDate" gorm:"index"`
	AutoRenew bool               `json:"autoRenew" gorm:"default:false"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// IsCurrentlyActive reports whether the subscription grants entitlements right
// now. Read paths must use this rather than the raw status because expiry is
// swept periodically, not at the instant end_date passes.
func (s *Subscription) IsCurrentlyActive() bool {
	return s.Status == SubscriptionActive && s.EndDate.After(time.Now())
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (p *SubscriptionPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// SubscriptionHistory is an append-only audit log. Rows are never updated or
// deleted, and they survive the subscription reaching a terminal state.
type SubscriptionHistory struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	SubscriptionID string    `json:"subscriptionId" gorm:"type:uuid;not null;index"`
	Action         string    `json:"action" gorm:"type:varchar(30);not null"`
	Description    string    `json:"description"`
	Metadata       JSONMap   `json:"metadata" gorm:"type:text"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (SubscriptionHistory) TableName() string {
	return "subscription_history"
}

func (h *SubscriptionHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
