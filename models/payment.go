package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSucceeded  PaymentStatus = "succeeded"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentRefunded   PaymentStatus = "refunded"
)

type Payment struct {
	ID             string        `json:"id" gorm:"primaryKey;type:uuid"`
	UserID         string        `json:"userId" gorm:"type:uuid;not null;index:idx_payments_user_status"`
	SubscriptionID *string       `json:"subscriptionId" gorm:"type:uuid;index"`
	Subscription   *Subscription `json:"subscription,omitempty" gorm:"foreignKey:SubscriptionID"`
	AmountCents    int64         `json:"amountCents" gorm:"not null"`
	Currency       string        `json:"currency" gorm:"type:varchar(3);default:'usd'"`
	Status         PaymentStatus `json:"status" gorm:"type:varchar(20);default:'pending';index:idx_payments_user_status"`
	PaymentMethod  string        `json:"paymentMethod" gorm:"type:varchar(20);default:'stripe'"`

	StripeCustomerId      string `json:"stripeCustomerId"`
	StripeSessionId       string `json:"stripeSessionId" gorm:"index"`
	StripePaymentIntentId string `json:"stripePaymentIntentId" gorm:"index"`

	Description string  `json:"description"`
	Metadata    JSONMap `json:"metadata" gorm:"type:text"`

	CreatedAt   time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ProcessedAt *time.Time `json:"processedAt"`

	Attempts []PaymentAttempt `json:"attempts,omitempty" gorm:"foreignKey:PaymentID"`
	Refunds  []Refund         `json:"refunds,omitempty" gorm:"foreignKey:PaymentID"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *Payment) IsSuccessful() bool {
	return p.Status == PaymentSucceeded
}

func (p *Payment) IsPending() bool {
	return p.Status == PaymentPending || p.Status == PaymentProcessing
}

// PaymentAttempt is an immutable audit record of one provider-side charge
// attempt.
type PaymentAttempt struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	PaymentID      string    `json:"paymentId" gorm:"type:uuid;not null;index"`
	StripeChargeId string    `json:"stripeChargeId"`
	Status         string    `json:"status" gorm:"type:varchar(50)"`
	ErrorMessage   string    `json:"errorMessage"`
	Metadata       JSONMap   `json:"metadata" gorm:"type:text"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}

func (a *PaymentAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundSucceeded RefundStatus = "succeeded"
	RefundFailed    RefundStatus = "failed"
	RefundCancelled RefundStatus = "cancelled"
)

type Refund struct {
	ID             string       `json:"id" gorm:"primaryKey;type:uuid"`
	PaymentID      string       `json:"paymentId" gorm:"type:uuid;not null;index"`
	AmountCents    int64        `json:"amountCents" gorm:"not null"`
	Reason         string       `json:"reason"`
	Status         RefundStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`
	StripeRefundId string       `json:"stripeRefundId"`
	CreatedByID    string       `json:"createdById" gorm:"type:uuid"`
	CreatedAt      time.Time    `json:"createdAt"`
	ProcessedAt    *time.Time   `json:"processedAt"`
}

type RefundCreate struct {
	AmountCents int64  `json:"amountCents" binding:"required,gt=0"`
	Reason      string `json:"reason"`
}

func (Refund) TableName() string {
	return "refunds"
}

func (r *Refund) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsPartial reports whether the refund covers less than the full payment.
func (r *Refund) IsPartial(p *Payment) bool {
	return r.AmountCents < p.AmountCents
}
