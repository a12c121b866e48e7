package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WebhookStatus string

const (
	WebhookPending    WebhookStatus = "pending"
	WebhookProcessing WebhookStatus = "processing"
	WebhookProcessed  WebhookStatus = "processed"
	WebhookFailed     WebhookStatus = "failed"
	WebhookIgnored    WebhookStatus = "ignored"
)

// WebhookEvent records every inbound provider event. The unique EventID index
// is the deduplication key against at-least-once delivery: an event whose id
// is already stored is never dispatched a second time.
type WebhookEvent struct {
	ID           string        `json:"id" gorm:"primaryKey;type:uuid"`
	Provider     string        `json:"provider" gorm:"type:varchar(20);default:'stripe';index:idx_webhook_provider_type"`
	EventID      string        `json:"eventId" gorm:"uniqueIndex;not null"`
	EventType    string        `json:"eventType" gorm:"index:idx_webhook_provider_type"`
	Status       WebhookStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Payload      string        `json:"payload" gorm:"type:text"`
	ErrorMessage string        `json:"errorMessage"`
	CreatedAt    time.Time     `json:"createdAt" gorm:"index"`
	ProcessedAt  *time.Time    `json:"processedAt"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

func (w *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}
