package services

import "gorm.io/gorm"

// Package-level service instances, wired once at startup. The payment
// provider is injected here rather than read from ambient state so tests can
// swap in a fake.
var (
	Subscriptions *SubscriptionService
	Payments      *PaymentService
	Pins          *PinService
	Webhooks      *WebhookService
)

func Init(db *gorm.DB, provider PaymentProvider) {
	Subscriptions = NewSubscriptionService(db)
	Payments = NewPaymentService(db, provider, Subscriptions)
	Pins = NewPinService(db, Subscriptions)
	Webhooks = NewWebhookService(db, Payments)
}
