package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blogpin-backend/models"
	"blogpin-backend/utils"

	stripe "github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

// IngestResult is what the webhook endpoint reports back to the provider.
type IngestResult string

const (
	IngestProcessed IngestResult = "processed"
	IngestIgnored   IngestResult = "ignored"
	IngestFailed    IngestResult = "failed"
)

// WebhookService is the reconciler between provider events and local
// payment/subscription state. Signature verification happens at the HTTP
// boundary; events arriving here are trusted.
type WebhookService struct {
	db       *gorm.DB
	payments *PaymentService
}

func NewWebhookService(db *gorm.DB, payments *PaymentService) *WebhookService {
	return &WebhookService{db: db, payments: payments}
}

// ProcessStripeEvent ingests one provider event. The stored event id is the
// sole dedup mechanism against at-least-once delivery: a known id returns
// processed without touching any handler. The pending row is persisted before
// any side-effecting work so a crash leaves a durable, retryable record.
func (s *WebhookService) ProcessStripeEvent(event stripe.Event, rawPayload []byte) (IngestResult, error) {
	if event.ID == "" {
		return IngestFailed, fmt.Errorf("%w: event without id", ErrPermanentWebhook)
	}

	var existing models.WebhookEvent
	if err := s.db.Where("event_id = ?", event.ID).First(&existing).Error; err == nil {
		return IngestProcessed, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return IngestFailed, err
	}

	record := models.WebhookEvent{
		Provider:  "stripe",
		EventID:   event.ID,
		EventType: string(event.Type),
		Status:    models.WebhookPending,
		Payload:   string(rawPayload),
	}
	if err := s.db.Create(&record).Error; err != nil {
		// The unique index on event_id turns a concurrent duplicate delivery
		// into a create failure; re-check before treating it as an error.
		var dup models.WebhookEvent
		if lookupErr := s.db.Where("event_id = ?", event.ID).First(&dup).Error; lookupErr == nil {
			return IngestProcessed, nil
		}
		return IngestFailed, err
	}

	return s.runDispatch(&record, event)
}

// RetryEvent re-runs the dispatch for an already stored event. This is the
// sweep's retry path: the dedup check is intentionally bypassed because the
// record exists.
func (s *WebhookService) RetryEvent(record *models.WebhookEvent) (IngestResult, error) {
	var event stripe.Event
	if err := json.Unmarshal([]byte(record.Payload), &event); err != nil {
		s.markFailed(record, "stored payload is not a valid event: "+err.Error())
		return IngestFailed, fmt.Errorf("%w: %v", ErrPermanentWebhook, err)
	}
	return s.runDispatch(record, event)
}

func (s *WebhookService) runDispatch(record *models.WebhookEvent, event stripe.Event) (IngestResult, error) {
	handled, err := s.dispatch(event)
	if err != nil {
		s.markFailed(record, err.Error())
		return IngestFailed, err
	}
	if !handled {
		s.markStatus(record, models.WebhookIgnored)
		return IngestIgnored, nil
	}
	s.markStatus(record, models.WebhookProcessed)
	return IngestProcessed, nil
}

// dispatch routes the event to its handler. Every handler is idempotent: the
// same event applied twice, or intent and session confirmations applied in
// either order, reach the same terminal state. Unknown event types report
// handled=false and are ignored for forward compatibility.
func (s *WebhookService) dispatch(event stripe.Event) (bool, error) {
	switch string(event.Type) {
	case "checkout.session.completed":
		return true, s.handleCheckoutCompleted(event)
	case "payment_intent.succeeded":
		return true, s.handlePaymentSucceeded(event)
	case "payment_intent.payment_failed":
		return true, s.handlePaymentFailed(event)
	case "charge.dispute.created":
		return true, s.handleDisputeCreated(event)
	default:
		return false, nil
	}
}

func (s *WebhookService) handleCheckoutCompleted(event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("%w: parsing checkout session: %v", ErrPermanentWebhook, err)
	}

	payment, err := s.paymentFromMetadata(session.Metadata)
	if err != nil {
		return err
	}

	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		if err := s.db.Model(payment).Update("stripe_payment_intent_id", session.PaymentIntent.ID).Error; err != nil {
			return err
		}
	}

	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		// Session completed but not settled yet; the payment_intent event
		// carries the confirmation.
		return nil
	}
	return s.payments.MarkSucceeded(payment.ID)
}

func (s *WebhookService) handlePaymentSucceeded(event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("%w: parsing payment intent: %v", ErrPermanentWebhook, err)
	}

	payment, err := s.paymentFromMetadata(intent.Metadata)
	if err != nil {
		return err
	}

	if intent.ID != "" {
		if err := s.db.Model(payment).Update("stripe_payment_intent_id", intent.ID).Error; err != nil {
			return err
		}
	}
	return s.payments.MarkSucceeded(payment.ID)
}

func (s *WebhookService) handlePaymentFailed(event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("%w: parsing payment intent: %v", ErrPermanentWebhook, err)
	}

	payment, err := s.paymentFromMetadata(intent.Metadata)
	if err != nil {
		return err
	}

	reason := "payment declined"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		reason = intent.LastPaymentError.Msg
	}
	return s.payments.MarkFailed(payment.ID, reason)
}

func (s *WebhookService) handleDisputeCreated(event stripe.Event) error {
	var dispute stripe.Dispute
	if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
		return fmt.Errorf("%w: parsing dispute: %v", ErrPermanentWebhook, err)
	}

	chargeID := ""
	if dispute.Charge != nil {
		chargeID = dispute.Charge.ID
	}
	utils.LogInfo("Dispute created for charge " + chargeID)
	return nil
}

// paymentFromMetadata resolves the affected payment through the metadata the
// checkout flow stamped on the provider objects. An unresolvable reference is
// permanent: no retry will make the payment appear.
func (s *WebhookService) paymentFromMetadata(metadata map[string]string) (*models.Payment, error) {
	paymentID := metadata["payment_id"]
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment_id missing from event metadata", ErrPermanentWebhook)
	}

	var payment models.Payment
	if err := s.db.First(&payment, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: payment %s not found", ErrPermanentWebhook, paymentID)
		}
		return nil, err
	}
	return &payment, nil
}

func (s *WebhookService) markStatus(record *models.WebhookEvent, status models.WebhookStatus) {
	now := time.Now()
	err := s.db.Model(record).Updates(map[string]interface{}{
		"status":       status,
		"processed_at": now,
	}).Error
	if err != nil {
		utils.LogError(err, "Error updating webhook event "+record.EventID)
	}
}

func (s *WebhookService) markFailed(record *models.WebhookEvent, message string) {
	now := time.Now()
	err := s.db.Model(record).Updates(map[string]interface{}{
		"status":        models.WebhookFailed,
		"error_message": message,
		"processed_at":  now,
	}).Error
	if err != nil {
		utils.LogError(err, "Error updating webhook event "+record.EventID)
	}
}
