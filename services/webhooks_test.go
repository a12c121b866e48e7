package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"blogpin-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"
)

func makeEvent(id, eventType string, object interface{}) (stripe.Event, []byte) {
	raw, _ := json.Marshal(object)
	event := stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"id":   id,
		"type": eventType,
		"data": map[string]interface{}{"object": object},
	})
	return event, payload
}

func startCheckout(t *testing.T, env *testEnv, email string) (*models.User, string) {
	user := createTestUser(t, env.db, email)
	plan := createTestPlan(t, env.db, "Monthly "+email, 1200, 30)

	result, err := env.payments.CreateSubscriptionCheckout(context.Background(), user, plan,
		"https://app.example.com/success", "https://app.example.com/cancel")
	require.NoError(t, err)
	return user, result.PaymentID
}

func TestWebhookPaymentSucceededActivates(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	user, paymentID := startCheckout(t, env, "whsuccess@test.com")

	event, payload := makeEvent("evt_1", "payment_intent.succeeded", map[string]interface{}{
		"id":       "pi_wh_1",
		"metadata": map[string]string{"payment_id": paymentID},
	})

	result, err := env.webhooks.ProcessStripeEvent(event, payload)
	require.NoError(t, err)
	assert.Equal(t, IngestProcessed, result)

	var payment models.Payment
	require.NoError(t, env.db.First(&payment, "id = ?", paymentID).Error)
	assert.Equal(t, models.PaymentSucceeded, payment.Status)
	assert.Equal(t, "pi_wh_1", payment.StripePaymentIntentId)

	var sub models.Subscription
	require.NoError(t, env.db.First(&sub, "user_id = ?", user.ID).Error)
	assert.Equal(t, models.SubscriptionActive, sub.Status)

	var record models.WebhookEvent
	require.NoError(t, env.db.First(&record, "event_id = ?", "evt_1").Error)
	assert.Equal(t, models.WebhookProcessed, record.Status)
	assert.NotNil(t, record.ProcessedAt)
}

func TestWebhookDuplicateDeliveryIsIdempotent(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	_, paymentID := startCheckout(t, env, "whdup@test.com")

	event, payload := makeEvent("evt_dup", "payment_intent.succeeded", map[string]interface{}{
		"id":       "pi_wh_dup",
		"metadata": map[string]string{"payment_id": paymentID},
	})

	for i := 0; i < 3; i++ {
		result, err := env.webhooks.ProcessStripeEvent(event, payload)
		require.NoError(t, err)
		assert.Equal(t, IngestProcessed, result)
	}

	// Side effects applied exactly once despite three deliveries
	var attempts int64
	env.db.Model(&models.PaymentAttempt{}).Where("payment_id = ?", paymentID).Count(&attempts)
	assert.Equal(t, int64(1), attempts)

	var records int64
	env.db.Model(&models.WebhookEvent{}).Where("event_id = ?", "evt_dup").Count(&records)
	assert.Equal(t, int64(1), records)
}

func TestWebhookOutOfOrderFailureAfterSuccess(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	user, paymentID := startCheckout(t, env, "whorder@test.com")

	success, successPayload := makeEvent("evt_ok", "payment_intent.succeeded", map[string]interface{}{
		"id":       "pi_wh_order",
		"metadata": map[string]string{"payment_id": paymentID},
	})
	failure, failurePayload := makeEvent("evt_ko", "payment_intent.payment_failed", map[string]interface{}{
		"id":       "pi_wh_order",
		"metadata": map[string]string{"payment_id": paymentID},
	})

	_, err := env.webhooks.ProcessStripeEvent(success, successPayload)
	require.NoError(t, err)

	result, err := env.webhooks.ProcessStripeEvent(failure, failurePayload)
	require.NoError(t, err)
	assert.Equal(t, IngestProcessed, result)

	// The stale failure lost, the settled state stands
	var payment models.Payment
	require.NoError(t, env.db.First(&payment, "id = ?", paymentID).Error)
	assert.Equal(t, models.PaymentSucceeded, payment.Status)

	var sub models.Subscription
	require.NoError(t, env.db.First(&sub, "user_id = ?", user.ID).Error)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
}

func TestWebhookCheckoutCompletedUnpaidWaits(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	_, paymentID := startCheckout(t, env, "whunpaid@test.com")

	event, payload := makeEvent("evt_unpaid", "checkout.session.completed", map[string]interface{}{
		"id":             "cs_wh_1",
		"payment_status": "unpaid",
		"metadata":       map[string]string{"payment_id": paymentID},
	})

	result, err := env.webhooks.ProcessStripeEvent(event, payload)
	require.NoError(t, err)
	assert.Equal(t, IngestProcessed, result)

	var payment models.Payment
	require.NoError(t, env.db.First(&payment, "id = ?", paymentID).Error)
	assert.Equal(t, models.PaymentProcessing, payment.Status)
}

func TestWebhookCheckoutCompletedPaidConfirms(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	_, paymentID := startCheckout(t, env, "whpaid@test.com")

	event, payload := makeEvent("evt_paid", "checkout.session.completed", map[string]interface{}{
		"id":             "cs_wh_2",
		"payment_status": "paid",
		"payment_intent": map[string]interface{}{"id": "pi_from_session"},
		"metadata":       map[string]string{"payment_id": paymentID},
	})

	result, err := env.webhooks.ProcessStripeEvent(event, payload)
	require.NoError(t, err)
	assert.Equal(t, IngestProcessed, result)

	var payment models.Payment
	require.NoError(t, env.db.First(&payment, "id = ?", paymentID).Error)
	assert.Equal(t, models.PaymentSucceeded, payment.Status)
	assert.Equal(t, "pi_from_session", payment.StripePaymentIntentId)
}

func TestWebhookUnknownTypeIsIgnored(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	event, payload := makeEvent("evt_unknown", "customer.updated", map[string]interface{}{
		"id": "cus_x",
	})

	result, err := env.webhooks.ProcessStripeEvent(event, payload)
	require.NoError(t, err)
	assert.Equal(t, IngestIgnored, result)

	var record models.WebhookEvent
	require.NoError(t, env.db.First(&record, "event_id = ?", "evt_unknown").Error)
	assert.Equal(t, models.WebhookIgnored, record.Status)
}

func TestWebhookMissingMetadataFails(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	event, payload := makeEvent("evt_nometa", "payment_intent.succeeded", map[string]interface{}{
		"id": "pi_orphan",
	})

	result, err := env.webhooks.ProcessStripeEvent(event, payload)
	assert.Equal(t, IngestFailed, result)
	require.Error(t, err)

	var record models.WebhookEvent
	require.NoError(t, env.db.First(&record, "event_id = ?", "evt_nometa").Error)
	assert.Equal(t, models.WebhookFailed, record.Status)
	assert.NotEmpty(t, record.ErrorMessage)
}

func TestWebhookRetryReprocessesStoredPayload(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	// First delivery fails because the payment does not exist yet
	event, payload := makeEvent("evt_retry", "payment_intent.succeeded", map[string]interface{}{
		"id":       "pi_retry",
		"metadata": map[string]string{"payment_id": "00000000-0000-0000-0000-00000000feed"},
	})
	result, _ := env.webhooks.ProcessStripeEvent(event, payload)
	assert.Equal(t, IngestFailed, result)

	var record models.WebhookEvent
	require.NoError(t, env.db.First(&record, "event_id = ?", "evt_retry").Error)
	require.Equal(t, models.WebhookFailed, record.Status)

	// The retry path replays the stored payload, not a fresh delivery
	result, err := env.webhooks.RetryEvent(&record)
	assert.Equal(t, IngestFailed, result)
	require.Error(t, err)
}

func TestWebhookWithoutIDIsRejected(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	event, payload := makeEvent("", "payment_intent.succeeded", map[string]interface{}{})

	result, err := env.webhooks.ProcessStripeEvent(event, payload)
	assert.Equal(t, IngestFailed, result)
	assert.True(t, errors.Is(err, ErrPermanentWebhook))
}
