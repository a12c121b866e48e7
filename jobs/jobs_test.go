package jobs

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"blogpin-backend/models"
	"blogpin-backend/services"
	"blogpin-backend/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	log.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

func newTestJobs(t *testing.T) (*Jobs, *gorm.DB, func()) {
	gormDB, cleanup := testutils.SetupSQLiteDB(t)

	subs := services.NewSubscriptionService(gormDB)
	payments := services.NewPaymentService(gormDB, nil, subs)
	webhooks := services.NewWebhookService(gormDB, payments)

	return NewJobs(gormDB, subs, webhooks), gormDB, cleanup
}

func seedActiveSubscription(t *testing.T, gormDB *gorm.DB, email string, endDate time.Time) *models.Subscription {
	user := &models.User{Email: email, UserName: "tester", Enable: true}
	require.NoError(t, gormDB.Create(user).Error)

	plan := &models.SubscriptionPlan{Name: "Plan " + email, PriceCents: 1200, Currency: "usd", DurationDays: 30, IsActive: true}
	require.NoError(t, gormDB.Create(plan).Error)

	sub := &models.Subscription{
		UserID:    user.ID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionActive,
		StartDate: endDate.AddDate(0, 0, -30),
		EndDate:   endDate,
	}
	require.NoError(t, gormDB.Create(sub).Error)
	return sub
}

func TestExpireSubscriptionsSweep(t *testing.T) {
	jobs, gormDB, cleanup := newTestJobs(t)
	defer cleanup()

	lapsed := seedActiveSubscription(t, gormDB, "lapsed@test.com", time.Now().Add(-time.Hour))
	running := seedActiveSubscription(t, gormDB, "running@test.com", time.Now().Add(24*time.Hour))

	// The lapsed subscriber still holds a pin that must go away with the sweep
	post := &models.Post{AuthorID: lapsed.UserID, Title: "Pinned", Status: models.PostPublished}
	require.NoError(t, gormDB.Create(post).Error)
	require.NoError(t, gormDB.Create(&models.PinnedPost{UserID: lapsed.UserID, PostID: post.ID}).Error)

	count, err := jobs.ExpireSubscriptions()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var expired models.Subscription
	require.NoError(t, gormDB.First(&expired, "id = ?", lapsed.ID).Error)
	assert.Equal(t, models.SubscriptionExpired, expired.Status)

	var untouched models.Subscription
	require.NoError(t, gormDB.First(&untouched, "id = ?", running.ID).Error)
	assert.Equal(t, models.SubscriptionActive, untouched.Status)

	var pinCount int64
	gormDB.Model(&models.PinnedPost{}).Where("user_id = ?", lapsed.UserID).Count(&pinCount)
	assert.Equal(t, int64(0), pinCount)

	// A second run finds nothing left to do
	count, err = jobs.ExpireSubscriptions()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRetryFailedWebhooksSweep(t *testing.T) {
	jobs, gormDB, cleanup := newTestJobs(t)
	defer cleanup()

	user := &models.User{Email: "whretry@test.com", UserName: "tester", Enable: true}
	require.NoError(t, gormDB.Create(user).Error)
	payment := &models.Payment{UserID: user.ID, AmountCents: 1200, Currency: "usd", Status: models.PaymentProcessing}
	require.NoError(t, gormDB.Create(payment).Error)

	payload, _ := json.Marshal(map[string]interface{}{
		"id":   "evt_sweep",
		"type": "payment_intent.succeeded",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":       "pi_sweep",
				"metadata": map[string]string{"payment_id": payment.ID},
			},
		},
	})

	old := models.WebhookEvent{
		EventID:   "evt_sweep",
		EventType: "payment_intent.succeeded",
		Status:    models.WebhookFailed,
		Payload:   string(payload),
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, gormDB.Create(&old).Error)

	recent := models.WebhookEvent{
		EventID:   "evt_too_recent",
		EventType: "payment_intent.succeeded",
		Status:    models.WebhookFailed,
		Payload:   string(payload),
	}
	require.NoError(t, gormDB.Create(&recent).Error)

	count, err := jobs.RetryFailedWebhooks()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var fresh models.Payment
	require.NoError(t, gormDB.First(&fresh, "id = ?", payment.ID).Error)
	assert.Equal(t, models.PaymentSucceeded, fresh.Status)

	var retried models.WebhookEvent
	require.NoError(t, gormDB.First(&retried, "event_id = ?", "evt_sweep").Error)
	assert.Equal(t, models.WebhookProcessed, retried.Status)

	// Events younger than the retry threshold are left alone
	var skipped models.WebhookEvent
	require.NoError(t, gormDB.First(&skipped, "event_id = ?", "evt_too_recent").Error)
	assert.Equal(t, models.WebhookFailed, skipped.Status)
}

func TestSendExpiryRemindersSelectsWindow(t *testing.T) {
	jobs, gormDB, cleanup := newTestJobs(t)
	defer cleanup()

	// Ends in ten days, outside the reminder window
	seedActiveSubscription(t, gormDB, "faraway@test.com", time.Now().AddDate(0, 0, 10))

	sent, err := jobs.SendExpiryReminders()
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestCleanupOldPayments(t *testing.T) {
	jobs, gormDB, cleanup := newTestJobs(t)
	defer cleanup()

	user := &models.User{Email: "cleanup@test.com", UserName: "tester", Enable: true}
	require.NoError(t, gormDB.Create(user).Error)

	oldFailed := models.Payment{UserID: user.ID, AmountCents: 100, Status: models.PaymentFailed,
		CreatedAt: time.Now().Add(-100 * 24 * time.Hour)}
	oldSucceeded := models.Payment{UserID: user.ID, AmountCents: 200, Status: models.PaymentSucceeded,
		CreatedAt: time.Now().Add(-100 * 24 * time.Hour)}
	recentFailed := models.Payment{UserID: user.ID, AmountCents: 300, Status: models.PaymentFailed}
	require.NoError(t, gormDB.Create(&oldFailed).Error)
	require.NoError(t, gormDB.Create(&oldSucceeded).Error)
	require.NoError(t, gormDB.Create(&recentFailed).Error)

	deleted, err := jobs.CleanupOldPayments()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// Succeeded payments are never cleaned up, they are the money trail
	var remaining []models.Payment
	require.NoError(t, gormDB.Find(&remaining).Error)
	assert.Len(t, remaining, 2)
}

func TestCleanupOldWebhookEvents(t *testing.T) {
	jobs, gormDB, cleanup := newTestJobs(t)
	defer cleanup()

	oldProcessed := models.WebhookEvent{EventID: "evt_old_ok", Status: models.WebhookProcessed,
		CreatedAt: time.Now().Add(-40 * 24 * time.Hour)}
	oldFailed := models.WebhookEvent{EventID: "evt_old_ko", Status: models.WebhookFailed,
		CreatedAt: time.Now().Add(-40 * 24 * time.Hour)}
	recent := models.WebhookEvent{EventID: "evt_fresh", Status: models.WebhookProcessed}
	require.NoError(t, gormDB.Create(&oldProcessed).Error)
	require.NoError(t, gormDB.Create(&oldFailed).Error)
	require.NoError(t, gormDB.Create(&recent).Error)

	deleted, err := jobs.CleanupOldWebhookEvents()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// Failed events stay reachable for the retry sweep
	var record models.WebhookEvent
	require.NoError(t, gormDB.First(&record, "event_id = ?", "evt_old_ko").Error)
	assert.Equal(t, models.WebhookFailed, record.Status)
}
