package jobs

import (
	"fmt"
	"time"

	"blogpin-backend/models"
	"blogpin-backend/services"
	"blogpin-backend/utils"

	"gorm.io/gorm"
)

const (
	webhookRetryAge   = 24 * time.Hour
	webhookRetryBatch = 50
	reminderLeadDays  = 3
	paymentRetention  = 90 * 24 * time.Hour
	webhookRetention  = 30 * 24 * time.Hour
)

// Jobs holds the periodic sweeps that reconcile time-based state
// independently of webhook delivery. Every sweep isolates failures per
// record: one bad row never aborts the rest of the batch.
type Jobs struct {
	db       *gorm.DB
	subs     *services.SubscriptionService
	webhooks *services.WebhookService
}

func NewJobs(db *gorm.DB, subs *services.SubscriptionService, webhooks *services.WebhookService) *Jobs {
	return &Jobs{db: db, subs: subs, webhooks: webhooks}
}

// ExpireSubscriptions sweeps active subscriptions past their end date into
// the expired terminal state, revoking their pins. This is the defense
// against missed webhooks: expiry never depends on event delivery.
func (j *Jobs) ExpireSubscriptions() (int, error) {
	var expired []models.Subscription
	err := j.db.Where("status = ? AND end_date < ?", models.SubscriptionActive, time.Now()).
		Find(&expired).Error
	if err != nil {
		return 0, err
	}

	count := 0
	for _, sub := range expired {
		if err := j.subs.Expire(sub.ID); err != nil {
			utils.LogError(err, "Error expiring subscription "+sub.ID)
			continue
		}
		count++
	}

	if count > 0 {
		utils.LogSuccess(fmt.Sprintf("Expiry sweep finished, %d subscriptions expired", count))
	}
	return count, nil
}

// RetryFailedWebhooks re-dispatches failed webhook events older than the
// retry threshold, capped per run. Handlers are idempotent so permanent
// failures being retried again is an inefficiency, not a risk.
func (j *Jobs) RetryFailedWebhooks() (int, error) {
	cutoff := time.Now().Add(-webhookRetryAge)

	var events []models.WebhookEvent
	err := j.db.Where("status = ? AND created_at < ?", models.WebhookFailed, cutoff).
		Order("created_at").Limit(webhookRetryBatch).Find(&events).Error
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range events {
		result, err := j.webhooks.RetryEvent(&events[i])
		if err != nil {
			utils.LogError(err, "Error retrying webhook event "+events[i].EventID)
			continue
		}
		if result == services.IngestProcessed || result == services.IngestIgnored {
			count++
		}
	}

	if count > 0 {
		utils.LogSuccess(fmt.Sprintf("Webhook retry sweep finished, %d events reprocessed", count))
	}
	return count, nil
}

// SendExpiryReminders mails subscribers whose non-renewing subscription ends
// in three days.
func (j *Jobs) SendExpiryReminders() (int, error) {
	dayStart := time.Now().AddDate(0, 0, reminderLeadDays).Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	var expiring []models.Subscription
	err := j.db.Where("status = ? AND auto_renew = ? AND end_date >= ? AND end_date < ?",
		models.SubscriptionActive, false, dayStart, dayEnd).
		Find(&expiring).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, sub := range expiring {
		var user models.User
		if err := j.db.First(&user, "id = ?", sub.UserID).Error; err != nil {
			utils.LogError(err, "Error loading user for reminder on subscription "+sub.ID)
			continue
		}
		if err := utils.SendSubscriptionExpiryReminder(user.Email, user.UserName, reminderLeadDays); err != nil {
			utils.LogError(err, "Error sending expiry reminder to "+user.Email)
			continue
		}
		sent++
	}

	if sent > 0 {
		utils.LogSuccess(fmt.Sprintf("Reminder sweep finished, %d reminders sent", sent))
	}
	return sent, nil
}

// CleanupOldPayments removes failed and cancelled payments past the retention
// window.
func (j *Jobs) CleanupOldPayments() (int64, error) {
	cutoff := time.Now().Add(-paymentRetention)

	res := j.db.Where("created_at < ? AND status IN ?", cutoff,
		[]models.PaymentStatus{models.PaymentFailed, models.PaymentCancelled}).
		Delete(&models.Payment{})
	if res.Error != nil {
		return 0, res.Error
	}

	if res.RowsAffected > 0 {
		utils.LogSuccess(fmt.Sprintf("Payment cleanup finished, %d payments deleted", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// CleanupOldWebhookEvents removes settled webhook events past the retention
// window. Failed events are kept so the retry sweep can still reach them.
func (j *Jobs) CleanupOldWebhookEvents() (int64, error) {
	cutoff := time.Now().Add(-webhookRetention)

	res := j.db.Where("created_at < ? AND status IN ?", cutoff,
		[]models.WebhookStatus{models.WebhookProcessed, models.WebhookIgnored}).
		Delete(&models.WebhookEvent{})
	if res.Error != nil {
		return 0, res.Error
	}

	if res.RowsAffected > 0 {
		utils.LogSuccess(fmt.Sprintf("Webhook cleanup finished, %d events deleted", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
