package services

import (
	"errors"
	"fmt"
	"time"

	"blogpin-backend/models"
	"blogpin-backend/utils"

	"gorm.io/gorm"
)

// SubscriptionService is the lifecycle engine. Every transition runs inside a
// single transaction together with its side effects (history entry, pin
// removal), so the store never holds a half-applied transition.
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// CurrentSubscription returns the user's subscription or nil when they have
// none. Absence is a value, not an error.
func (s *SubscriptionService) CurrentSubscription(userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.Preload("Plan").Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// History returns the append-only log of the user's subscription, newest
// first.
func (s *SubscriptionService) History(userID string) ([]models.SubscriptionHistory, error) {
	sub, err := s.CurrentSubscription(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return []models.SubscriptionHistory{}, nil
	}

	var entries []models.SubscriptionHistory
	err = s.db.Where("subscription_id = ?", sub.ID).Order("created_at DESC").Find(&entries).Error
	return entries, err
}

func appendHistory(tx *gorm.DB, subscriptionID, action, description string, metadata models.JSONMap) error {
	return tx.Create(&models.SubscriptionHistory{
		SubscriptionID: subscriptionID,
		Action:         action,
		Description:    description,
		Metadata:       metadata,
	}).Error
}

func deletePinForUser(tx *gorm.DB, userID, subscriptionID string) error {
	var pin models.PinnedPost
	err := tx.Where("user_id = ?", userID).First(&pin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := tx.Delete(&pin).Error; err != nil {
		return err
	}
	if subscriptionID != "" {
		return appendHistory(tx, subscriptionID, models.HistoryPostUnpinned, "Pinned post removed", models.JSONMap{
			"post_id": pin.PostID,
		})
	}
	return nil
}

// ActivateTx moves a pending subscription to active inside the caller's
// transaction. Re-activation of an already active subscription is a no-op so
// duplicate payment confirmations stay idempotent.
func (s *SubscriptionService) ActivateTx(tx *gorm.DB, subscriptionID, paymentID string) error {
	var sub models.Subscription
	if err := tx.Preload("Plan").First(&sub, "id = ?", subscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: subscription %s", ErrNotFound, subscriptionID)
		}
		return err
	}

	if sub.Status == models.SubscriptionActive {
		return nil
	}
	if sub.Plan == nil {
		return fmt.Errorf("%w: subscription %s has no plan", ErrConflict, subscriptionID)
	}

	now := time.Now()
	endDate := now.AddDate(0, 0, sub.Plan.DurationDays)

	// Conditional update: only a pending subscription may activate. A zero
	// row count means a concurrent transition won the race.
	res := tx.Model(&models.Subscription{}).
		Where("id = ? AND status = ?", subscriptionID, models.SubscriptionPending).
		Updates(map[string]interface{}{
			"status":     models.SubscriptionActive,
			"start_date": now,
			"end_date":   endDate,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: subscription %s is %s, cannot activate", ErrConflict, subscriptionID, sub.Status)
	}

	return appendHistory(tx, subscriptionID, models.HistoryActivated,
		"Subscription activated after successful payment",
		models.JSONMap{"payment_id": paymentID})
}

// Cancel is the explicit user-facing cancellation: active subscriptions only.
func (s *SubscriptionService) Cancel(userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Where("user_id = ?", userID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no subscription found", ErrNotFound)
		}
		if err != nil {
			return err
		}

		res := tx.Model(&models.Subscription{}).
			Where("id = ? AND status = ?", sub.ID, models.SubscriptionActive).
			Update("status", models.SubscriptionCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: subscription is not active", ErrConflict)
		}

		if err := deletePinForUser(tx, sub.UserID, sub.ID); err != nil {
			return err
		}
		return appendHistory(tx, sub.ID, models.HistoryCancelled, "Subscription cancelled by user", nil)
	})
}

// CancelTx cancels whatever live state the subscription is in, as a side
// effect of another operation (full refund, failed payment cleanup). Already
// terminal subscriptions are left untouched.
func (s *SubscriptionService) CancelTx(tx *gorm.DB, sub *models.Subscription, description string, metadata models.JSONMap) error {
	res := tx.Model(&models.Subscription{}).
		Where("id = ? AND status IN ?", sub.ID,
			[]models.SubscriptionStatus{models.SubscriptionPending, models.SubscriptionActive}).
		Update("status", models.SubscriptionCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	if err := deletePinForUser(tx, sub.UserID, sub.ID); err != nil {
		return err
	}
	return appendHistory(tx, sub.ID, models.HistoryCancelled, description, metadata)
}

// HandleFailedPaymentTx cancels a pending subscription after its payment
// failed. A pin should not exist before activation, removing it anyway keeps
// the invariant even if one slipped in.
func (s *SubscriptionService) HandleFailedPaymentTx(tx *gorm.DB, sub *models.Subscription, reason string, paymentID string) error {
	res := tx.Model(&models.Subscription{}).
		Where("id = ? AND status = ?", sub.ID, models.SubscriptionPending).
		Update("status", models.SubscriptionCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	if err := deletePinForUser(tx, sub.UserID, sub.ID); err != nil {
		return err
	}
	return appendHistory(tx, sub.ID, models.HistoryPaymentFailed,
		"Payment failed: "+reason,
		models.JSONMap{"payment_id": paymentID})
}

// Expire moves an active subscription whose end date has passed to the
// expired terminal state. The row is retained for auditability; only the pin
// goes away.
func (s *SubscriptionService) Expire(subscriptionID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.First(&sub, "id = ?", subscriptionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: subscription %s", ErrNotFound, subscriptionID)
			}
			return err
		}

		res := tx.Model(&models.Subscription{}).
			Where("id = ? AND status = ?", sub.ID, models.SubscriptionActive).
			Update("status", models.SubscriptionExpired)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another sweep or a cancellation got there first
			return nil
		}

		if err := deletePinForUser(tx, sub.UserID, sub.ID); err != nil {
			return err
		}
		if err := appendHistory(tx, sub.ID, models.HistoryExpired, "Subscription expired", nil); err != nil {
			return err
		}

		utils.LogInfo("Subscription " + sub.ID + " expired")
		return nil
	})
}

// CreateTx creates a pending subscription for the user, replacing a previous
// terminal one. A live (pending or active) subscription blocks creation.
func (s *SubscriptionService) CreateTx(tx *gorm.DB, userID string, plan *models.SubscriptionPlan) (*models.Subscription, error) {
	var existing models.Subscription
	err := tx.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		switch existing.Status {
		case models.SubscriptionPending, models.SubscriptionActive:
			return nil, fmt.Errorf("%w: you already have an active or pending subscription", ErrConflict)
		default:
			// Terminal rows are replaced, not reactivated. History entries of
			// the old subscription are kept.
			if err := tx.Delete(&existing).Error; err != nil {
				return nil, err
			}
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	sub := models.Subscription{
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionPending,
		StartDate: now,
		EndDate:   now,
	}
	if err := tx.Create(&sub).Error; err != nil {
		return nil, err
	}

	if err := appendHistory(tx, sub.ID, models.HistoryCreated,
		"Subscription created for plan "+plan.Name, nil); err != nil {
		return nil, err
	}

	sub.Plan = plan
	return &sub, nil
}
