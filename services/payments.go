package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blogpin-backend/models"
	"blogpin-backend/utils"

	"gorm.io/gorm"
)

// PaymentService is the payment ledger plus the checkout orchestration around
// it. Terminal transitions are idempotent: confirming the same payment twice
// applies the activation side effects exactly once.
type PaymentService struct {
	db       *gorm.DB
	provider PaymentProvider
	subs     *SubscriptionService
}

func NewPaymentService(db *gorm.DB, provider PaymentProvider, subs *SubscriptionService) *PaymentService {
	return &PaymentService{db: db, provider: provider, subs: subs}
}

// CheckoutResult is returned to the client to redirect into the hosted
// checkout page.
type CheckoutResult struct {
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
	PaymentID   string `json:"paymentId"`
}

// CreateSubscriptionCheckout creates the pending subscription and payment in
// one transaction, then asks the provider for a checkout session. A provider
// failure marks the payment failed and cancels the pending subscription
// instead of surfacing an exception.
func (s *PaymentService) CreateSubscriptionCheckout(ctx context.Context, user *models.User, plan *models.SubscriptionPlan, successURL, cancelURL string) (*CheckoutResult, error) {
	if !plan.IsActive {
		return nil, fmt.Errorf("%w: plan %s is not available", ErrValidation, plan.Name)
	}

	var payment models.Payment
	var sub *models.Subscription

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.subs.CreateTx(tx, user.ID, plan)
		if err != nil {
			return err
		}

		payment = models.Payment{
			UserID:         user.ID,
			SubscriptionID: &sub.ID,
			AmountCents:    plan.PriceCents,
			Currency:       plan.Currency,
			Status:         models.PaymentPending,
			PaymentMethod:  "stripe",
			Description:    "Subscription to " + plan.Name,
			Metadata:       models.JSONMap{"plan_id": plan.ID},
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		s.failCheckout(&payment, sub, err.Error())
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID:  customerID,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		ProductName: "Subscription - " + plan.Name,
		Description: payment.Description,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
		Metadata: map[string]string{
			"payment_id":      payment.ID,
			"user_id":         user.ID,
			"subscription_id": sub.ID,
		},
	})
	if err != nil {
		s.failCheckout(&payment, sub, err.Error())
		return nil, err
	}

	err = s.db.Model(&payment).Updates(map[string]interface{}{
		"stripe_customer_id": customerID,
		"stripe_session_id":  session.ID,
		"status":             models.PaymentProcessing,
	}).Error
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
		PaymentID:   payment.ID,
	}, nil
}

func (s *PaymentService) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerId != "" {
		return user.StripeCustomerId, nil
	}

	customerID, err := s.provider.CreateCustomer(ctx, user.Email, user.UserName, map[string]string{
		"user_id": user.ID,
	})
	if err != nil {
		return "", err
	}

	if err := s.db.Model(user).Update("stripe_customer_id", customerID).Error; err != nil {
		return "", err
	}
	user.StripeCustomerId = customerID
	return customerID, nil
}

func (s *PaymentService) failCheckout(payment *models.Payment, sub *models.Subscription, reason string) {
	if err := s.MarkFailed(payment.ID, reason); err != nil {
		utils.LogError(err, "Error marking payment "+payment.ID+" as failed after checkout error")
	}
	_ = sub
}

// GetPayment loads one payment scoped to its owner.
func (s *PaymentService) GetPayment(paymentID, userID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Preload("Subscription").Preload("Subscription.Plan").
		Where("id = ? AND user_id = ?", paymentID, userID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: payment not found", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkSucceeded is one of the two terminal-state setters. An already
// succeeded payment short-circuits so duplicate confirmations never
// double-apply activation or history.
func (s *PaymentService) MarkSucceeded(paymentID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.First(&payment, "id = ?", paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
			}
			return err
		}

		if payment.Status == models.PaymentSucceeded || payment.Status == models.PaymentRefunded {
			return nil
		}
		if payment.Status == models.PaymentFailed || payment.Status == models.PaymentCancelled {
			return fmt.Errorf("%w: payment %s is already %s", ErrConflict, paymentID, payment.Status)
		}

		now := time.Now()
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status IN ?", paymentID,
				[]models.PaymentStatus{models.PaymentPending, models.PaymentProcessing}).
			Updates(map[string]interface{}{
				"status":       models.PaymentSucceeded,
				"processed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race against another confirmation, which is fine
			return nil
		}

		attempt := models.PaymentAttempt{
			PaymentID:      paymentID,
			StripeChargeId: payment.StripePaymentIntentId,
			Status:         string(models.PaymentSucceeded),
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return err
		}

		if payment.SubscriptionID != nil {
			if err := s.subs.ActivateTx(tx, *payment.SubscriptionID, paymentID); err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkFailed is the failure-side terminal setter. Payments that already
// reached any terminal state are left untouched.
func (s *PaymentService) MarkFailed(paymentID, reason string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.First(&payment, "id = ?", paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
			}
			return err
		}

		if !payment.IsPending() {
			return nil
		}

		now := time.Now()
		metadata := payment.Metadata
		if metadata == nil {
			metadata = models.JSONMap{}
		}
		metadata["failure_reason"] = reason

		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status IN ?", paymentID,
				[]models.PaymentStatus{models.PaymentPending, models.PaymentProcessing}).
			Updates(map[string]interface{}{
				"status":       models.PaymentFailed,
				"processed_at": now,
				"metadata":     metadata,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		attempt := models.PaymentAttempt{
			PaymentID:      paymentID,
			StripeChargeId: payment.StripePaymentIntentId,
			Status:         string(models.PaymentFailed),
			ErrorMessage:   reason,
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return err
		}

		if payment.SubscriptionID != nil {
			var sub models.Subscription
			if err := tx.First(&sub, "id = ?", *payment.SubscriptionID).Error; err == nil {
				if err := s.subs.HandleFailedPaymentTx(tx, &sub, reason, paymentID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// CancelPayment is the user-facing abort of a checkout still in flight. The
// payment moves to cancelled and its pending subscription goes with it.
func (s *PaymentService) CancelPayment(paymentID, userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.Where("id = ? AND user_id = ?", paymentID, userID).First(&payment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: payment not found", ErrNotFound)
		}
		if err != nil {
			return err
		}

		if !payment.IsPending() {
			return fmt.Errorf("%w: payment %s is already %s", ErrConflict, paymentID, payment.Status)
		}

		now := time.Now()
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status IN ?", paymentID,
				[]models.PaymentStatus{models.PaymentPending, models.PaymentProcessing}).
			Updates(map[string]interface{}{
				"status":       models.PaymentCancelled,
				"processed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A webhook settled the payment between the read and the update
			return fmt.Errorf("%w: payment %s is no longer pending", ErrConflict, paymentID)
		}

		if payment.SubscriptionID != nil {
			var sub models.Subscription
			if err := tx.First(&sub, "id = ?", *payment.SubscriptionID).Error; err == nil {
				if err := s.subs.CancelTx(tx, &sub, "Checkout cancelled by user",
					models.JSONMap{"payment_id": payment.ID}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ReconcilePaymentStatus is the polling fallback for delayed webhooks: it
// re-queries the provider for the session state and applies the matching
// terminal transition locally.
func (s *PaymentService) ReconcilePaymentStatus(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.IsPending() && payment.StripeSessionId != "" {
		info, err := s.provider.RetrieveSession(ctx, payment.StripeSessionId)
		if err != nil {
			utils.LogError(err, "Error retrieving session for payment "+payment.ID)
		} else {
			switch {
			case info.PaymentStatus == "paid":
				if info.PaymentIntentID != "" {
					if err := s.db.Model(payment).Update("stripe_payment_intent_id", info.PaymentIntentID).Error; err != nil {
						return nil, err
					}
				}
				if err := s.MarkSucceeded(payment.ID); err != nil {
					return nil, err
				}
			case info.Status == "expired":
				if err := s.MarkFailed(payment.ID, "checkout session expired"); err != nil {
					return nil, err
				}
			}
		}
	}

	var fresh models.Payment
	if err := s.db.Preload("Subscription").First(&fresh, "id = ?", payment.ID).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

// SucceededRefundCents sums the refunds already applied to a payment.
func (s *PaymentService) SucceededRefundCents(tx *gorm.DB, paymentID string) (int64, error) {
	var total int64
	err := tx.Model(&models.Refund{}).
		Where("payment_id = ? AND status = ?", paymentID, models.RefundSucceeded).
		Select("COALESCE(SUM(amount_cents), 0)").Scan(&total).Error
	return total, err
}

// reservedRefundCents sums succeeded plus pending refunds. A pending row
// reserves its amount until it settles, so an in-flight refund counts against
// the balance just like an applied one.
func (s *PaymentService) reservedRefundCents(tx *gorm.DB, paymentID string) (int64, error) {
	var total int64
	err := tx.Model(&models.Refund{}).
		Where("payment_id = ? AND status IN ?", paymentID,
			[]models.RefundStatus{models.RefundPending, models.RefundSucceeded}).
		Select("COALESCE(SUM(amount_cents), 0)").Scan(&total).Error
	return total, err
}

// CanBeRefunded reports whether any refundable balance remains.
func (s *PaymentService) CanBeRefunded(payment *models.Payment) (bool, error) {
	if payment.Status != models.PaymentSucceeded {
		return false, nil
	}
	reserved, err := s.reservedRefundCents(s.db, payment.ID)
	if err != nil {
		return false, err
	}
	return reserved < payment.AmountCents, nil
}

// CreateRefund persists the refund in pending state before touching the
// provider, then settles it to succeeded or failed. A full refund cancels the
// associated subscription and flips the payment to refunded.
func (s *PaymentService) CreateRefund(ctx context.Context, createdByID string, payment *models.Payment, amountCents int64, reason string) (*models.Refund, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive", ErrValidation)
	}
	if payment.Status != models.PaymentSucceeded {
		return nil, fmt.Errorf("%w: this payment cannot be refunded", ErrValidation)
	}
	if payment.StripePaymentIntentId == "" {
		return nil, fmt.Errorf("%w: payment has no provider reference", ErrValidation)
	}

	refund := models.Refund{
		PaymentID:   payment.ID,
		AmountCents: amountCents,
		Reason:      reason,
		Status:      models.RefundPending,
		CreatedByID: createdByID,
	}

	// The balance check counts pending rows too, so a refund still waiting on
	// the provider blocks a concurrent one from passing the bound. A pending
	// row that later fails releases its reservation.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		reserved, err := s.reservedRefundCents(tx, payment.ID)
		if err != nil {
			return err
		}
		if amountCents > payment.AmountCents-reserved {
			return fmt.Errorf("%w: refund exceeds the remaining refundable balance", ErrValidation)
		}
		return tx.Create(&refund).Error
	})
	if err != nil {
		return nil, err
	}

	result, err := s.provider.CreateRefund(ctx, payment.StripePaymentIntentId, amountCents, reason, map[string]string{
		"payment_id": payment.ID,
		"refund_id":  refund.ID,
	})
	if err != nil || result.Status == "failed" {
		if dbErr := s.db.Model(&refund).Update("status", models.RefundFailed).Error; dbErr != nil {
			utils.LogError(dbErr, "Error marking refund "+refund.ID+" as failed")
		}
		refund.Status = models.RefundFailed
		if err == nil {
			err = fmt.Errorf("%w: refund was rejected", ErrProvider)
		}
		return &refund, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&refund).Updates(map[string]interface{}{
			"status":           models.RefundSucceeded,
			"stripe_refund_id": result.ID,
			"processed_at":     now,
		}).Error; err != nil {
			return err
		}
		refund.Status = models.RefundSucceeded
		refund.StripeRefundId = result.ID

		refunded, err := s.SucceededRefundCents(tx, payment.ID)
		if err != nil {
			return err
		}
		if refunded < payment.AmountCents {
			return nil
		}

		// Fully refunded: revoke the entitlement
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).
			Update("status", models.PaymentRefunded).Error; err != nil {
			return err
		}
		if payment.SubscriptionID != nil {
			var sub models.Subscription
			if err := tx.First(&sub, "id = ?", *payment.SubscriptionID).Error; err == nil {
				return s.subs.CancelTx(tx, &sub, "Subscription cancelled after full refund",
					models.JSONMap{"payment_id": payment.ID, "refund_id": refund.ID})
			}
		}
		return nil
	})
	if err != nil {
		return &refund, err
	}

	return &refund, nil
}

// ListPayments returns the user's payments, newest first.
func (s *PaymentService) ListPayments(userID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.Preload("Subscription").Preload("Subscription.Plan").
		Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}
