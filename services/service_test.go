package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"testing"

	"blogpin-backend/models"
	"blogpin-backend/testutils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	log.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

// fakeProvider stands in for Stripe. Calls are counted and failures can be
// injected per method.
type fakeProvider struct {
	customerErr error
	sessionErr  error
	refundErr   error

	refundStatus string
	sessionInfo  *SessionInfo
	refundHook   func()

	customerCalls int
	sessionCalls  int
	refundCalls   int
}

func (f *fakeProvider) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	f.customerCalls++
	if f.customerErr != nil {
		return "", f.customerErr
	}
	return "cus_test", nil
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	f.sessionCalls++
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return &CheckoutSession{
		ID:  fmt.Sprintf("cs_test_%d", f.sessionCalls),
		URL: "https://checkout.example.com/pay",
	}, nil
}

func (f *fakeProvider) RetrieveSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if f.sessionInfo == nil {
		return nil, errors.New("no session configured")
	}
	return f.sessionInfo, nil
}

func (f *fakeProvider) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, reason string, metadata map[string]string) (*RefundResult, error) {
	f.refundCalls++
	if f.refundHook != nil {
		hook := f.refundHook
		f.refundHook = nil
		hook()
	}
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	status := f.refundStatus
	if status == "" {
		status = "succeeded"
	}
	return &RefundResult{ID: fmt.Sprintf("re_test_%d", f.refundCalls), Status: status}, nil
}

type testEnv struct {
	db       *gorm.DB
	provider *fakeProvider
	subs     *SubscriptionService
	payments *PaymentService
	pins     *PinService
	webhooks *WebhookService
}

func newTestEnv(t *testing.T) (*testEnv, func()) {
	gormDB, cleanup := testutils.SetupSQLiteDB(t)

	provider := &fakeProvider{}
	subs := NewSubscriptionService(gormDB)
	payments := NewPaymentService(gormDB, provider, subs)

	return &testEnv{
		db:       gormDB,
		provider: provider,
		subs:     subs,
		payments: payments,
		pins:     NewPinService(gormDB, subs),
		webhooks: NewWebhookService(gormDB, payments),
	}, cleanup
}

func createTestUser(t *testing.T, gormDB *gorm.DB, email string) *models.User {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		Email:    email,
		Password: string(hashed),
		UserName: "tester",
		Role:     models.UserRole,
		Enable:   true,
	}
	if err := gormDB.Create(user).Error; err != nil {
		t.Fatalf("Error creating the test user: %s", err)
	}
	return user
}

func createTestPlan(t *testing.T, gormDB *gorm.DB, name string, priceCents int64, durationDays int) *models.SubscriptionPlan {
	plan := &models.SubscriptionPlan{
		Name:         name,
		PriceCents:   priceCents,
		Currency:     "usd",
		DurationDays: durationDays,
		IsActive:     true,
	}
	if err := gormDB.Create(plan).Error; err != nil {
		t.Fatalf("Error creating the test plan: %s", err)
	}
	return plan
}

func createTestPost(t *testing.T, gormDB *gorm.DB, authorID string, status models.PostStatus) *models.Post {
	post := &models.Post{
		AuthorID: authorID,
		Title:    "My test post",
		Content:  "Some content",
		Status:   status,
	}
	if err := gormDB.Create(post).Error; err != nil {
		t.Fatalf("Error creating the test post: %s", err)
	}
	return post
}

// checkoutAndPay drives the happy path up to an active subscription.
func checkoutAndPay(t *testing.T, env *testEnv, user *models.User, plan *models.SubscriptionPlan) *models.Payment {
	result, err := env.payments.CreateSubscriptionCheckout(context.Background(), user, plan,
		"https://app.example.com/success", "https://app.example.com/cancel")
	if err != nil {
		t.Fatalf("Error creating the checkout: %s", err)
	}

	if err := env.db.Model(&models.Payment{}).Where("id = ?", result.PaymentID).
		Update("stripe_payment_intent_id", "pi_test").Error; err != nil {
		t.Fatalf("Error stamping the payment intent: %s", err)
	}

	if err := env.payments.MarkSucceeded(result.PaymentID); err != nil {
		t.Fatalf("Error confirming the payment: %s", err)
	}

	var payment models.Payment
	if err := env.db.First(&payment, "id = ?", result.PaymentID).Error; err != nil {
		t.Fatalf("Error reloading the payment: %s", err)
	}
	return &payment
}

func historyActions(t *testing.T, gormDB *gorm.DB, subscriptionID string) []string {
	var entries []models.SubscriptionHistory
	err := gormDB.Where("subscription_id = ?", subscriptionID).Order("created_at").Find(&entries).Error
	if err != nil {
		t.Fatalf("Error loading the history: %s", err)
	}
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}
