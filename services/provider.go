package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// CheckoutParams describes one hosted checkout session to create.
type CheckoutParams struct {
	CustomerID  string
	AmountCents int64
	Currency    string
	ProductName string
	Description string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// SessionInfo is the provider-side view of a checkout session, used by the
// polling fallback when webhooks are delayed.
type SessionInfo struct {
	Status          string
	PaymentStatus   string
	PaymentIntentID string
	CustomerID      string
	Metadata        map[string]string
}

type RefundResult struct {
	ID     string
	Status string
}

// PaymentProvider is the boundary to the external payment processor. The
// ledger and the reconciler receive it as an explicit dependency so the core
// stays testable with a fake.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, reason string, metadata map[string]string) (*RefundResult, error)
}

// StripeProvider implements PaymentProvider against the Stripe API with a
// bounded request timeout, so a stalled provider call cannot leave payments
// stuck in processing.
type StripeProvider struct {
	api *client.API
}

func NewStripeProvider(apiKey string) *StripeProvider {
	httpClient := &http.Client{Timeout: 20 * time.Second}
	api := &client.API{}
	api.Init(apiKey, stripe.NewBackends(httpClient))
	return &StripeProvider{api: api}
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	cust, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: creating customer: %v", ErrProvider, err)
	}
	return cust.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, cp CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(cp.CustomerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(cp.Currency),
					UnitAmount: stripe.Int64(cp.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(cp.ProductName),
						Description: stripe.String(cp.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(cp.SuccessURL),
		CancelURL:  stripe.String(cp.CancelURL),
	}
	params.Context = ctx
	for k, v := range cp.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: creating checkout session: %v", ErrProvider, err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) RetrieveSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	s, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieving session: %v", ErrProvider, err)
	}

	info := &SessionInfo{
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		info.PaymentIntentID = s.PaymentIntent.ID
	}
	if s.Customer != nil {
		info.CustomerID = s.Customer.ID
	}
	return info, nil
}

func (p *StripeProvider) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, reason string, metadata map[string]string) (*RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx
	if amountCents > 0 {
		params.Amount = stripe.Int64(amountCents)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if reason != "" {
		params.AddMetadata("reason", reason)
	}

	r, err := p.api.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: creating refund: %v", ErrProvider, err)
	}
	return &RefundResult{ID: r.ID, Status: string(r.Status)}, nil
}
