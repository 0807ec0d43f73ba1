package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/utils"
)

type CheckoutParams struct {
	CustomerID   string
	PriceRef     string
	CourseID     string
	UserID       string
	EnrollmentID string
}

type CheckoutEvent struct {
	Type        string
	CourseID    string
	UserID      string
	AmountTotal int64
}

// PaymentClient is the port to the external checkout provider. Services depend
// on it so webhook and checkout flows can be exercised against a fake.
type PaymentClient interface {
	// CustomerExists reports whether the stored billing reference still
	// resolves with the provider (deleted customers do not).
	CustomerExists(ctx context.Context, customerID string) (bool, error)
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	// CreateCheckoutSession returns the redirect URL for a checkout scoped to
	// one (user, course) pair, with the correlation ids as session metadata.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)
	// VerifyWebhook checks the provider signature over the raw payload bytes
	// and decodes the event. The signature covers the exact byte stream.
	VerifyWebhook(payload []byte, sigHeader string) (CheckoutEvent, error)
}

type stripePaymentClient struct {
	log           *logger.Logger
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewStripePaymentClient(baseLog *logger.Logger) (PaymentClient, error) {
	clientLog := baseLog.With("service", "StripePaymentClient")

	secretKey := utils.GetEnv("STRIPE_SECRET_KEY", "", clientLog)
	if secretKey == "" {
		return nil, fmt.Errorf("missing env var STRIPE_SECRET_KEY")
	}
	webhookSecret := utils.GetEnv("STRIPE_WEBHOOK_SECRET", "", clientLog)
	if webhookSecret == "" {
		return nil, fmt.Errorf("missing env var STRIPE_WEBHOOK_SECRET")
	}
	stripe.Key = secretKey

	appURL := utils.GetEnv("APP_URL", "http://localhost:3000", clientLog)

	return &stripePaymentClient{
		log:           clientLog,
		webhookSecret: webhookSecret,
		successURL:    appURL + "/checkout/success",
		cancelURL:     appURL + "/checkout/cancelled",
	}, nil
}

func (c *stripePaymentClient) CustomerExists(ctx context.Context, customerID string) (bool, error) {
	if customerID == "" {
		return false, nil
	}
	cust, err := customer.Get(customerID, nil)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.HTTPStatusCode == 404 {
			return false, nil
		}
		return false, fmt.Errorf("resolve billing customer: %w", err)
	}
	return cust != nil && !cust.Deleted, nil
}

func (c *stripePaymentClient) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	cust, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("create billing customer: %w", err)
	}
	return cust.ID, nil
}

func (c *stripePaymentClient) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error) {
	sessionParams := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer: stripe.String(params.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceRef),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
	}
	sessionParams.AddMetadata("courseId", params.CourseID)
	sessionParams.AddMetadata("userId", params.UserID)
	sessionParams.AddMetadata("enrollmentId", params.EnrollmentID)

	sess, err := session.New(sessionParams)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (c *stripePaymentClient) VerifyWebhook(payload []byte, sigHeader string) (CheckoutEvent, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
	if err != nil {
		return CheckoutEvent{}, fmt.Errorf("verify webhook signature: %w", err)
	}

	out := CheckoutEvent{Type: string(event.Type)}
	switch event.Type {
	case "checkout.session.completed", "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return CheckoutEvent{}, fmt.Errorf("decode checkout session: %w", err)
		}
		out.CourseID = sess.Metadata["courseId"]
		out.UserID = sess.Metadata["userId"]
		out.AmountTotal = sess.AmountTotal
	}
	return out, nil
}
