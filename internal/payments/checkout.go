// Package payments resolves the checkout URL handed to a visitor who asks
// to pay. Two providers exist: a static pre-built payment link, and a
// Stripe Checkout session created fresh per request.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/frontdesk-ai/frontdesk/pkg/logging"
)

var tracer = otel.Tracer("frontdesk.internal.payments")

// LinkProvider resolves the URL a pay-intent turn should open.
type LinkProvider interface {
	PaymentLink(ctx context.Context) (string, error)
}

// StaticLink hands out one pre-built payment page URL.
type StaticLink struct {
	url string
}

// NewStaticLink wraps a fixed checkout URL.
func NewStaticLink(url string) (*StaticLink, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("payments: static payment link url is empty")
	}
	return &StaticLink{url: url}, nil
}

// PaymentLink returns the configured URL.
func (s *StaticLink) PaymentLink(context.Context) (string, error) {
	return s.url, nil
}

// StripeCheckout creates a Stripe Checkout session per pay request, so
// each visitor lands on a fresh session instead of a shared page.
type StripeCheckout struct {
	api          *client.API
	businessName string
	amountCents  int64
	successURL   string
	cancelURL    string
	logger       *logging.Logger
}

// StripeConfig carries the deposit geometry for checkout sessions.
type StripeConfig struct {
	SecretKey    string
	BusinessName string
	AmountCents  int64
	SuccessURL   string
	CancelURL    string

	// BaseURL overrides the Stripe API endpoint for tests.
	BaseURL string
}

// NewStripeCheckout builds a per-request checkout provider.
func NewStripeCheckout(cfg StripeConfig, logger *logging.Logger) (*StripeCheckout, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("payments: stripe secret key is required")
	}
	if cfg.AmountCents <= 0 {
		return nil, fmt.Errorf("payments: deposit amount must be positive, got %d", cfg.AmountCents)
	}
	if logger == nil {
		logger = logging.Default()
	}

	api := &client.API{}
	if cfg.BaseURL != "" {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL: stripe.String(strings.TrimRight(cfg.BaseURL, "/")),
		})
		api.Init(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	} else {
		api.Init(cfg.SecretKey, nil)
	}

	return &StripeCheckout{
		api:          api,
		businessName: cfg.BusinessName,
		amountCents:  cfg.AmountCents,
		successURL:   cfg.SuccessURL,
		cancelURL:    cfg.CancelURL,
		logger:       logger.Component("payments"),
	}, nil
}

// PaymentLink creates a Checkout session and returns its hosted URL.
func (s *StripeCheckout) PaymentLink(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "payments.create_checkout_session")
	defer span.End()
	span.SetAttributes(attribute.Int64("payments.amount_cents", s.amountCents))

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		Mode:   stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(s.amountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("%s deposit", s.businessName)),
				},
			},
		}},
	}
	if s.successURL != "" {
		params.SuccessURL = stripe.String(s.successURL)
	}
	if s.cancelURL != "" {
		params.CancelURL = stripe.String(s.cancelURL)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("payments: stripe checkout session: %w", err)
	}
	if sess.URL == "" {
		return "", errors.New("payments: stripe returned a session without a url")
	}
	s.logger.Info("created checkout session", "session_id", sess.ID)
	return sess.URL, nil
}
