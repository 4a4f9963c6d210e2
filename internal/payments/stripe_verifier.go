package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	domain "github.com/farmmart/api/internal/domain"
	"github.com/farmmart/api/internal/services"
)

// StripeLogger defines the logging contract for Stripe operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeVerifierConfig configures the StripePaymentVerifier.
type StripeVerifierConfig struct {
	APIKey    string
	AccountID string
	Backends  *stripe.Backends
	Logger    StripeLogger
	Clock     func() time.Time
	Intents   stripePaymentIntentAPI
}

// StripePaymentVerifier resolves payment intent state from Stripe for order creation.
type StripePaymentVerifier struct {
	intents stripePaymentIntentAPI
	account string
	clock   func() time.Time
	logger  StripeLogger
}

// NewStripePaymentVerifier constructs a verifier using the given configuration.
func NewStripePaymentVerifier(cfg StripeVerifierConfig) (*StripePaymentVerifier, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Intents == nil {
		return nil, errors.New("stripe: api key is required")
	}

	intents := cfg.Intents
	if intents == nil {
		sc := client.New(apiKey, cfg.Backends)
		intents = sc.PaymentIntents
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripePaymentVerifier{
		intents: intents,
		account: strings.TrimSpace(cfg.AccountID),
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// VerifyPayment retrieves the payment intent and maps its state onto the
// order payment vocabulary.
func (v *StripePaymentVerifier) VerifyPayment(ctx context.Context, transactionID string) (services.PaymentVerification, error) {
	if v == nil || v.intents == nil {
		return services.PaymentVerification{}, errors.New("stripe: verifier not initialised")
	}

	id := strings.TrimSpace(transactionID)
	if id == "" {
		return services.PaymentVerification{}, errors.New("stripe: transaction id is required")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	if v.account != "" {
		params.SetStripeAccount(v.account)
	}

	intent, err := v.intents.Get(id, params)
	if err != nil {
		return services.PaymentVerification{}, fmt.Errorf("stripe: lookup payment intent: %w", err)
	}

	verification := services.PaymentVerification{
		TransactionID: id,
		Status:        mapIntentStatus(intent),
		Type:          intentPaymentType(intent),
	}
	if intent != nil && strings.TrimSpace(intent.ID) != "" {
		verification.TransactionID = intent.ID
	}

	v.logger(ctx, "payments.stripe.intent.verified", map[string]any{
		"paymentIntent": verification.TransactionID,
		"status":        verification.Status,
	})
	return verification, nil
}

func mapIntentStatus(intent *stripe.PaymentIntent) string {
	if intent == nil {
		return domain.PaymentStatusPending
	}

	if charge := intent.LatestCharge; charge != nil {
		if charge.Refunded || (charge.AmountRefunded >= charge.Amount && charge.Amount > 0) {
			return domain.PaymentStatusRefunded
		}
	}
	if intent.Status == stripe.PaymentIntentStatusSucceeded {
		return domain.PaymentStatusSucceeded
	}
	return domain.PaymentStatusPending
}

func intentPaymentType(intent *stripe.PaymentIntent) string {
	if intent == nil || len(intent.PaymentMethodTypes) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(intent.PaymentMethodTypes[0]))
}

var _ services.PaymentVerifier = (*StripePaymentVerifier)(nil)
