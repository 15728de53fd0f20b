package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// StripeGateway confirms payment intents via the Stripe API.
type StripeGateway struct {
	client *stripe.Client
	logger *slog.Logger
}

func NewStripeGateway(secretKey string, logger *slog.Logger) *StripeGateway {
	return &StripeGateway{
		client: stripe.NewClient(secretKey),
		logger: logger,
	}
}

func (g *StripeGateway) ConfirmPayment(ctx context.Context, clientSecret string, instrument Instrument) (ConfirmResult, error) {
	if ctx == nil {
		return ConfirmResult{}, fmt.Errorf("context is required")
	}

	intentID, err := IntentIDFromClientSecret(clientSecret)
	if err != nil {
		return ConfirmResult{}, err
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(instrument.PaymentMethodID),
	}

	intent, err := g.client.V1PaymentIntents.Confirm(ctx, intentID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return g.resultFromError(stripeErr), nil
		}
		return ConfirmResult{}, fmt.Errorf("failed to confirm payment intent: %w", err)
	}

	return g.resultFromIntent(intent), nil
}

func (g *StripeGateway) resultFromIntent(intent *stripe.PaymentIntent) ConfirmResult {
	result := ConfirmResult{
		PaymentRef:  intent.ID,
		AmountCents: int(intent.Amount),
	}
	if intent.LatestCharge != nil && intent.LatestCharge.ID != "" {
		result.PaymentRef = intent.LatestCharge.ID
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		result.Status = StatusSucceeded
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation:
		result.Status = StatusRequiresAction
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		result.Status = StatusDeclined
		if intent.LastPaymentError != nil {
			result.DeclineCode = declineCodeFromError(intent.LastPaymentError)
		}
	default:
		result.Status = StatusFailed
	}
	return result
}

func (g *StripeGateway) resultFromError(stripeErr *stripe.Error) ConfirmResult {
	result := ConfirmResult{DeclineCode: declineCodeFromError(stripeErr)}
	if stripeErr.PaymentIntent != nil {
		result.PaymentRef = stripeErr.PaymentIntent.ID
		result.AmountCents = int(stripeErr.PaymentIntent.Amount)
	}

	if stripeErr.Type == stripe.ErrorTypeCard {
		result.Status = StatusDeclined
		return result
	}
	result.Status = StatusFailed
	return result
}

func declineCodeFromError(stripeErr *stripe.Error) string {
	if stripeErr == nil {
		return ""
	}
	if stripeErr.DeclineCode != "" {
		return string(stripeErr.DeclineCode)
	}
	return string(stripeErr.Code)
}

// IntentIDFromClientSecret extracts the intent identifier from a client
// secret of the form "pi_xxx_secret_yyy".
func IntentIDFromClientSecret(clientSecret string) (string, error) {
	secret := strings.TrimSpace(clientSecret)
	if secret == "" {
		return "", fmt.Errorf("client secret is required")
	}

	id, _, found := strings.Cut(secret, "_secret_")
	if !found || id == "" {
		return "", fmt.Errorf("malformed client secret")
	}
	return id, nil
}
