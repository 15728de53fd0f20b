// Package gateway wraps the external payment gateway used to confirm
// payment intents during checkout.
package gateway

import "context"

type ConfirmStatus string

const (
	// StatusSucceeded means the gateway collected the payment.
	StatusSucceeded ConfirmStatus = "succeeded"
	// StatusRequiresAction means the customer must complete an extra step
	// (e.g. 3-D Secure) before the gateway resolves the payment.
	StatusRequiresAction ConfirmStatus = "requires_action"
	// StatusDeclined means the instrument was rejected; the customer may
	// retry with a fresh intent.
	StatusDeclined ConfirmStatus = "declined"
	// StatusFailed means the confirmation failed for a non-instrument
	// reason and retrying the same request will not help.
	StatusFailed ConfirmStatus = "failed"
)

// Instrument is a gateway-tokenized payment instrument collected client-side.
// Raw card data never transits this service.
type Instrument struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

type ConfirmResult struct {
	Status      ConfirmStatus
	PaymentRef  string
	AmountCents int
	DeclineCode string
}

// Gateway confirms a payment against an intent's client secret. A returned
// error means the gateway could not be reached or refused the request
// outright; declines are reported in the result, not as errors.
type Gateway interface {
	ConfirmPayment(ctx context.Context, clientSecret string, instrument Instrument) (ConfirmResult, error)
}
