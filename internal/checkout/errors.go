package checkout

import (
	"errors"
	"fmt"
)

// Kind classifies a checkout failure so callers can decide how to present
// it and whether retrying makes sense.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNetwork        Kind = "network"
	KindStateConflict  Kind = "state_conflict"
	KindGateway        Kind = "gateway"
	KindReconciliation Kind = "reconciliation"
)

// Error is a classified checkout failure. Message is safe to show to the
// customer; the wrapped cause is not.
type Error struct {
	Kind        Kind
	Message     string
	DeclineCode string
	Retryable   bool
	err         error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// KindOf returns the classification of err, or the empty string when err
// carries no classification.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return ""
}

// OutOfSequenceError reports a checkout operation attempted outside the
// required step ordering.
type OutOfSequenceError struct {
	Op       string
	Current  Step
	Required Step
}

func (e *OutOfSequenceError) Error() string {
	return fmt.Sprintf("checkout is at the %s step; %s is out of sequence", e.Current, e.Op)
}

// StaleSelectionError reports a shipping method selection that is not part
// of the most recently fetched eligible set.
type StaleSelectionError struct {
	MethodID string
}

func (e *StaleSelectionError) Error() string {
	return fmt.Sprintf("shipping method %s is not in the current eligible set", e.MethodID)
}

// ConcurrentIntentError reports a payment intent request made while another
// intent request for the same checkout is still in flight.
type ConcurrentIntentError struct{}

func (e *ConcurrentIntentError) Error() string {
	return "a payment intent request is already in flight"
}

var (
	// ErrNoShippingMethods means the destination has no eligible shipping
	// methods; the customer must change the address to proceed.
	ErrNoShippingMethods = errors.New("no eligible shipping methods for this address")

	// ErrCheckoutComplete means the checkout already finished and can no
	// longer be modified.
	ErrCheckoutComplete = errors.New("checkout is already complete")

	// ErrOperationInFlight means another checkout operation is still
	// running for this cart.
	ErrOperationInFlight = errors.New("another checkout operation is in flight")

	// ErrOrderNotFound means no order exists for the requested code or
	// session.
	ErrOrderNotFound = errors.New("order not found")
)
