package models

type OrderState string

const (
	StateAddingItems       OrderState = "AddingItems"
	StateArrangingPayment  OrderState = "ArrangingPayment"
	StatePaymentAuthorized OrderState = "PaymentAuthorized"
	StatePaymentSettled    OrderState = "PaymentSettled"
	StateCancelled         OrderState = "Cancelled"
)

// Terminal reports whether the order can no longer be mutated through checkout.
func (s OrderState) Terminal() bool {
	switch s {
	case StatePaymentSettled, StatePaymentAuthorized, StateCancelled:
		return true
	default:
		return false
	}
}

type PaymentState string

const (
	PaymentCreated    PaymentState = "Created"
	PaymentAuthorized PaymentState = "Authorized"
	PaymentSettled    PaymentState = "Settled"
	PaymentDeclined   PaymentState = "Declined"
	PaymentError      PaymentState = "Error"
	PaymentCancelled  PaymentState = "Cancelled"
)

// Order mirrors the remote order service's representation of a purchase.
// The remote service owns this state; locally it is only ever a read-through
// snapshot of the last server response.
type Order struct {
	ID                string           `json:"id"`
	Code              string           `json:"code"`
	State             OrderState       `json:"state"`
	CustomerEmail     string           `json:"customer_email"`
	SubtotalCents     int              `json:"subtotal_cents"`
	ShippingCents     int              `json:"shipping_cents"`
	TaxCents          int              `json:"tax_cents"`
	TotalWithTaxCents int              `json:"total_with_tax_cents"`
	Lines             []Line           `json:"lines"`
	Payments          []Payment        `json:"payments"`
	ShippingAddress   *ShippingAddress `json:"shipping_address,omitempty"`
	ShippingMethod    *ShippingMethod  `json:"shipping_method,omitempty"`
}

// SettledOrAuthorized reports whether payment has been accepted server-side.
func (o *Order) SettledOrAuthorized() bool {
	if o == nil {
		return false
	}
	return o.State == StatePaymentSettled || o.State == StatePaymentAuthorized
}

// SuccessfulPayment returns the settled or authorized payment, if any.
// A completed order carries exactly one; failed attempts stay in the list
// in a declined or error state.
func (o *Order) SuccessfulPayment() *Payment {
	if o == nil {
		return nil
	}
	for i := range o.Payments {
		switch o.Payments[i].State {
		case PaymentSettled, PaymentAuthorized:
			return &o.Payments[i]
		}
	}
	return nil
}

type Line struct {
	ID             string `json:"id"`
	VariantID      string `json:"variant_id"`
	VariantName    string `json:"variant_name"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int    `json:"line_total_cents"`
}

type ShippingMethod struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Eligible   bool   `json:"eligible"`
}

type Payment struct {
	ID            string       `json:"id"`
	Method        string       `json:"method"`
	AmountCents   int          `json:"amount_cents"`
	State         PaymentState `json:"state"`
	TransactionID string       `json:"transaction_id,omitempty"`
	ErrorMessage  string       `json:"error_message,omitempty"`
}

// PaymentIntent is a gateway-issued handle authorizing collection of a
// specific amount. The client secret must never outlive a change to the
// order total.
type PaymentIntent struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int    `json:"amount_cents"`
}

// PaymentAttempt is the local audit record of one gateway confirmation
// attempt, kept for support reconciliation.
type PaymentAttempt struct {
	OrderCode   string       `json:"order_code"`
	IntentID    string       `json:"intent_id"`
	PaymentRef  string       `json:"payment_ref"`
	State       PaymentState `json:"state"`
	DeclineCode string       `json:"decline_code"`
	AmountCents int          `json:"amount_cents"`
}
