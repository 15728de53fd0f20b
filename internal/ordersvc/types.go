package ordersvc

import (
	"encoding/json"
	"fmt"

	"github.com/hvacdirectapp/hvacdirect/internal/models"
)

// ErrorCode identifies a tagged error result returned by the order service.
// Callers branch on the code, never on the message text.
type ErrorCode string

const (
	CodeValidation               ErrorCode = "VALIDATION_ERROR"
	CodeOrderModification        ErrorCode = "ORDER_MODIFICATION_ERROR"
	CodeOrderPaymentState        ErrorCode = "ORDER_PAYMENT_STATE_ERROR"
	CodeIneligiblePaymentMethod  ErrorCode = "INELIGIBLE_PAYMENT_METHOD_ERROR"
	CodePaymentFailed            ErrorCode = "PAYMENT_FAILED_ERROR"
	CodePaymentDeclined          ErrorCode = "PAYMENT_DECLINED_ERROR"
	CodeOrderStateTransition     ErrorCode = "ORDER_STATE_TRANSITION_ERROR"
	CodeNoActiveOrder            ErrorCode = "NO_ACTIVE_ORDER_ERROR"
	CodeIneligibleShippingMethod ErrorCode = "INELIGIBLE_SHIPPING_METHOD_ERROR"
)

// ErrorResult is a server-reported error variant from a GraphQL union.
type ErrorResult struct {
	Code    ErrorCode
	Message string
}

func (e *ErrorResult) Error() string {
	return fmt.Sprintf("order service error %s: %s", e.Code, e.Message)
}

// TransportError wraps a network or protocol failure reaching the order
// service. These are retryable; server-reported error variants are not.
type TransportError struct {
	err error
}

func NewTransportError(err error) *TransportError {
	return &TransportError{err: err}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("order service unreachable: %v", e.err)
}

func (e *TransportError) Unwrap() error {
	return e.err
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type graphqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []graphqlError             `json:"errors"`
}

// Wire representations of the shop API schema. Monetary values come back in
// minor currency units already.

type orderPayload struct {
	ID              string           `json:"id"`
	Code            string           `json:"code"`
	State           string           `json:"state"`
	CustomerEmail   string           `json:"customerEmail"`
	SubTotal        int64            `json:"subTotal"`
	Shipping        int64            `json:"shipping"`
	TaxTotal        int64            `json:"taxTotal"`
	TotalWithTax    int64            `json:"totalWithTax"`
	Lines           []linePayload    `json:"lines"`
	Payments        []paymentPayload `json:"payments"`
	ShippingAddress *addressPayload  `json:"shippingAddress"`
	ShippingMethod  *methodPayload   `json:"shippingMethod"`
}

type linePayload struct {
	ID                 string `json:"id"`
	ProductVariantID   string `json:"productVariantId"`
	ProductVariantName string `json:"productVariantName"`
	Quantity           int    `json:"quantity"`
	LinePriceWithTax   int64  `json:"linePriceWithTax"`
}

type paymentPayload struct {
	ID            string `json:"id"`
	Method        string `json:"method"`
	Amount        int64  `json:"amount"`
	State         string `json:"state"`
	TransactionID string `json:"transactionId"`
	ErrorMessage  string `json:"errorMessage"`
}

type addressPayload struct {
	FullName    string `json:"fullName"`
	StreetLine1 string `json:"streetLine1"`
	StreetLine2 string `json:"streetLine2"`
	City        string `json:"city"`
	Province    string `json:"province"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
	PhoneNumber string `json:"phoneNumber"`
}

type methodPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PriceWithTax int64  `json:"priceWithTax"`
	Eligible     bool   `json:"eligible"`
}

type intentPayload struct {
	IntentID     string `json:"intentId"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
}

type unionProbe struct {
	Typename  string    `json:"__typename"`
	ErrorCode ErrorCode `json:"errorCode"`
	Message   string    `json:"message"`
}

// decodeOrderUnion decodes an Order-or-error union result.
func decodeOrderUnion(raw json.RawMessage) (*models.Order, error) {
	probe, err := probeUnion(raw)
	if err != nil {
		return nil, err
	}
	if probe.ErrorCode != "" {
		return nil, &ErrorResult{Code: probe.ErrorCode, Message: probe.Message}
	}

	var payload orderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &TransportError{err: fmt.Errorf("failed to decode order payload: %w", err)}
	}
	return payload.toModel(), nil
}

func decodeIntentUnion(raw json.RawMessage) (*models.PaymentIntent, error) {
	probe, err := probeUnion(raw)
	if err != nil {
		return nil, err
	}
	if probe.ErrorCode != "" {
		return nil, &ErrorResult{Code: probe.ErrorCode, Message: probe.Message}
	}

	var payload intentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &TransportError{err: fmt.Errorf("failed to decode payment intent payload: %w", err)}
	}
	return &models.PaymentIntent{
		IntentID:     payload.IntentID,
		ClientSecret: payload.ClientSecret,
		AmountCents:  int(payload.Amount),
	}, nil
}

func probeUnion(raw json.RawMessage) (*unionProbe, error) {
	if isJSONNull(raw) {
		return nil, &ErrorResult{Code: CodeNoActiveOrder, Message: "no active order"}
	}
	var probe unionProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &TransportError{err: fmt.Errorf("failed to decode result: %w", err)}
	}
	return &probe, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func (p *orderPayload) toModel() *models.Order {
	order := &models.Order{
		ID:                p.ID,
		Code:              p.Code,
		State:             models.OrderState(p.State),
		CustomerEmail:     p.CustomerEmail,
		SubtotalCents:     int(p.SubTotal),
		ShippingCents:     int(p.Shipping),
		TaxCents:          int(p.TaxTotal),
		TotalWithTaxCents: int(p.TotalWithTax),
	}

	for _, line := range p.Lines {
		order.Lines = append(order.Lines, models.Line{
			ID:             line.ID,
			VariantID:      line.ProductVariantID,
			VariantName:    line.ProductVariantName,
			Quantity:       line.Quantity,
			LineTotalCents: int(line.LinePriceWithTax),
		})
	}
	for _, payment := range p.Payments {
		order.Payments = append(order.Payments, models.Payment{
			ID:            payment.ID,
			Method:        payment.Method,
			AmountCents:   int(payment.Amount),
			State:         models.PaymentState(payment.State),
			TransactionID: payment.TransactionID,
			ErrorMessage:  payment.ErrorMessage,
		})
	}
	if p.ShippingAddress != nil {
		order.ShippingAddress = &models.ShippingAddress{
			FullName:    p.ShippingAddress.FullName,
			Street1:     p.ShippingAddress.StreetLine1,
			Street2:     p.ShippingAddress.StreetLine2,
			City:        p.ShippingAddress.City,
			Province:    p.ShippingAddress.Province,
			PostalCode:  p.ShippingAddress.PostalCode,
			CountryCode: p.ShippingAddress.CountryCode,
			Phone:       p.ShippingAddress.PhoneNumber,
		}
	}
	if p.ShippingMethod != nil {
		order.ShippingMethod = &models.ShippingMethod{
			ID:         p.ShippingMethod.ID,
			Name:       p.ShippingMethod.Name,
			PriceCents: int(p.ShippingMethod.PriceWithTax),
			Eligible:   true,
		}
	}

	return order
}

func (p *methodPayload) toModel() models.ShippingMethod {
	return models.ShippingMethod{
		ID:         p.ID,
		Name:       p.Name,
		PriceCents: int(p.PriceWithTax),
		Eligible:   p.Eligible,
	}
}
