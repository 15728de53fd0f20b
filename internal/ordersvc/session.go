package ordersvc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hvacdirectapp/hvacdirect/internal/models"
)

const orderFragment = `fragment CheckoutOrder on Order {
  __typename
  id
  code
  state
  customerEmail
  subTotal
  shipping
  taxTotal
  totalWithTax
  lines {
    id
    productVariantId
    productVariantName
    quantity
    linePriceWithTax
  }
  payments {
    id
    method
    amount
    state
    transactionId
    errorMessage
  }
  shippingAddress {
    fullName
    streetLine1
    streetLine2
    city
    province
    postalCode
    countryCode
    phoneNumber
  }
  shippingMethod {
    id
    name
    priceWithTax
  }
}`

const errorResultFragment = `fragment ErrorResult on ErrorResult {
  __typename
  errorCode
  message
}`

const (
	setShippingAddressDocument = `mutation SetOrderShippingAddress($input: CreateAddressInput!) {
  setOrderShippingAddress(input: $input) {
    ...CheckoutOrder
    ...ErrorResult
  }
}`

	eligibleShippingMethodsDocument = `query EligibleShippingMethods {
  eligibleShippingMethods {
    id
    name
    priceWithTax
    eligible
  }
}`

	setShippingMethodDocument = `mutation SetOrderShippingMethod($shippingMethodId: ID!) {
  setOrderShippingMethod(shippingMethodId: $shippingMethodId) {
    ...CheckoutOrder
    ...ErrorResult
  }
}`

	transitionOrderDocument = `mutation TransitionOrderToState($state: String!) {
  transitionOrderToState(state: $state) {
    ...CheckoutOrder
    ...ErrorResult
  }
}`

	createPaymentIntentDocument = `mutation CreatePaymentIntent($idempotencyKey: String!) {
  createPaymentIntent(idempotencyKey: $idempotencyKey) {
    ... on PaymentIntent {
      __typename
      intentId
      clientSecret
      amount
    }
    ...ErrorResult
  }
}`

	addPaymentDocument = `mutation AddPaymentToOrder($input: PaymentInput!) {
  addPaymentToOrder(input: $input) {
    ...CheckoutOrder
    ...ErrorResult
  }
}`

	activeOrderDocument = `query ActiveOrder {
  activeOrder {
    ...CheckoutOrder
  }
}`

	orderByCodeDocument = `query OrderByCode($code: String!) {
  orderByCode(code: $code) {
    ...CheckoutOrder
  }
}`
)

// Session is the per-checkout handle onto the order service. It carries the
// order session token explicitly and picks up server-side rotations, so no
// token ever lives in package-level state.
type Session struct {
	client *Client

	mu    sync.Mutex
	token string
}

func (c *Client) Session(token string) *Session {
	return &Session{client: c, token: token}
}

// Token returns the current order session token. Callers persist it so a
// returning browser resumes the same server-held order.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ClearToken drops the order session token, abandoning the server-side
// order association for this checkout attempt.
func (s *Session) ClearToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

func (s *Session) do(ctx context.Context, query string, variables map[string]any) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	data, newToken, err := s.client.do(ctx, token, query, variables)

	s.mu.Lock()
	if newToken != "" {
		s.token = newToken
	}
	s.mu.Unlock()

	return data, err
}

func (s *Session) orderResult(data map[string]json.RawMessage, field string) (*models.Order, error) {
	raw, ok := data[field]
	if !ok {
		return nil, &TransportError{err: fmt.Errorf("missing %s in response", field)}
	}
	return decodeOrderUnion(raw)
}

func (s *Session) SetShippingAddress(ctx context.Context, address models.ShippingAddress) (*models.Order, error) {
	input := map[string]any{
		"fullName":    address.FullName,
		"streetLine1": address.Street1,
		"streetLine2": address.Street2,
		"city":        address.City,
		"province":    address.Province,
		"postalCode":  address.PostalCode,
		"countryCode": address.CountryCode,
		"phoneNumber": address.Phone,
	}

	data, err := s.do(ctx, withFragments(setShippingAddressDocument, orderFragment, errorResultFragment), map[string]any{"input": input})
	if err != nil {
		return nil, err
	}
	return s.orderResult(data, "setOrderShippingAddress")
}

func (s *Session) EligibleShippingMethods(ctx context.Context) ([]models.ShippingMethod, error) {
	data, err := s.do(ctx, eligibleShippingMethodsDocument, nil)
	if err != nil {
		return nil, err
	}

	raw, ok := data["eligibleShippingMethods"]
	if !ok {
		return nil, &TransportError{err: fmt.Errorf("missing eligibleShippingMethods in response")}
	}

	var payloads []methodPayload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil, &TransportError{err: fmt.Errorf("failed to decode shipping methods: %w", err)}
	}

	methods := make([]models.ShippingMethod, 0, len(payloads))
	for _, payload := range payloads {
		methods = append(methods, payload.toModel())
	}
	return methods, nil
}

func (s *Session) SetShippingMethod(ctx context.Context, methodID string) (*models.Order, error) {
	data, err := s.do(ctx, withFragments(setShippingMethodDocument, orderFragment, errorResultFragment), map[string]any{"shippingMethodId": methodID})
	if err != nil {
		return nil, err
	}
	return s.orderResult(data, "setOrderShippingMethod")
}

func (s *Session) TransitionToState(ctx context.Context, state models.OrderState) (*models.Order, error) {
	data, err := s.do(ctx, withFragments(transitionOrderDocument, orderFragment, errorResultFragment), map[string]any{"state": string(state)})
	if err != nil {
		return nil, err
	}
	return s.orderResult(data, "transitionOrderToState")
}

// CreatePaymentIntent asks the order service for a gateway client secret.
// The idempotency key makes concurrent duplicates collapse server-side into
// a single billable intent.
func (s *Session) CreatePaymentIntent(ctx context.Context, idempotencyKey string) (*models.PaymentIntent, error) {
	data, err := s.do(ctx, withFragments(createPaymentIntentDocument, errorResultFragment), map[string]any{"idempotencyKey": idempotencyKey})
	if err != nil {
		return nil, err
	}

	raw, ok := data["createPaymentIntent"]
	if !ok {
		return nil, &TransportError{err: fmt.Errorf("missing createPaymentIntent in response")}
	}
	return decodeIntentUnion(raw)
}

func (s *Session) AddPaymentToOrder(ctx context.Context, method, transactionID string) (*models.Order, error) {
	input := map[string]any{
		"method": method,
		"metadata": map[string]any{
			"transactionId": transactionID,
		},
	}

	data, err := s.do(ctx, withFragments(addPaymentDocument, orderFragment, errorResultFragment), map[string]any{"input": input})
	if err != nil {
		return nil, err
	}
	return s.orderResult(data, "addPaymentToOrder")
}

func (s *Session) ActiveOrder(ctx context.Context) (*models.Order, error) {
	data, err := s.do(ctx, withFragments(activeOrderDocument, orderFragment), nil)
	if err != nil {
		return nil, err
	}
	return s.orderResult(data, "activeOrder")
}

func (s *Session) OrderByCode(ctx context.Context, code string) (*models.Order, error) {
	data, err := s.do(ctx, withFragments(orderByCodeDocument, orderFragment), map[string]any{"code": code})
	if err != nil {
		return nil, err
	}
	return s.orderResult(data, "orderByCode")
}

func withFragments(document string, fragments ...string) string {
	for _, fragment := range fragments {
		document += "\n" + fragment
	}
	return document
}
