// Package checkout drives a cart through the address, shipping, payment and
// confirmation steps against the remote order service and the payment
// gateway. The order service owns all order state; this package only tracks
// step progression and holds the in-flight payment intent.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hvacdirectapp/hvacdirect/internal/email"
	"github.com/hvacdirectapp/hvacdirect/internal/gateway"
	"github.com/hvacdirectapp/hvacdirect/internal/logging"
	"github.com/hvacdirectapp/hvacdirect/internal/models"
	"github.com/hvacdirectapp/hvacdirect/internal/observability"
	"github.com/hvacdirectapp/hvacdirect/internal/ordersvc"
)

// paymentMethodCode is the payment method the order service has configured
// for gateway intents.
const paymentMethodCode = "stripe"

const (
	retryAttempts  = 3
	retryBaseDelay = 100 * time.Millisecond
)

const (
	opSubmitAddress  = "submit_shipping_address"
	opFetchMethods   = "fetch_shipping_methods"
	opSelectMethod   = "select_shipping_method"
	opTransition     = "transition_to_payment"
	opCreateIntent   = "create_payment_intent"
	opConfirmPayment = "confirm_payment"
	opFinalize       = "finalize"
	opRefreshOrder   = "refresh_order"
)

// OrderSession is the per-checkout handle onto the remote order service.
type OrderSession interface {
	SetShippingAddress(ctx context.Context, address models.ShippingAddress) (*models.Order, error)
	EligibleShippingMethods(ctx context.Context) ([]models.ShippingMethod, error)
	SetShippingMethod(ctx context.Context, methodID string) (*models.Order, error)
	TransitionToState(ctx context.Context, state models.OrderState) (*models.Order, error)
	CreatePaymentIntent(ctx context.Context, idempotencyKey string) (*models.PaymentIntent, error)
	AddPaymentToOrder(ctx context.Context, method, transactionID string) (*models.Order, error)
	ActiveOrder(ctx context.Context) (*models.Order, error)
	OrderByCode(ctx context.Context, code string) (*models.Order, error)
	Token() string
	ClearToken()
}

type orderMirror interface {
	Put(ctx context.Context, orderToken string, order *models.Order) error
	Invalidate(ctx context.Context, orderToken string) error
}

type attemptRecorder interface {
	Record(ctx context.Context, attempt models.PaymentAttempt) error
}

type confirmationSender interface {
	SendEmail(ctx context.Context, email *email.Email) error
}

type noopMirror struct{}

func (noopMirror) Put(context.Context, string, *models.Order) error { return nil }
func (noopMirror) Invalidate(context.Context, string) error         { return nil }

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, models.PaymentAttempt) error { return nil }

// ConfirmOutcome is the result of a payment confirmation that did not fail.
// Either the order is paid, or the customer must complete an extra
// verification step against the same client secret.
type ConfirmOutcome struct {
	Order          *models.Order
	RequiresAction bool
	ClientSecret   string
}

// Orchestrator runs one cart's checkout. All operations are serialized; a
// call that arrives while another is in flight fails fast instead of
// queueing, so a double-clicked pay button can never confirm twice.
type Orchestrator struct {
	session   OrderSession
	gateway   gateway.Gateway
	mirror    orderMirror
	attempts  attemptRecorder
	emails    confirmationSender
	validate  *validator.Validate
	logger    *slog.Logger
	cartToken string

	mu        sync.Mutex
	busy      string
	tracker   *StepTracker
	order     *models.Order
	eligible  []models.ShippingMethod
	intent    *models.PaymentIntent
	intentKey string
}

func New(session OrderSession, gw gateway.Gateway, mirror orderMirror, attempts attemptRecorder, emails confirmationSender, cartToken string, logger *slog.Logger) *Orchestrator {
	if mirror == nil {
		mirror = noopMirror{}
	}
	if attempts == nil {
		attempts = noopRecorder{}
	}
	if emails == nil {
		emails = email.NoopProvider{}
	}

	return &Orchestrator{
		session:   session,
		gateway:   gw,
		mirror:    mirror,
		attempts:  attempts,
		emails:    emails,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
		cartToken: cartToken,
		tracker:   NewStepTracker(),
	}
}

func (o *Orchestrator) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, o.logger)
}

// CurrentStep returns the step the checkout is at.
func (o *Orchestrator) CurrentStep() Step {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tracker.Current()
}

// Order returns the last order snapshot received from the order service.
func (o *Orchestrator) Order() *models.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.order
}

// Token returns the order session token for persistence across requests.
func (o *Orchestrator) Token() string {
	return o.session.Token()
}

func (o *Orchestrator) begin(op string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy != "" {
		if op == opCreateIntent && o.busy == opCreateIntent {
			return &ConcurrentIntentError{}
		}
		return ErrOperationInFlight
	}
	o.busy = op
	return nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.busy = ""
	o.mu.Unlock()
}

func (o *Orchestrator) requireAt(op string, want Step) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	current := o.tracker.Current()
	if current == StepConfirmation && want != StepConfirmation {
		return ErrCheckoutComplete
	}
	if current != want {
		return &OutOfSequenceError{Op: op, Current: current, Required: want}
	}
	return nil
}

// withRetry retries transport failures with exponential backoff. Only used
// for operations that are safe to repeat; server-reported error variants
// are never retried.
func (o *Orchestrator) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = fn()
		var transport *ordersvc.TransportError
		if err == nil || !errors.As(err, &transport) {
			return err
		}
	}
	return err
}

// translate maps an order service failure onto the checkout error taxonomy.
// Codes that mean the server-held order moved on without us reset the flow;
// everything local is stale at that point.
func (o *Orchestrator) translate(ctx context.Context, err error) error {
	var transport *ordersvc.TransportError
	if errors.As(err, &transport) {
		return &Error{Kind: KindNetwork, Message: "the order service is temporarily unreachable", Retryable: true, err: err}
	}

	var result *ordersvc.ErrorResult
	if !errors.As(err, &result) {
		return &Error{Kind: KindNetwork, Message: "an unexpected error occurred", err: err}
	}

	switch result.Code {
	case ordersvc.CodeValidation, ordersvc.CodeIneligibleShippingMethod, ordersvc.CodeIneligiblePaymentMethod:
		return &Error{Kind: KindValidation, Message: result.Message, err: err}
	case ordersvc.CodePaymentDeclined:
		return &Error{Kind: KindGateway, Message: result.Message, Retryable: true, err: err}
	case ordersvc.CodePaymentFailed:
		return &Error{Kind: KindGateway, Message: result.Message, err: err}
	default:
		o.conflict(ctx)
		return &Error{Kind: KindStateConflict, Message: "the order changed while you were checking out; please start again", err: err}
	}
}

// conflict abandons all local progress after the server rejected the flow's
// view of the order.
func (o *Orchestrator) conflict(ctx context.Context) {
	o.mu.Lock()
	o.tracker.Reset()
	o.order = nil
	o.eligible = nil
	o.intent = nil
	o.intentKey = ""
	o.mu.Unlock()

	o.session.ClearToken()
	if err := o.mirror.Invalidate(ctx, o.cartToken); err != nil {
		o.loggerFromContext(ctx).Warn("failed to invalidate order mirror after conflict", "error", err)
	}
}

func (o *Orchestrator) storeOrder(ctx context.Context, order *models.Order) {
	o.mu.Lock()
	o.order = order
	o.mu.Unlock()

	if err := o.mirror.Put(ctx, o.cartToken, order); err != nil {
		o.loggerFromContext(ctx).Warn("failed to refresh order mirror", "error", err)
	}
}

func (o *Orchestrator) dropIntent() {
	o.mu.Lock()
	o.intent = nil
	o.intentKey = ""
	o.mu.Unlock()
}

// SubmitShippingAddress records the customer's shipping address on the
// order. Re-submitting an address invalidates any shipping method already
// chosen, since eligibility and pricing depend on the destination.
func (o *Orchestrator) SubmitShippingAddress(ctx context.Context, address models.ShippingAddress) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"checkout.submit_shipping_address",
		sentry.WithOpName("checkout"),
		sentry.WithDescription("SubmitShippingAddress"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	if err := o.begin(opSubmitAddress); err != nil {
		return nil, err
	}
	defer o.end()

	meter := observability.MeterFromContext(ctx)

	o.mu.Lock()
	current := o.tracker.Current()
	o.mu.Unlock()
	if current == StepConfirmation {
		return nil, ErrCheckoutComplete
	}
	if current > StepShipping {
		return nil, &OutOfSequenceError{Op: opSubmitAddress, Current: current, Required: StepAddress}
	}

	if err := o.validateAddress(address); err != nil {
		meter.Count("checkout.address.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "validation"),
		))
		return nil, err
	}

	var order *models.Order
	err := o.withRetry(ctx, func() error {
		var callErr error
		order, callErr = o.session.SetShippingAddress(ctx, address)
		return callErr
	})
	if err != nil {
		meter.Count("checkout.address.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", "order_service"),
		))
		return nil, o.translate(ctx, err)
	}

	o.mu.Lock()
	o.tracker.MarkSatisfied(StepAddress)
	o.tracker.Invalidate(StepShipping)
	o.tracker.MoveTo(StepShipping)
	o.eligible = nil
	o.intent = nil
	o.intentKey = ""
	o.mu.Unlock()

	o.storeOrder(ctx, order)

	// Shipping options depend on the destination, so refresh them right away.
	// A selection can then never be made against a set fetched for a previous
	// address. An empty set surfaces on the explicit fetch; a failed refresh
	// just leaves the set cleared.
	if _, err := o.refreshEligibleMethods(ctx); err != nil && !errors.Is(err, ErrNoShippingMethods) {
		o.loggerFromContext(ctx).Warn("failed to refresh shipping methods after address change", "error", err)
	}

	meter.Count("checkout.address.accepted", 1)
	return order, nil
}

func (o *Orchestrator) validateAddress(address models.ShippingAddress) error {
	err := o.validate.Struct(address)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for _, field := range fields {
			names = append(names, field.Field())
		}
		return &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("invalid shipping address: check %s", strings.Join(names, ", ")),
			err:     err,
		}
	}
	return &Error{Kind: KindValidation, Message: "invalid shipping address", err: err}
}

// FetchEligibleShippingMethods returns the methods that can deliver to the
// submitted address. The returned set becomes the only valid basis for a
// subsequent selection.
func (o *Orchestrator) FetchEligibleShippingMethods(ctx context.Context) ([]models.ShippingMethod, error) {
	span := sentry.StartSpan(
		ctx,
		"checkout.fetch_shipping_methods",
		sentry.WithOpName("checkout"),
		sentry.WithDescription("FetchEligibleShippingMethods"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	if err := o.begin(opFetchMethods); err != nil {
		return nil, err
	}
	defer o.end()

	if err := o.requireAt(opFetchMethods, StepShipping); err != nil {
		return nil, err
	}

	return o.refreshEligibleMethods(ctx)
}

func (o *Orchestrator) refreshEligibleMethods(ctx context.Context) ([]models.ShippingMethod, error) {
	var methods []models.ShippingMethod
	err := o.withRetry(ctx, func() error {
		var callErr error
		methods, callErr = o.session.EligibleShippingMethods(ctx)
		return callErr
	})
	if err != nil {
		return nil, o.translate(ctx, err)
	}

	o.mu.Lock()
	o.eligible = methods
	o.mu.Unlock()

	if len(methods) == 0 {
		observability.MeterFromContext(ctx).Count("checkout.shipping.no_methods", 1)
		return nil, ErrNoShippingMethods
	}
	return methods, nil
}

// SelectShippingMethod chooses one of the methods from the most recent
// eligible set. A selection that is not in that set is rejected locally
// before any remote call.
func (o *Orchestrator) SelectShippingMethod(ctx context.Context, methodID string) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"checkout.select_shipping_method",
		sentry.WithOpName("checkout"),
		sentry.WithDescription("SelectShippingMethod"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	if err := o.begin(opSelectMethod); err != nil {
		return nil, err
	}
	defer o.end()

	meter := observability.MeterFromContext(ctx)

	if err := o.requireAt(opSelectMethod, StepShipping); err != nil {
		return nil, err
	}

	o.mu.Lock()
	var eligible bool
	for i := range o.eligible {
		if o.eligible[i].ID == methodID {
			eligible = o.eligible[i].Eligible
			break
		}
	}
	o.mu.Unlock()
	if !eligible {
		meter.Count("checkout.shipping.stale_selection", 1)
		return nil, &StaleSelectionError{MethodID: methodID}
	}

	var order *models.Order
	err := o.withRetry(ctx, func() error {
		var callErr error
		order, callErr = o.session.SetShippingMethod(ctx, methodID)
		return callErr
	})
	if err != nil {
		return nil, o.translate(ctx, err)
	}

	o.mu.Lock()
	o.tracker.MarkSatisfied(StepShipping)
	o.mu.Unlock()

	o.storeOrder(ctx, order)
	meter.Count("checkout.shipping.selected", 1)
	return order, nil
}

// TransitionToArrangingPayment moves the server-held order into the state
// that permits payment. Calling it again once there is a no-op.
func (o *Orchestrator) TransitionToArrangingPayment(ctx context.Context) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"checkout.transition_to_payment",
		sentry.WithOpName("checkout"),
		sentry.WithDescription("TransitionToArrangingPayment"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	if err := o.begin(opTransition); err != nil {
		return nil, err
	}
	defer o.end()

	meter := observability.MeterFromContext(ctx)

	o.mu.Lock()
	current := o.tracker.Current()
	canEnter := o.tracker.CanEnter(StepPayment)
	snapshot := o.order
	o.mu.Unlock()

	if current == StepConfirmation {
		return nil, ErrCheckoutComplete
	}
	if current == StepPayment {
		return snapshot, nil
	}
	if !canEnter {
		return nil, &OutOfSequenceError{Op: opTransition, Current: current, Required: StepPayment}
	}

	// Not retried: a lost response leaves the server already in
	// ArrangingPayment, and a second attempt would be rejected as an
	// invalid transition.
	order, err := o.session.TransitionToState(ctx, models.StateArrangingPayment)
	if err != nil {
		meter.Count("checkout.transition.failed", 1)
		return nil, o.translate(ctx, err)
	}

	o.mu.Lock()
	o.tracker.MoveTo(StepPayment)
	o.mu.Unlock()

	o.storeOrder(ctx, order)
	meter.Count("checkout.transition.succeeded", 1)
	return order, nil
}

// CreatePaymentIntent obtains a gateway client secret covering the order
// total. An intent is only reusable while the total it authorizes still
// matches the order; any drift forces a fresh intent under a fresh
// idempotency key.
func (o *Orchestrator) CreatePaymentIntent(ctx context.Context) (*models.PaymentIntent, error) {
	span := sentry.StartSpan(
		ctx,
		"checkout.create_payment_intent",
		sentry.WithOpName("checkout"),
		sentry.WithDescription("CreatePaymentIntent"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	if err := o.begin(opCreateIntent); err != nil {
		return nil, err
	}
	defer o.end()

	meter := observability.MeterFromContext(ctx)

	if err := o.requireAt(opCreateIntent, StepPayment); err != nil {
		return nil, err
	}

	o.mu.Lock()
	intent := o.intent
	order := o.order
	key := o.intentKey
	o.mu.Unlock()

	if intent != nil {
		if order != nil && intent.AmountCents == order.TotalWithTaxCents {
			return intent, nil
		}
		o.dropIntent()
		key = ""
	}

	if key == "" {
		key = uuid.NewString()
		o.mu.Lock()
		o.intentKey = key
		o.mu.Unlock()
	}

	var created *models.PaymentIntent
	err := o.withRetry(ctx, func() error {
		var callErr error
		created, callErr = o.session.CreatePaymentIntent(ctx, key)
		return callErr
	})
	if err != nil {
		meter.Count("checkout.intent.failed", 1)
		return nil, o.translate(ctx, err)
	}

	o.mu.Lock()
	o.intent = created
	o.mu.Unlock()

	meter.Count("checkout.intent.created", 1)
	return created, nil
}

// ConfirmPayment confirms the current intent with the gateway and, on
// success, attaches the payment to the order. Confirmation is never
// auto-retried: a lost response may mean the charge went through, and a
// blind retry could double-bill.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, instrument gateway.Instrument) (*ConfirmOutcome, error) {
	span := sentry.StartSpan(
		ctx,
		"checkout.confirm_payment",
		sentry.WithOpName("checkout"),
		sentry.WithDescription("ConfirmPayment"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	if err := o.begin(opConfirmPayment); err != nil {
		return nil, err
	}
	defer o.end()

	meter := observability.MeterFromContext(ctx)

	if err := o.requireAt(opConfirmPayment, StepPayment); err != nil {
		return nil, err
	}

	o.mu.Lock()
	intent := o.intent
	order := o.order
	o.mu.Unlock()
	if intent == nil {
		return nil, &OutOfSequenceError{Op: opConfirmPayment, Current: StepPayment, Required: StepPayment}
	}

	if err := o.validate.Struct(instrument); err != nil {
		return nil, &Error{Kind: KindValidation, Message: "a tokenized payment method is required", err: err}
	}

	result, err := o.gateway.ConfirmPayment(ctx, intent.ClientSecret, instrument)
	if err != nil {
		meter.Count("checkout.payment.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "gateway_unreachable"),
		))
		return nil, &Error{Kind: KindGateway, Message: gateway.UserMessage(""), err: err}
	}

	o.recordAttempt(ctx, order, intent, result)

	switch result.Status {
	case gateway.StatusRequiresAction:
		meter.Count("checkout.payment.requires_action", 1)
		return &ConfirmOutcome{RequiresAction: true, ClientSecret: intent.ClientSecret}, nil

	case gateway.StatusDeclined:
		// The intent is spent; a retry needs a fresh one. Only instrument
		// declines are worth retrying: a configuration or eligibility code
		// will decline a different card just the same.
		o.dropIntent()
		meter.Count("checkout.payment.declined", 1, sentry.WithAttributes(
			attribute.String("decline_code", result.DeclineCode),
		))
		return nil, &Error{
			Kind:        KindGateway,
			Message:     gateway.UserMessage(result.DeclineCode),
			DeclineCode: result.DeclineCode,
			Retryable:   gateway.InstrumentRelated(result.DeclineCode),
		}

	case gateway.StatusFailed:
		o.dropIntent()
		meter.Count("checkout.payment.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "gateway_error"),
		))
		return nil, &Error{
			Kind:        KindGateway,
			Message:     gateway.UserMessage(result.DeclineCode),
			DeclineCode: result.DeclineCode,
		}

	case gateway.StatusSucceeded:
	default:
		return nil, &Error{Kind: KindGateway, Message: gateway.UserMessage("")}
	}

	var updated *models.Order
	attachErr := o.withRetry(ctx, func() error {
		var callErr error
		updated, callErr = o.session.AddPaymentToOrder(ctx, paymentMethodCode, result.PaymentRef)
		return callErr
	})
	if attachErr == nil && !updated.SettledOrAuthorized() {
		attachErr = fmt.Errorf("order %s in state %s after successful payment", updated.Code, updated.State)
	}
	if attachErr != nil {
		// The gateway took the money but the order does not reflect it.
		// Nothing here can be retried safely; support has to reconcile.
		meter.Count("checkout.payment.reconciliation_needed", 1)
		o.loggerFromContext(ctx).Error("payment succeeded but order was not updated",
			"error", attachErr, "payment_ref", result.PaymentRef, "intent_id", intent.IntentID)
		return nil, &Error{
			Kind:    KindReconciliation,
			Message: "your payment was received but the order could not be updated; our support team has been notified",
			err:     attachErr,
		}
	}

	o.mu.Lock()
	o.intent = nil
	o.intentKey = ""
	o.tracker.MarkSatisfied(StepPayment)
	o.mu.Unlock()

	o.storeOrder(ctx, updated)
	meter.Count("checkout.payment.confirmed", 1)
	return &ConfirmOutcome{Order: updated}, nil
}

func (o *Orchestrator) recordAttempt(ctx context.Context, order *models.Order, intent *models.PaymentIntent, result gateway.ConfirmResult) {
	var state models.PaymentState
	switch result.Status {
	case gateway.StatusSucceeded:
		state = models.PaymentSettled
	case gateway.StatusRequiresAction:
		state = models.PaymentCreated
	case gateway.StatusDeclined:
		state = models.PaymentDeclined
	default:
		state = models.PaymentError
	}

	attempt := models.PaymentAttempt{
		IntentID:    intent.IntentID,
		PaymentRef:  result.PaymentRef,
		State:       state,
		DeclineCode: result.DeclineCode,
		AmountCents: intent.AmountCents,
	}
	if order != nil {
		attempt.OrderCode = order.Code
	}

	if err := o.attempts.Record(ctx, attempt); err != nil {
		o.loggerFromContext(ctx).Warn("failed to record payment attempt", "error", err, "intent_id", intent.IntentID)
	}
}

// Finalize completes the checkout after a successful payment. The mirror
// entry is dropped because the order is no longer active, and a
// confirmation email goes out on a best-effort basis. The order session
// token is kept so the confirmation page can still look the order up.
func (o *Orchestrator) Finalize(ctx context.Context) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"checkout.finalize",
		sentry.WithOpName("checkout"),
		sentry.WithDescription("Finalize"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	if err := o.begin(opFinalize); err != nil {
		return nil, err
	}
	defer o.end()

	o.mu.Lock()
	current := o.tracker.Current()
	paid := o.tracker.Satisfied(StepPayment)
	order := o.order
	o.mu.Unlock()

	if current == StepConfirmation {
		return order, nil
	}
	if current != StepPayment || !paid || order == nil {
		return nil, &OutOfSequenceError{Op: opFinalize, Current: current, Required: StepConfirmation}
	}

	o.mu.Lock()
	o.tracker.MoveTo(StepConfirmation)
	o.mu.Unlock()

	if err := o.mirror.Invalidate(ctx, o.cartToken); err != nil {
		o.loggerFromContext(ctx).Warn("failed to drop order mirror after finalize", "error", err, "order_code", order.Code)
	}

	o.sendConfirmationEmail(ctx, order)
	observability.MeterFromContext(ctx).Count("checkout.finalized", 1)
	return order, nil
}

func (o *Orchestrator) sendConfirmationEmail(ctx context.Context, order *models.Order) {
	if order == nil || order.CustomerEmail == "" {
		return
	}

	msg := &email.Email{
		To:      order.CustomerEmail,
		Subject: fmt.Sprintf("Order %s confirmed", order.Code),
		Text: fmt.Sprintf("Thanks for your order!\n\nOrder code: %s\nTotal: %s\n\nYou can check on your order at any time using the code above.",
			order.Code, formatCents(order.TotalWithTaxCents)),
	}
	if err := o.emails.SendEmail(ctx, msg); err != nil {
		o.loggerFromContext(ctx).Warn("failed to send confirmation email", "error", err, "order_code", order.Code)
	}
}

func formatCents(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d €", sign, cents/100, cents%100)
}

// RefreshOrder re-reads the active order from the order service and updates
// the local snapshot and mirror.
func (o *Orchestrator) RefreshOrder(ctx context.Context) (*models.Order, error) {
	if err := o.begin(opRefreshOrder); err != nil {
		return nil, err
	}
	defer o.end()

	var order *models.Order
	err := o.withRetry(ctx, func() error {
		var callErr error
		order, callErr = o.session.ActiveOrder(ctx)
		return callErr
	})
	if err != nil {
		var transport *ordersvc.TransportError
		if errors.As(err, &transport) {
			return nil, &Error{Kind: KindNetwork, Message: "the order service is temporarily unreachable", Retryable: true, err: err}
		}
		var result *ordersvc.ErrorResult
		if errors.As(err, &result) && result.Code == ordersvc.CodeNoActiveOrder {
			return nil, ErrOrderNotFound
		}
		return nil, o.translate(ctx, err)
	}

	o.storeOrder(ctx, order)
	return order, nil
}

// OrderByCode looks up a completed order for the confirmation page. The
// lookup is read-only and never disturbs checkout progress.
func (o *Orchestrator) OrderByCode(ctx context.Context, code string) (*models.Order, error) {
	var order *models.Order
	err := o.withRetry(ctx, func() error {
		var callErr error
		order, callErr = o.session.OrderByCode(ctx, code)
		return callErr
	})
	if err != nil {
		var transport *ordersvc.TransportError
		if errors.As(err, &transport) {
			return nil, &Error{Kind: KindNetwork, Message: "the order service is temporarily unreachable", Retryable: true, err: err}
		}
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, code)
	}
	return order, nil
}
