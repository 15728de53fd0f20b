package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/hvacdirectapp/hvacdirect/internal/db"
	"github.com/hvacdirectapp/hvacdirect/internal/logging"
	"github.com/hvacdirectapp/hvacdirect/internal/models"
	"github.com/hvacdirectapp/hvacdirect/internal/observability"
)

// GatewayEventRouter records asynchronous payment outcomes delivered by the
// gateway. Intents confirmed through an extra verification step resolve out
// of band, so the browser flow never sees their final state; the webhook is
// where those land in the attempt audit trail.
type GatewayEventRouter struct {
	attempts *db.AttemptStore
	logger   *slog.Logger
}

func NewGatewayEventRouter(attempts *db.AttemptStore, logger *slog.Logger) *GatewayEventRouter {
	return &GatewayEventRouter{
		attempts: attempts,
		logger:   logger,
	}
}

func (r *GatewayEventRouter) Handle(ctx context.Context, event *stripeapi.Event) error {
	span := sentry.StartSpan(
		ctx,
		"handler.gateway_router.handle",
		sentry.WithOpName("handler.gateway_router"),
		sentry.WithDescription("GatewayEventRouter.Handle"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("webhook.provider", "stripe"))
	meter.Count("webhook.router.received", 1)

	if event == nil || event.Data == nil {
		meter.Count("webhook.router.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "missing_event_data"),
		))
		return fmt.Errorf("missing gateway event data")
	}
	meter.SetAttributes(attribute.String("webhook.event_type", string(event.Type)))

	logger := logging.FromContext(ctx, r.logger)

	switch event.Type {
	case "payment_intent.succeeded":
		if err := r.recordIntentOutcome(ctx, event.Data.Raw, models.PaymentSettled); err != nil {
			meter.Count("webhook.router.failed", 1, sentry.WithAttributes(
				attribute.String("reason", "record_succeeded_failed"),
			))
			return err
		}
		meter.Count("webhook.router.processed", 1)
		span.Status = sentry.SpanStatusOK
		return nil

	case "payment_intent.payment_failed":
		if err := r.recordIntentOutcome(ctx, event.Data.Raw, models.PaymentDeclined); err != nil {
			meter.Count("webhook.router.failed", 1, sentry.WithAttributes(
				attribute.String("reason", "record_failed_failed"),
			))
			return err
		}
		meter.Count("webhook.router.processed", 1)
		span.Status = sentry.SpanStatusOK
		return nil

	default:
		logger.Info("unhandled gateway event type", "type", event.Type)
		meter.Count("webhook.router.unhandled", 1)
		span.Status = sentry.SpanStatusOK
		return nil
	}
}

func (r *GatewayEventRouter) recordIntentOutcome(ctx context.Context, payload json.RawMessage, state models.PaymentState) error {
	var intent stripeapi.PaymentIntent
	if err := json.Unmarshal(payload, &intent); err != nil {
		return fmt.Errorf("failed to decode payment intent payload: %w", err)
	}

	attempt := models.PaymentAttempt{
		IntentID:    intent.ID,
		PaymentRef:  intent.ID,
		State:       state,
		AmountCents: int(intent.Amount),
	}
	if intent.Metadata != nil {
		attempt.OrderCode = intent.Metadata["orderCode"]
	}
	if intent.LastPaymentError != nil {
		if intent.LastPaymentError.DeclineCode != "" {
			attempt.DeclineCode = string(intent.LastPaymentError.DeclineCode)
		} else {
			attempt.DeclineCode = string(intent.LastPaymentError.Code)
		}
	}

	if err := r.attempts.Record(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record webhook payment outcome: %w", err)
	}

	logging.FromContext(ctx, r.logger).Info("recorded gateway payment outcome",
		"intent_id", intent.ID, "state", string(state))
	return nil
}
