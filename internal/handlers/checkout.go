package handlers

import (
	"errors"
	"net/http"

	"github.com/hvacdirectapp/hvacdirect/internal/activeorder"
	"github.com/hvacdirectapp/hvacdirect/internal/checkout"
	"github.com/hvacdirectapp/hvacdirect/internal/gateway"
	"github.com/hvacdirectapp/hvacdirect/internal/models"
	"github.com/hvacdirectapp/hvacdirect/internal/session"
)

type errorResponse struct {
	Error           string `json:"error"`
	Kind            string `json:"kind,omitempty"`
	DeclineCode     string `json:"decline_code,omitempty"`
	Retryable       bool   `json:"retryable,omitempty"`
	SupportNotified bool   `json:"support_notified,omitempty"`
	Step            string `json:"step,omitempty"`
}

type orderResponse struct {
	Order *models.Order `json:"order"`
	Step  string        `json:"step"`
}

// checkoutContext resolves the request's cart and its orchestrator, creating
// a session on first contact.
func (h *Handlers) checkoutContext(w http.ResponseWriter, r *http.Request) (string, *session.Data, *checkout.Orchestrator, error) {
	ctx := r.Context()

	cartID, data, err := h.sessionManager.EnsureSession(ctx, w, r)
	if err != nil {
		return "", nil, nil, err
	}

	orch := h.registry.ForCart(cartID, data.OrderToken)
	return cartID, data, orch, nil
}

// persistOrderToken writes a rotated order session token back to the cart
// session so the next request resumes the same server-held order.
func (h *Handlers) persistOrderToken(r *http.Request, cartID string, data *session.Data, orch *checkout.Orchestrator) {
	token := orch.Token()
	if token == data.OrderToken {
		return
	}

	data.OrderToken = token
	if err := h.sessionManager.UpdateSession(r.Context(), cartID, data); err != nil {
		h.loggerFromContext(r.Context()).Warn("failed to persist order token", "error", err)
	}
}

func (h *Handlers) SubmitAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var address models.ShippingAddress
	if err := readJSON(w, r, &address); err != nil {
		writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	cartID, data, orch, err := h.checkoutContext(w, r)
	if err != nil {
		logger.Error("failed to resolve checkout session", "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "session unavailable"})
		return
	}

	order, err := orch.SubmitShippingAddress(ctx, address)
	h.persistOrderToken(r, cartID, data, orch)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, logger, http.StatusOK, orderResponse{Order: order, Step: orch.CurrentStep().String()})
}

func (h *Handlers) ShippingMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	cartID, data, orch, err := h.checkoutContext(w, r)
	if err != nil {
		logger.Error("failed to resolve checkout session", "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "session unavailable"})
		return
	}

	methods, err := orch.FetchEligibleShippingMethods(ctx)
	h.persistOrderToken(r, cartID, data, orch)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, logger, http.StatusOK, map[string]any{"shipping_methods": methods})
}

func (h *Handlers) SelectShippingMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var req struct {
		MethodID string `json:"method_id"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	cartID, data, orch, err := h.checkoutContext(w, r)
	if err != nil {
		logger.Error("failed to resolve checkout session", "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "session unavailable"})
		return
	}

	order, err := orch.SelectShippingMethod(ctx, req.MethodID)
	h.persistOrderToken(r, cartID, data, orch)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, logger, http.StatusOK, orderResponse{Order: order, Step: orch.CurrentStep().String()})
}

func (h *Handlers) BeginPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	cartID, data, orch, err := h.checkoutContext(w, r)
	if err != nil {
		logger.Error("failed to resolve checkout session", "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "session unavailable"})
		return
	}

	order, err := orch.TransitionToArrangingPayment(ctx)
	h.persistOrderToken(r, cartID, data, orch)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, logger, http.StatusOK, orderResponse{Order: order, Step: orch.CurrentStep().String()})
}

func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	cartID, data, orch, err := h.checkoutContext(w, r)
	if err != nil {
		logger.Error("failed to resolve checkout session", "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "session unavailable"})
		return
	}

	intent, err := orch.CreatePaymentIntent(ctx)
	h.persistOrderToken(r, cartID, data, orch)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, logger, http.StatusOK, map[string]any{
		"client_secret": intent.ClientSecret,
		"amount_cents":  intent.AmountCents,
	})
}

func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var instrument gateway.Instrument
	if err := readJSON(w, r, &instrument); err != nil {
		writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	cartID, data, orch, err := h.checkoutContext(w, r)
	if err != nil {
		logger.Error("failed to resolve checkout session", "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "session unavailable"})
		return
	}

	outcome, err := orch.ConfirmPayment(ctx, instrument)
	h.persistOrderToken(r, cartID, data, orch)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	if outcome.RequiresAction {
		writeJSON(w, logger, http.StatusOK, map[string]any{
			"requires_action": true,
			"client_secret":   outcome.ClientSecret,
		})
		return
	}

	writeJSON(w, logger, http.StatusOK, orderResponse{Order: outcome.Order, Step: orch.CurrentStep().String()})
}

func (h *Handlers) Finalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	cartID, data, orch, err := h.checkoutContext(w, r)
	if err != nil {
		logger.Error("failed to resolve checkout session", "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "session unavailable"})
		return
	}

	order, err := orch.Finalize(ctx)
	h.persistOrderToken(r, cartID, data, orch)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	// Remember the code so the confirmation page works even after the cart
	// moves on.
	data.LastOrderCode = order.Code
	if err := h.sessionManager.UpdateSession(ctx, cartID, data); err != nil {
		logger.Warn("failed to persist completed order code", "error", err)
	}

	writeJSON(w, logger, http.StatusOK, map[string]any{
		"order_code": order.Code,
		"step":       orch.CurrentStep().String(),
	})
}

// ActiveOrder serves the cart's order snapshot for rendering, preferring
// the mirror and falling back to the order service.
func (h *Handlers) ActiveOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	cartID, data, orch, err := h.checkoutContext(w, r)
	if err != nil {
		logger.Error("failed to resolve checkout session", "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "session unavailable"})
		return
	}

	if order, err := h.activeOrders.Get(ctx, cartID); err == nil {
		writeJSON(w, logger, http.StatusOK, orderResponse{Order: order, Step: orch.CurrentStep().String()})
		return
	} else if !errors.Is(err, activeorder.ErrNotCached) {
		logger.Warn("active order cache read failed", "error", err)
	}

	order, err := orch.RefreshOrder(ctx)
	h.persistOrderToken(r, cartID, data, orch)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, logger, http.StatusOK, orderResponse{Order: order, Step: orch.CurrentStep().String()})
}

func (h *Handlers) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	logger := h.loggerFromContext(r.Context())

	var seq *checkout.OutOfSequenceError
	var stale *checkout.StaleSelectionError
	var concurrent *checkout.ConcurrentIntentError
	var cerr *checkout.Error

	switch {
	case errors.Is(err, checkout.ErrOrderNotFound):
		writeJSON(w, logger, http.StatusNotFound, errorResponse{Error: "order not found"})

	case errors.Is(err, checkout.ErrNoShippingMethods):
		writeJSON(w, logger, http.StatusUnprocessableEntity, errorResponse{
			Error: err.Error(),
			Kind:  string(checkout.KindValidation),
		})

	case errors.Is(err, checkout.ErrCheckoutComplete):
		writeJSON(w, logger, http.StatusConflict, errorResponse{
			Error: err.Error(),
			Kind:  string(checkout.KindStateConflict),
		})

	case errors.Is(err, checkout.ErrOperationInFlight):
		writeJSON(w, logger, http.StatusConflict, errorResponse{
			Error:     err.Error(),
			Kind:      string(checkout.KindStateConflict),
			Retryable: true,
		})

	case errors.As(err, &seq):
		writeJSON(w, logger, http.StatusConflict, errorResponse{
			Error: seq.Error(),
			Kind:  "out_of_sequence",
			Step:  seq.Current.String(),
		})

	case errors.As(err, &stale):
		writeJSON(w, logger, http.StatusConflict, errorResponse{
			Error: stale.Error(),
			Kind:  "stale_selection",
		})

	case errors.As(err, &concurrent):
		writeJSON(w, logger, http.StatusConflict, errorResponse{
			Error: concurrent.Error(),
			Kind:  "concurrent_intent",
		})

	case errors.As(err, &cerr):
		switch cerr.Kind {
		case checkout.KindValidation:
			writeJSON(w, logger, http.StatusUnprocessableEntity, errorResponse{
				Error: cerr.Message,
				Kind:  string(cerr.Kind),
			})
		case checkout.KindGateway:
			writeJSON(w, logger, http.StatusPaymentRequired, errorResponse{
				Error:       cerr.Message,
				Kind:        string(cerr.Kind),
				DeclineCode: cerr.DeclineCode,
				Retryable:   cerr.Retryable,
			})
		case checkout.KindNetwork:
			writeJSON(w, logger, http.StatusServiceUnavailable, errorResponse{
				Error:     cerr.Message,
				Kind:      string(cerr.Kind),
				Retryable: true,
			})
		case checkout.KindStateConflict:
			writeJSON(w, logger, http.StatusConflict, errorResponse{
				Error: cerr.Message,
				Kind:  string(cerr.Kind),
			})
		case checkout.KindReconciliation:
			logger.Error("checkout requires reconciliation", "error", err)
			writeJSON(w, logger, http.StatusInternalServerError, errorResponse{
				Error:           cerr.Message,
				Kind:            string(cerr.Kind),
				SupportNotified: true,
			})
		default:
			logger.Error("checkout error with unknown kind", "error", err)
			writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}

	default:
		logger.Error("unclassified checkout error", "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
