package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// OrderConfirmation serves a completed order looked up by its code. Only
// the session that placed the order may read it; the order service enforces
// that with the session token we forward.
func (h *Handlers) OrderConfirmation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	code := strings.TrimSpace(mux.Vars(r)["code"])
	if code == "" {
		writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: "order code is required"})
		return
	}

	cartID, data, orch, err := h.checkoutContext(w, r)
	if err != nil {
		logger.Error("failed to resolve checkout session", "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "session unavailable"})
		return
	}

	order, err := orch.OrderByCode(ctx, code)
	h.persistOrderToken(r, cartID, data, orch)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	attempts, err := h.attemptStore.ListByOrderCode(ctx, code)
	if err != nil {
		logger.Warn("failed to load payment attempts for confirmation", "error", err, "order_code", code)
		attempts = nil
	}

	writeJSON(w, logger, http.StatusOK, map[string]any{
		"order":            order,
		"payment_attempts": attempts,
	})
}
