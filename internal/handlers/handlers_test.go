package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hvacdirectapp/hvacdirect/internal/checkout"
	"github.com/hvacdirectapp/hvacdirect/internal/config"
)

func testHandlers() *Handlers {
	return &Handlers{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestWriteCheckoutErrorStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		check      func(t *testing.T, resp errorResponse)
	}{
		{
			name:       "order not found",
			err:        checkout.ErrOrderNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "no shipping methods",
			err:        checkout.ErrNoShippingMethods,
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   string(checkout.KindValidation),
		},
		{
			name:       "checkout complete",
			err:        checkout.ErrCheckoutComplete,
			wantStatus: http.StatusConflict,
			wantKind:   string(checkout.KindStateConflict),
		},
		{
			name:       "operation in flight",
			err:        checkout.ErrOperationInFlight,
			wantStatus: http.StatusConflict,
			wantKind:   string(checkout.KindStateConflict),
			check: func(t *testing.T, resp errorResponse) {
				if !resp.Retryable {
					t.Fatalf("expected in-flight error to be retryable")
				}
			},
		},
		{
			name: "out of sequence",
			err: &checkout.OutOfSequenceError{
				Op:       "select_shipping_method",
				Current:  checkout.StepAddress,
				Required: checkout.StepShipping,
			},
			wantStatus: http.StatusConflict,
			wantKind:   "out_of_sequence",
			check: func(t *testing.T, resp errorResponse) {
				if resp.Step != checkout.StepAddress.String() {
					t.Fatalf("expected current step in response, got %q", resp.Step)
				}
			},
		},
		{
			name:       "stale selection",
			err:        &checkout.StaleSelectionError{MethodID: "sm9"},
			wantStatus: http.StatusConflict,
			wantKind:   "stale_selection",
		},
		{
			name:       "concurrent intent",
			err:        &checkout.ConcurrentIntentError{},
			wantStatus: http.StatusConflict,
			wantKind:   "concurrent_intent",
		},
		{
			name:       "validation",
			err:        &checkout.Error{Kind: checkout.KindValidation, Message: "invalid shipping address"},
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   string(checkout.KindValidation),
		},
		{
			name: "gateway decline",
			err: &checkout.Error{
				Kind:        checkout.KindGateway,
				Message:     "Your card was declined.",
				DeclineCode: "card_declined",
				Retryable:   true,
			},
			wantStatus: http.StatusPaymentRequired,
			wantKind:   string(checkout.KindGateway),
			check: func(t *testing.T, resp errorResponse) {
				if resp.DeclineCode != "card_declined" || !resp.Retryable {
					t.Fatalf("expected decline details, got %+v", resp)
				}
			},
		},
		{
			name:       "network",
			err:        &checkout.Error{Kind: checkout.KindNetwork, Message: "unreachable"},
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   string(checkout.KindNetwork),
			check: func(t *testing.T, resp errorResponse) {
				if !resp.Retryable {
					t.Fatalf("expected network error to be retryable")
				}
			},
		},
		{
			name:       "state conflict",
			err:        &checkout.Error{Kind: checkout.KindStateConflict, Message: "order changed"},
			wantStatus: http.StatusConflict,
			wantKind:   string(checkout.KindStateConflict),
		},
		{
			name:       "reconciliation",
			err:        &checkout.Error{Kind: checkout.KindReconciliation, Message: "support notified"},
			wantStatus: http.StatusInternalServerError,
			wantKind:   string(checkout.KindReconciliation),
			check: func(t *testing.T, resp errorResponse) {
				if !resp.SupportNotified {
					t.Fatalf("expected support_notified flag")
				}
			},
		},
		{
			name:       "unclassified",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := testHandlers()
			w := httptest.NewRecorder()
			r := httptest.NewRequest("POST", "/checkout/address", nil)

			h.writeCheckoutError(w, r, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}

			var resp errorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Kind != tt.wantKind {
				t.Fatalf("expected kind %q, got %q", tt.wantKind, resp.Kind)
			}
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/checkout/shipping-method", strings.NewReader(`{"method_id": "sm1", "bogus": true}`))

	var req struct {
		MethodID string `json:"method_id"`
	}
	if err := readJSON(w, r, &req); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestSecureCookiesFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *config.Config
		want bool
	}{
		{name: "nil config", cfg: nil, want: false},
		{name: "https base url", cfg: &config.Config{BaseURL: "https://shop.example.com"}, want: true},
		{name: "http base url", cfg: &config.Config{BaseURL: "http://localhost:8080"}, want: false},
		{name: "tls port without base url", cfg: &config.Config{Port: "443"}, want: true},
		{name: "alt tls port", cfg: &config.Config{Port: "8443"}, want: true},
		{name: "plain port", cfg: &config.Config{Port: "8080"}, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SecureCookiesFromConfig(tt.cfg); got != tt.want {
				t.Fatalf("SecureCookiesFromConfig() = %v, want %v", got, tt.want)
			}
		})
	}
}
