package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hvacdirectapp/hvacdirect/internal/config"
	"github.com/hvacdirectapp/hvacdirect/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.MetricsContext)
	r.Use(h.SecurityHeaders)

	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	// The webhook endpoint authenticates with the gateway signature, not a
	// browser session, so it sits outside the same-origin guard.
	r.HandleFunc("/webhooks/stripe", h.GatewayWebhook).Methods("POST").Name("webhooks.stripe")

	checkoutRouter := r.PathPrefix("/checkout").Subrouter()
	checkoutRouter.Use(h.RequireSameOrigin)
	checkoutRouter.HandleFunc("/order", h.ActiveOrder).Methods("GET").Name("checkout.order")
	checkoutRouter.HandleFunc("/address", h.SubmitAddress).Methods("POST").Name("checkout.address")
	checkoutRouter.HandleFunc("/shipping-methods", h.ShippingMethods).Methods("GET").Name("checkout.shipping_methods")
	checkoutRouter.HandleFunc("/shipping-method", h.SelectShippingMethod).Methods("POST").Name("checkout.shipping_method")
	checkoutRouter.HandleFunc("/transition", h.BeginPayment).Methods("POST").Name("checkout.transition")
	checkoutRouter.HandleFunc("/payment-intent", h.CreatePaymentIntent).Methods("POST").Name("checkout.payment_intent")
	checkoutRouter.HandleFunc("/payment/confirm", h.ConfirmPayment).Methods("POST").Name("checkout.payment_confirm")
	checkoutRouter.HandleFunc("/finalize", h.Finalize).Methods("POST").Name("checkout.finalize")

	r.HandleFunc("/orders/{code}", h.OrderConfirmation).Methods("GET").Name("orders.confirmation")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
