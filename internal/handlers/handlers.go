package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvacdirectapp/hvacdirect/internal/activeorder"
	"github.com/hvacdirectapp/hvacdirect/internal/cache"
	"github.com/hvacdirectapp/hvacdirect/internal/checkout"
	"github.com/hvacdirectapp/hvacdirect/internal/config"
	"github.com/hvacdirectapp/hvacdirect/internal/db"
	"github.com/hvacdirectapp/hvacdirect/internal/logging"
	"github.com/hvacdirectapp/hvacdirect/internal/session"
)

const (
	maxWebhookBodyBytes = 1 << 20 // 1 MB
	maxRequestBodyBytes = 64 << 10
)

// Handlers provides the storefront checkout HTTP API.
type Handlers struct {
	config         *config.Config
	db             *pgxpool.Pool
	attemptStore   *db.AttemptStore
	cacheProvider  cache.Provider
	activeOrders   *activeorder.Cache
	registry       *checkout.Registry
	webhookRouter  *GatewayEventRouter
	sessionManager *session.Manager
	logger         *slog.Logger
}

type Dependencies struct {
	Config         *config.Config
	DB             *pgxpool.Pool
	AttemptStore   *db.AttemptStore
	CacheProvider  cache.Provider
	ActiveOrders   *activeorder.Cache
	Registry       *checkout.Registry
	WebhookRouter  *GatewayEventRouter
	SessionManager *session.Manager
	Logger         *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.AttemptStore == nil {
		return nil, fmt.Errorf("handlers dependencies: attemptStore is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if deps.ActiveOrders == nil {
		return nil, fmt.Errorf("handlers dependencies: activeOrders is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("handlers dependencies: registry is required")
	}
	if deps.WebhookRouter == nil {
		return nil, fmt.Errorf("handlers dependencies: webhookRouter is required")
	}
	if deps.SessionManager == nil {
		return nil, fmt.Errorf("handlers dependencies: sessionManager is required")
	}

	return &Handlers{
		config:         deps.Config,
		db:             deps.DB,
		attemptStore:   deps.AttemptStore,
		cacheProvider:  deps.CacheProvider,
		activeOrders:   deps.ActiveOrders,
		registry:       deps.Registry,
		webhookRouter:  deps.WebhookRouter,
		sessionManager: deps.SessionManager,
		logger:         logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, logger, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func SecureCookiesFromConfig(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			return strings.EqualFold(parsed.Scheme, "https")
		}
	}

	return cfg.Port == "443" || cfg.Port == "8443"
}
