package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hvacdirectapp/hvacdirect/internal/activeorder"
	"github.com/hvacdirectapp/hvacdirect/internal/cache"
	"github.com/hvacdirectapp/hvacdirect/internal/checkout"
	"github.com/hvacdirectapp/hvacdirect/internal/config"
	"github.com/hvacdirectapp/hvacdirect/internal/db"
	"github.com/hvacdirectapp/hvacdirect/internal/email"
	"github.com/hvacdirectapp/hvacdirect/internal/gateway"
	"github.com/hvacdirectapp/hvacdirect/internal/handlers"
	"github.com/hvacdirectapp/hvacdirect/internal/observability"
	"github.com/hvacdirectapp/hvacdirect/internal/ordersvc"
	"github.com/hvacdirectapp/hvacdirect/internal/session"
)

type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	DB             *pgxpool.Pool
	CacheProvider  cache.Provider
	SessionManager *session.Manager
	Handlers       *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	sessionStore, err := session.NewStore(startupCtx, session.Config{
		Provider:              cfg.SessionStoreProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	sessionManager := session.NewManager(sessionStore, cfg.SessionSigningKey, handlers.SecureCookiesFromConfig(cfg))

	orderClient, err := ordersvc.NewClient(
		cfg.OrderAPIURL,
		cfg.OrderAPIChannelToken,
		observability.NewHTTPClient(15*time.Second, propagationTargets(cfg.OrderAPIURL)...),
		logger.With("component", "order_client"),
	)
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize order service client: %w", err)
	}

	stripeGateway := gateway.NewStripeGateway(cfg.StripeSecretKey, logger.With("component", "stripe_gateway"))
	attemptStore := db.NewAttemptStore(database)
	activeOrders := activeorder.New(cacheProvider, logger.With("component", "active_orders"))

	var emailProvider email.Provider = email.NoopProvider{}
	if cfg.ResendAPIKey != "" && cfg.EmailFrom != "" {
		emailProvider = email.NewResendProvider(cfg.ResendAPIKey, cfg.EmailFrom)
	}

	registry, err := checkout.NewRegistry(
		orderClient,
		stripeGateway,
		activeOrders,
		attemptStore,
		emailProvider,
		logger.With("component", "checkout"),
	)
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize checkout registry: %w", err)
	}

	webhookRouter := handlers.NewGatewayEventRouter(attemptStore, logger.With("component", "gateway_router"))

	h, err := handlers.New(handlers.Dependencies{
		Config:         cfg,
		DB:             database,
		AttemptStore:   attemptStore,
		CacheProvider:  cacheProvider,
		ActiveOrders:   activeOrders,
		Registry:       registry,
		WebhookRouter:  webhookRouter,
		SessionManager: sessionManager,
		Logger:         logger,
	})
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:         cfg,
		Logger:         logger,
		DB:             database,
		CacheProvider:  cacheProvider,
		SessionManager: sessionManager,
		Handlers:       h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.SessionManager != nil {
		closeSessionManager(a.Logger, a.SessionManager)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	default:
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		}))
	}
}

func propagationTargets(rawURLs ...string) []string {
	var hosts []string
	for _, rawURL := range rawURLs {
		parsed, err := url.Parse(strings.TrimSpace(rawURL))
		if err != nil || parsed.Hostname() == "" {
			continue
		}
		hosts = append(hosts, parsed.Hostname())
	}
	return hosts
}

func closeSessionManager(logger *slog.Logger, manager *session.Manager) {
	if manager == nil {
		return
	}
	if err := manager.Close(); err != nil && logger != nil {
		logger.Warn("failed to close session manager", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
