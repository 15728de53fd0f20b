// Package cache provides the shared cache behind the active-order mirror and
// webhook idempotency tracking.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Provider is a string cache with per-key TTLs.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// ActiveOrderKey is the cache key for the mirrored order behind a checkout
// session's order token.
func ActiveOrderKey(orderToken string) string {
	return fmt.Sprintf("active_order:%s", orderToken)
}

// WebhookKey is the cache key used to deduplicate gateway webhook deliveries.
func WebhookKey(source, eventID string) string {
	return fmt.Sprintf("webhook:%s:%s", source, eventID)
}
