// Package activeorder mirrors the server-held order for rendering. The
// mirror is never consulted for checkout progression decisions; those come
// from server responses. Readers must tolerate a brief stale window between
// a mutation and the following refresh.
package activeorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hvacdirectapp/hvacdirect/internal/cache"
	"github.com/hvacdirectapp/hvacdirect/internal/models"
)

const defaultTTL = 30 * time.Minute

var ErrNotCached = errors.New("active order not cached")

type Cache struct {
	provider cache.Provider
	ttl      time.Duration
	logger   *slog.Logger
}

func New(provider cache.Provider, logger *slog.Logger) *Cache {
	return &Cache{
		provider: provider,
		ttl:      defaultTTL,
		logger:   logger,
	}
}

func (c *Cache) Get(ctx context.Context, orderToken string) (*models.Order, error) {
	raw, err := c.provider.Get(ctx, cache.ActiveOrderKey(orderToken))
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read active order cache: %w", err)
	}

	var order models.Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		// A corrupt entry is dropped rather than served.
		if deleteErr := c.provider.Delete(ctx, cache.ActiveOrderKey(orderToken)); deleteErr != nil && c.logger != nil {
			c.logger.Warn("failed to drop corrupt active order entry", "error", deleteErr)
		}
		return nil, ErrNotCached
	}
	return &order, nil
}

func (c *Cache) Put(ctx context.Context, orderToken string, order *models.Order) error {
	if order == nil {
		return c.Invalidate(ctx, orderToken)
	}

	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode active order: %w", err)
	}
	return c.provider.Set(ctx, cache.ActiveOrderKey(orderToken), string(raw), c.ttl)
}

func (c *Cache) Invalidate(ctx context.Context, orderToken string) error {
	return c.provider.Delete(ctx, cache.ActiveOrderKey(orderToken))
}
