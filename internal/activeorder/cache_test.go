package activeorder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hvacdirectapp/hvacdirect/internal/cache"
	"github.com/hvacdirectapp/hvacdirect/internal/models"
)

func newTestCache(t *testing.T) (*Cache, cache.Provider) {
	t.Helper()

	provider, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("failed to create memory provider: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(provider, logger), provider
}

func TestCacheRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, _ := newTestCache(t)
	order := &models.Order{
		Code:              "HV1001",
		State:             models.StateArrangingPayment,
		TotalWithTaxCents: 3000,
	}

	if err := c.Put(ctx, "cart-1", order); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := c.Get(ctx, "cart-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Code != "HV1001" || got.State != models.StateArrangingPayment || got.TotalWithTaxCents != 3000 {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestCacheMiss(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, _ := newTestCache(t)

	_, err := c.Get(ctx, "missing")
	if !errors.Is(err, ErrNotCached) {
		t.Fatalf("expected ErrNotCached, got %v", err)
	}
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, _ := newTestCache(t)
	if err := c.Put(ctx, "cart-1", &models.Order{Code: "HV1001"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := c.Invalidate(ctx, "cart-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := c.Get(ctx, "cart-1"); !errors.Is(err, ErrNotCached) {
		t.Fatalf("expected ErrNotCached after invalidate, got %v", err)
	}
}

func TestCachePutNilInvalidates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, _ := newTestCache(t)
	if err := c.Put(ctx, "cart-1", &models.Order{Code: "HV1001"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := c.Put(ctx, "cart-1", nil); err != nil {
		t.Fatalf("put nil: %v", err)
	}
	if _, err := c.Get(ctx, "cart-1"); !errors.Is(err, ErrNotCached) {
		t.Fatalf("expected ErrNotCached after nil put, got %v", err)
	}
}

func TestCacheDropsCorruptEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, provider := newTestCache(t)
	if err := provider.Set(ctx, cache.ActiveOrderKey("cart-1"), "{not json", time.Minute); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	if _, err := c.Get(ctx, "cart-1"); !errors.Is(err, ErrNotCached) {
		t.Fatalf("expected ErrNotCached for corrupt entry, got %v", err)
	}

	// The corrupt entry must be gone from the underlying store.
	if _, err := provider.Get(ctx, cache.ActiveOrderKey("cart-1")); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected corrupt entry dropped, got %v", err)
	}
}
