package postgres

import (
	"context"
	"fmt"

	"github.com/kiwiprice/pak-crawler/internal/scraper"
)

// PriceStore appends hour-bucketed price observations.
//
// Expected schema:
//
//	CREATE TABLE prices (
//	    product_id TEXT NOT NULL,
//	    observed_at TIMESTAMPTZ NOT NULL,
//	    price DOUBLE PRECISION NOT NULL,
//	    PRIMARY KEY (product_id, observed_at)
//	);
type PriceStore struct {
	pool querier
}

// NewPriceStore connects a pool and wraps it in a PriceStore.
func NewPriceStore(ctx context.Context, cfg Config) (*PriceStore, error) {
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PriceStore{pool: pool}, nil
}

// NewPriceStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewPriceStoreWithPool(pool querier) (*PriceStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PriceStore{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *PriceStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const appendPriceSQL = `
INSERT INTO prices (product_id, observed_at, price)
VALUES ($1, $2, $3)
ON CONFLICT (product_id, observed_at) DO UPDATE SET price = EXCLUDED.price`

// AppendPrice records one observation. Re-appending into the same
// (product, hour) bucket replaces the stored price, so the call is idempotent
// per bucket with last-write-wins semantics.
func (s *PriceStore) AppendPrice(ctx context.Context, productID string, point scraper.PricePoint) error {
	if productID == "" {
		return fmt.Errorf("product id is required")
	}
	if _, err := s.pool.Exec(ctx, appendPriceSQL, productID, point.ObservedAt, point.Price); err != nil {
		return fmt.Errorf("append price for %s: %w", productID, err)
	}
	return nil
}
