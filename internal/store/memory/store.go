// Package memory provides the in-memory persistence twin used by dry runs
// and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kiwiprice/pak-crawler/internal/scraper"
)

// Store implements the product and price gateways with maps. Semantics match
// the Postgres stores: upsert-by-key products and last-write-wins hourly
// price buckets.
type Store struct {
	mu       sync.RWMutex
	products map[string]scraper.Product
	prices   map[string]map[time.Time]float64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		products: make(map[string]scraper.Product),
		prices:   make(map[string]map[time.Time]float64),
	}
}

// UpsertProduct inserts or replaces a product record.
func (s *Store) UpsertProduct(_ context.Context, product scraper.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ProductID] = product
	return nil
}

// GetProduct returns a copy of the stored product, or nil when unknown.
func (s *Store) GetProduct(_ context.Context, productID string) (*scraper.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	product, ok := s.products[productID]
	if !ok {
		return nil, nil
	}
	return &product, nil
}

// AppendPrice records an observation, replacing any earlier value in the
// same hour bucket.
func (s *Store) AppendPrice(_ context.Context, productID string, point scraper.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buckets, ok := s.prices[productID]
	if !ok {
		buckets = make(map[time.Time]float64)
		s.prices[productID] = buckets
	}
	buckets[point.ObservedAt] = point.Price
	return nil
}

// PricePoints returns the stored observations for a product.
func (s *Store) PricePoints(productID string) []scraper.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buckets := s.prices[productID]
	points := make([]scraper.PricePoint, 0, len(buckets))
	for at, price := range buckets {
		points = append(points, scraper.PricePoint{ObservedAt: at, Price: price})
	}
	return points
}

// ProductCount reports how many products are stored.
func (s *Store) ProductCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}
