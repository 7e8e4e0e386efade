package scraper

import (
	"context"

	"go.uber.org/zap"

	"github.com/kiwiprice/pak-crawler/internal/metrics"
	"github.com/kiwiprice/pak-crawler/internal/pricing"
)

// ProductResolver decides whether an observed product id needs a detail fetch
// and produces the normalized Product when it does. Known products are never
// re-fetched; their records only see price refreshes through the price store.
type ProductResolver struct {
	products ProductStore
	details  DetailFetcher
	logger   *zap.Logger
}

// NewProductResolver wires a resolver to its persistence reader and detail
// fetch capability.
func NewProductResolver(products ProductStore, details DetailFetcher, logger *zap.Logger) *ProductResolver {
	return &ProductResolver{
		products: products,
		details:  details,
		logger:   logger,
	}
}

// Resolve returns the freshly fetched Product for an unknown id, or nil when
// the product already exists or the fetch failed. Fetch and parse failures
// are product-scoped: the id stays unknown and is retried on a future run.
func (r *ProductResolver) Resolve(ctx context.Context, productID string) (*Product, error) {
	existing, err := r.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	product, err := r.details.FetchDetail(ctx, productID)
	if err != nil {
		metrics.IncDetailFailure()
		r.logger.Warn("product detail fetch failed",
			zap.String("product_id", productID),
			zap.Error(err),
		)
		return nil, nil
	}

	// The detail payload carries the long retailer id (e.g. 5009687-EA-000);
	// persistence is keyed by the short id observed on the listing page.
	product.ProductID = productID

	if unitPrice, ok := pricing.DeriveUnitPrice(product.DisplayName, product.Price); ok {
		r.logger.Debug("derived unit price",
			zap.String("product_id", productID),
			zap.String("unit_price", unitPrice),
		)
	}
	return product, nil
}
