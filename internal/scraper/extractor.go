package scraper

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kiwiprice/pak-crawler/internal/metrics"
)

// PriceExtractor reads one rendered product card into a ProductPrice. Any
// malformed card yields no result and a log line; a single bad card never
// aborts its page.
type PriceExtractor struct {
	sel    Selectors
	logger *zap.Logger
}

// NewPriceExtractor builds an extractor for the given selector set.
func NewPriceExtractor(sel Selectors, logger *zap.Logger) *PriceExtractor {
	return &PriceExtractor{sel: sel, logger: logger}
}

// Extract pulls the product id and current price out of card, stamping the
// price with the caller-supplied hour bucket. ok is false when the card is
// missing required elements or the price does not parse.
func (e *PriceExtractor) Extract(ctx context.Context, card Element, hour time.Time) (ProductPrice, bool) {
	anchor, err := card.Query(ctx, e.sel.ProductAnchor)
	if err != nil {
		e.skip("", "product anchor missing", err)
		return ProductPrice{}, false
	}
	href, err := anchor.Attribute(ctx, "href")
	if err != nil {
		e.skip("", "product link missing", err)
		return ProductPrice{}, false
	}

	// e.g. /shop/product/5260839_ea_000pns?name=salad-sprouts -> 5260839
	productID := ProductIDFromURL(href)
	if productID == "" {
		e.skip(href, "product id not derivable", nil)
		return ProductPrice{}, false
	}

	price, err := e.readPrice(ctx, card)
	if err != nil {
		e.skip(productID, "price not readable", err)
		return ProductPrice{}, false
	}

	return ProductPrice{
		ProductID: productID,
		Point: PricePoint{
			ObservedAt: hour,
			Price:      price,
		},
		ImageURL: e.readImageURL(ctx, anchor),
	}, true
}

func (e *PriceExtractor) readPrice(ctx context.Context, card Element) (float64, error) {
	dollarsEl, err := card.Query(ctx, e.sel.PriceDollars)
	if err != nil {
		return 0, err
	}
	dollars, err := dollarsEl.InnerHTML(ctx)
	if err != nil {
		return 0, err
	}
	centsEl, err := card.Query(ctx, e.sel.PriceCents)
	if err != nil {
		return 0, err
	}
	cents, err := centsEl.InnerHTML(ctx)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(dollars) + "." + strings.TrimSpace(cents), 64)
}

// readImageURL finds the card's 200x200 thumbnail and swaps it for the
// master-resolution variant. Images are optional; failures return "".
func (e *PriceExtractor) readImageURL(ctx context.Context, anchor Element) string {
	imgDiv, err := anchor.Query(ctx, e.sel.ProductImage)
	if err != nil {
		return ""
	}
	src, err := imgDiv.Attribute(ctx, e.sel.ImageAttr)
	if err != nil {
		return ""
	}
	if !strings.Contains(src, "200x200") {
		return ""
	}
	return strings.Replace(src, "200x200", "master", 1)
}

func (e *PriceExtractor) skip(ref, reason string, err error) {
	metrics.IncCardSkipped(reason)
	e.logger.Warn("skipping product card",
		zap.String("ref", ref),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

// ProductIDFromURL derives the short product id from a product link: the
// first underscore-delimited token of the last path segment.
func ProductIDFromURL(href string) string {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" {
		return ""
	}
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	segments := strings.Split(trimmed, "/")
	last := segments[len(segments)-1]
	id, _, _ := strings.Cut(last, "_")
	return id
}
