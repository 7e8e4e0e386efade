package scraper

import (
	"context"
	"time"
)

// Element is a handle to one DOM node scoped to its page session.
type Element interface {
	// Query returns the first descendant matching selector, or
	// ErrElementMissing when none exists.
	Query(ctx context.Context, selector string) (Element, error)
	// Attribute reads an attribute value; ErrElementMissing when unset.
	Attribute(ctx context.Context, name string) (string, error)
	// InnerHTML returns the node's rendered inner HTML.
	InnerHTML(ctx context.Context) (string, error)
}

// PageDriver is the narrow rendering capability the pipeline needs from a
// browser session. One driver serves exactly one store.
type PageDriver interface {
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Attribute reads an attribute from the first element matching selector;
	// ErrElementMissing when the element or attribute is absent.
	Attribute(ctx context.Context, selector, name string) (string, error)
	SetGeolocation(ctx context.Context, latitude, longitude float64) error
	// FilterRequests installs the request blocklist for the session.
	FilterRequests(ctx context.Context, blocklist *RequestBlocklist) error
	Close(ctx context.Context) error
}

// SessionFactory mints one PageDriver per store.
type SessionFactory interface {
	NewSession(ctx context.Context) (PageDriver, error)
}

// ProductStore is the upsert-by-key document gateway for canonical products.
type ProductStore interface {
	UpsertProduct(ctx context.Context, product Product) error
	// GetProduct returns nil without error when the product is unknown.
	GetProduct(ctx context.Context, productID string) (*Product, error)
}

// PriceStore appends hour-bucketed price observations. Appending twice into
// the same (productID, hour) bucket keeps the later value.
type PriceStore interface {
	AppendPrice(ctx context.Context, productID string, point PricePoint) error
}

// DetailFetcher retrieves the full product record for an id observed on a
// category page.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, productID string) (*Product, error)
}

// Publisher pushes crawl events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// ImageArchiver stores a product's hi-res image and returns its URI.
type ImageArchiver interface {
	Archive(ctx context.Context, productID, imageURL string) (string, error)
}

// Clock returns the current time (swapped out in tests).
type Clock interface {
	Now() time.Time
}
