// Package details fetches full product records from the storefront's
// next-data JSON endpoint.
package details

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kiwiprice/pak-crawler/internal/scraper"
)

// Config controls the detail endpoint and its pacing.
type Config struct {
	// BaseURL is the storefront origin, e.g. https://www.paknsave.co.nz.
	BaseURL string
	// VersionToken is the site build id embedded in the next-data path.
	VersionToken string
	// NameSlug fills the endpoint's name query parameter; the payload does
	// not depend on it.
	NameSlug  string
	UserAgent string
	Timeout   time.Duration
	// QPS caps detail requests per second. Zero disables the limiter.
	QPS float64
}

// Fetcher implements scraper.DetailFetcher with a Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	limiter       *rate.Limiter
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.NameSlug == "" {
		cfg.NameSlug = "food"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)

	var limiter *rate.Limiter
	if cfg.QPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.QPS), 1)
	}

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		limiter:       limiter,
		logger:        logger,
	}
}

// FetchDetail retrieves and parses the product document for productID. Parse
// failures carry a truncated payload snippet for diagnosis.
func (f *Fetcher) FetchDetail(ctx context.Context, productID string) (*scraper.Product, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("detail rate limit: %w", err)
		}
	}

	endpoint := f.detailURL(productID)
	f.logger.Debug("fetching product detail",
		zap.String("product_id", productID),
		zap.String("url", endpoint),
	)
	body, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", productID, err)
	}

	var product scraper.Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, fmt.Errorf("parse product %s: %w (payload: %s)", productID, err, snippet(body))
	}
	return &product, nil
}

func (f *Fetcher) detailURL(productID string) string {
	return fmt.Sprintf("%s/_next/data/%s/shop/product/%s.json?name=%s&productId=%s",
		f.cfg.BaseURL,
		f.cfg.VersionToken,
		url.PathEscape(productID),
		url.QueryEscape(f.cfg.NameSlug),
		url.QueryEscape(productID),
	)
}

func (f *Fetcher) get(ctx context.Context, endpoint string) ([]byte, error) {
	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector := f.baseCollector.Clone()

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json")
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(endpoint)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("detail fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit failed: %w", err)
		}
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("status %d: %w", status, fetchErr)
	}
	return body, nil
}

// snippet truncates a payload the way the run logs expect: enough to see the
// failure, never the whole document.
func snippet(body []byte) string {
	const max = 500
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
