package scraper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kiwiprice/pak-crawler/internal/metrics"
)

// PaginatorConfig tunes one category traversal.
type PaginatorConfig struct {
	// PageDelay paces requests between listing pages.
	PageDelay time.Duration
	// WaitTimeout bounds the wait for the price selector after navigation.
	WaitTimeout time.Duration
	// MaxPages caps the cursor queue as a safety net on top of the
	// visited-URL guard.
	MaxPages int
	// DryRun skips every persistence and publish call.
	DryRun bool
}

// CategoryPaginator drives one category through its page sequence: a FIFO
// queue of page cursors seeded with the category URL, extraction per page,
// and next-page discovery. Page-level failures empty that page and the loop
// continues with the next cursor.
type CategoryPaginator struct {
	driver    PageDriver
	extractor *PriceExtractor
	resolver  *ProductResolver
	products  ProductStore
	prices    PriceStore
	publisher Publisher
	images    ImageArchiver
	sel       Selectors
	cfg       PaginatorConfig
	clock     Clock
	pause     pauseController
	logger    *zap.Logger

	runID   string
	storeID string
}

// NewCategoryPaginator assembles a paginator for one store session. The
// publisher and image archiver may be nil.
func NewCategoryPaginator(
	driver PageDriver,
	extractor *PriceExtractor,
	resolver *ProductResolver,
	products ProductStore,
	prices PriceStore,
	publisher Publisher,
	images ImageArchiver,
	sel Selectors,
	cfg PaginatorConfig,
	clock Clock,
	logger *zap.Logger,
	runID string,
	storeID string,
) *CategoryPaginator {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 200
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 30 * time.Second
	}
	return &CategoryPaginator{
		driver:    driver,
		extractor: extractor,
		resolver:  resolver,
		products:  products,
		prices:    prices,
		publisher: publisher,
		images:    images,
		sel:       sel,
		cfg:       cfg,
		clock:     clock,
		pause:     timerPauseController{},
		logger:    logger,
		runID:     runID,
		storeID:   storeID,
	}
}

// Scrape walks every page of category. It returns an error only when the
// context is canceled; all page and card failures are absorbed and counted.
func (p *CategoryPaginator) Scrape(ctx context.Context, category Category) (CategoryStats, error) {
	start := p.clock.Now()
	stats := CategoryStats{}

	visited := newVisitTracker()
	visited.MarkIfNew(category.URL)
	queue := []string{category.URL}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if stats.Pages >= p.cfg.MaxPages {
			p.logger.Warn("category page cap reached",
				zap.String("category", category.Name),
				zap.Int("pages", stats.Pages),
			)
			break
		}

		cursor := queue[0]
		queue = queue[1:]
		stats.Pages++

		p.logger.Info("scraping category page",
			zap.String("category", category.Name),
			zap.Int("page", stats.Pages),
			zap.String("url", cursor),
		)

		next := p.scrapePage(ctx, cursor, &stats)
		metrics.IncPageScraped(p.storeID)

		if next != "" {
			if visited.MarkIfNew(next) {
				queue = append(queue, next)
			} else {
				p.logger.Warn("dropping repeated next-page url",
					zap.String("category", category.Name),
					zap.String("url", next),
				)
			}
		}

		if len(queue) > 0 {
			p.pause.Pause(ctx, p.cfg.PageDelay)
		}
	}

	metrics.ObserveCategoryDuration(category.Name, p.clock.Now().Sub(start))
	return stats, ctx.Err()
}

// scrapePage loads one cursor, extracts every card, hands results to
// persistence, and returns the discovered next-page URL ("" when absent).
func (p *CategoryPaginator) scrapePage(ctx context.Context, url string, stats *CategoryStats) string {
	if err := p.driver.Navigate(ctx, url); err != nil {
		p.logger.Warn("page navigation failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	if err := p.driver.WaitForSelector(ctx, p.sel.PriceCents, p.cfg.WaitTimeout); err != nil {
		p.logger.Warn("page never showed prices", zap.String("url", url), zap.Error(err))
		return ""
	}

	cards, err := p.driver.QueryAll(ctx, p.sel.ProductCard)
	if err != nil {
		p.logger.Warn("product card query failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	p.logger.Info("products found", zap.Int("count", len(cards)), zap.String("url", url))

	hour := p.clock.Now().UTC().Truncate(time.Hour)
	seen := make(map[string]struct{}, len(cards))
	for _, card := range cards {
		stats.Cards++
		result, ok := p.extractor.Extract(ctx, card, hour)
		if !ok {
			stats.Skipped++
			continue
		}
		// The same product can render twice on one page; one price point per
		// (product, hour) bucket leaves the page.
		if _, dup := seen[result.ProductID]; dup {
			continue
		}
		seen[result.ProductID] = struct{}{}
		p.handleResult(ctx, result, stats)
	}

	next, err := p.driver.Attribute(ctx, p.sel.NextPage, p.sel.NextPageAttr)
	if err != nil {
		if !errors.Is(err, ErrElementMissing) {
			p.logger.Warn("next-page lookup failed", zap.String("url", url), zap.Error(err))
		}
		return ""
	}
	return next
}

func (p *CategoryPaginator) handleResult(ctx context.Context, result ProductPrice, stats *CategoryStats) {
	if p.cfg.DryRun {
		stats.PricePoints++
		p.logger.Debug("dry run: would persist price",
			zap.String("product_id", result.ProductID),
			zap.Float64("price", result.Point.Price),
		)
		return
	}

	product, err := p.resolver.Resolve(ctx, result.ProductID)
	if err != nil {
		p.logger.Warn("product lookup failed",
			zap.String("product_id", result.ProductID),
			zap.Error(err),
		)
	} else if product != nil {
		p.persistNewProduct(ctx, *product, result.ImageURL, stats)
	}

	if err := p.prices.AppendPrice(ctx, result.ProductID, result.Point); err != nil {
		p.logger.Warn("price append failed",
			zap.String("product_id", result.ProductID),
			zap.Error(err),
		)
		return
	}
	stats.PricePoints++
	metrics.AddPricePoints(p.storeID, 1)
	p.publish(ctx, "price-observed", PriceObservedEvent{
		RunID:     p.runID,
		StoreID:   p.storeID,
		ProductID: result.ProductID,
		Price:     result.Point.Price,
		Bucket:    result.Point.ObservedAt,
	})
}

func (p *CategoryPaginator) persistNewProduct(ctx context.Context, product Product, imageURL string, stats *CategoryStats) {
	if err := p.products.UpsertProduct(ctx, product); err != nil {
		p.logger.Warn("product upsert failed",
			zap.String("product_id", product.ProductID),
			zap.Error(err),
		)
		return
	}
	stats.NewProducts++
	metrics.IncProductDiscovered(p.storeID)
	p.logger.Info("product discovered",
		zap.String("product_id", product.ProductID),
		zap.String("name", product.Name),
	)
	p.publish(ctx, "product-discovered", ProductDiscoveredEvent{
		RunID:     p.runID,
		StoreID:   p.storeID,
		ProductID: product.ProductID,
		Name:      product.Name,
		At:        p.clock.Now().UTC(),
	})

	if p.images != nil && imageURL != "" {
		if _, err := p.images.Archive(ctx, product.ProductID, imageURL); err != nil {
			p.logger.Warn("image archive failed",
				zap.String("product_id", product.ProductID),
				zap.String("url", imageURL),
				zap.Error(err),
			)
		}
	}
}

func (p *CategoryPaginator) publish(ctx context.Context, topic string, payload any) {
	if p.publisher == nil {
		return
	}
	if _, err := p.publisher.Publish(ctx, topic, payload); err != nil {
		p.logger.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
