package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kiwiprice/pak-crawler/internal/metrics"
)

// SessionConfig tunes one store session.
type SessionConfig struct {
	// LandingURL is the neutral page that triggers server-side store
	// selection from the session geolocation.
	LandingURL string
	// WaitTimeout bounds the wait for the first price element after landing.
	WaitTimeout time.Duration
	Paginator   PaginatorConfig
	Blocklist   *RequestBlocklist
	Selectors   Selectors
}

// Deps bundles the collaborators a session hands to its paginator.
type Deps struct {
	Products  ProductStore
	Prices    PriceStore
	Details   DetailFetcher
	Publisher Publisher
	Images    ImageArchiver
	Clock     Clock
}

// StoreSession binds one page-driver session to one store and drives every
// category through the paginator. The driver is released on every exit path.
type StoreSession struct {
	factory SessionFactory
	deps    Deps
	cfg     SessionConfig
	logger  *zap.Logger
	runID   string
}

// NewStoreSession builds a session runner for one store.
func NewStoreSession(factory SessionFactory, deps Deps, cfg SessionConfig, logger *zap.Logger, runID string) *StoreSession {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 30 * time.Second
	}
	return &StoreSession{
		factory: factory,
		deps:    deps,
		cfg:     cfg,
		logger:  logger,
		runID:   runID,
	}
}

// Run scrapes every category for store. A *StoreMismatchError aborts this
// store only; category-level failures are absorbed by the paginator.
func (s *StoreSession) Run(ctx context.Context, store Store, categories []Category) (RunOutcome, error) {
	start := s.deps.Clock.Now()
	logger := s.logger.With(zap.String("store", store.Name), zap.String("store_id", store.ID))

	driver, err := s.factory.NewSession(ctx)
	if err != nil {
		return RunOutcome{}, fmt.Errorf("acquire page session: %w", err)
	}
	defer func() {
		if cerr := driver.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("page session close failed", zap.Error(cerr))
		}
	}()

	if err := s.bindStore(ctx, driver, store, logger); err != nil {
		return RunOutcome{}, err
	}

	extractor := NewPriceExtractor(s.cfg.Selectors, logger)
	resolver := NewProductResolver(s.deps.Products, s.deps.Details, logger)
	paginator := NewCategoryPaginator(
		driver,
		extractor,
		resolver,
		s.deps.Products,
		s.deps.Prices,
		s.deps.Publisher,
		s.deps.Images,
		s.cfg.Selectors,
		s.cfg.Paginator,
		s.deps.Clock,
		logger,
		s.runID,
		store.ID,
	)

	outcome := RunOutcome{StoreID: store.ID}
	for _, category := range categories {
		logger.Info("scraping category", zap.String("category", category.Name), zap.String("url", category.URL))
		stats, err := paginator.Scrape(ctx, category)
		outcome.Stats = outcome.Stats.add(stats)
		if err != nil {
			return outcome, err
		}
		outcome.Categories++
	}

	outcome.Elapsed = s.deps.Clock.Now().Sub(start)
	logger.Info("store scrape completed",
		zap.Int("categories", outcome.Categories),
		zap.Int("price_points", outcome.Stats.PricePoints),
		zap.Int("new_products", outcome.Stats.NewProducts),
		zap.Duration("elapsed", outcome.Elapsed),
	)
	return outcome, nil
}

// bindStore configures request filtering and geolocation, lands on the
// neutral page, and verifies the storefront selected the intended store.
func (s *StoreSession) bindStore(ctx context.Context, driver PageDriver, store Store, logger *zap.Logger) error {
	if err := driver.FilterRequests(ctx, s.cfg.Blocklist); err != nil {
		return fmt.Errorf("install request filter: %w", err)
	}

	logger.Info("selecting closest store via geolocation",
		zap.Float64("latitude", store.Latitude),
		zap.Float64("longitude", store.Longitude),
	)
	if err := driver.SetGeolocation(ctx, store.Latitude, store.Longitude); err != nil {
		return fmt.Errorf("set geolocation: %w", err)
	}
	if err := driver.Navigate(ctx, s.cfg.LandingURL); err != nil {
		return fmt.Errorf("navigate landing page: %w", err)
	}
	// Server-side store auto-selection reloads the page; prices appearing
	// means it has settled.
	if err := driver.WaitForSelector(ctx, s.cfg.Selectors.PriceCents, s.cfg.WaitTimeout); err != nil {
		return fmt.Errorf("wait for storefront: %w", err)
	}

	selectedID, err := driver.Attribute(ctx, s.cfg.Selectors.SelectedStore, s.cfg.Selectors.StoreIDAttr)
	if err != nil {
		return fmt.Errorf("read selected store: %w", err)
	}
	if selectedID != store.ID {
		metrics.IncStoreMismatch()
		return &StoreMismatchError{Want: store.ID, Got: selectedID}
	}
	logger.Info("store verified", zap.String("selected_id", selectedID))
	return nil
}
