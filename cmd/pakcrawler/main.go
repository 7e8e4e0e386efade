// Package main wires the per-store price crawler binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/kiwiprice/pak-crawler/internal/api"
	"github.com/kiwiprice/pak-crawler/internal/catalog"
	"github.com/kiwiprice/pak-crawler/internal/clock/system"
	"github.com/kiwiprice/pak-crawler/internal/config"
	"github.com/kiwiprice/pak-crawler/internal/details"
	"github.com/kiwiprice/pak-crawler/internal/headless"
	"github.com/kiwiprice/pak-crawler/internal/images"
	"github.com/kiwiprice/pak-crawler/internal/logging"
	"github.com/kiwiprice/pak-crawler/internal/metrics"
	memorypublisher "github.com/kiwiprice/pak-crawler/internal/publisher/memory"
	gcppublisher "github.com/kiwiprice/pak-crawler/internal/publisher/pubsub"
	"github.com/kiwiprice/pak-crawler/internal/scraper"
	memorystore "github.com/kiwiprice/pak-crawler/internal/store/memory"
	pgstore "github.com/kiwiprice/pak-crawler/internal/store/postgres"
	gcsstorage "github.com/kiwiprice/pak-crawler/internal/storage/gcs"
	localstorage "github.com/kiwiprice/pak-crawler/internal/storage/local"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	dryRun := flag.Bool("dry-run", false, "Log prices without persisting or publishing")
	reverse := flag.Bool("reverse", false, "Walk categories in reverse order")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *dryRun, *reverse, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, dryRun, reverse bool, logger *zap.Logger) error {
	metrics.Init()
	clock := system.New()

	httpClient := &http.Client{Timeout: 30 * time.Second}

	stores, err := catalog.FetchStores(ctx, httpClient, cfg.Target.BaseURL)
	if err != nil {
		return err
	}
	if limit := cfg.Crawler.StoreLimit; limit > 0 && limit < len(stores) {
		stores = stores[:limit]
	}
	categories, err := catalog.LoadCategories(cfg.Target.CategoriesFile, cfg.Target.BaseURL)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded",
		zap.Int("stores", len(stores)),
		zap.Int("categories", len(categories)),
	)

	deps, cleanup, err := buildDeps(ctx, cfg, dryRun, clock, httpClient, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	factory, err := headless.NewFactory(headless.Config{
		Headless:          cfg.Driver.Headless,
		UserAgent:         cfg.Driver.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
	}, logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer factory.Close()

	tracker := api.NewTracker()
	srv := api.NewServer(tracker, logger)
	go func() {
		if err := srv.Serve(ctx, fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()

	sessionCfg := scraper.SessionConfig{
		LandingURL:  cfg.LandingURL(),
		WaitTimeout: cfg.NavTimeout(),
		Blocklist:   scraper.DefaultRequestBlocklist(),
		Selectors:   selectorsFromConfig(cfg.Selectors),
		Paginator: scraper.PaginatorConfig{
			PageDelay:   cfg.PageDelay(),
			WaitTimeout: cfg.NavTimeout(),
			MaxPages:    cfg.Crawler.MaxPages,
		},
	}
	orchestrator := scraper.NewRunOrchestrator(factory, deps, sessionCfg, scraper.RunOptions{
		DryRun:     dryRun,
		Reverse:    reverse,
		StoreDelay: cfg.StoreDelay(),
	}, logger)

	tracker.Started("", clock.Now())
	summary, runErr := orchestrator.Run(ctx, stores, categories)
	tracker.Finished(summary, clock.Now(), runErr)

	logger.Info("run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("stores_scraped", summary.StoresScraped),
		zap.Int("stores_failed", summary.StoresFailed),
		zap.Int("price_points", summary.TotalStats.PricePoints),
		zap.Int("new_products", summary.TotalStats.NewProducts),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return runErr
}

// buildDeps assembles the persistence, publishing and archival collaborators.
// Dry runs swap in in-memory stands-ins so no external service is touched.
func buildDeps(
	ctx context.Context,
	cfg config.Config,
	dryRun bool,
	clock *system.Clock,
	httpClient *http.Client,
	logger *zap.Logger,
) (scraper.Deps, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	deps := scraper.Deps{Clock: clock}
	deps.Details = details.New(details.Config{
		BaseURL:      cfg.Target.BaseURL,
		VersionToken: cfg.Target.VersionToken,
		NameSlug:     cfg.Details.NameSlug,
		UserAgent:    cfg.Driver.UserAgent,
		Timeout:      time.Duration(cfg.Details.TimeoutSeconds) * time.Second,
		QPS:          cfg.Details.QPS,
	}, logger)

	if dryRun {
		mem := memorystore.New()
		deps.Products = mem
		deps.Prices = mem
		deps.Publisher = memorypublisher.New()
		return deps, cleanup, nil
	}

	dbCfg := pgstore.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: time.Duration(cfg.DB.ConnLifetimeMin) * time.Minute,
	}
	productStore, err := pgstore.NewProductStore(ctx, dbCfg)
	if err != nil {
		cleanup()
		return scraper.Deps{}, nil, fmt.Errorf("connect product store: %w", err)
	}
	cleanups = append(cleanups, productStore.Close)
	priceStore, err := pgstore.NewPriceStore(ctx, dbCfg)
	if err != nil {
		cleanup()
		return scraper.Deps{}, nil, fmt.Errorf("connect price store: %w", err)
	}
	cleanups = append(cleanups, priceStore.Close)
	deps.Products = productStore
	deps.Prices = priceStore

	if cfg.PubSub.ProjectID != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			cleanup()
			return scraper.Deps{}, nil, fmt.Errorf("connect pubsub: %w", err)
		}
		pub := gcppublisher.New(client)
		cleanups = append(cleanups, pub.Stop, func() { _ = client.Close() })
		deps.Publisher = &topicMappedPublisher{
			inner: pub,
			topics: map[string]string{
				"product-discovered": cfg.PubSub.ProductTopic,
				"price-observed":     cfg.PubSub.PriceTopic,
			},
		}
	}

	archiver, err := buildArchiver(ctx, cfg, httpClient, logger, &cleanups)
	if err != nil {
		cleanup()
		return scraper.Deps{}, nil, err
	}
	deps.Images = archiver

	return deps, cleanup, nil
}

func buildArchiver(
	ctx context.Context,
	cfg config.Config,
	httpClient *http.Client,
	logger *zap.Logger,
	cleanups *[]func(),
) (scraper.ImageArchiver, error) {
	switch cfg.Storage.Backend {
	case "none":
		return nil, nil
	case "local":
		blobs, err := localstorage.New(localstorage.Config{BaseDir: cfg.Storage.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("open image directory: %w", err)
		}
		return images.New(httpClient, blobs, cfg.Storage.Prefix, logger), nil
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		*cleanups = append(*cleanups, func() { _ = client.Close() })
		blobs, err := gcsstorage.New(client, gcsstorage.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("open gcs bucket: %w", err)
		}
		return images.New(httpClient, blobs, cfg.Storage.Prefix, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func selectorsFromConfig(overrides config.SelectorsConfig) scraper.Selectors {
	sel := scraper.DefaultSelectors()
	apply := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	apply(&sel.ProductCard, overrides.ProductCard)
	apply(&sel.ProductAnchor, overrides.ProductAnchor)
	apply(&sel.PriceDollars, overrides.PriceDollars)
	apply(&sel.PriceCents, overrides.PriceCents)
	apply(&sel.ProductImage, overrides.ProductImage)
	apply(&sel.ImageAttr, overrides.ImageAttr)
	apply(&sel.SelectedStore, overrides.SelectedStore)
	apply(&sel.StoreIDAttr, overrides.StoreIDAttr)
	apply(&sel.NextPage, overrides.NextPage)
	apply(&sel.NextPageAttr, overrides.NextPageAttr)
	return sel
}

// topicMappedPublisher translates the pipeline's logical topic names into the
// configured Pub/Sub topics.
type topicMappedPublisher struct {
	inner  scraper.Publisher
	topics map[string]string
}

func (p *topicMappedPublisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if mapped, ok := p.topics[topic]; ok && mapped != "" {
		topic = mapped
	}
	return p.inner.Publish(ctx, topic, payload)
}
