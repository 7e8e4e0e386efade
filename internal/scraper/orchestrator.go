package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunOptions are the run-level switches.
type RunOptions struct {
	// DryRun skips all persistence and publish calls.
	DryRun bool
	// Reverse processes categories in reverse order.
	Reverse bool
	// StoreDelay paces session teardown/startup between stores.
	StoreDelay time.Duration
}

// RunOrchestrator iterates all stores strictly sequentially, creating and
// tearing down one StoreSession per store. A mismatched store is logged and
// skipped; the run continues with the next store.
type RunOrchestrator struct {
	factory SessionFactory
	deps    Deps
	cfg     SessionConfig
	opts    RunOptions
	logger  *zap.Logger
	pause   pauseController
}

// NewRunOrchestrator builds the orchestrator that owns the whole crawl.
func NewRunOrchestrator(factory SessionFactory, deps Deps, cfg SessionConfig, opts RunOptions, logger *zap.Logger) *RunOrchestrator {
	if opts.StoreDelay <= 0 {
		opts.StoreDelay = 11 * time.Second
	}
	cfg.Paginator.DryRun = opts.DryRun
	return &RunOrchestrator{
		factory: factory,
		deps:    deps,
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
		pause:   timerPauseController{},
	}
}

// Run crawls every store with the given categories and returns the aggregate
// summary. It stops early only on context cancellation.
func (o *RunOrchestrator) Run(ctx context.Context, stores []Store, categories []Category) (RunSummary, error) {
	start := o.deps.Clock.Now()
	summary := RunSummary{RunID: uuid.NewString()}
	logger := o.logger.With(zap.String("run_id", summary.RunID))

	if o.opts.Reverse {
		categories = reversed(categories)
	}
	logger.Info("starting run",
		zap.Int("stores", len(stores)),
		zap.Int("categories", len(categories)),
		zap.Bool("dry_run", o.opts.DryRun),
		zap.Bool("reverse", o.opts.Reverse),
	)

	for i, store := range stores {
		session := NewStoreSession(o.factory, o.deps, o.cfg, logger, summary.RunID)
		outcome, err := session.Run(ctx, store, categories)
		summary.TotalStats = summary.TotalStats.add(outcome.Stats)

		switch {
		case err == nil:
			summary.StoresScraped++
		case isStoreScoped(err):
			summary.StoresFailed++
			logger.Error("store skipped",
				zap.String("store", store.Name),
				zap.String("store_id", store.ID),
				zap.Error(err),
			)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			summary.Elapsed = o.deps.Clock.Now().Sub(start)
			return summary, err
		default:
			summary.StoresFailed++
			logger.Error("store session failed",
				zap.String("store", store.Name),
				zap.Error(err),
			)
		}

		if i < len(stores)-1 {
			o.pause.Pause(ctx, o.opts.StoreDelay)
		}
	}

	summary.Elapsed = o.deps.Clock.Now().Sub(start)
	logger.Info("run completed",
		zap.Int("stores_scraped", summary.StoresScraped),
		zap.Int("stores_failed", summary.StoresFailed),
		zap.Int("price_points", summary.TotalStats.PricePoints),
		zap.Int("new_products", summary.TotalStats.NewProducts),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// isStoreScoped classifies failures that end one store but not the run.
func isStoreScoped(err error) bool {
	var mismatch *StoreMismatchError
	if errors.As(err, &mismatch) {
		return true
	}
	return false
}

func reversed(categories []Category) []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		out[len(categories)-1-i] = c
	}
	return out
}
