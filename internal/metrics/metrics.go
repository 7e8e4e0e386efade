// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesTotal              *prometheus.CounterVec
	pricePointsTotal        *prometheus.CounterVec
	productsDiscoveredTotal *prometheus.CounterVec
	cardSkipsTotal          *prometheus.CounterVec
	detailFailuresTotal     prometheus.Counter
	storeMismatchTotal      prometheus.Counter
	categoryDurationSeconds *prometheus.HistogramVec

	once        sync.Once
	initialized bool
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_total",
				Help: "Category listing pages scraped, labeled by store.",
			},
			[]string{"store"},
		)
		pricePointsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_price_points_total",
				Help: "Price points appended to history, labeled by store.",
			},
			[]string{"store"},
		)
		productsDiscoveredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_products_discovered_total",
				Help: "Products persisted for the first time, labeled by store.",
			},
			[]string{"store"},
		)
		cardSkipsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_card_skips_total",
				Help: "Product cards skipped during extraction, labeled by reason.",
			},
			[]string{"reason"},
		)
		detailFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_detail_failures_total",
				Help: "Product detail fetches that failed or did not parse.",
			},
		)
		storeMismatchTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_store_mismatch_total",
				Help: "Store sessions aborted because the rendered store differed.",
			},
		)
		categoryDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_category_duration_seconds",
				Help:    "Wall time spent traversing one category.",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"category"},
		)
		initialized = true
	})
}

// IncPageScraped counts one listing page for a store.
func IncPageScraped(store string) {
	if !initialized {
		return
	}
	pagesTotal.WithLabelValues(store).Inc()
}

// AddPricePoints counts appended price observations for a store.
func AddPricePoints(store string, n int) {
	if !initialized || n <= 0 {
		return
	}
	pricePointsTotal.WithLabelValues(store).Add(float64(n))
}

// IncProductDiscovered counts a first-time product persist for a store.
func IncProductDiscovered(store string) {
	if !initialized {
		return
	}
	productsDiscoveredTotal.WithLabelValues(store).Inc()
}

// IncCardSkipped counts one skipped product card.
func IncCardSkipped(reason string) {
	if !initialized {
		return
	}
	cardSkipsTotal.WithLabelValues(reason).Inc()
}

// IncDetailFailure counts one failed detail fetch.
func IncDetailFailure() {
	if !initialized {
		return
	}
	detailFailuresTotal.Inc()
}

// IncStoreMismatch counts one aborted store session.
func IncStoreMismatch() {
	if !initialized {
		return
	}
	storeMismatchTotal.Inc()
}

// ObserveCategoryDuration records how long one category traversal took.
func ObserveCategoryDuration(category string, d time.Duration) {
	if !initialized {
		return
	}
	categoryDurationSeconds.WithLabelValues(category).Observe(d.Seconds())
}
