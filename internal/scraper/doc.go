// Package scraper implements the per-store crawl pipeline: store session
// lifecycle, category pagination, product-card price extraction, and
// incremental product detail resolution, together with the capability
// interfaces the pipeline needs from the page driver and persistence.
package scraper
