package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
target:
  version_token: "abc123"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://www.paknsave.co.nz", cfg.Target.BaseURL)
	assert.Equal(t, "https://www.paknsave.co.nz/shop/deals", cfg.LandingURL())
	assert.Equal(t, 11, cfg.Crawler.PageDelaySeconds)
	assert.Equal(t, 11, cfg.Crawler.StoreDelaySeconds)
	assert.Equal(t, 200, cfg.Crawler.MaxPages)
	assert.Equal(t, 30, cfg.Driver.NavTimeoutSeconds)
	assert.True(t, cfg.Driver.Headless)
	assert.Equal(t, "food", cfg.Details.NameSlug)
	assert.Equal(t, "none", cfg.Storage.Backend)
	assert.Equal(t, "product-discovered", cfg.PubSub.ProductTopic)
	assert.Equal(t, "price-observed", cfg.PubSub.PriceTopic)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
target:
  base_url: "https://staging.paknsave.co.nz"
  version_token: "deadbeef"
crawler:
  page_delay_seconds: 2
  max_pages: 50
storage:
  backend: local
  base_dir: /tmp/images
selectors:
  product_card: "div.new-card"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://staging.paknsave.co.nz", cfg.Target.BaseURL)
	assert.Equal(t, 2, cfg.Crawler.PageDelaySeconds)
	assert.Equal(t, 50, cfg.Crawler.MaxPages)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "div.new-card", cfg.Selectors.ProductCard)
	assert.Empty(t, cfg.Selectors.PriceCents)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load(writeConfig(t, "target:\n  version_token: tok\n"))
		require.NoError(t, err)
		return cfg
	}

	t.Run("MissingVersionToken", func(t *testing.T) {
		cfg := base()
		cfg.Target.VersionToken = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("NegativeDelay", func(t *testing.T) {
		cfg := base()
		cfg.Crawler.PageDelaySeconds = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("UnknownStorageBackend", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Backend = "s3"
		assert.Error(t, cfg.Validate())
	})

	t.Run("GCSWithoutBucket", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Backend = "gcs"
		assert.Error(t, cfg.Validate())
	})
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SCRAPER_CRAWLER_STORE_DELAY_SECONDS", "3")

	cfg, err := Load(writeConfig(t, "target:\n  version_token: tok\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Crawler.StoreDelaySeconds)
}
