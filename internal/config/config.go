// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob the crawler reads at startup.
type Config struct {
	Target    TargetConfig    `mapstructure:"target"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Driver    DriverConfig    `mapstructure:"driver"`
	Details   DetailsConfig   `mapstructure:"details"`
	DB        DBConfig        `mapstructure:"db"`
	Storage   StorageConfig   `mapstructure:"storage"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Selectors SelectorsConfig `mapstructure:"selectors"`
}

// TargetConfig names the storefront being crawled.
type TargetConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	LandingPath    string `mapstructure:"landing_path"`
	CategoriesFile string `mapstructure:"categories_file"`
	// VersionToken is the site build id in next-data URLs. It changes on
	// every storefront deploy and must be refreshed when detail fetches
	// start returning 404s.
	VersionToken string `mapstructure:"version_token"`
}

// CrawlerConfig paces the crawl.
type CrawlerConfig struct {
	PageDelaySeconds  int `mapstructure:"page_delay_seconds"`
	StoreDelaySeconds int `mapstructure:"store_delay_seconds"`
	MaxPages          int `mapstructure:"max_pages"`
	// StoreLimit caps how many stores a run visits. Zero means all.
	StoreLimit int `mapstructure:"store_limit"`
}

// DriverConfig configures the headless browser.
type DriverConfig struct {
	Headless          bool   `mapstructure:"headless"`
	UserAgent         string `mapstructure:"user_agent"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
}

// DetailsConfig configures the product detail fetcher.
type DetailsConfig struct {
	NameSlug       string  `mapstructure:"name_slug"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	QPS            float64 `mapstructure:"qps"`
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnLifetimeMin int    `mapstructure:"conn_lifetime_minutes"`
}

// StorageConfig selects the image archive backend.
type StorageConfig struct {
	// Backend is one of "gcs", "local" or "none".
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	BaseDir   string `mapstructure:"base_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig names the event topics. An empty project id disables
// publishing.
type PubSubConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	ProductTopic string `mapstructure:"product_topic"`
	PriceTopic   string `mapstructure:"price_topic"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// SelectorsConfig overrides individual DOM selectors. Empty fields keep the
// built-in defaults.
type SelectorsConfig struct {
	ProductCard   string `mapstructure:"product_card"`
	ProductAnchor string `mapstructure:"product_anchor"`
	PriceDollars  string `mapstructure:"price_dollars"`
	PriceCents    string `mapstructure:"price_cents"`
	ProductImage  string `mapstructure:"product_image"`
	ImageAttr     string `mapstructure:"image_attr"`
	SelectedStore string `mapstructure:"selected_store"`
	StoreIDAttr   string `mapstructure:"store_id_attr"`
	NextPage      string `mapstructure:"next_page"`
	NextPageAttr  string `mapstructure:"next_page_attr"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target.base_url", "https://www.paknsave.co.nz")
	v.SetDefault("target.landing_path", "/shop/deals")
	v.SetDefault("target.categories_file", "categories.json")
	v.SetDefault("crawler.page_delay_seconds", 11)
	v.SetDefault("crawler.store_delay_seconds", 11)
	v.SetDefault("crawler.max_pages", 200)
	v.SetDefault("driver.headless", true)
	v.SetDefault("driver.nav_timeout_seconds", 30)
	v.SetDefault("details.name_slug", "food")
	v.SetDefault("details.timeout_seconds", 15)
	v.SetDefault("details.qps", 1)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.conn_lifetime_minutes", 30)
	v.SetDefault("storage.backend", "none")
	v.SetDefault("storage.prefix", "images")
	v.SetDefault("pubsub.product_topic", "product-discovered")
	v.SetDefault("pubsub.price_topic", "price-observed")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Target.BaseURL == "" {
		return fmt.Errorf("target.base_url must be set")
	}
	if c.Target.VersionToken == "" {
		return fmt.Errorf("target.version_token must be set")
	}
	if c.Crawler.PageDelaySeconds < 0 || c.Crawler.StoreDelaySeconds < 0 {
		return fmt.Errorf("crawler delays must be >= 0")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Driver.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("driver.nav_timeout_seconds must be > 0")
	}
	switch c.Storage.Backend {
	case "none", "local", "gcs":
	default:
		return fmt.Errorf("storage.backend must be one of none, local, gcs")
	}
	if c.Storage.Backend == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set when backend is gcs")
	}
	if c.Storage.Backend == "local" && c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir must be set when backend is local")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// LandingURL joins the base URL with the landing path.
func (c Config) LandingURL() string {
	return strings.TrimRight(c.Target.BaseURL, "/") + c.Target.LandingPath
}

// PageDelay returns the between-page pause as a duration.
func (c Config) PageDelay() time.Duration {
	return time.Duration(c.Crawler.PageDelaySeconds) * time.Second
}

// StoreDelay returns the between-store pause as a duration.
func (c Config) StoreDelay() time.Duration {
	return time.Duration(c.Crawler.StoreDelaySeconds) * time.Second
}

// NavTimeout returns the browser navigation timeout as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Driver.NavTimeoutSeconds) * time.Second
}
