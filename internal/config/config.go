// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	Sources SourcesConfig `mapstructure:"sources"`
	DB      DBConfig      `mapstructure:"db"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the control-plane HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlConfig governs pipeline widths, volume and retry behavior.
type CrawlConfig struct {
	TagConcurrency    int      `mapstructure:"tag_concurrency"`
	DetailConcurrency int      `mapstructure:"detail_concurrency"`
	PageSize          int      `mapstructure:"page_size"`
	MaxPerTag         int      `mapstructure:"max_per_tag"`
	SegmentRetries    int      `mapstructure:"segment_retries"`
	DelayMinMs        int      `mapstructure:"delay_min_ms"`
	DelayMaxMs        int      `mapstructure:"delay_max_ms"`
	Genres            []string `mapstructure:"genres"`
}

// FetchConfig sets per-call timeouts against the upstream sources.
type FetchConfig struct {
	ListingTimeoutSec         int `mapstructure:"listing_timeout_seconds"`
	PrimaryDetailTimeoutSec   int `mapstructure:"primary_detail_timeout_seconds"`
	SecondaryDetailTimeoutSec int `mapstructure:"secondary_detail_timeout_seconds"`
	PrimaryReviewTimeoutSec   int `mapstructure:"primary_review_timeout_seconds"`
	SecondaryReviewTimeoutSec int `mapstructure:"secondary_review_timeout_seconds"`
}

// ProxyConfig holds credentials for the rotating-proxy vendor and the
// selectable exit node pool.
type ProxyConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	URL     string   `mapstructure:"url"`
	OrderNo string   `mapstructure:"orderno"`
	Secret  string   `mapstructure:"secret"`
	Nodes   []string `mapstructure:"nodes"`
}

// SourcesConfig holds the upstream base URLs so tests and mirrors can
// redirect them.
type SourcesConfig struct {
	PrimaryBase    string `mapstructure:"primary_base"`
	PrimaryAPIBase string `mapstructure:"primary_api_base"`
	PrimaryAPIKey  string `mapstructure:"primary_api_key"`
	SecondaryBase  string `mapstructure:"secondary_base"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN                string `mapstructure:"dsn"`
	MaxConns           int    `mapstructure:"max_conns"`
	MaxConnLifetimeSec int    `mapstructure:"max_conn_lifetime_seconds"`
	MovieTxRetries     int    `mapstructure:"movie_tx_retries"`
	ReviewTxRetries    int    `mapstructure:"review_tx_retries"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
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
	v.SetDefault("server.port", 9528)
	v.SetDefault("crawl.tag_concurrency", 10)
	v.SetDefault("crawl.detail_concurrency", 80)
	v.SetDefault("crawl.page_size", 100)
	v.SetDefault("crawl.max_per_tag", 5000)
	v.SetDefault("crawl.segment_retries", 3)
	v.SetDefault("crawl.delay_min_ms", 1000)
	v.SetDefault("crawl.delay_max_ms", 2000)
	v.SetDefault("fetch.listing_timeout_seconds", 5)
	v.SetDefault("fetch.primary_detail_timeout_seconds", 10)
	v.SetDefault("fetch.secondary_detail_timeout_seconds", 30)
	v.SetDefault("fetch.primary_review_timeout_seconds", 5)
	v.SetDefault("fetch.secondary_review_timeout_seconds", 30)
	v.SetDefault("sources.primary_base", "https://movie.douban.com")
	v.SetDefault("sources.primary_api_base", "https://api.douban.com")
	v.SetDefault("sources.secondary_base", "https://www.imdb.com")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.max_conn_lifetime_seconds", 1800)
	v.SetDefault("db.movie_tx_retries", 5)
	v.SetDefault("db.review_tx_retries", 3)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawl.TagConcurrency <= 0 {
		return fmt.Errorf("crawl.tag_concurrency must be > 0")
	}
	if c.Crawl.DetailConcurrency <= 0 {
		return fmt.Errorf("crawl.detail_concurrency must be > 0")
	}
	if c.Crawl.PageSize <= 0 {
		return fmt.Errorf("crawl.page_size must be > 0")
	}
	if c.Crawl.DelayMinMs > c.Crawl.DelayMaxMs {
		return fmt.Errorf("crawl.delay_min_ms must be <= crawl.delay_max_ms")
	}
	if c.Proxy.Enabled && (c.Proxy.URL == "" || c.Proxy.OrderNo == "" || c.Proxy.Secret == "") {
		return fmt.Errorf("proxy.url, proxy.orderno and proxy.secret must be set when proxy is enabled")
	}
	return nil
}

// DelayWindow converts the configured delay bounds into durations.
func (c Config) DelayWindow() (time.Duration, time.Duration) {
	return time.Duration(c.Crawl.DelayMinMs) * time.Millisecond,
		time.Duration(c.Crawl.DelayMaxMs) * time.Millisecond
}
