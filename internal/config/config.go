// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/dvsvc-crawler/internal/breaker"
	"github.com/JakeFAU/dvsvc-crawler/internal/frontier"
	"github.com/JakeFAU/dvsvc-crawler/internal/heuristics"
	"github.com/JakeFAU/dvsvc-crawler/internal/scoring"
)

// DefaultStartURL is the directory of domestic abuse services the crawl
// starts from when no start URLs are configured.
const DefaultStartURL = "https://www.scotborders.gov.uk/directory/21/domestic_abuse_services"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Frontier FrontierConfig `mapstructure:"frontier"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CrawlerConfig governs dispatcher and fetch behavior.
type CrawlerConfig struct {
	StartURLs       []string      `mapstructure:"start_urls"`
	Concurrency     int           `mapstructure:"concurrency"`
	QueueDepth      int           `mapstructure:"queue_depth"`
	DownloadDelay   time.Duration `mapstructure:"download_delay"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	RespectRobots   bool          `mapstructure:"respect_robots"`
	MaxURLLength    int           `mapstructure:"max_url_length"`
	MaxBodyBytes    int           `mapstructure:"max_body_bytes"`
	MaxPages        int           `mapstructure:"max_pages"`
}

// ScoringConfig calibrates the page and link scorers.
type ScoringConfig struct {
	Page                      PageScoringConfig `mapstructure:"page"`
	Link                      LinkScoringConfig `mapstructure:"link"`
	QuickExitCounting         string            `mapstructure:"quick_exit_counting"`
	QuickExitNecessaryMatches int               `mapstructure:"quick_exit_necessary_matches"`
	CharityCSV                string            `mapstructure:"charity_csv"`
}

// PageScoringConfig mirrors scoring.PageConfig.
type PageScoringConfig struct {
	Percentile90     float64 `mapstructure:"percentile_90"`
	WordCountFactor  float64 `mapstructure:"word_count_factor"`
	TopicCountFactor float64 `mapstructure:"topic_count_factor"`
}

// LinkScoringConfig mirrors scoring.LinkConfig.
type LinkScoringConfig struct {
	Percentile90 float64 `mapstructure:"percentile_90"`
	ParentFactor float64 `mapstructure:"parent_factor"`
}

// FrontierConfig sets itemization thresholds and aggregator bounds.
type FrontierConfig struct {
	SufficientPScore float64       `mapstructure:"sufficient_pscore"`
	NecessaryPScore  float64       `mapstructure:"necessary_pscore"`
	NecessaryRatio   float64       `mapstructure:"necessary_ratio"`
	NecessarySamples int           `mapstructure:"necessary_samples"`
	MaxDomains       int           `mapstructure:"max_domains"`
	DomainTTL        time.Duration `mapstructure:"domain_ttl"`
	ScoreWindow      int           `mapstructure:"score_window"`
}

// BreakerConfig sets domain blacklisting thresholds.
type BreakerConfig struct {
	MaxRequests     int      `mapstructure:"max_requests"`
	MaxBadResponses int      `mapstructure:"max_bad_responses"`
	ExtraBlacklist  []string `mapstructure:"extra_blacklist"`
}

// DatabaseConfig controls access to Postgres. An empty URL disables it.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	ItemsTable   string `mapstructure:"items_table"`
	BatchesTable string `mapstructure:"batches_table"`
	MaxConns     int32  `mapstructure:"max_conns"`
	EnsureSchema bool   `mapstructure:"ensure_schema"`
}

// StorageConfig selects where page snapshots go. A bucket wins over a
// directory; with neither, snapshots are off.
type StorageConfig struct {
	SnapshotBucket string `mapstructure:"snapshot_bucket"`
	SnapshotDir    string `mapstructure:"snapshot_dir"`
	SnapshotPrefix string `mapstructure:"snapshot_prefix"`
}

// PubSubConfig holds notification topics. An empty project disables Pub/Sub.
type PubSubConfig struct {
	ProjectID   string `mapstructure:"project_id"`
	ItemsTopic  string `mapstructure:"items_topic"`
	EventsTopic string `mapstructure:"events_topic"`
}

// HTTPConfig controls the ops server.
type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DVSVC")
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
	v.SetDefault("crawler.start_urls", []string{DefaultStartURL})
	v.SetDefault("crawler.concurrency", 50)
	v.SetDefault("crawler.queue_depth", 0)
	v.SetDefault("crawler.download_delay", 5*time.Second)
	v.SetDefault("crawler.download_timeout", 15*time.Second)
	v.SetDefault("crawler.user_agent", "dvsvc-crawler/0.1")
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("crawler.max_url_length", 2048)
	v.SetDefault("crawler.max_body_bytes", 10<<20)
	v.SetDefault("crawler.max_pages", 0)
	v.SetDefault("scoring.page.percentile_90", 30.0)
	v.SetDefault("scoring.page.word_count_factor", -0.01)
	v.SetDefault("scoring.page.topic_count_factor", 0.0)
	v.SetDefault("scoring.link.percentile_90", 25.0)
	v.SetDefault("scoring.link.parent_factor", 0.2)
	v.SetDefault("scoring.quick_exit_counting", "gated")
	v.SetDefault("scoring.quick_exit_necessary_matches", 2)
	v.SetDefault("frontier.sufficient_pscore", 0.95)
	v.SetDefault("frontier.necessary_pscore", 0.80)
	v.SetDefault("frontier.necessary_ratio", 0.5)
	v.SetDefault("frontier.necessary_samples", 5)
	v.SetDefault("frontier.max_domains", 100_000)
	v.SetDefault("frontier.domain_ttl", 24*time.Hour)
	v.SetDefault("frontier.score_window", 1000)
	v.SetDefault("breaker.max_requests", 0)
	v.SetDefault("breaker.max_bad_responses", 10)
	v.SetDefault("database.items_table", "crawl_item")
	v.SetDefault("database.batches_table", "crawl_item_batch")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.ensure_schema", true)
	v.SetDefault("storage.snapshot_prefix", "pages")
	v.SetDefault("pubsub.items_topic", "crawl-items")
	v.SetDefault("pubsub.events_topic", "crawl-events")
	v.SetDefault("http.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.DownloadTimeout <= 0 {
		return fmt.Errorf("crawler.download_timeout must be > 0")
	}
	if c.Crawler.DownloadDelay < 0 {
		return fmt.Errorf("crawler.download_delay must be >= 0")
	}
	if c.Crawler.MaxURLLength <= 0 {
		return fmt.Errorf("crawler.max_url_length must be > 0")
	}
	if c.Scoring.Page.Percentile90 <= 0 {
		return fmt.Errorf("scoring.page.percentile_90 must be > 0")
	}
	if c.Scoring.Link.Percentile90 <= 0 {
		return fmt.Errorf("scoring.link.percentile_90 must be > 0")
	}
	if _, err := scoring.ParseQuickExitCounting(c.Scoring.QuickExitCounting); err != nil {
		return fmt.Errorf("scoring.quick_exit_counting: %w", err)
	}
	if c.Scoring.QuickExitNecessaryMatches < 0 {
		return fmt.Errorf("scoring.quick_exit_necessary_matches must be >= 0")
	}
	if !inScoreRange(c.Frontier.SufficientPScore) || !inScoreRange(c.Frontier.NecessaryPScore) {
		return fmt.Errorf("frontier.sufficient_pscore and frontier.necessary_pscore must be within [-1, 1]")
	}
	if c.Frontier.NecessaryPScore > c.Frontier.SufficientPScore {
		return fmt.Errorf("frontier.necessary_pscore must be <= frontier.sufficient_pscore")
	}
	if c.Frontier.NecessaryRatio < 0 || c.Frontier.NecessaryRatio > 1 {
		return fmt.Errorf("frontier.necessary_ratio must be within [0, 1]")
	}
	if c.Frontier.NecessarySamples <= 0 {
		return fmt.Errorf("frontier.necessary_samples must be > 0")
	}
	if c.Frontier.MaxDomains <= 0 {
		return fmt.Errorf("frontier.max_domains must be > 0")
	}
	if c.Frontier.DomainTTL <= 0 {
		return fmt.Errorf("frontier.domain_ttl must be > 0")
	}
	if c.Breaker.MaxBadResponses <= 0 {
		return fmt.Errorf("breaker.max_bad_responses must be > 0")
	}
	if c.Breaker.MaxRequests < 0 {
		return fmt.Errorf("breaker.max_requests must be >= 0")
	}
	if c.HTTP.Port <= 0 {
		return fmt.Errorf("http.port must be > 0")
	}
	return nil
}

func inScoreRange(v float64) bool {
	return v >= -1 && v <= 1
}

// PageScoring converts the page section into scorer settings.
func (c Config) PageScoring() scoring.PageConfig {
	return scoring.PageConfig{
		Percentile90:     c.Scoring.Page.Percentile90,
		WordCountFactor:  c.Scoring.Page.WordCountFactor,
		TopicCountFactor: c.Scoring.Page.TopicCountFactor,
	}
}

// LinkScoring converts the link section into scorer settings.
func (c Config) LinkScoring() scoring.LinkConfig {
	return scoring.LinkConfig{
		Percentile90: c.Scoring.Link.Percentile90,
		ParentFactor: c.Scoring.Link.ParentFactor,
	}
}

// FrontierSettings converts the frontier section into controller settings.
func (c Config) FrontierSettings() frontier.Config {
	return frontier.Config{
		SufficientPageScore: c.Frontier.SufficientPScore,
		ScoreWindow:         c.Frontier.ScoreWindow,
		Aggregation: frontier.AggregatorConfig{
			NecessaryPageScore: c.Frontier.NecessaryPScore,
			NecessaryRatio:     c.Frontier.NecessaryRatio,
			NecessarySamples:   c.Frontier.NecessarySamples,
			MaxDomains:         c.Frontier.MaxDomains,
			TTL:                c.Frontier.DomainTTL,
		},
	}
}

// BreakerSettings merges the seed blacklist with configured extras.
func (c Config) BreakerSettings() breaker.Config {
	static := make([]string, 0, len(heuristics.SeedBlacklist)+len(c.Breaker.ExtraBlacklist))
	static = append(static, heuristics.SeedBlacklist...)
	static = append(static, c.Breaker.ExtraBlacklist...)
	return breaker.Config{
		MaxRequests:     c.Breaker.MaxRequests,
		MaxBadResponses: c.Breaker.MaxBadResponses,
		Static:          static,
	}
}
