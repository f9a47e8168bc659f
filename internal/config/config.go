package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/domain"
)

type Config struct {
	Feeds     []domain.FeedSource `yaml:"feeds"`
	Keywords  KeywordsConfig      `yaml:"keywords"`
	TagFilter TagFilterConfig     `yaml:"tags_filter"`
	Fetch     FetchConfig         `yaml:"fetch"`
	Translate TranslateConfig     `yaml:"translate"`
	Delivery  DeliveryConfig      `yaml:"delivery"`
	State     StateConfig         `yaml:"state"`
	Publish   PublishConfig       `yaml:"publish"`
	DryRun    bool                `yaml:"dry_run"`
	ForceRun  bool                `yaml:"force_run"`
	LogLevel  string              `yaml:"log_level"`
}

type KeywordsConfig struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

type TagFilterConfig struct {
	Enabled bool     `yaml:"enabled"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxEntriesPerFeed int           `yaml:"max_entries_per_feed"`
	SummaryMaxLength  int           `yaml:"summary_max_length"`
	Retry             RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type TranslateConfig struct {
	TargetLanguage string        `yaml:"target_language"`
	Endpoints      []Endpoint    `yaml:"endpoints"`
	InterCallDelay time.Duration `yaml:"inter_call_delay"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Endpoint is one external translation backend, tried in declared order.
type Endpoint struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type DeliveryConfig struct {
	WebhookURL     string        `yaml:"webhook_url"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxBytesPerMsg int           `yaml:"max_bytes_per_message"`
	MaxItemsPerMsg int           `yaml:"max_items_per_batch"`
	SendsPerMinute int           `yaml:"sends_per_minute"`
	Retry          RetryConfig   `yaml:"retry"`
}

type StateConfig struct {
	Driver        string         `yaml:"driver"` // "file" or "postgres"
	Path          string         `yaml:"path"`
	RetentionDays int            `yaml:"retention_days"`
	Database      DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type PublishConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	return &cfg, nil
}

// EnabledFeeds returns the configured feeds that are switched on, in
// declared order.
func (c *Config) EnabledFeeds() []domain.FeedSource {
	feeds := make([]domain.FeedSource, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		if f.Enabled {
			feeds = append(feeds, f)
		}
	}
	return feeds
}

func (c *Config) applyEnv() {
	if url := os.Getenv("WECOM_WEBHOOK_URL"); url != "" {
		c.Delivery.WebhookURL = url
	}
	switch os.Getenv("DRY_RUN") {
	case "1", "true", "yes":
		c.DryRun = true
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
}

func (c *Config) setDefaults() {
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.MaxEntriesPerFeed == 0 {
		c.Fetch.MaxEntriesPerFeed = 50
	}
	if c.Fetch.SummaryMaxLength == 0 {
		c.Fetch.SummaryMaxLength = 200
	}
	c.Fetch.Retry.setDefaults()

	if c.Translate.TargetLanguage == "" {
		c.Translate.TargetLanguage = "zh"
	}
	if c.Translate.InterCallDelay == 0 {
		c.Translate.InterCallDelay = 1 * time.Second
	}
	if c.Translate.Timeout == 0 {
		c.Translate.Timeout = 10 * time.Second
	}

	if c.Delivery.Timeout == 0 {
		c.Delivery.Timeout = 30 * time.Second
	}
	if c.Delivery.MaxBytesPerMsg == 0 {
		c.Delivery.MaxBytesPerMsg = 4096
	}
	if c.Delivery.MaxItemsPerMsg == 0 {
		c.Delivery.MaxItemsPerMsg = 5
	}
	if c.Delivery.SendsPerMinute == 0 {
		c.Delivery.SendsPerMinute = 20
	}
	c.Delivery.Retry.setDefaults()

	if c.State.Driver == "" {
		c.State.Driver = "file"
	}
	if c.State.Path == "" {
		c.State.Path = "state.json"
	}
	if c.State.RetentionDays == 0 {
		c.State.RetentionDays = 30
	}

	if c.Publish.Exchange == "" {
		c.Publish.Exchange = "crypto_policy_rss"
	}
	if c.Publish.RoutingKey == "" {
		c.Publish.RoutingKey = "delivered"
	}
	if c.Publish.QueueName == "" {
		c.Publish.QueueName = "delivered_items"
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (r *RetryConfig) setDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.InitialBackoff == 0 {
		r.InitialBackoff = 1 * time.Second
	}
	if r.MaxBackoff == 0 {
		r.MaxBackoff = 30 * time.Second
	}
}
