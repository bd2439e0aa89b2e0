package config

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	InstanceID    string              `yaml:"instance_id"`
	Gateway       GatewayConfig       `yaml:"gateway"`
	Feed          FeedConfig          `yaml:"feed"`
	Stream        StreamConfig        `yaml:"stream"`
	Cache         CacheConfig         `yaml:"cache"`
	Validation    ValidationConfig    `yaml:"validation"`
	Safety        SafetyConfig        `yaml:"safety"`
	State         StateConfig         `yaml:"state"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type GatewayConfig struct {
	APIKey         string `yaml:"api_key"`
	APISecret      string `yaml:"api_secret"`
	BaseURL        string `yaml:"base_url"`
	HTTPTimeoutSec int64  `yaml:"http_timeout_sec"`
}

type FeedConfig struct {
	BaseURL        string `yaml:"base_url"`
	HTTPTimeoutSec int64  `yaml:"http_timeout_sec"`
}

type StreamConfig struct {
	URL string `yaml:"url"`
}

type CacheConfig struct {
	BalanceRefreshSec int64 `yaml:"balance_refresh_sec"`
	PriceRefreshSec   int64 `yaml:"price_refresh_sec"`
}

type ValidationConfig struct {
	// MinOrderSizes overrides the built-in per-pair minimums; keys accept
	// either pair notation.
	MinOrderSizes map[string]Decimal `yaml:"min_order_sizes"`
}

type SafetyConfig struct {
	Enabled           bool `yaml:"enabled"`
	MaxSubmitFailures int  `yaml:"max_submit_failures"`
}

type StateConfig struct {
	Dir string `yaml:"dir"`
}

type LoggingConfig struct {
	Level            string   `yaml:"level"`
	Encoding         string   `yaml:"encoding"`
	OutputPaths      []string `yaml:"output_paths"`
	ErrorOutputPaths []string `yaml:"error_output_paths"`
}

type ObservabilityConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BotToken   string `yaml:"bot_token"`
	ChatID     string `yaml:"chat_id"`
	APIBaseURL string `yaml:"api_base_url"`
	TimeoutSec int64  `yaml:"timeout_sec"`
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("config must contain a single YAML document")
		}
		return Config{}, err
	}
	cfg.normalize()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.InstanceID = strings.ToLower(strings.TrimSpace(c.InstanceID))
	c.Gateway.APIKey = strings.TrimSpace(c.Gateway.APIKey)
	c.Gateway.APISecret = strings.TrimSpace(c.Gateway.APISecret)
	c.Gateway.BaseURL = strings.TrimSpace(c.Gateway.BaseURL)
	c.Feed.BaseURL = strings.TrimSpace(c.Feed.BaseURL)
	c.Stream.URL = strings.TrimSpace(c.Stream.URL)
	c.State.Dir = strings.TrimSpace(c.State.Dir)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Encoding = strings.ToLower(strings.TrimSpace(c.Logging.Encoding))
	c.Observability.Telegram.BotToken = strings.TrimSpace(c.Observability.Telegram.BotToken)
	c.Observability.Telegram.ChatID = strings.TrimSpace(c.Observability.Telegram.ChatID)
	c.Observability.Telegram.APIBaseURL = strings.TrimSpace(c.Observability.Telegram.APIBaseURL)
}

func (c *Config) applyDefaults() {
	if c.InstanceID == "" {
		c.InstanceID = "default"
	}
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = "https://api.kraken.com"
	}
	if c.Gateway.HTTPTimeoutSec == 0 {
		c.Gateway.HTTPTimeoutSec = 15
	}
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "https://api.coingecko.com"
	}
	if c.Feed.HTTPTimeoutSec == 0 {
		c.Feed.HTTPTimeoutSec = 10
	}
	if c.Stream.URL == "" {
		c.Stream.URL = "wss://ws.kraken.com"
	}
	if c.Cache.BalanceRefreshSec == 0 {
		c.Cache.BalanceRefreshSec = 30
	}
	if c.Cache.PriceRefreshSec == 0 {
		c.Cache.PriceRefreshSec = 60
	}
	if c.Safety.MaxSubmitFailures == 0 {
		c.Safety.MaxSubmitFailures = 3
	}
	if c.State.Dir == "" {
		c.State.Dir = "state"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "console"
	}
	if c.Observability.Telegram.APIBaseURL == "" {
		c.Observability.Telegram.APIBaseURL = "https://api.telegram.org"
	}
	if c.Observability.Telegram.TimeoutSec == 0 {
		c.Observability.Telegram.TimeoutSec = 10
	}
}

func (c Config) Validate() error {
	if !isValidInstanceID(c.InstanceID) {
		return fmt.Errorf("instance_id must match [a-z0-9_-], length 1..24")
	}
	if c.Gateway.HTTPTimeoutSec < 1 || c.Gateway.HTTPTimeoutSec > 120 {
		return fmt.Errorf("gateway http_timeout_sec must be between 1 and 120")
	}
	if err := validateURL(c.Gateway.BaseURL, "http", "https"); err != nil {
		return fmt.Errorf("gateway base_url %v", err)
	}
	if c.Feed.HTTPTimeoutSec < 1 || c.Feed.HTTPTimeoutSec > 120 {
		return fmt.Errorf("feed http_timeout_sec must be between 1 and 120")
	}
	if err := validateURL(c.Feed.BaseURL, "http", "https"); err != nil {
		return fmt.Errorf("feed base_url %v", err)
	}
	if err := validateURL(c.Stream.URL, "ws", "wss"); err != nil {
		return fmt.Errorf("stream url %v", err)
	}
	if c.Cache.BalanceRefreshSec < 1 || c.Cache.BalanceRefreshSec > 3600 {
		return fmt.Errorf("cache balance_refresh_sec must be between 1 and 3600")
	}
	if c.Cache.PriceRefreshSec < 1 || c.Cache.PriceRefreshSec > 3600 {
		return fmt.Errorf("cache price_refresh_sec must be between 1 and 3600")
	}
	for pair, size := range c.Validation.MinOrderSizes {
		if size.Cmp(decimal.Zero) <= 0 {
			return fmt.Errorf("validation min_order_sizes[%s] must be > 0", pair)
		}
	}
	if c.Safety.Enabled && c.Safety.MaxSubmitFailures < 1 {
		return fmt.Errorf("safety max_submit_failures must be >= 1")
	}
	switch c.Logging.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("logging encoding must be console or json")
	}
	if c.Observability.Telegram.Enabled {
		if c.Observability.Telegram.BotToken == "" {
			return fmt.Errorf("observability.telegram.bot_token is required when telegram enabled")
		}
		if c.Observability.Telegram.ChatID == "" {
			return fmt.Errorf("observability.telegram.chat_id is required when telegram enabled")
		}
		if c.Observability.Telegram.TimeoutSec < 1 || c.Observability.Telegram.TimeoutSec > 120 {
			return fmt.Errorf("observability.telegram.timeout_sec must be between 1 and 120")
		}
		if err := validateURL(c.Observability.Telegram.APIBaseURL, "http", "https"); err != nil {
			return fmt.Errorf("observability.telegram.api_base_url %v", err)
		}
	}
	return nil
}

// MinOrderSizeOverrides unwraps the yaml decimals for the validator.
func (c Config) MinOrderSizeOverrides() map[string]decimal.Decimal {
	if len(c.Validation.MinOrderSizes) == 0 {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(c.Validation.MinOrderSizes))
	for pair, size := range c.Validation.MinOrderSizes {
		out[pair] = size.Decimal
	}
	return out
}

func isValidInstanceID(v string) bool {
	if len(v) < 1 || len(v) > 24 {
		return false
	}
	for _, r := range v {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			continue
		}
		return false
	}
	return true
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("must include scheme and host")
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme must be %s", strings.Join(schemes, " or "))
}
