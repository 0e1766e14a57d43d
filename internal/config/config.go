// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/lp-monitor/internal/utils/logger"
)

// EnvPrefix prefixes every environment override, e.g. LP_MONITOR_WEBHOOK_URL.
const EnvPrefix = "LP_MONITOR"

type ChainConfig struct {
	ID          int64  `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	SubgraphURL string `mapstructure:"subgraph_url"`
}

type Config struct {
	PollIntervalMs      int     `mapstructure:"poll_interval_ms"`
	AlertCooldownMs     int     `mapstructure:"alert_cooldown_ms"`
	EvaluationTimeoutMs int     `mapstructure:"evaluation_timeout_ms"`
	AgeThresholdDays    int     `mapstructure:"age_threshold_days"`
	ProfitThresholdPct  float64 `mapstructure:"profit_threshold_pct"`

	PostgresURL    string   `mapstructure:"postgres_url"`
	RedisAddr      string   `mapstructure:"redis_addr"`
	RedisPassword  string   `mapstructure:"redis_password"`
	RedisDB        int      `mapstructure:"redis_db"`
	RateCacheTTLMs int      `mapstructure:"rate_cache_ttl_ms"`
	WebhookURL     string   `mapstructure:"webhook_url"`
	ConsoleAlerts  bool     `mapstructure:"console_alerts"`
	KafkaBrokers   []string `mapstructure:"kafka_brokers"`
	KafkaTopic     string   `mapstructure:"kafka_topic"`
	MetricsAddr    string   `mapstructure:"metrics_addr"`

	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Chains            []ChainConfig `mapstructure:"chains"`
	Log               logger.Config `mapstructure:"log"`
}

const (
	DefaultPollIntervalMs      = 60_000
	DefaultAlertCooldownMs     = 3_600_000
	DefaultEvaluationTimeoutMs = 30_000
	DefaultAgeThresholdDays    = 10
	DefaultProfitThresholdPct  = 20.0
	DefaultRateCacheTTLMs      = 30_000
	DefaultRequestsPerSecond   = 4.0
	DefaultKafkaTopic          = "lp-monitor.alerts"
)

// LoadConfig reads configuration from path (optional), a .env file in the
// working directory and LP_MONITOR_* environment variables, in increasing
// priority.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	logDefaults := logger.DefaultConfig()
	defaults := map[string]interface{}{
		"poll_interval_ms":      DefaultPollIntervalMs,
		"alert_cooldown_ms":     DefaultAlertCooldownMs,
		"evaluation_timeout_ms": DefaultEvaluationTimeoutMs,
		"age_threshold_days":    DefaultAgeThresholdDays,
		"profit_threshold_pct":  DefaultProfitThresholdPct,
		"rate_cache_ttl_ms":     DefaultRateCacheTTLMs,
		"requests_per_second":   DefaultRequestsPerSecond,
		"kafka_topic":           DefaultKafkaTopic,
		"postgres_url":          "",
		"redis_addr":            "",
		"redis_password":        "",
		"redis_db":              0,
		"webhook_url":           "",
		"console_alerts":        false,
		"kafka_brokers":         []string{},
		"metrics_addr":          "",
		"log.file":              logDefaults.LogFile,
		"log.max_size_mb":       logDefaults.MaxSize,
		"log.max_age_days":      logDefaults.MaxAge,
		"log.max_backups":       logDefaults.MaxBackups,
		"log.compress":          logDefaults.Compress,
		"log.development":       logDefaults.Development,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// comma separated list in the environment
	if raw := os.Getenv(EnvPrefix + "_KAFKA_BROKERS"); raw != "" {
		cfg.KafkaBrokers = splitList(raw)
	}

	return &cfg, validateConfig(&cfg)
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) AlertCooldown() time.Duration {
	return time.Duration(c.AlertCooldownMs) * time.Millisecond
}

func (c *Config) EvaluationTimeout() time.Duration {
	return time.Duration(c.EvaluationTimeoutMs) * time.Millisecond
}

func (c *Config) RateCacheTTL() time.Duration {
	return time.Duration(c.RateCacheTTLMs) * time.Millisecond
}

// Chain returns the configuration of a chain id.
func (c *Config) Chain(id int64) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if ch.ID == id {
			return ch, true
		}
	}
	return ChainConfig{}, false
}

func validateConfig(cfg *Config) error {
	if err := validateNumericParams(cfg); err != nil {
		return err
	}

	seen := make(map[int64]bool, len(cfg.Chains))
	for _, ch := range cfg.Chains {
		if ch.ID <= 0 {
			return fmt.Errorf("invalid chain id %d", ch.ID)
		}
		if seen[ch.ID] {
			return fmt.Errorf("chain %d configured twice", ch.ID)
		}
		seen[ch.ID] = true
		if err := validateURL(ch.SubgraphURL, "http"); err != nil {
			return fmt.Errorf("chain %d subgraph_url: %w", ch.ID, err)
		}
	}

	if cfg.WebhookURL != "" {
		if err := validateURL(cfg.WebhookURL, "https"); err != nil {
			return errors.New("webhook URL must use HTTPS")
		}
	}
	if cfg.PostgresURL != "" {
		if err := validateURL(cfg.PostgresURL, "postgres"); err != nil {
			return fmt.Errorf("postgres_url: %w", err)
		}
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return errors.New("kafka_topic is required when kafka_brokers is set")
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.PollIntervalMs <= 0 {
		return errors.New("invalid poll_interval_ms")
	}
	if cfg.AlertCooldownMs < 0 {
		return errors.New("invalid alert_cooldown_ms")
	}
	if cfg.EvaluationTimeoutMs <= 0 {
		return errors.New("invalid evaluation_timeout_ms")
	}
	if cfg.AgeThresholdDays < 0 {
		return errors.New("invalid age_threshold_days")
	}
	if cfg.ProfitThresholdPct <= 0 {
		return errors.New("invalid profit_threshold_pct")
	}
	if cfg.RateCacheTTLMs <= 0 {
		return errors.New("invalid rate_cache_ttl_ms")
	}
	if cfg.RequestsPerSecond <= 0 {
		return errors.New("invalid requests_per_second")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if clean := strings.TrimSpace(part); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
