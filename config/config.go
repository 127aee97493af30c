package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v4"
)

const (
	DefaultDaysBack    = 90
	DefaultMaxPerRun   = 20
	DefaultMaxAgeDays  = 45
	DefaultHistoryPath = "tracking_history.json"
	DefaultTopic       = "delivery.registered"
)

type Config struct {
	Sync   SyncConfig   `yaml:"sync"`
	Ebay   EbayConfig   `yaml:"ebay"`
	Parcel ParcelConfig `yaml:"parcel"`
	Redis  RedisConfig  `yaml:"redis"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Log    LogConfig    `yaml:"log"`
}

type SyncConfig struct {
	DaysBack    int    `yaml:"days_back"`
	MaxPerRun   int    `yaml:"max_per_run"`
	MaxAgeDays  int    `yaml:"max_age_days"`
	DryRun      bool   `yaml:"dry_run"`
	HistoryPath string `yaml:"history_path"`
}

type EbayConfig struct {
	TradingURL  string `yaml:"trading_url"`
	IdentityURL string `yaml:"identity_url"`
}

type ParcelConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	// DailyQuota caps submissions per UTC day across runs. Needs redis; 0 disables.
	DailyQuota int `yaml:"daily_quota"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type KafkaConfig struct {
	Brokers                 []string `yaml:"brokers"`
	DeliveryRegisteredTopic string   `yaml:"delivery_registered_topic"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// LoadConfig reads the YAML file at filename. An empty filename yields an
// empty Config so the tool runs from the environment alone.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal YAML")
	}
	return &config, nil
}

// WithDefaults fills every unset knob.
func (c *Config) WithDefaults() *Config {
	if c.Sync.DaysBack <= 0 {
		c.Sync.DaysBack = DefaultDaysBack
	}
	if c.Sync.MaxPerRun <= 0 {
		c.Sync.MaxPerRun = DefaultMaxPerRun
	}
	if c.Sync.MaxAgeDays <= 0 {
		c.Sync.MaxAgeDays = DefaultMaxAgeDays
	}
	if strings.TrimSpace(c.Sync.HistoryPath) == "" {
		c.Sync.HistoryPath = DefaultHistoryPath
	}
	if c.Kafka.DeliveryRegisteredTopic == "" {
		c.Kafka.DeliveryRegisteredTopic = DefaultTopic
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	return c
}
