// Package config loads the application configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile     = "config.yaml"
	DefaultStoragePath    = ".postrelay/postrelay.db"
	DefaultCheckInterval  = 60 * time.Second
	DefaultGroupPause     = time.Second
	DefaultVKRatePerSec   = 3
	DefaultTGRatePerSec   = 20
	DefaultPollTimeoutSec = 50
	DefaultFetchCount     = 5
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "60s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	VK       VKConfig       `yaml:"vk"`
	Telegram TelegramConfig `yaml:"telegram"`
	Delivery DeliveryConfig `yaml:"delivery"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type VKConfig struct {
	TokenEnv          string   `yaml:"token_env"`
	CheckInterval     Duration `yaml:"check_interval"`
	GroupPause        Duration `yaml:"group_pause"`
	RequestsPerSecond int      `yaml:"requests_per_second"`
	FetchCount        int      `yaml:"fetch_count"`

	// Resolved from env var at load time.
	Token string `yaml:"-"`
}

type TelegramConfig struct {
	BotTokenEnv       string `yaml:"bot_token_env"`
	PollTimeoutSec    int    `yaml:"poll_timeout_sec"`
	RequestsPerSecond int    `yaml:"requests_per_second"`

	// Resolved from env var at load time.
	BotToken string `yaml:"-"`
}

type DeliveryConfig struct {
	// ChatID is the destination supergroup; accepted posts land in its
	// forum topics.
	ChatID int64 `yaml:"chat_id"`
}

// Load reads config.yaml from dir, applies defaults, resolves env vars, and validates.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	resolveEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.VK.CheckInterval.Duration == 0 {
		cfg.VK.CheckInterval.Duration = DefaultCheckInterval
	}
	if cfg.VK.GroupPause.Duration == 0 {
		cfg.VK.GroupPause.Duration = DefaultGroupPause
	}
	if cfg.VK.RequestsPerSecond == 0 {
		cfg.VK.RequestsPerSecond = DefaultVKRatePerSec
	}
	if cfg.VK.FetchCount == 0 {
		cfg.VK.FetchCount = DefaultFetchCount
	}
	if cfg.Telegram.PollTimeoutSec == 0 {
		cfg.Telegram.PollTimeoutSec = DefaultPollTimeoutSec
	}
	if cfg.Telegram.RequestsPerSecond == 0 {
		cfg.Telegram.RequestsPerSecond = DefaultTGRatePerSec
	}
}

func resolveEnv(cfg *Config) {
	if cfg.VK.TokenEnv != "" {
		cfg.VK.Token = os.Getenv(cfg.VK.TokenEnv)
	}
	if cfg.Telegram.BotTokenEnv != "" {
		cfg.Telegram.BotToken = os.Getenv(cfg.Telegram.BotTokenEnv)
	}
}

func validate(cfg *Config) error {
	if cfg.VK.CheckInterval.Duration < time.Second {
		return fmt.Errorf("vk.check_interval: %s is below 1s", cfg.VK.CheckInterval.Duration)
	}
	if cfg.VK.RequestsPerSecond < 1 {
		return fmt.Errorf("vk.requests_per_second: must be positive, got %d", cfg.VK.RequestsPerSecond)
	}
	if cfg.VK.FetchCount < 1 {
		return fmt.Errorf("vk.fetch_count: must be positive, got %d", cfg.VK.FetchCount)
	}
	if cfg.Telegram.RequestsPerSecond < 1 {
		return fmt.Errorf("telegram.requests_per_second: must be positive, got %d", cfg.Telegram.RequestsPerSecond)
	}
	return nil
}
