package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultAdminSecret = "indonesia"
	DefaultTreasuryURL = "wss://ws-ap1.pusher.com/app/52e99bd2c3c42e577e13?protocol=7&client=js&version=7.0.3&flash=false"
	DefaultUsdURL      = "https://www.google.com/finance/quote/USD-IDR"
)

type Config struct {
	App struct {
		LogLevel string `toml:"log_level"`
		Console  bool   `toml:"console"`
	} `toml:"app"`

	HTTP struct {
		Addr string `toml:"addr"`
	} `toml:"http"`

	Admin struct {
		Secret        string `toml:"secret"`
		MinLimit      int    `toml:"min_limit"`
		MaxLimit      int    `toml:"max_limit"`
		MinIntervalMs int    `toml:"min_interval_ms"`
	} `toml:"admin"`

	RateLimit struct {
		RPS        float64 `toml:"rps"`
		Burst      int     `toml:"burst"`
		MaxClients int     `toml:"max_clients"`
	} `toml:"ratelimit"`

	Feed struct {
		Treasury struct {
			WsURL   string `toml:"ws_url"`
			Channel string `toml:"channel"`
			Event   string `toml:"event"`
		} `toml:"treasury"`

		Usd struct {
			Enabled   *bool  `toml:"enabled"`
			URL       string `toml:"url"`
			TimeoutMs int    `toml:"timeout_ms"`
		} `toml:"usd"`
	} `toml:"feed"`

	Loop struct {
		IntervalMs       int `toml:"interval_ms"`
		PullEveryMs      int `toml:"pull_every_ms"`
		HeartbeatEveryMs int `toml:"heartbeat_every_ms"`
	} `toml:"loop"`

	History struct {
		MaxEntries    int `toml:"max_entries"`
		MaxUsdEntries int `toml:"max_usd_entries"`
		SeenCapacity  int `toml:"seen_capacity"`
		DefaultLimit  int `toml:"default_limit"`
	} `toml:"history"`

	Storage struct {
		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Redis struct {
			Enabled    bool   `toml:"enabled"`
			Addr       string `toml:"addr"`
			Password   string `toml:"password"`
			DB         int    `toml:"db"`
			Prefix     string `toml:"prefix"`
			TTLSeconds int    `toml:"ttl_seconds"`
			NotifyChan string `toml:"notify_channel"`
		} `toml:"redis"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`
	} `toml:"storage"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"metrics"`
}

// Load reads path after loading .env (if present) and expanding ${VAR}
// references. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if _, err := toml.Decode(os.ExpandEnv(string(data)), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ADMIN_SECRET")); v != "" && cfg.Admin.Secret == "" {
		cfg.Admin.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("GOLDROOM_HTTP_ADDR")); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("GOLDROOM_LOG_LEVEL")); v != "" {
		cfg.App.LogLevel = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}

	if cfg.Admin.Secret == "" {
		cfg.Admin.Secret = DefaultAdminSecret
	}
	if cfg.Admin.MaxLimit <= 0 {
		cfg.Admin.MaxLimit = 88888
	}
	if cfg.Admin.MinIntervalMs <= 0 {
		cfg.Admin.MinIntervalMs = 5000
	}

	if cfg.RateLimit.RPS <= 0 {
		cfg.RateLimit.RPS = 1
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 60
	}
	if cfg.RateLimit.MaxClients <= 0 {
		cfg.RateLimit.MaxClients = 10000
	}

	t := &cfg.Feed.Treasury
	if t.WsURL == "" {
		t.WsURL = DefaultTreasuryURL
	}
	if t.Channel == "" {
		t.Channel = "gold-rate"
	}
	if t.Event == "" {
		t.Event = "gold-rate-event"
	}
	u := &cfg.Feed.Usd
	if u.Enabled == nil {
		on := true
		u.Enabled = &on
	}
	if u.URL == "" {
		u.URL = DefaultUsdURL
	}
	if u.TimeoutMs <= 0 {
		u.TimeoutMs = 10000
	}

	if cfg.Loop.IntervalMs <= 0 {
		cfg.Loop.IntervalMs = 3000
	}
	if cfg.Loop.PullEveryMs <= 0 {
		cfg.Loop.PullEveryMs = 3000
	}
	if cfg.Loop.HeartbeatEveryMs <= 0 {
		cfg.Loop.HeartbeatEveryMs = 15000
	}

	if cfg.History.MaxEntries <= 0 {
		cfg.History.MaxEntries = 1441
	}
	if cfg.History.MaxUsdEntries <= 0 {
		cfg.History.MaxUsdEntries = 11
	}
	if cfg.History.SeenCapacity <= 0 {
		cfg.History.SeenCapacity = 5000
	}
	if cfg.History.DefaultLimit <= 0 {
		cfg.History.DefaultLimit = 8
	}

	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/goldroom.db"
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "goldroom"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Admin.MinLimit < 0 || cfg.Admin.MinLimit > cfg.Admin.MaxLimit {
		return errors.New("admin.min_limit out of range")
	}
	if !strings.HasPrefix(cfg.Feed.Treasury.WsURL, "ws://") && !strings.HasPrefix(cfg.Feed.Treasury.WsURL, "wss://") {
		return errors.New("feed.treasury.ws_url must be a ws:// or wss:// url")
	}
	if cfg.History.SeenCapacity < cfg.History.MaxEntries {
		return errors.New("history.seen_capacity must be >= history.max_entries")
	}
	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return nil
}

// UsdEnabled reports whether the USD/IDR pull feed runs.
func (c *Config) UsdEnabled() bool {
	return c.Feed.Usd.Enabled == nil || *c.Feed.Usd.Enabled
}
