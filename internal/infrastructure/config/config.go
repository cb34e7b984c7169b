package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		LogLevel string `toml:"log_level"`
		TickMs   int    `toml:"tick_ms"`
	} `toml:"app"`

	Refresh struct {
		QuotesSec     int    `toml:"quotes_sec"`
		PortfolioSec  int    `toml:"portfolio_sec"`
		AccountSec    int    `toml:"account_sec"`
		SessionSec    int    `toml:"session_sec"`
		QuoteSettleMs int    `toml:"quote_settle_ms"`
		HistoryPeriod string `toml:"history_period"`
		HistoryBar    string `toml:"history_bar"`
	} `toml:"refresh"`

	Gateway struct {
		BaseURL         string `toml:"base_url"` // e.g. https://localhost:5000/v1/api
		WsURL           string `toml:"ws_url"`   // derived from base_url when empty
		InsecureTLS     bool   `toml:"insecure_tls"`
		TimeoutSec      int    `toml:"timeout_sec"`
		QualifyCacheMin int    `toml:"qualify_cache_min"`
	} `toml:"gateway"`

	Storage struct {
		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`

		Memory struct {
			Enabled bool `toml:"enabled"`
		} `toml:"memory"`

		Redis struct {
			Enabled    bool   `toml:"enabled"`
			Addr       string `toml:"addr"`
			Password   string `toml:"password"`
			DB         int    `toml:"db"`
			Prefix     string `toml:"prefix"`
			TTLSeconds int    `toml:"ttl_seconds"`
			Channel    string `toml:"channel"`
		} `toml:"redis"`
	} `toml:"storage"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets IBSNAP_* variables (possibly from a .env file) override the
// file for endpoints and credentials.
func applyEnv(cfg *Config) error {
	setString(&cfg.Gateway.BaseURL, "IBSNAP_GATEWAY_URL")
	setString(&cfg.Gateway.WsURL, "IBSNAP_GATEWAY_WS_URL")
	setString(&cfg.Storage.SQLite.Path, "IBSNAP_SQLITE_PATH")
	setString(&cfg.Storage.Postgres.DSN, "IBSNAP_POSTGRES_DSN")
	setString(&cfg.Storage.Redis.Addr, "IBSNAP_REDIS_ADDR")
	setString(&cfg.Storage.Redis.Password, "IBSNAP_REDIS_PASSWORD")
	setString(&cfg.App.LogLevel, "IBSNAP_LOG_LEVEL")

	if v, ok := os.LookupEnv("IBSNAP_GATEWAY_INSECURE_TLS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("IBSNAP_GATEWAY_INSECURE_TLS: %w", err)
		}
		cfg.Gateway.InsecureTLS = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.TickMs <= 0 {
		cfg.App.TickMs = 1000
	}
	if cfg.Refresh.QuotesSec == 0 {
		cfg.Refresh.QuotesSec = 5
	}
	if cfg.Refresh.PortfolioSec == 0 {
		cfg.Refresh.PortfolioSec = 30
	}
	if cfg.Refresh.AccountSec == 0 {
		cfg.Refresh.AccountSec = 60
	}
	if cfg.Refresh.SessionSec == 0 {
		cfg.Refresh.SessionSec = 60
	}
	if cfg.Refresh.QuoteSettleMs <= 0 {
		cfg.Refresh.QuoteSettleMs = 2000
	}
	if cfg.Refresh.HistoryPeriod == "" {
		cfg.Refresh.HistoryPeriod = "5d"
	}
	if cfg.Refresh.HistoryBar == "" {
		cfg.Refresh.HistoryBar = "1d"
	}

	cfg.Gateway.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Gateway.BaseURL), "/")
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "https://localhost:5000/v1/api"
	}
	if cfg.Gateway.WsURL == "" {
		cfg.Gateway.WsURL = deriveWsURL(cfg.Gateway.BaseURL)
	}
	if cfg.Gateway.TimeoutSec <= 0 {
		cfg.Gateway.TimeoutSec = 10
	}
	if cfg.Gateway.QualifyCacheMin <= 0 {
		cfg.Gateway.QualifyCacheMin = 60
	}

	if !cfg.Storage.SQLite.Enabled && !cfg.Storage.Postgres.Enabled && !cfg.Storage.Memory.Enabled {
		cfg.Storage.SQLite.Enabled = true
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/ibsnap.db"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "ibsnap"
	}
	if cfg.Storage.Redis.Channel == "" {
		cfg.Storage.Redis.Channel = cfg.Storage.Redis.Prefix + ":updates"
	}
}

func deriveWsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	default:
		return base + "/ws"
	}
}

func validate(cfg *Config) error {
	r := cfg.Refresh
	if r.QuotesSec <= 0 || r.PortfolioSec <= 0 || r.AccountSec <= 0 || r.SessionSec <= 0 {
		return errors.New("refresh intervals must be positive")
	}
	if !(r.QuotesSec < r.PortfolioSec && r.PortfolioSec < r.AccountSec) {
		return fmt.Errorf("refresh intervals must be staggered quotes < portfolio < account, got %d/%d/%d",
			r.QuotesSec, r.PortfolioSec, r.AccountSec)
	}
	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("storage.redis.addr empty but enabled")
	}
	if !strings.HasPrefix(cfg.Gateway.BaseURL, "http://") && !strings.HasPrefix(cfg.Gateway.BaseURL, "https://") {
		return fmt.Errorf("gateway.base_url %q is not an http(s) url", cfg.Gateway.BaseURL)
	}
	return nil
}

func (c *Config) Tick() time.Duration { return time.Duration(c.App.TickMs) * time.Millisecond }

func (c *Config) QuotesInterval() time.Duration {
	return time.Duration(c.Refresh.QuotesSec) * time.Second
}

func (c *Config) PortfolioInterval() time.Duration {
	return time.Duration(c.Refresh.PortfolioSec) * time.Second
}

func (c *Config) AccountInterval() time.Duration {
	return time.Duration(c.Refresh.AccountSec) * time.Second
}

func (c *Config) SessionInterval() time.Duration {
	return time.Duration(c.Refresh.SessionSec) * time.Second
}

func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Refresh.QuoteSettleMs) * time.Millisecond
}
