package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

// Provider holds one upstream's credential and call budget. A zero
// MaxRequestsPerMinute or MinRequestIntervalSec disables that gate.
type Provider struct {
	APIKey                string `json:"api_key"`
	BaseURL               string `json:"base_url"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
	Burst                 int    `json:"burst"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec"`
}

type Providers struct {
	// TimeoutSec bounds each upstream call. AlphaVantage keeps its own
	// longer default when this is zero.
	TimeoutSec int `json:"timeout_sec"`

	Finnhub      Provider `json:"finnhub"`
	AlphaVantage Provider `json:"alphavantage"`
	TwelveData   Provider `json:"twelvedata"`
	FMP          Provider `json:"fmp"`
	Stooq        Provider `json:"stooq"`
	YahooQuote   Provider `json:"yahoo_quote"`
	Brapi        Provider `json:"brapi"`
	CoinGecko    Provider `json:"coingecko"`
	CoinCap      Provider `json:"coincap"`
}

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Cache struct {
	Backend  string `json:"backend"`
	MaxItems int    `json:"max_items"`
	Redis    Redis  `json:"redis"`
}

type Redis struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

type Database struct {
	URL          string `json:"url"`
	MaxOpenConns int    `json:"max_open_conns"`
}

type Batch struct {
	// MaxConcurrency caps simultaneous lookups per batch; 0 means unlimited.
	MaxConcurrency int `json:"max_concurrency"`
	// MaxTickers caps the tickers accepted by one HTTP batch request.
	MaxTickers int `json:"max_tickers"`
}

type Log struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

type Config struct {
	Server    Server    `json:"server"`
	Providers Providers `json:"providers"`
	Cache     Cache     `json:"cache"`
	Database  Database  `json:"database"`
	Batch     Batch     `json:"batch"`
	Log       Log       `json:"log"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 30},
		Providers: Providers{
			TimeoutSec: 10,
			// Free-tier budgets.
			Finnhub:      Provider{MaxRequestsPerMinute: 60, Burst: 5},
			AlphaVantage: Provider{MaxRequestsPerMinute: 5, Burst: 1},
			TwelveData:   Provider{MaxRequestsPerMinute: 8, Burst: 2},
			FMP:          Provider{MaxRequestsPerMinute: 30, Burst: 2},
		},
		Cache: Cache{
			Backend: CacheMemory,
			Redis:   Redis{Addr: "localhost:6379"},
		},
		Database: Database{MaxOpenConns: 10},
		Batch:    Batch{MaxTickers: 1000},
		Log:      Log{Level: "info"},
	}
}

// ProviderTimeout is the per-call upstream timeout, zero when unset.
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSec) * time.Second
}

// RequestTimeout bounds one inbound HTTP request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSec) * time.Second
}

// Load reads JSON config from path. If path is empty it falls back to
// CONFIG_FILE and then config.json; a missing file yields defaults. A .env file
// in the working directory is loaded into the environment first, without
// overriding variables already set. Environment variables override the file.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.Batch.MaxConcurrency < 0 {
		return errors.New("config: batch.max_concurrency must not be negative")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	envInt("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec, 1)
	envInt("PROVIDER_TIMEOUT_SEC", &cfg.Providers.TimeoutSec, 1)

	envString("FINNHUB_KEY", &cfg.Providers.Finnhub.APIKey)
	envString("ALPHAVANTAGE_KEY", &cfg.Providers.AlphaVantage.APIKey)
	envString("TWELVEDATA_KEY", &cfg.Providers.TwelveData.APIKey)
	envString("FMP_KEY", &cfg.Providers.FMP.APIKey)
	envString("BRAPI_TOKEN", &cfg.Providers.Brapi.APIKey)

	for prefix, p := range map[string]*Provider{
		"FINNHUB":      &cfg.Providers.Finnhub,
		"ALPHAVANTAGE": &cfg.Providers.AlphaVantage,
		"TWELVEDATA":   &cfg.Providers.TwelveData,
		"FMP":          &cfg.Providers.FMP,
		"STOOQ":        &cfg.Providers.Stooq,
		"YAHOO_QUOTE":  &cfg.Providers.YahooQuote,
		"BRAPI":        &cfg.Providers.Brapi,
		"COINGECKO":    &cfg.Providers.CoinGecko,
		"COINCAP":      &cfg.Providers.CoinCap,
	} {
		envInt(prefix+"_MAX_RPM", &p.MaxRequestsPerMinute, 0)
		envInt(prefix+"_BURST", &p.Burst, 1)
		envInt(prefix+"_MIN_INTERVAL_SEC", &p.MinRequestIntervalSec, 0)
	}

	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	envInt("CACHE_MAX_ITEMS", &cfg.Cache.MaxItems, 0)
	envString("REDIS_ADDR", &cfg.Cache.Redis.Addr)
	envString("REDIS_PASSWORD", &cfg.Cache.Redis.Password)
	envInt("REDIS_DB", &cfg.Cache.Redis.DB, 0)

	envString("DATABASE_URL", &cfg.Database.URL)
	envInt("BATCH_MAX_CONCURRENCY", &cfg.Batch.MaxConcurrency, 0)

	envString("LOG_LEVEL", &cfg.Log.Level)
	envBool("LOG_DEVELOPMENT", &cfg.Log.Development)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// envInt sets dst when key holds an integer >= lowest; other values are ignored.
func envInt(key string, dst *int, lowest int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	x, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || x < lowest {
		return
	}
	*dst = x
}

func envBool(key string, dst *bool) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}
