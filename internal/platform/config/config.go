package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

const (
	defaultRetryTimes = 3
	defaultWorkers    = 5
)

// Config is the resolved process configuration. It is built once at startup
// and passed explicitly to the components that need it.
type Config struct {
	Running  RunningConfig
	Database DatabaseConfig
	Provider ProviderConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	Server   ServerConfig
	Ingest   IngestConfig
}

// RunningConfig controls retry and worker counts.
type RunningConfig struct {
	RetryTimes int // provider retry count
	Workers    int // concurrent symbols during batch ingest
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver   string // "sqlite" or "postgres"
	Path     string // SQLite file path
	Host     string // remote DB host (postgres)
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ProviderConfig configures the market-data provider client.
type ProviderConfig struct {
	Name             string        // "twelvedata" or "finnhub"
	APIKey           string        // provider API key
	BaseURL          string        // provider base URL
	Timeout          time.Duration // HTTP request timeout
	WindowDays       int           // trailing window requested on every fetch
	ExchangeTimezone string        // timezone attached to provider timestamps
	RateLimit        int           // requests per minute, 0 disables limiting
}

// RedisConfig configures the optional bar cache.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	TTL      time.Duration
}

// Enabled reports whether a Redis host is configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// MongoConfig switches bar storage to a MongoDB collection when URI is set.
// Trades stay in the SQL database.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// Enabled reports whether a MongoDB URI is configured.
func (m MongoConfig) Enabled() bool {
	return m.URI != ""
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr         string
	StaticDir    string
	LogLevel     string
	AllowOrigins []string
}

// IngestConfig lists the symbols the batch ingest command pulls by default.
type IngestConfig struct {
	Symbols []string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Running: RunningConfig{RetryTimes: defaultRetryTimes, Workers: defaultWorkers},
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Path:    "data/market_data.db",
			Port:    "5432",
			SSLMode: "disable",
		},
		Provider: ProviderConfig{
			Name:             "twelvedata",
			BaseURL:          "https://api.twelvedata.com",
			Timeout:          10 * time.Second,
			WindowDays:       5,
			ExchangeTimezone: "America/New_York",
			RateLimit:        8,
		},
		Redis:  RedisConfig{Port: "6379", TTL: 5 * time.Minute},
		Mongo:  MongoConfig{Database: "market", Collection: "market_data"},
		Server: ServerConfig{Addr: ":5987", StaticDir: "frontend/dist", LogLevel: "info"},
		Ingest: IngestConfig{Symbols: []string{"SPY"}},
	}
}

// Load reads the settings file at path and resolves it into a Config.
// An empty path yields Default with environment overrides applied.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		cfg.applyEnv()
		return cfg, cfg.Validate()
	}
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	return FromFile(f)
}

// FromFile resolves a Config from parsed settings. Keys absent from the file
// keep their defaults; keys present with the wrong type are an error.
func FromFile(f *File) (*Config, error) {
	cfg := Default()

	// retry_times と workers は読み込みに失敗してもデフォルト値で続行する
	if n, err := f.Int("running", "retry_times"); err == nil {
		cfg.Running.RetryTimes = n
	} else {
		slog.Error("failed to get retry times, using default instead", "default", defaultRetryTimes, "error", err)
	}
	if n, err := f.Int("running", "workers"); err == nil {
		cfg.Running.Workers = n
	} else {
		slog.Error("failed to get workers, using default instead", "default", defaultWorkers, "error", err)
	}

	r := resolver{f: f}
	r.str("database", "driver", &cfg.Database.Driver)
	r.str("database", "path", &cfg.Database.Path)
	r.str("database", "host", &cfg.Database.Host)
	r.str("database", "port", &cfg.Database.Port)
	r.str("database", "user", &cfg.Database.User)
	r.str("database", "password", &cfg.Database.Password)
	r.str("database", "name", &cfg.Database.Name)
	r.str("database", "sslmode", &cfg.Database.SSLMode)

	r.str("provider", "name", &cfg.Provider.Name)
	r.str("provider", "api_key", &cfg.Provider.APIKey)
	r.str("provider", "base_url", &cfg.Provider.BaseURL)
	r.dur("provider", "timeout", &cfg.Provider.Timeout)
	r.int("provider", "window_days", &cfg.Provider.WindowDays)
	r.str("provider", "exchange_timezone", &cfg.Provider.ExchangeTimezone)
	r.int("provider", "rate_limit_per_minute", &cfg.Provider.RateLimit)

	r.str("redis", "host", &cfg.Redis.Host)
	r.str("redis", "port", &cfg.Redis.Port)
	r.str("redis", "password", &cfg.Redis.Password)
	r.dur("redis", "ttl", &cfg.Redis.TTL)

	r.str("mongo", "uri", &cfg.Mongo.URI)
	r.str("mongo", "database", &cfg.Mongo.Database)
	r.str("mongo", "collection", &cfg.Mongo.Collection)

	r.str("server", "addr", &cfg.Server.Addr)
	r.str("server", "static_dir", &cfg.Server.StaticDir)
	r.str("server", "log_level", &cfg.Server.LogLevel)
	r.list("server", "allow_origins", &cfg.Server.AllowOrigins)

	r.list("ingest", "symbols", &cfg.Ingest.Symbols)

	if r.err != nil {
		return nil, r.err
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// applyEnv lets secrets come from the environment instead of the file.
func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	switch c.Provider.Name {
	case "finnhub":
		override(&c.Provider.APIKey, "FINNHUB_API_KEY")
	default:
		override(&c.Provider.APIKey, "TWELVE_DATA_API_KEY")
		override(&c.Provider.BaseURL, "TWELVE_DATA_BASE_URL")
	}
	override(&c.Database.Password, "DB_PASSWORD")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.Mongo.URI, "MONGO_URI")
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("database.host and database.name are required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be 'sqlite' or 'postgres', got %q", c.Database.Driver)
	}
	switch c.Provider.Name {
	case "twelvedata", "finnhub":
	default:
		return fmt.Errorf("provider.name must be 'twelvedata' or 'finnhub', got %q", c.Provider.Name)
	}
	if c.Provider.WindowDays <= 0 {
		return errors.New("provider.window_days must be positive")
	}
	if _, err := time.LoadLocation(c.Provider.ExchangeTimezone); err != nil {
		return fmt.Errorf("provider.exchange_timezone: %w", err)
	}
	if c.Mongo.Enabled() && (c.Mongo.Database == "" || c.Mongo.Collection == "") {
		return errors.New("mongo.database and mongo.collection are required when mongo.uri is set")
	}
	if c.Running.RetryTimes < 0 {
		return errors.New("running.retry_times must not be negative")
	}
	if c.Running.Workers <= 0 {
		return errors.New("running.workers must be positive")
	}
	return nil
}

// resolver copies optional keys onto defaults and keeps the first type error.
type resolver struct {
	f   *File
	err error
}

func (r *resolver) keep(err error) bool {
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrMissingKey) && r.err == nil {
		r.err = err
	}
	return false
}

func (r *resolver) str(section, key string, dst *string) {
	if v, err := r.f.String(section, key); r.keep(err) {
		*dst = v
	}
}

func (r *resolver) int(section, key string, dst *int) {
	if v, err := r.f.Int(section, key); r.keep(err) {
		*dst = v
	}
}

func (r *resolver) dur(section, key string, dst *time.Duration) {
	if v, err := r.f.Duration(section, key); r.keep(err) {
		*dst = v
	}
}

func (r *resolver) list(section, key string, dst *[]string) {
	if v, err := r.f.Strings(section, key); r.keep(err) {
		*dst = v
	}
}
