package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all worker configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Sync      SyncConfig
	Platform  PlatformConfig
	Search    SearchConfig
	BOM       BOMConfig
	Worker    WorkerConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// SyncConfig tunes the entity sync engines
type SyncConfig struct {
	PageSize             int
	ChunkSize            int
	RecentOrderWindow    time.Duration
	VariationConcurrency int
	MatchLookback        time.Duration
	SweepInterval        time.Duration
}

// PlatformConfig holds remote commerce platform client settings
type PlatformConfig struct {
	RequestTimeout   time.Duration
	MaxResponseBytes int64
	Stores           []StoreCredential
}

// StoreCredential is one tenant's remote store connection
type StoreCredential struct {
	TenantID       string `mapstructure:"tenant_id"`
	BaseURL        string `mapstructure:"base_url"`
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
}

// SearchConfig holds the external search index settings. When Endpoint is
// empty the worker falls back to the no-op index.
type SearchConfig struct {
	Endpoint       string
	APIKey         string
	RequestTimeout time.Duration
}

// BOMConfig tunes the consumption engine's idempotency windows
type BOMConfig struct {
	DedupTTL time.Duration
	LockTTL  time.Duration
}

// WorkerConfig holds job worker pool settings
type WorkerConfig struct {
	PoolSize     int
	PollInterval time.Duration
	JobTimeout   time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string // OTEL Collector endpoint (e.g., "localhost:4317")
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SB_ prefix (e.g., SB_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Sync: SyncConfig{
			PageSize:             v.GetInt("sync.page_size"),
			ChunkSize:            v.GetInt("sync.chunk_size"),
			RecentOrderWindow:    v.GetDuration("sync.recent_order_window"),
			VariationConcurrency: v.GetInt("sync.variation_concurrency"),
			MatchLookback:        v.GetDuration("sync.match_lookback"),
			SweepInterval:        v.GetDuration("sync.sweep_interval"),
		},
		Platform: PlatformConfig{
			RequestTimeout:   v.GetDuration("platform.request_timeout"),
			MaxResponseBytes: v.GetInt64("platform.max_response_bytes"),
		},
		Search: SearchConfig{
			Endpoint:       v.GetString("search.endpoint"),
			APIKey:         v.GetString("search.api_key"),
			RequestTimeout: v.GetDuration("search.request_timeout"),
		},
		BOM: BOMConfig{
			DedupTTL: v.GetDuration("bom.dedup_ttl"),
			LockTTL:  v.GetDuration("bom.lock_ttl"),
		},
		Worker: WorkerConfig{
			PoolSize:     v.GetInt("worker.pool_size"),
			PollInterval: v.GetDuration("worker.poll_interval"),
			JobTimeout:   v.GetDuration("worker.job_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	if err := v.UnmarshalKey("platform.stores", &cfg.Platform.Stores); err != nil {
		return nil, fmt.Errorf("error parsing platform.stores: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storebridge-worker"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storebridge"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 50
	}
	if cfg.Sync.ChunkSize == 0 {
		cfg.Sync.ChunkSize = 100
	}
	if cfg.Sync.RecentOrderWindow == 0 {
		cfg.Sync.RecentOrderWindow = 7 * 24 * time.Hour
	}
	if cfg.Sync.VariationConcurrency == 0 {
		cfg.Sync.VariationConcurrency = 5
	}
	if cfg.Sync.MatchLookback == 0 {
		cfg.Sync.MatchLookback = 180 * 24 * time.Hour
	}
	if cfg.Sync.SweepInterval == 0 {
		cfg.Sync.SweepInterval = 15 * time.Minute
	}
	if cfg.Platform.RequestTimeout == 0 {
		cfg.Platform.RequestTimeout = 30 * time.Second
	}
	if cfg.Platform.MaxResponseBytes == 0 {
		cfg.Platform.MaxResponseBytes = 10 << 20 // 10MB
	}
	if cfg.Search.RequestTimeout == 0 {
		cfg.Search.RequestTimeout = 10 * time.Second
	}
	if cfg.BOM.DedupTTL == 0 {
		cfg.BOM.DedupTTL = 7 * 24 * time.Hour
	}
	if cfg.BOM.LockTTL == 0 {
		cfg.BOM.LockTTL = 2 * time.Minute
	}
	if cfg.Worker.PoolSize == 0 {
		cfg.Worker.PoolSize = 4
	}
	if cfg.Worker.PollInterval == 0 {
		cfg.Worker.PollInterval = 2 * time.Second
	}
	if cfg.Worker.JobTimeout == 0 {
		cfg.Worker.JobTimeout = 30 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "storebridge-worker"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Sync.VariationConcurrency < 1 {
		return fmt.Errorf("sync.variation_concurrency must be at least 1")
	}
	if c.Worker.PoolSize < 1 {
		return fmt.Errorf("worker.pool_size must be at least 1")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
