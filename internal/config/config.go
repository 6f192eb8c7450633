package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	DataDir        string `mapstructure:"DATA_DIR"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32  `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir  string `mapstructure:"MIGRATIONS_DIR"`

	RedisURL string        `mapstructure:"REDIS_URL"`
	LockTTL  time.Duration `mapstructure:"LOCK_TTL"`

	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	SeedEnabled   bool          `mapstructure:"SEED_ENABLED"`
	SeedSourceURL string        `mapstructure:"SEED_SOURCE_URL"`
	SeedDoctors   int           `mapstructure:"SEED_DOCTORS"`
	SeedPatients  int           `mapstructure:"SEED_PATIENTS"`
	SeedTimeout   time.Duration `mapstructure:"SEED_TIMEOUT"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit      string   `mapstructure:"BODY_LIMIT"`
}

var defaults = map[string]interface{}{
	"PORT":             "8000",
	"ENV":              "development",
	"LOG_LEVEL":        "info",
	"STORAGE_BACKEND":  BackendFile,
	"DATA_DIR":         "data",
	"DB_MAX_CONNS":     10,
	"DB_MIN_CONNS":     2,
	"MIGRATIONS_DIR":   "migrations",
	"LOCK_TTL":         "10s",
	"AMQP_EXCHANGE":    "turnos.events",
	"MINIO_BUCKET":     "turnos-backup",
	"MINIO_USE_SSL":    false,
	"SEED_ENABLED":     true,
	"SEED_SOURCE_URL":  "https://randomuser.me/api/",
	"SEED_DOCTORS":     10,
	"SEED_PATIENTS":    50,
	"SEED_TIMEOUT":     "15s",
	"CORS_ORIGINS":     "*",
	"RATE_LIMIT_RPS":   50,
	"RATE_LIMIT_BURST": 100,
	"BODY_LIMIT":       "1M",
}

var envOnly = []string{
	"DATABASE_URL", "REDIS_URL", "AMQP_URL",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY",
}

// Load reads the configuration from the environment, with an optional .env
// file in the working directory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
		_ = v.BindEnv(key)
	}
	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envOnly {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Env values arrive as one comma separated string
	cfg.CORSOrigins = nil
	for _, o := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) UsePostgres() bool {
	return c.StorageBackend == BackendPostgres
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required when STORAGE_BACKEND is %q", BackendFile)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is %q", BackendPostgres)
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendFile, BackendPostgres, c.StorageBackend)
	}

	if c.SeedEnabled && (c.SeedDoctors < 0 || c.SeedPatients < 0) {
		return fmt.Errorf("SEED_DOCTORS and SEED_PATIENTS must not be negative")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive, got %s", c.LockTTL)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	return nil
}
