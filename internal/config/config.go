package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Razorpay struct {
		KeyID         string `mapstructure:"key_id"`
		KeySecret     string `mapstructure:"key_secret"`
		WebhookSecret string `mapstructure:"webhook_secret"`
	} `mapstructure:"razorpay"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Billing struct {
		Workers           int `mapstructure:"workers"`
		RunLockTTLSeconds int `mapstructure:"run_lock_ttl_seconds"`
		DefaultDueDay     int `mapstructure:"default_due_day"`
		SettingsCacheMins int `mapstructure:"settings_cache_minutes"`
		OverdueSweepMins  int `mapstructure:"overdue_sweep_minutes"`
	} `mapstructure:"billing"`

	// Archive is an S3-compatible bucket (Cloudflare R2 in production) that
	// receives monthly invoice bundles. Empty bucket disables archiving.
	Archive struct {
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		Prefix    string `mapstructure:"prefix"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"archive"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		Output string `mapstructure:"output"`
	} `mapstructure:"log"`
}

// Load reads configs/config.yaml (optional), then applies environment overrides.
func Load() (*Config, error) {
	return LoadFile("configs/config.yaml")
}

func LoadFile(path string) (*Config, error) {
	// .env is optional in production
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "society-billing")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "society_billing")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("billing.workers", 4)
	v.SetDefault("billing.run_lock_ttl_seconds", 300)
	v.SetDefault("billing.default_due_day", 10)
	v.SetDefault("billing.settings_cache_minutes", 10)
	v.SetDefault("billing.overdue_sweep_minutes", 60)
	v.SetDefault("archive.region", "auto")
	v.SetDefault("archive.prefix", "invoices")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	if err := v.ReadInConfig(); err != nil {
		log.Info().Str("component", "config").Msg("no config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	applyEnv(&cfg)

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")

	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	}

	setString(&cfg.Razorpay.KeyID, "RAZORPAY_KEY_ID")
	setString(&cfg.Razorpay.KeySecret, "RAZORPAY_KEY_SECRET")
	setString(&cfg.Razorpay.WebhookSecret, "RAZORPAY_WEBHOOK_SECRET")

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")

	setString(&cfg.Archive.Endpoint, "R2_ENDPOINT")
	setString(&cfg.Archive.Bucket, "R2_BUCKET_NAME")
	setString(&cfg.Archive.AccessKey, "R2_ACCESS_KEY")
	setString(&cfg.Archive.SecretKey, "R2_SECRET_KEY")

	setInt(&cfg.Billing.Workers, "BILLING_WORKERS")
	setInt(&cfg.Billing.DefaultDueDay, "BILLING_DEFAULT_DUE_DAY")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

// DSN returns the postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// RunLockTTL is how long a generation run may hold its period lock
func (c *Config) RunLockTTL() time.Duration {
	return time.Duration(c.Billing.RunLockTTLSeconds) * time.Second
}

// OverdueSweepInterval is how often the server refreshes overdue invoices; zero disables it
func (c *Config) OverdueSweepInterval() time.Duration {
	return time.Duration(c.Billing.OverdueSweepMins) * time.Minute
}

// SettingsCacheTTL is how long society settings stay cached in Redis
func (c *Config) SettingsCacheTTL() time.Duration {
	return time.Duration(c.Billing.SettingsCacheMins) * time.Minute
}
