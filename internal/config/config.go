// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`

	// Database Configuration
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSource          string        `mapstructure:"DB_SOURCE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Auth Configuration
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	AccessTokenTTL   time.Duration `mapstructure:"ACCESS_TOKEN_TTL_MINUTES"`
	ProfileBootstrap int           `mapstructure:"PROFILE_BOOTSTRAP_ATTEMPTS"`

	// Sync Configuration
	FetchTimeout       time.Duration `mapstructure:"FETCH_TIMEOUT_MS"`
	SyncRetryAttempts  int           `mapstructure:"SYNC_RETRY_ATTEMPTS"`
	SyncRetryBaseDelay time.Duration `mapstructure:"SYNC_RETRY_BASE_DELAY_MS"`

	// Notification Configuration
	DefaultAlertVolume float64 `mapstructure:"DEFAULT_ALERT_VOLUME"`

	// Media Storage Configuration
	MediaStoragePath string `mapstructure:"MEDIA_STORAGE_PATH"`
	MediaBaseURL     string `mapstructure:"MEDIA_BASE_URL"`
	MediaMaxSizeMB   int    `mapstructure:"MEDIA_MAX_SIZE_MB"`

	// Email Configuration
	EmailFromAddress string `mapstructure:"EMAIL_FROM_ADDRESS"`
	SMTPHost         string `mapstructure:"SMTP_HOST"`
	SMTPPort         string `mapstructure:"SMTP_PORT"`

	// Cron Jobs
	BackgroundRefreshSchedule string `mapstructure:"BACKGROUND_REFRESH_SCHEDULE"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	// Set default values
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "repairdesk_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("PROFILE_BOOTSTRAP_ATTEMPTS", 3)

	// Blocking loads give up after the fetch timeout; retries back off
	// from the base delay (1.5s, then 2s).
	v.SetDefault("FETCH_TIMEOUT_MS", 7000)
	v.SetDefault("SYNC_RETRY_ATTEMPTS", 2)
	v.SetDefault("SYNC_RETRY_BASE_DELAY_MS", 1500)

	v.SetDefault("DEFAULT_ALERT_VOLUME", 0.4)

	v.SetDefault("MEDIA_STORAGE_PATH", "./uploads")
	v.SetDefault("MEDIA_BASE_URL", "http://localhost:8080/media")
	v.SetDefault("MEDIA_MAX_SIZE_MB", 50)

	v.SetDefault("EMAIL_FROM_ADDRESS", "noreply@repairdesk.local")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", "587")

	v.SetDefault("BACKGROUND_REFRESH_SCHEDULE", "@every 5m")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.AccessTokenTTL = time.Duration(v.GetInt("ACCESS_TOKEN_TTL_MINUTES")) * time.Minute
	cfg.FetchTimeout = time.Duration(v.GetInt("FETCH_TIMEOUT_MS")) * time.Millisecond
	cfg.SyncRetryBaseDelay = time.Duration(v.GetInt("SYNC_RETRY_BASE_DELAY_MS")) * time.Millisecond

	// GORM DSN is always built from the individual DB_* params. The
	// DB_SOURCE env var, when set, is for golang-migrate only.
	cfg.DBSource = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode, cfg.DBTimezone)

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("FATAL: JWT_SECRET is not set. This is required for issuing and verifying session tokens")
	}

	return &cfg, nil
}
