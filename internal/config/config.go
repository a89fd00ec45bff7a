package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultPort              = "8080"
	defaultDatabaseURL       = "songmail.db"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultJWTAccessTTL      = "24h"
	defaultShareTokenTTL     = "30m"
	defaultSearchBaseURL     = "https://itunes.apple.com"
	defaultSearchLimit       = 10
	defaultSearchTimeout     = "10s"
	defaultSearchRate        = 20
	defaultSearchCacheTTL    = "15m"
	defaultNotifyBackend     = "pool"
	defaultNotifyWorkers     = 2
	defaultNotifyQueueSize   = 64
	defaultSMTPHost          = "smtp.googlemail.com"
	defaultSMTPPort          = 587
	defaultMailSender        = "Songs App <noreply@songmail.local>"
	defaultMailSubjectPrefix = "[Songs App]"
	defaultLogLevel          = "info"

	// MaxSearchLimit is the most candidates a search ever returns.
	MaxSearchLimit = 10
)

const (
	NotifyBackendPool  = "pool"
	NotifyBackendAsynq = "asynq"
)

type Config struct {
	AppEnv   string
	Port     string
	LogLevel string

	DatabaseURL string

	JWTSecret        string
	JWTAccessTTL     time.Duration
	ShareTokenSecret string
	ShareTokenTTL    time.Duration

	Search SearchConfig
	Redis  RedisConfig
	Notify NotifyConfig
	Mail   MailConfig

	CORSAllowedOrigins []string
}

type SearchConfig struct {
	BaseURL       string
	Limit         int
	Timeout       time.Duration
	RatePerMinute int
	CacheTTL      time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type NotifyConfig struct {
	Backend   string
	Workers   int
	QueueSize int
}

type MailConfig struct {
	SMTPHost      string
	SMTPPort      int
	Username      string
	Password      string
	Sender        string
	SubjectPrefix string
}

func Load() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel)))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.ShareTokenSecret = strings.TrimSpace(getEnv("SHARE_TOKEN_SECRET", cfg.JWTSecret))

	var err error
	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL); err != nil {
		return nil, err
	}
	if cfg.ShareTokenTTL, err = parseDurationEnv("SHARE_TOKEN_TTL", defaultShareTokenTTL); err != nil {
		return nil, err
	}

	cfg.Search.BaseURL = strings.TrimRight(strings.TrimSpace(getEnv("SEARCH_BASE_URL", defaultSearchBaseURL)), "/")
	if cfg.Search.Limit, err = parseIntEnv("SEARCH_LIMIT", defaultSearchLimit); err != nil {
		return nil, err
	}
	if cfg.Search.Timeout, err = parseDurationEnv("SEARCH_TIMEOUT", defaultSearchTimeout); err != nil {
		return nil, err
	}
	if cfg.Search.RatePerMinute, err = parseIntEnv("SEARCH_RATE_PER_MINUTE", defaultSearchRate); err != nil {
		return nil, err
	}
	if cfg.Search.CacheTTL, err = parseDurationEnv("SEARCH_CACHE_TTL", defaultSearchCacheTTL); err != nil {
		return nil, err
	}

	cfg.Redis.Addr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.Notify.Backend = strings.ToLower(strings.TrimSpace(getEnv("NOTIFY_BACKEND", defaultNotifyBackend)))
	if cfg.Notify.Workers, err = parseIntEnv("NOTIFY_WORKERS", defaultNotifyWorkers); err != nil {
		return nil, err
	}
	if cfg.Notify.QueueSize, err = parseIntEnv("NOTIFY_QUEUE_SIZE", defaultNotifyQueueSize); err != nil {
		return nil, err
	}

	cfg.Mail.SMTPHost = strings.TrimSpace(getEnv("SMTP_HOST", defaultSMTPHost))
	if cfg.Mail.SMTPPort, err = parseIntEnv("SMTP_PORT", defaultSMTPPort); err != nil {
		return nil, err
	}
	cfg.Mail.Username = strings.TrimSpace(os.Getenv("SMTP_USERNAME"))
	cfg.Mail.Password = os.Getenv("SMTP_PASSWORD")
	cfg.Mail.Sender = strings.TrimSpace(getEnv("MAIL_SENDER", defaultMailSender))
	cfg.Mail.SubjectPrefix = strings.TrimSpace(getEnv("MAIL_SUBJECT_PREFIX", defaultMailSubjectPrefix))

	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Info().
		Str("env", cfg.AppEnv).
		Str("notify_backend", cfg.Notify.Backend).
		Bool("redis", cfg.Redis.Enabled()).
		Msg("config loaded")

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", cfg.Port)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.ShareTokenTTL <= 0 {
		return fmt.Errorf("SHARE_TOKEN_TTL must be > 0")
	}
	if u, err := url.Parse(cfg.Search.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SEARCH_BASE_URL is not a valid URL: %q", cfg.Search.BaseURL)
	}
	if cfg.Search.Limit < 1 || cfg.Search.Limit > MaxSearchLimit {
		return fmt.Errorf("SEARCH_LIMIT must be between 1 and %d", MaxSearchLimit)
	}
	if cfg.Search.Timeout <= 0 {
		return fmt.Errorf("SEARCH_TIMEOUT must be > 0")
	}
	if cfg.Search.RatePerMinute <= 0 {
		return fmt.Errorf("SEARCH_RATE_PER_MINUTE must be > 0")
	}
	if cfg.Search.CacheTTL < 0 {
		return fmt.Errorf("SEARCH_CACHE_TTL must be >= 0")
	}

	switch cfg.Notify.Backend {
	case NotifyBackendPool:
		if cfg.Notify.Workers < 1 {
			return fmt.Errorf("NOTIFY_WORKERS must be >= 1")
		}
		if cfg.Notify.QueueSize < 1 {
			return fmt.Errorf("NOTIFY_QUEUE_SIZE must be >= 1")
		}
	case NotifyBackendAsynq:
		if !cfg.Redis.Enabled() {
			return fmt.Errorf("NOTIFY_BACKEND=asynq requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("NOTIFY_BACKEND must be one of: pool, asynq")
	}

	if cfg.Mail.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must not be empty")
	}
	if cfg.Mail.SMTPPort < 1 || cfg.Mail.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.ShareTokenSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release SHARE_TOKEN_SECRET must be set and not default")
		}
	}

	return nil
}

// IsProduction reports whether the app runs with a prod-like APP_ENV.
func (c *Config) IsProduction() bool { return isProdLike(c.AppEnv) }

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
