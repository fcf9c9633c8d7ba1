package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Session       SessionConfig       `mapstructure:"session"`
	Search        SearchConfig        `mapstructure:"search"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

// BackendConfig points at the relief backend that owns cases, users and sessions.
type BackendConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     uint64        `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
}

type SessionConfig struct {
	StaleTime       time.Duration `mapstructure:"stale_time"`
	FlashCookieName string        `mapstructure:"flash_cookie_name"`
	SignInPath      string        `mapstructure:"sign_in_path"`
}

type SearchConfig struct {
	DebounceDelay time.Duration `mapstructure:"debounce_delay"`
	PageLimit     int           `mapstructure:"page_limit"`
}

type RateLimitConfig struct {
	SignInBurst     int `mapstructure:"sign_in_burst"`
	SignInPerMinute int `mapstructure:"sign_in_per_minute"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ----------------- DEFAULTS -----------------

func DefaultConfig() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:3001/api",
			Timeout:        15 * time.Second,
			MaxRetries:     2,
			RetryBaseDelay: 500 * time.Millisecond,
			RetryMaxDelay:  4 * time.Second,
		},
		Session: SessionConfig{
			StaleTime:       5 * time.Minute,
			FlashCookieName: "rahat_flash",
			SignInPath:      "/signin",
		},
		Search: SearchConfig{
			DebounceDelay: 2 * time.Second,
			PageLimit:     50,
		},
		RateLimit: RateLimitConfig{
			SignInBurst:     5,
			SignInPerMinute: 10,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
			Logging: LoggingConfig{Level: "info", Format: "text", MaxSizeMB: 10, MaxBackups: 7, MaxAgeDays: 7, Compress: true},
		},
	}
}

// LoadConfigFromEnv builds the configuration for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.Server.Port = getEnvAsInt("HTTP_PORT", cfg.Server.Port)
	cfg.Server.BaseURL = getEnv("HTTP_BASE_URL", cfg.Server.BaseURL)
	cfg.Server.AllowedOrigins = getEnv("HTTP_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Database.Source = getEnv("DATABASE_URL", cfg.Database.Source)
	cfg.Database.MaxOpenConns = getEnvAsInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvAsInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Backend.BaseURL = getEnv("BACKEND_BASE_URL", cfg.Backend.BaseURL)
	cfg.Backend.Timeout = getEnvAsDuration("BACKEND_TIMEOUT", cfg.Backend.Timeout)
	cfg.Backend.MaxRetries = uint64(getEnvAsInt("BACKEND_MAX_RETRIES", int(cfg.Backend.MaxRetries)))

	cfg.Session.StaleTime = getEnvAsDuration("SESSION_STALE_TIME", cfg.Session.StaleTime)
	cfg.Search.DebounceDelay = getEnvAsDuration("SEARCH_DEBOUNCE_DELAY", cfg.Search.DebounceDelay)

	cfg.RateLimit.SignInBurst = getEnvAsInt("RATE_LIMIT_SIGN_IN_BURST", cfg.RateLimit.SignInBurst)
	cfg.RateLimit.SignInPerMinute = getEnvAsInt("RATE_LIMIT_SIGN_IN_PER_MINUTE", cfg.RateLimit.SignInPerMinute)

	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", "json")
	cfg.Observability.Logging.File = getEnv("LOG_FILE", cfg.Observability.Logging.File)

	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Backend.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("backend config: %v", err))
	}

	if err := c.Search.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("search config: %v", err))
	}

	if err := c.RateLimit.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rate limit config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *BackendConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if c.RetryMaxDelay > 0 && c.RetryMaxDelay < c.RetryBaseDelay {
		return errors.New("retry_max_delay must be >= retry_base_delay")
	}
	return nil
}

func (c *SearchConfig) Validate() error {
	if c.DebounceDelay < 0 {
		return errors.New("debounce_delay cannot be negative")
	}
	if c.PageLimit < 0 {
		return errors.New("page_limit cannot be negative")
	}
	return nil
}

func (c *RateLimitConfig) Validate() error {
	if c.SignInBurst < 0 || c.SignInPerMinute < 0 {
		return errors.New("sign-in limits cannot be negative")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	switch c.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}
