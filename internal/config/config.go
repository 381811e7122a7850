package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort         string
	DatabaseURL        string
	BaseURL            string
	AllowedDomains     string // Comma-separated list of allowed destination hosts
	ShortCodeLength    int
	MaxAllocAttempts   int
	VisitWorkerCount   int
	VisitQueueSize     int
	RedisURL           string
	RateLimitPerMinute int
	SentryDSN          string
	AppEnv             string
	LogFile            string
	IPHashKey          string
	AdminToken         string // Bearer token for admin routes; empty disables them
	TrustedProxies     string // Comma-separated proxy IPs or CIDRs allowed to set X-Forwarded-For
}

var AppConfig *Config

// LoadConfig loads configuration from environment variables.
// It looks for a .env file in the current directory for development convenience.
func LoadConfig() error {
	// Attempt to load .env file, but don't fail if it's not there (for production)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", "file:vlink.db"),
		AllowedDomains: getEnv("ALLOWED_DOMAINS", ""), // Empty means allow all
		RedisURL:       getEnv("REDIS_URL", ""),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
		AppEnv:         getEnv("APP_ENV", "production"),
		LogFile:        getEnv("LOG_FILE", ""),
		IPHashKey:      getEnv("IP_HASH_KEY", ""),
		AdminToken:     getEnv("ADMIN_TOKEN", ""),
		TrustedProxies: getEnv("TRUSTED_PROXIES", ""), // Empty means trust no proxy
	}
	cfg.ServerPort = strings.TrimPrefix(cfg.ServerPort, ":")
	cfg.BaseURL = strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+cfg.ServerPort), "/")

	var err error
	if cfg.ShortCodeLength, err = getEnvInt("SHORT_CODE_LENGTH", 6); err != nil {
		return err
	}
	if cfg.MaxAllocAttempts, err = getEnvInt("MAX_ALLOC_ATTEMPTS", 5); err != nil {
		return err
	}
	if cfg.VisitWorkerCount, err = getEnvInt("VISIT_WORKERS", 2); err != nil {
		return err
	}
	if cfg.VisitQueueSize, err = getEnvInt("VISIT_QUEUE_SIZE", 256); err != nil {
		return err
	}
	if cfg.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", 30); err != nil {
		return err
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BASE_URL must be an absolute URL, got %q", cfg.BaseURL)
	}

	AppConfig = cfg
	return nil
}

// IsDevelopment reports whether internal error details may be returned to clients.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// AllowedDomainList splits AllowedDomains into trimmed host names.
func (c *Config) AllowedDomainList() []string {
	return splitList(c.AllowedDomains)
}

// TrustedProxyList splits TrustedProxies into trimmed addresses. A nil result
// means client IPs are taken from the socket only.
func (c *Config) TrustedProxyList() []string {
	return splitList(c.TrustedProxies)
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	return n, nil
}
