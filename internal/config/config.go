package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings read from the environment.
type Config struct {
	AppEnv    string
	LogLevel  string
	LogFormat string

	// Storage
	DatabaseDriver string
	DatabaseURL    string
	DatabaseSchema string
	SQLitePath     string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool
	RedisPrefix   string
	SessionTTL    time.Duration

	// WhatsApp
	WhatsAppStorePath string
	WhatsAppLogLevel  string
	AdminNotifyJID    string

	// HTTP
	HTTPListenAddr   string
	PublicBasePath   string
	AdminUserMD5     string
	AdminPasswordMD5 string
	MetricsNamespace string

	// Entitlement and payments
	AdminIDs        []int64
	DefaultLanguage string
	PaymentTarget   string
	PaymentHolder   string

	// Scheduled admin jobs; an empty schedule disables the job
	PendingReminderCron string
	StatsDigestCron     string

	// AI placeholder gateway
	AIBaseURL string
	AIAPIKey  string
	AITimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	adminIDs, err := getEnvInt64Slice("ADMIN_IDS")
	if err != nil {
		return nil, err
	}
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getEnvDuration("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	aiTimeout, err := getEnvDuration("AI_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DatabaseSchema: getEnv("DATABASE_SCHEMA", ""),
		SQLitePath:     getEnv("SQLITE_PATH", "data/bot.db"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
		RedisTLS:      getEnvBool("REDIS_TLS", false),
		RedisPrefix:   getEnv("REDIS_KEY_PREFIX", "aibot"),
		SessionTTL:    sessionTTL,

		WhatsAppStorePath: getEnv("WA_STORE_PATH", "data/whatsapp.db"),
		WhatsAppLogLevel:  getEnv("WA_LOG_LEVEL", "INFO"),
		AdminNotifyJID:    getEnv("ADMIN_NOTIFY_JID", ""),

		HTTPListenAddr:   getEnv("HTTP_LISTEN_ADDR", ":8080"),
		PublicBasePath:   getEnv("PUBLIC_BASE_PATH", ""),
		AdminUserMD5:     getEnv("ADMIN_API_USER_MD5", ""),
		AdminPasswordMD5: getEnv("ADMIN_API_PASSWORD_MD5", ""),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "aibot"),

		AdminIDs:        adminIDs,
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "ru"),
		PaymentTarget:   getEnv("PAYMENT_CARD_NUMBER", ""),
		PaymentHolder:   getEnv("PAYMENT_CARD_HOLDER", ""),

		PendingReminderCron: getEnvOptional("PENDING_REMINDER_CRON", "0 */6 * * *"),
		StatsDigestCron:     getEnvOptional("STATS_DIGEST_CRON", "5 0 * * *"),

		AIBaseURL: getEnv("AI_BASE_URL", ""),
		AIAPIKey:  getEnv("AI_API_KEY", ""),
		AITimeout: aiTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres driver")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if len(c.AdminIDs) == 0 {
		return fmt.Errorf("ADMIN_IDS must list at least one admin")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// getEnvOptional is like getEnv but a variable set to "off" or "-" yields "".
func getEnvOptional(key, fallback string) string {
	v := getEnv(key, fallback)
	switch strings.ToLower(v) {
	case "off", "-", "disabled":
		return ""
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getEnvInt64Slice(key string) ([]int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil, nil
	}
	var out []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s entry %q: %w", key, part, err)
		}
		out = append(out, id)
	}
	return out, nil
}
