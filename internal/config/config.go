package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Session snapshots
	SnapshotStore string
	PebblePath    string
	RedisURL      string
	CacheTTL      time.Duration
	SweepCron     string

	// Ephemeral content
	ConfessionTTL  time.Duration
	ChatTTL        time.Duration
	CrushTTL       time.Duration
	PhotoViewTimer time.Duration
	TrialLength    time.Duration

	ComposeCooldown time.Duration

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Integrations
	RevenueCatWebhookAuth string
	SentryDSN             string
	Environment           string

	// Server
	Port        string
	CORSOrigins string
}

// Load reads the environment. A .env file in the working directory is loaded
// first when present; real environment variables win over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "mira_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "mira.db"),

		SnapshotStore: getEnv("SNAPSHOT_STORE", "gorm"),
		PebblePath:    getEnv("PEBBLE_PATH", "data/sessions"),
		RedisURL:      getEnv("REDIS_URL", ""),
		CacheTTL:      parseDuration(getEnv("SNAPSHOT_CACHE_TTL", "10m"), 10*time.Minute),
		SweepCron:     getEnv("SWEEP_CRON", "@every 1m"),

		ConfessionTTL:  parseDuration(getEnv("CONFESSION_TTL", "24h"), 24*time.Hour),
		ChatTTL:        parseDuration(getEnv("CHAT_TTL", "24h"), 24*time.Hour),
		CrushTTL:       parseDuration(getEnv("CRUSH_TTL", "48h"), 48*time.Hour),
		PhotoViewTimer: parseDuration(getEnv("PHOTO_VIEW_TIMER", "10s"), 10*time.Second),
		TrialLength:    parseDuration(getEnv("TRIAL_LENGTH", "72h"), 72*time.Hour),

		ComposeCooldown: parseDuration(getEnv("COMPOSE_COOLDOWN", "30s"), 30*time.Second),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		RevenueCatWebhookAuth: getEnv("REVENUECAT_WEBHOOK_AUTH", ""),
		SentryDSN:             getEnv("SENTRY_DSN", ""),
		Environment:           getEnv("APP_ENV", "development"),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// SessionOptions maps the TTL settings onto the state core.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		ConfessionTTL:  c.ConfessionTTL,
		ChatTTL:        c.ChatTTL,
		CrushTTL:       c.CrushTTL,
		PhotoViewTimer: c.PhotoViewTimer,
		TrialLength:    c.TrialLength,
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
