package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Addr          string
	DatabasePath  string
	StoragePrefix string
	Location      *time.Location

	RemindersEnabled bool
	ReminderInterval time.Duration

	LogFormat string // text | json
	LogLevel  slog.Level

	// Seed values used only when the store is empty.
	AdminEmail    string
	AdminPassword string
	TaxRate       decimal.Decimal
	AcquiringRate decimal.Decimal
}

// Load reads an optional .env file, then environment variables with defaults.
func Load() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			slog.Warn("config: cannot read env file", "path", envFile, "err", err)
		}
	}

	return &Config{
		Addr:             getEnv("ADDR", ":8080"),
		DatabasePath:     getEnv("DB_PATH", "kidcare.db"),
		StoragePrefix:    getEnv("STORAGE_PREFIX", "kidcare_"),
		Location:         getLocation("TIMEZONE", "Europe/Moscow"),
		RemindersEnabled: getEnv("REMINDERS_ENABLED", "1") == "1",
		ReminderInterval: getDuration("REMINDER_INTERVAL", time.Minute),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LogLevel:         getLevel("LOG_LEVEL", slog.LevelInfo),
		AdminEmail:       getEnv("ADMIN_EMAIL", "admin@kidcare.local"),
		AdminPassword:    getEnv("ADMIN_PASSWORD", "admin123"), // change in production
		TaxRate:          getDecimal("TAX_RATE", decimal.RequireFromString("0.06")),
		AcquiringRate:    getDecimal("ACQUIRING_RATE", decimal.RequireFromString("0.025")),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getDecimal(key string, def decimal.Decimal) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return def
	}
	return d
}

func getLevel(key string, def slog.Level) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(os.Getenv(key))); err != nil {
		return def
	}
	return lvl
}

func getLocation(key, def string) *time.Location {
	loc, err := time.LoadLocation(getEnv(key, def))
	if err != nil {
		return time.FixedZone("MSK", 3*3600)
	}
	return loc
}
