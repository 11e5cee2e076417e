package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnv             = "dev"
	defaultDBPath          = "./dev.db"
	defaultPort            = "8080"
	defaultMigrationsDir   = "migrations"
	defaultSessionTTL      = 10 * time.Minute
	defaultVehicleCacheTTL = 24 * time.Hour
	defaultVehicleRate     = 5
	defaultQuoteRate       = 10
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env           string
	Port          string
	DBPath        string
	MigrationsDir string

	AdminEmail    string
	AdminPassword string
	SessionSecret string
	SessionTTL    time.Duration

	// QuoteAPIURL selects a remote calculation service. Empty means the
	// in-process cost model.
	QuoteAPIURL     string
	QuoteRatePerSec float64

	VehicleAPIURL     string
	VehicleAPIKey     string
	VehicleRatePerSec float64
	RedisAddr         string
	RedisPassword     string
	VehicleCacheTTL   time.Duration

	NATSURL       string
	NotifySubject string

	Vendors            []string
	ClassifyTablesPath string

	// Warnings lists missing settings the server can run without.
	Warnings []string
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

// Load reads .env (if present) and the environment. Variables that are
// already set are never overwritten by the file.
func Load() (Config, error) {
	return loadFrom(".env")
}

func loadFrom(dotenvPath string) (Config, error) {
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", dotenvPath, err)
	}

	cfg := Config{
		Env:                getenv("APP_ENV", defaultEnv),
		Port:               getenv("PORT", defaultPort),
		DBPath:             getenv("DB_PATH", defaultDBPath),
		MigrationsDir:      getenv("MIGRATIONS_DIR", defaultMigrationsDir),
		AdminEmail:         os.Getenv("ADMIN_EMAIL"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		QuoteAPIURL:        os.Getenv("QUOTE_API_URL"),
		VehicleAPIURL:      os.Getenv("VEHICLE_API_URL"),
		VehicleAPIKey:      os.Getenv("VEHICLE_API_KEY"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		NATSURL:            os.Getenv("NATS_URL"),
		NotifySubject:      os.Getenv("NOTIFY_SUBJECT"),
		Vendors:            splitList(os.Getenv("VENDORS")),
		ClassifyTablesPath: os.Getenv("CLASSIFY_TABLES_PATH"),
	}

	var err error
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", defaultSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.VehicleCacheTTL, err = durationEnv("VEHICLE_CACHE_TTL", defaultVehicleCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.VehicleRatePerSec, err = floatEnv("VEHICLE_RATE_PER_SEC", defaultVehicleRate); err != nil {
		return Config{}, err
	}
	if cfg.QuoteRatePerSec, err = floatEnv("QUOTE_RATE_PER_SEC", defaultQuoteRate); err != nil {
		return Config{}, err
	}

	if cfg.AdminEmail == "" {
		cfg.Warnings = append(cfg.Warnings, "ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		cfg.Warnings = append(cfg.Warnings, "ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "SESSION_SECRET is not set")
	}
	if cfg.VehicleAPIURL == "" {
		cfg.Warnings = append(cfg.Warnings, "VEHICLE_API_URL is not set, using demo vehicles")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return d, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number, got %q", key, raw)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
