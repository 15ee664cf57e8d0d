package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDBUser         = "postgres"
	defaultDBName         = "postgres"
	defaultDBPort         = "5432"
	defaultRequestTimeout = 10 * time.Second
)

// defaultProvinces covers the spellings the catalog uses for the target
// province across releases.
var defaultProvinces = []string{"a coruña", "la coruña", "coruña (a)"}

// Config holds environment-driven settings for the ingestion pipeline and
// the proximity query.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// GoogleAPIKey authorizes the place enrichment calls.
	GoogleAPIKey string

	// TargetProvinces is the normalized set of accepted province spellings.
	TargetProvinces []string

	RequestTimeout time.Duration
}

// Load reads configuration from environment variables (optionally .env).
// Missing required settings fail immediately with a named diagnostic.
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		DBPort:          defaultDBPort,
		DBUser:          defaultDBUser,
		DBName:          defaultDBName,
		TargetProvinces: defaultProvinces,
		RequestTimeout:  defaultRequestTimeout,
	}

	cfg.DBHost = strings.TrimSpace(os.Getenv("DB_HOST"))
	if cfg.DBHost == "" {
		return cfg, errors.New("DB_HOST is required")
	}

	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	if cfg.DBPassword == "" {
		return cfg, errors.New("DB_PASSWORD is required")
	}

	if v := strings.TrimSpace(os.Getenv("DB_PORT")); v != "" {
		cfg.DBPort = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_USER")); v != "" {
		cfg.DBUser = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_NAME")); v != "" {
		cfg.DBName = v
	}

	cfg.GoogleAPIKey = strings.TrimSpace(os.Getenv("API_KEY"))
	if cfg.GoogleAPIKey == "" {
		return cfg, errors.New("API_KEY is required")
	}

	if v := os.Getenv("TARGET_PROVINCES"); v != "" {
		provinces := splitCSV(v)
		if len(provinces) == 0 {
			return cfg, errors.New("TARGET_PROVINCES must list at least one province")
		}
		cfg.TargetProvinces = provinces
	}

	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	return cfg, nil
}

// DatabaseURL builds a pgx connection string from the discrete settings.
func (c Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBName)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
