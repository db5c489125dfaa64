package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Fixed public source endpoints. They can be overridden through the
// environment for testing, but production runs always use these.
const (
	DefaultCDCCovidURL     = "https://covid.cdc.gov/covid-data-tracker/#maps_positivity-4-week"
	DefaultCDCRSVURL       = "https://data.cdc.gov/api/views/29hc-w46k/rows.csv?accessType=DOWNLOAD"
	DefaultWorldometersURL = "https://www.worldometers.info/coronavirus/country/us/"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Upstream sources
	Sources SourcesConfig

	// Outbound HTTP
	HTTP HTTPConfig

	// Heatmap output
	Heatmap HeatmapConfig

	// Local language model for the chat relay
	Ollama OllamaConfig

	// Cron expression for the scheduled ingestion job (with seconds)
	IngestSchedule string

	// Optional YAML file overriding the built-in centroid and disease table
	ReferenceFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds the metric store configuration.
// URL selects the backend: sqlite://path, file:path or a bare path opens a
// local SQLite file, postgres:// or postgresql:// opens PostgreSQL.
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// SourcesConfig holds the upstream URLs and page rendering settings
type SourcesConfig struct {
	CDCCovidURL     string
	CDCRSVURL       string
	WorldometersURL string

	// RenderMode is browser (local headless Chrome), service (POST to
	// RenderURL) or direct (plain GET). Empty means service when RenderURL
	// is set, browser otherwise.
	RenderMode string
	RenderURL  string
	RenderWait time.Duration

	// BrowserPath overrides the Chrome/Chromium executable; empty searches PATH
	BrowserPath string
}

// Render modes
const (
	RenderBrowser = "browser"
	RenderService = "service"
	RenderDirect  = "direct"
)

// HTTPConfig holds outbound HTTP client settings
type HTTPConfig struct {
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	RatePerSecond float64
	UserAgent     string
}

// HeatmapConfig holds heatmap rendering settings
type HeatmapConfig struct {
	OutputDir string
}

// OllamaConfig holds the chat relay settings
type OllamaConfig struct {
	URL   string
	Model string
}

// Load reads configuration from environment variables
// ⭐ SSOT: only this function (through its helpers) calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", "sqlite://health_data.db"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 4),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Sources: SourcesConfig{
			CDCCovidURL:     getEnv("CDC_COVID_URL", DefaultCDCCovidURL),
			CDCRSVURL:       getEnv("CDC_RSV_URL", DefaultCDCRSVURL),
			WorldometersURL: getEnv("WORLDOMETERS_URL", DefaultWorldometersURL),
			RenderMode:      strings.ToLower(getEnv("RENDER_MODE", "")),
			RenderURL:       getEnv("RENDER_URL", ""),
			RenderWait:      getEnvAsDuration("RENDER_WAIT", "3s"),
			BrowserPath:     getEnv("BROWSER_PATH", ""),
		},

		HTTP: HTTPConfig{
			Timeout:       getEnvAsDuration("HTTP_TIMEOUT", "30s"),
			MaxRetries:    getEnvAsInt("HTTP_MAX_RETRIES", 2),
			RetryDelay:    getEnvAsDuration("HTTP_RETRY_DELAY", "1s"),
			RatePerSecond: getEnvAsFloat("SOURCE_RATE_PER_SEC", 2),
			UserAgent:     getEnv("HTTP_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 healthdash"),
		},

		Heatmap: HeatmapConfig{
			OutputDir: getEnv("HEATMAP_DIR", "."),
		},

		Ollama: OllamaConfig{
			URL:   getEnv("OLLAMA_URL", "http://localhost:11434"),
			Model: getEnv("OLLAMA_MODEL", "gemma3:1b"),
		},

		IngestSchedule: getEnv("INGEST_SCHEDULE", "0 0 */6 * * *"),
		ReferenceFile:  getEnv("REFERENCE_FILE", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("HTTP_MAX_RETRIES must not be negative")
	}

	if c.HTTP.RetryDelay <= 0 {
		return fmt.Errorf("HTTP_RETRY_DELAY must be positive")
	}

	switch c.Sources.RenderMode {
	case "", RenderBrowser, RenderDirect:
	case RenderService:
		if c.Sources.RenderURL == "" {
			return fmt.Errorf("RENDER_MODE=service requires RENDER_URL")
		}
	default:
		return fmt.Errorf("invalid RENDER_MODE: %s (must be browser, service or direct)", c.Sources.RenderMode)
	}

	if c.HTTP.RatePerSecond <= 0 {
		return fmt.Errorf("SOURCE_RATE_PER_SEC must be positive")
	}

	if strings.TrimSpace(c.Heatmap.OutputDir) == "" {
		return fmt.Errorf("HEATMAP_DIR must not be empty")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
