package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Catalog sources.
const (
	CatalogFromFile = "file"
	CatalogFromDB   = "db"
	CatalogFromS3   = "s3"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment

	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration. DBDriver is "postgres" or "sqlite".
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Redis configuration. An empty RedisURL and RedisHost disables the
	// parser cache and rate limiting.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Food catalog source
	CatalogSource string
	CatalogPath   string
	CatalogBucket string
	CatalogKey    string
	AWSRegion     string

	// Optimization
	SolverTimeout       time.Duration
	SolverMaxNodes      int
	MaxConcurrentSolves int

	// Constraint parser (OpenAI-compatible chat completions)
	ParserAPIKey   string
	ParserURL      string
	ParserModel    string
	ParserCacheTTL time.Duration

	LogLevel  string
	LogFormat string

	CORSOrigins        []string
	RateLimitPerMinute int
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	if env == Development {
		// A missing .env is fine; everything has a default or comes from secrets.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg, err := load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s configuration: %w", env, err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func load(env Environment) (*Config, error) {
	cfg := &Config{
		Environment: env,

		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getSecret(env, "db_user", "postgres"),
		DBPassword: getSecret(env, "db_password", ""),
		DBName:     getEnv("DB_NAME", "mealplanner"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "mealplanner.db"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getSecret(env, "redis_password", ""),
		RedisURL:      getSecret(env, "redis_url", ""),

		CatalogSource: getEnv("CATALOG_SOURCE", CatalogFromFile),
		CatalogPath:   getEnv("CATALOG_PATH", "food_data.csv"),
		CatalogBucket: getEnv("CATALOG_BUCKET", ""),
		CatalogKey:    getEnv("CATALOG_KEY", "food_data.csv"),
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),

		ParserAPIKey: getSecret(env, "parser_api_key", ""),
		ParserURL:    getEnv("PARSER_API_URL", "https://api.openai.com/v1/chat/completions"),
		ParserModel:  getEnv("PARSER_MODEL", "gpt-4o-mini"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.SolverTimeout, err = getDuration("SOLVER_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.SolverMaxNodes, err = getInt("SOLVER_MAX_NODES", 100000); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentSolves, err = getInt("MAX_CONCURRENT_SOLVES", 4); err != nil {
		return nil, err
	}
	if cfg.ParserCacheTTL, err = getDuration("PARSER_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 60); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListenAddr is the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// RedisEnabled reports whether a Redis server is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

func getEnv(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func getInt(name string, def int) (int, error) {
	v := getEnv(name, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", name, v)
	}
	return n, nil
}

func getDuration(name string, def time.Duration) (time.Duration, error) {
	v := getEnv(name, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", name, v)
	}
	return d, nil
}

// getSecret reads a secret from the secrets directory. Outside production
// the upper-cased environment variable is used as a fallback; CI only has
// environment variables.
func getSecret(env Environment, name, def string) string {
	if env != CI {
		if v := readSecret(name); v != "" {
			return v
		}
	}
	if env != Production {
		if v := getEnv(strings.ToUpper(name), ""); v != "" {
			return v
		}
	}
	return def
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
