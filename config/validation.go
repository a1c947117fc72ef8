package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in a configuration.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "\n")
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if port, err := strconv.Atoi(cfg.ServerPort); err != nil || port <= 0 || port > 65535 {
		add("SERVER_PORT", fmt.Sprintf("%q is not a valid port", cfg.ServerPort))
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" {
			add("DB_HOST", "required for postgres")
		}
		if cfg.DBName == "" {
			add("DB_NAME", "required for postgres")
		}
		if cfg.Environment == Production && cfg.DBPassword == "" {
			add("db_password", "secret is required in production")
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			add("SQLITE_PATH", "required for sqlite")
		}
	default:
		add("DB_DRIVER", fmt.Sprintf("unknown driver %q, want postgres or sqlite", cfg.DBDriver))
	}

	switch cfg.CatalogSource {
	case CatalogFromFile:
		if cfg.CatalogPath == "" {
			add("CATALOG_PATH", "required when CATALOG_SOURCE is file")
		}
	case CatalogFromDB:
	case CatalogFromS3:
		if cfg.CatalogBucket == "" {
			add("CATALOG_BUCKET", "required when CATALOG_SOURCE is s3")
		}
		if cfg.CatalogKey == "" {
			add("CATALOG_KEY", "required when CATALOG_SOURCE is s3")
		}
	default:
		add("CATALOG_SOURCE", fmt.Sprintf("unknown source %q, want file, db or s3", cfg.CatalogSource))
	}

	if cfg.SolverTimeout <= 0 {
		add("SOLVER_TIMEOUT", "must be positive")
	}
	if cfg.SolverMaxNodes < 0 {
		add("SOLVER_MAX_NODES", "must not be negative")
	}
	if cfg.MaxConcurrentSolves <= 0 {
		add("MAX_CONCURRENT_SOLVES", "must be positive")
	}
	if cfg.RateLimitPerMinute < 0 {
		add("RATE_LIMIT_PER_MINUTE", "must not be negative")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		add("LOG_FORMAT", fmt.Sprintf("unknown format %q, want json or text", cfg.LogFormat))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
