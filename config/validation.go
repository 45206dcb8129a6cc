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

// ValidationErrors collects every problem found in one pass
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "\n")
}

// devJWTSecret is only accepted in development and test
const devJWTSecret = "resepia-dev-secret"

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if _, err := strconv.Atoi(cfg.ServerPort); err != nil {
		add("SERVER_PORT", "must be a number")
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" {
			add("DB_HOST", "is required for postgres")
		}
		if cfg.DBName == "" {
			add("DB_NAME", "is required for postgres")
		}
	case "sqlite":
		if cfg.Environment.IsProduction() {
			add("DB_DRIVER", "sqlite is not allowed in production")
		}
		if cfg.DBPath == "" {
			add("DB_PATH", "is required for sqlite")
		}
	default:
		add("DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.DBDriver))
	}

	if cfg.JWTSecret == "" {
		if cfg.Environment.IsLocal() {
			cfg.JWTSecret = devJWTSecret
		} else {
			add("JWT_SECRET", "is required (env var or jwt_secret secret)")
		}
	}

	switch cfg.Environment {
	case CI:
		// In CI, sensitive values must come from environment variables
		if cfg.DBDriver == "postgres" && cfg.DBPassword == "" {
			add("DB_PASSWORD", "environment variable is required in CI environment")
		}
	case Production:
		if cfg.DBPassword == "" {
			add("DB_PASSWORD", "db_password secret is required")
		}
		if cfg.JWTSecret == devJWTSecret {
			add("JWT_SECRET", "development secret must not be used in production")
		}
		if !cfg.RedisEnabled() {
			add("REDIS_URL", "redis is required in production")
		}
	}

	if cfg.JWTExpiration <= 0 {
		add("JWT_EXPIRATION", "must be positive")
	}
	if cfg.ImageMaxBytes <= 0 {
		add("IMAGE_MAX_BYTES", "must be positive")
	}
	if cfg.AssistantTemperature < 0 || cfg.AssistantTemperature > 2 {
		add("ASSISTANT_TEMPERATURE", "must be between 0 and 2")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
