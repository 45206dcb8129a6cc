package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment

	// Server configuration
	ServerPort      string
	ServerHost      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	// Database configuration
	DBDriver          string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBPath            string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration
	JWTSecret     string
	JWTExpiration time.Duration

	// Object storage
	S3BucketName       string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Endpoint         string
	S3UsePathStyle     bool
	ImageMaxBytes      int64

	// Assistant
	OpenAIAPIKey         string
	OpenAIAPIURL         string
	OpenAIModel          string
	AssistantMaxTokens   int
	AssistantTemperature float64
	AssistantRPS         float64

	// Email
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	EmailFrom     string
	EmailFromName string

	// Logging
	LogLevel  string
	LogFormat string
}

// secretKeys are values that fall back to Docker secrets when unset
var secretKeys = []string{
	"db_user",
	"db_password",
	"jwt_secret",
	"redis_password",
	"redis_url",
	"openai_api_key",
	"smtp_username",
	"smtp_password",
	"aws_access_key_id",
	"aws_secret_access_key",
}

// LoadConfig builds a Config from defaults, an optional config file,
// environment variables and Docker secrets, in increasing priority except
// for secrets which only fill values left empty.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && os.Getenv("CONFIG_FILE") != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for _, key := range secretKeys {
		if v.GetString(key) == "" {
			if value := readSecret(key); value != "" {
				v.Set(key, value)
			}
		}
	}
	if v.GetString("openai_api_key") == "" {
		if path := os.Getenv("OPENAI_API_KEY_FILE"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read API key file: %w", err)
			}
			v.Set("openai_api_key", strings.TrimSpace(string(data)))
		}
	}

	cfg := fromViper(v)
	cfg.Environment = GetEnvironment()

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_read_timeout", "15s")
	v.SetDefault("server_write_timeout", "30s")
	v.SetDefault("server_shutdown_timeout", "10s")
	v.SetDefault("allowed_origins", "http://localhost:3000,http://localhost:5173")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "resepia")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("db_path", "resepia.db")
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 25)
	v.SetDefault("db_conn_max_lifetime", "5m")

	v.SetDefault("redis_host", "")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_url", "")

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_expiration", "24h")

	v.SetDefault("s3_bucket_name", "recipe-images")
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("aws_access_key_id", "")
	v.SetDefault("aws_secret_access_key", "")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_use_path_style", false)
	v.SetDefault("image_max_bytes", 5<<20)

	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_api_url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("openai_model", "gpt-4-turbo-preview")
	v.SetDefault("assistant_max_tokens", 500)
	v.SetDefault("assistant_temperature", 0.7)
	v.SetDefault("assistant_rps", 2.0)

	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("email_from", "no-reply@resepia.app")
	v.SetDefault("email_from_name", "Resepia")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		ServerPort:      v.GetString("server_port"),
		ServerHost:      v.GetString("server_host"),
		ReadTimeout:     v.GetDuration("server_read_timeout"),
		WriteTimeout:    v.GetDuration("server_write_timeout"),
		ShutdownTimeout: v.GetDuration("server_shutdown_timeout"),
		AllowedOrigins:  splitList(v.GetString("allowed_origins")),

		DBDriver:          strings.ToLower(v.GetString("db_driver")),
		DBHost:            v.GetString("db_host"),
		DBPort:            v.GetString("db_port"),
		DBUser:            v.GetString("db_user"),
		DBPassword:        v.GetString("db_password"),
		DBName:            v.GetString("db_name"),
		DBSSLMode:         v.GetString("db_ssl_mode"),
		DBPath:            v.GetString("db_path"),
		DBMaxOpenConns:    v.GetInt("db_max_open_conns"),
		DBMaxIdleConns:    v.GetInt("db_max_idle_conns"),
		DBConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),

		RedisHost:     v.GetString("redis_host"),
		RedisPort:     v.GetString("redis_port"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		RedisURL:      v.GetString("redis_url"),

		JWTSecret:     v.GetString("jwt_secret"),
		JWTExpiration: v.GetDuration("jwt_expiration"),

		S3BucketName:       v.GetString("s3_bucket_name"),
		AWSRegion:          v.GetString("aws_region"),
		AWSAccessKeyID:     v.GetString("aws_access_key_id"),
		AWSSecretAccessKey: v.GetString("aws_secret_access_key"),
		S3Endpoint:         v.GetString("s3_endpoint"),
		S3UsePathStyle:     v.GetBool("s3_use_path_style"),
		ImageMaxBytes:      v.GetInt64("image_max_bytes"),

		OpenAIAPIKey:         v.GetString("openai_api_key"),
		OpenAIAPIURL:         v.GetString("openai_api_url"),
		OpenAIModel:          v.GetString("openai_model"),
		AssistantMaxTokens:   v.GetInt("assistant_max_tokens"),
		AssistantTemperature: v.GetFloat64("assistant_temperature"),
		AssistantRPS:         v.GetFloat64("assistant_rps"),

		SMTPHost:      v.GetString("smtp_host"),
		SMTPPort:      v.GetInt("smtp_port"),
		SMTPUsername:  v.GetString("smtp_username"),
		SMTPPassword:  v.GetString("smtp_password"),
		EmailFrom:     v.GetString("email_from"),
		EmailFromName: v.GetString("email_from_name"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}
}

// RedisEnabled reports whether a Redis endpoint is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

// S3Enabled reports whether recipe images can be uploaded
func (c *Config) S3Enabled() bool {
	return c.S3BucketName != "" && c.AWSRegion != ""
}

// PostgresDSN returns the connection string used by the gorm postgres driver
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// PostgresURL returns the URL form used by database/sql and golang-migrate
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
