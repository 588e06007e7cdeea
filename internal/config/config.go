package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	GinMode  string
	HTTPAddr string
	LogLevel string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBDSN      string
	DBLogLevel string

	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	SessionSecret string
	SessionStore  string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	RateLimitBackend string

	UploadDir     string
	MaxUploadSize int64
	BlobBackend   string
	NATSURL       string
	NATSBucket    string

	CORSOrigins []string

	MailEnabled  bool
	MailServer   string
	MailPort     int
	MailUsername string
	MailPassword string
	MailFrom     string
	MailFromName string

	NotifyWorkers   int
	NotifyQueueSize int

	OpenAIAPIKey string
}

// Load reads configuration from the environment, loading .env first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		GinMode:  getEnv("GIN_MODE", "debug"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "taskmanager"),
		DBDSN:      getEnv("DB_DSN", ""),
		DBLogLevel: getEnv("DB_LOG_LEVEL", "warn"),

		JWTSecret:       getEnv("JWT_SECRET", "dev-secret-key-change-in-production"),
		JWTIssuer:       getEnv("JWT_ISSUER", "taskflow-api"),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		SessionStore:  getEnv("SESSION_STORE", "cookie"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		RateLimitBackend: getEnv("RATE_LIMIT_BACKEND", "memory"),

		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSize: getEnvInt64("MAX_UPLOAD_SIZE", 5*1024*1024),
		BlobBackend:   getEnv("BLOB_BACKEND", "disk"),
		NATSURL:       getEnv("NATS_URL", "nats://localhost:4222"),
		NATSBucket:    getEnv("NATS_BUCKET", "task-files"),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),

		MailEnabled:  getEnvBool("MAIL_ENABLED", false),
		MailServer:   getEnv("MAIL_SERVER", "localhost"),
		MailPort:     getEnvInt("MAIL_PORT", 587),
		MailUsername: getEnv("MAIL_USERNAME", ""),
		MailPassword: getEnv("MAIL_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "noreply@taskflow.local"),
		MailFromName: getEnv("MAIL_FROM_NAME", "TaskFlow"),

		NotifyWorkers:   getEnvInt("NOTIFY_WORKERS", 2),
		NotifyQueueSize: getEnvInt("NOTIFY_QUEUE_SIZE", 100),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
	}
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// RedisAddr returns host:port for the Redis server.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// Validate rejects settings that would fail later at runtime in a less obvious way.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.BlobBackend {
	case "disk", "nats":
	default:
		return fmt.Errorf("unsupported BLOB_BACKEND %q", c.BlobBackend)
	}
	switch c.SessionStore {
	case "cookie", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	switch c.RateLimitBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	if c.IsProduction() && c.JWTSecret == "dev-secret-key-change-in-production" {
		return fmt.Errorf("JWT_SECRET must be set in release mode")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		slog.Warn("invalid int value, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
		slog.Warn("invalid int64 value, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		slog.Warn("invalid bool value, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("invalid duration value, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
