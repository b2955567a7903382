package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Queue        QueueConfig
	Classifier   ClassifierConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// QueueConfig tunes the classification job queue. RetryDelaySeconds is the
// base of the exponential backoff schedule; JobExpirySeconds is the window
// after which a delivered job is abandoned instead of processed.
type QueueConfig struct {
	Name                   string
	MaxAttempts            int
	RetryDelaySeconds      int
	JobExpirySeconds       int
	FailedRetentionSeconds int
	StalledAfterSeconds    int
}

// ClassifierConfig selects and configures the classification provider.
type ClassifierConfig struct {
	Provider       string
	APIKey         string
	Model          string
	BaseURL        string
	TimeoutSeconds int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-triage"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Queue: QueueConfig{
			Name:                   getEnv("QUEUE_NAME", "ticket-tasks"),
			MaxAttempts:            getEnvAsInt("QUEUE_MAX_ATTEMPTS", 999),
			RetryDelaySeconds:      getEnvAsInt("REDIS_JOB_FAILED_DELAY", 5),
			JobExpirySeconds:       getEnvAsInt("REDIS_JOB_FAILED_EXPIRY_TIME", 300),
			FailedRetentionSeconds: getEnvAsInt("QUEUE_FAILED_RETENTION_SECONDS", 10),
			StalledAfterSeconds:    getEnvAsInt("QUEUE_STALLED_AFTER_SECONDS", 30),
		},
		Classifier: ClassifierConfig{
			Provider:       getEnv("LLM_PROVIDER", "GEMINI"),
			APIKey:         os.Getenv("LLM_API_KEY"),
			Model:          getEnv("LLM_MODEL", ""),
			BaseURL:        getEnv("LLM_BASE_URL", ""),
			TimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 60),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RetryDelay returns the base backoff delay between retries.
func (q QueueConfig) RetryDelay() time.Duration {
	return time.Duration(q.RetryDelaySeconds) * time.Second
}

// JobExpiry returns the abandonment window for stale jobs.
func (q QueueConfig) JobExpiry() time.Duration {
	return time.Duration(q.JobExpirySeconds) * time.Second
}

// FailedRetention returns how long exhausted jobs are kept for inspection.
func (q QueueConfig) FailedRetention() time.Duration {
	return time.Duration(q.FailedRetentionSeconds) * time.Second
}

// StalledAfter returns the claim lease before an active job is requeued.
func (q QueueConfig) StalledAfter() time.Duration {
	return time.Duration(q.StalledAfterSeconds) * time.Second
}

// Timeout returns the provider round-trip timeout.
func (c ClassifierConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
