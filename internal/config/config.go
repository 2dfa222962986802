package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Bot      BotConfig
	Intake   IntakeConfig
	Dispatch DispatchConfig
	Jobs     JobsConfig
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

// AuthConfig defines the administrative account and token parameters.
type AuthConfig struct {
	AdminUsername         string
	AdminPasswordHash     string
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// BotConfig configures the chat side of the process.
type BotConfig struct {
	AdminChatIDs []int64
	WorkerShards int
}

// IntakeConfig holds conversation policy knobs. RequireContact and
// SubmitWindow are deployment policy, not hard-coded behavior.
type IntakeConfig struct {
	SessionTTLMinutes  int
	RequireContact     bool
	SubmitWindowHours  int
	SubmitLimitEnabled bool
}

// DispatchConfig sizes the notification bridge.
type DispatchConfig struct {
	QueueSize              int
	BroadcastWaitSeconds   int
	SendRetryAttempts      int
	SendRetryBackoffMillis int
}

// JobsConfig drives the cron schedule.
type JobsConfig struct {
	EvictionSpec     string
	PendingDigest    string
	PendingAgeHours  int
	DigestBatchLimit int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	adminChatIDs, err := parseChatIDs(os.Getenv("BOT_ADMIN_CHAT_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOT_ADMIN_CHAT_IDS: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "service-order-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			AdminUsername:         getEnv("ADMIN_USERNAME", "admin"),
			AdminPasswordHash:     os.Getenv("ADMIN_PASSWORD_HASH"),
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Bot: BotConfig{
			AdminChatIDs: adminChatIDs,
			WorkerShards: getEnvAsInt("BOT_WORKER_SHARDS", 4),
		},
		Intake: IntakeConfig{
			SessionTTLMinutes:  getEnvAsInt("INTAKE_SESSION_TTL_MINUTES", 30),
			RequireContact:     getEnvAsBool("INTAKE_REQUIRE_CONTACT", true),
			SubmitWindowHours:  getEnvAsInt("INTAKE_SUBMIT_WINDOW_HOURS", 24),
			SubmitLimitEnabled: getEnvAsBool("INTAKE_SUBMIT_LIMIT_ENABLED", false),
		},
		Dispatch: DispatchConfig{
			QueueSize:              getEnvAsInt("DISPATCH_QUEUE_SIZE", 256),
			BroadcastWaitSeconds:   getEnvAsInt("DISPATCH_BROADCAST_WAIT_SECONDS", 10),
			SendRetryAttempts:      getEnvAsInt("DISPATCH_SEND_RETRY_ATTEMPTS", 2),
			SendRetryBackoffMillis: getEnvAsInt("DISPATCH_SEND_RETRY_BACKOFF_MS", 250),
		},
		Jobs: JobsConfig{
			EvictionSpec:     getEnv("JOBS_EVICTION_SPEC", "@every 1m"),
			PendingDigest:    getEnv("JOBS_PENDING_DIGEST_SPEC", "0 9 * * *"),
			PendingAgeHours:  getEnvAsInt("JOBS_PENDING_AGE_HOURS", 48),
			DigestBatchLimit: getEnvAsInt("JOBS_DIGEST_BATCH_LIMIT", 20),
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

// SessionTTL returns the staleness timeout for intake sessions.
func (i IntakeConfig) SessionTTL() time.Duration {
	if i.SessionTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(i.SessionTTLMinutes) * time.Minute
}

// SubmitWindow returns the duplicate-submission window.
func (i IntakeConfig) SubmitWindow() time.Duration {
	if i.SubmitWindowHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(i.SubmitWindowHours) * time.Hour
}

// BroadcastWait bounds how long the admin surface waits for a tally.
func (d DispatchConfig) BroadcastWait() time.Duration {
	if d.BroadcastWaitSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(d.BroadcastWaitSeconds) * time.Second
}

// SendRetryBackoff returns the pause between bounded send retries.
func (d DispatchConfig) SendRetryBackoff() time.Duration {
	if d.SendRetryBackoffMillis <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(d.SendRetryBackoffMillis) * time.Millisecond
}

// PendingAge returns how old a still-new order must be to appear in the digest.
func (j JobsConfig) PendingAge() time.Duration {
	if j.PendingAgeHours <= 0 {
		return 48 * time.Hour
	}
	return time.Duration(j.PendingAgeHours) * time.Hour
}

func parseChatIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
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
