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
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	CBS        CBSConfig
	Automation AutomationConfig
	Scheduler  SchedulerConfig
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

// AuthConfig defines actor-token parameters. Tokens carry an opaque actor
// identity; authorization decisions happen upstream of this service.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	CallbackTokenHash     string
}

// CBSConfig points at the core banking system read gateway.
type CBSConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// AutomationConfig points at the RPA orchestrator that applies corrections
// in the CBS.
type AutomationConfig struct {
	BaseURL        string
	APIKey         string
	CallbackURL    string
	TimeoutSeconds int
	SystemUserID   string
}

// SchedulerConfig controls the periodic sweeps.
type SchedulerConfig struct {
	SLASweepMinutes  int
	KPIIntervalHours int
	KPIMaxAgeDays    int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "dataquality-service"),
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
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			CallbackTokenHash:     os.Getenv("AUTOMATION_CALLBACK_TOKEN_HASH"),
		},
		CBS: CBSConfig{
			BaseURL:        getEnv("CBS_BASE_URL", "http://127.0.0.1:9090"),
			APIKey:         os.Getenv("CBS_API_KEY"),
			TimeoutSeconds: getEnvAsInt("CBS_TIMEOUT_SECONDS", 10),
		},
		Automation: AutomationConfig{
			BaseURL:        getEnv("AUTOMATION_BASE_URL", ""),
			APIKey:         os.Getenv("AUTOMATION_API_KEY"),
			CallbackURL:    getEnv("AUTOMATION_CALLBACK_URL", ""),
			TimeoutSeconds: getEnvAsInt("AUTOMATION_TIMEOUT_SECONDS", 15),
			SystemUserID:   getEnv("AUTOMATION_SYSTEM_USER_ID", "system"),
		},
		Scheduler: SchedulerConfig{
			SLASweepMinutes:  getEnvAsInt("SLA_SWEEP_MINUTES", 15),
			KPIIntervalHours: getEnvAsInt("KPI_INTERVAL_HOURS", 24),
			KPIMaxAgeDays:    getEnvAsInt("KPI_MAX_AGE_DAYS", 1),
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

// Timeout returns the CBS read timeout.
func (c CBSConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the automation call timeout.
func (a AutomationConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
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
