package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/evn/grubana/internal/status"
)

type contextKey string

// UserIDKey holds the authenticated owner id in a request context.
const UserIDKey contextKey = "user_id"

// RoleKey holds the role claim of the authenticated caller.
const RoleKey contextKey = "role"

const (
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
)

// Config хранит все конфигурации приложения
type Config struct {
	ServerPort string
	JwtSecret  string
	LogLevel   string

	StorageBackend string
	DatabaseDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FirestoreProjectID    string
	GoogleCredentialsFile string

	GracePeriod time.Duration
	MaxSession  time.Duration
	Location    *time.Location

	// SweepTokenHash is a bcrypt hash; an empty value disables the cron endpoint.
	SweepTokenHash string
}

// NewConfig reads .env (when present) and the process environment.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	loc, err := loadLocation(getEnv("TRUCK_TIMEZONE", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:            getEnv("SERVER_PORT", "6066"),
		JwtSecret:             getEnv("JWT_SECRET", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		StorageBackend:        strings.ToLower(getEnv("STORAGE_BACKEND", BackendPostgres)),
		DatabaseDSN:           getEnv("DATABASE_DSN", "postgres://localhost:5432/grubana?sslmode=disable"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		FirestoreProjectID:    getEnv("FIRESTORE_PROJECT_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GracePeriod:           getEnvDuration("GRACE_PERIOD", status.DefaultGracePeriod),
		MaxSession:            getEnvDuration("MAX_SESSION", status.DefaultMaxSession),
		Location:              loc,
		SweepTokenHash:        getEnv("SWEEP_TOKEN_HASH", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendPostgres, BackendFirestore, BackendRedis:
	default:
		return fmt.Errorf("config: unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.StorageBackend == BackendFirestore && c.FirestoreProjectID == "" {
		return fmt.Errorf("config: FIRESTORE_PROJECT_ID is required for the firestore backend")
	}
	if c.JwtSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.GracePeriod <= 0 || c.MaxSession <= 0 {
		return fmt.Errorf("config: GRACE_PERIOD and MAX_SESSION must be positive")
	}
	return nil
}

// Policy returns the liveness windows configured for this process.
func (c *Config) Policy() status.Policy {
	return status.Policy{GracePeriod: c.GracePeriod, MaxSession: c.MaxSession}
}

// Now is the evaluation clock: server time in the trucks' zone.
func (c *Config) Now() time.Time {
	return time.Now().In(c.Location)
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: TRUCK_TIMEZONE: %w", err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("15m") and plain minutes ("15").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if m, err := strconv.Atoi(value); err == nil {
		return time.Duration(m) * time.Minute
	}
	return fallback
}
