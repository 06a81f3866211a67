package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Session  SessionConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	TrustedProxies []string // CIDR ranges allowed to set forwarding headers
}

type AuthConfig struct {
	LockoutThreshold    int
	LockoutWindow       time.Duration
	MinAttemptInterval  time.Duration
	AttemptRetention    time.Duration
	TimingDelayBaseMs   int
	TimingDelayRandomMs int
}

type SessionConfig struct {
	CookieName string
	HashKey    []byte
	BlockKey   []byte // optional; enables cookie encryption when 32 bytes
	TTL        time.Duration
	Secure     bool
}

type EmailConfig struct {
	Enabled          bool
	AWSRegion        string
	FromAddress      string
	ContactRecipient string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	hashKey := getEnv("SESSION_HASH_KEY", "")
	if hashKey == "" {
		return nil, fmt.Errorf("SESSION_HASH_KEY is required")
	}
	if err := validateSessionKey(hashKey, env); err != nil {
		return nil, err
	}

	var blockKey []byte
	if blockKeyHex := getEnv("SESSION_BLOCK_KEY", ""); blockKeyHex != "" {
		decoded, err := hex.DecodeString(blockKeyHex)
		if err != nil || len(decoded) != 32 {
			return nil, fmt.Errorf("SESSION_BLOCK_KEY must be 32 hex-encoded bytes")
		}
		blockKey = decoded
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "schoolgate"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			TrustedProxies: getEnvAsSlice("TRUSTED_PROXIES"),
		},
		Auth: AuthConfig{
			LockoutThreshold:    getEnvAsInt("AUTH_LOCKOUT_THRESHOLD", 5),
			LockoutWindow:       getEnvAsDuration("AUTH_LOCKOUT_WINDOW", 15*time.Second),
			MinAttemptInterval:  getEnvAsDuration("AUTH_MIN_ATTEMPT_INTERVAL", 2*time.Second),
			AttemptRetention:    getEnvAsDuration("AUTH_ATTEMPT_RETENTION", 24*time.Hour),
			TimingDelayBaseMs:   getEnvAsInt("AUTH_TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs: getEnvAsInt("AUTH_TIMING_DELAY_RANDOM_MS", 50),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "schoolgate_session"),
			HashKey:    []byte(hashKey),
			BlockKey:   blockKey,
			TTL:        getEnvAsDuration("SESSION_TTL", 12*time.Hour),
			Secure:     env == "production",
		},
		Email: EmailConfig{
			Enabled:          getEnvAsBool("EMAIL_ENABLED", false),
			AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
			FromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
			ContactRecipient: getEnv("EMAIL_CONTACT_RECIPIENT", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Email.Enabled && (cfg.Email.FromAddress == "" || cfg.Email.ContactRecipient == "") {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS and EMAIL_CONTACT_RECIPIENT are required when EMAIL_ENABLED=true")
	}

	return cfg, nil
}

// validateSessionKey enforces minimum security standards for the cookie
// signing key
func validateSessionKey(key, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger key (256 bits)
	}

	if len(key) < minLength {
		return fmt.Errorf("SESSION_HASH_KEY must be at least %d characters in %s environment (got %d)",
			minLength, env, len(key))
	}

	weakKeys := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	keyLower := strings.ToLower(key)
	for _, weak := range weakKeys {
		if keyLower == weak {
			return fmt.Errorf("SESSION_HASH_KEY cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
