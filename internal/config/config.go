package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	Auth   AuthConfig
	MFA    MFAConfig
	SMS    SMSConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

type MFAConfig struct {
	Issuer            string
	TOTPMaxAttempts   int
	SMSMaxAttempts    int
	BackupMaxAttempts int
	SMSDailyCap       int
	DefaultDailyCap   int
	ShortWindow       time.Duration
	DailyWindow       time.Duration
	BackupCodeCount   int
	BackupCodeLength  int
}

type SMSConfig struct {
	Region       string
	SenderID     string
	CodeTTL      time.Duration
	ResendWindow time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Env:      env,
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:   jwtSecret,
			TokenExpiry: getEnvAsDuration("TOKEN_EXPIRY", 15*time.Minute),
		},
		MFA: MFAConfig{
			Issuer:            getEnv("MFA_ISSUER", "Roamly"),
			TOTPMaxAttempts:   getEnvAsInt("MFA_TOTP_MAX_ATTEMPTS", 3),
			SMSMaxAttempts:    getEnvAsInt("MFA_SMS_MAX_ATTEMPTS", 3),
			BackupMaxAttempts: getEnvAsInt("MFA_BACKUP_MAX_ATTEMPTS", 1),
			SMSDailyCap:       getEnvAsInt("MFA_SMS_DAILY_CAP", 10),
			DefaultDailyCap:   getEnvAsInt("MFA_DEFAULT_DAILY_CAP", 20),
			ShortWindow:       getEnvAsDuration("MFA_SHORT_WINDOW", time.Hour),
			DailyWindow:       getEnvAsDuration("MFA_DAILY_WINDOW", 24*time.Hour),
			BackupCodeCount:   getEnvAsInt("MFA_BACKUP_CODE_COUNT", 10),
			BackupCodeLength:  getEnvAsInt("MFA_BACKUP_CODE_LENGTH", 8),
		},
		SMS: SMSConfig{
			Region:       getEnv("AWS_REGION", "us-east-1"),
			SenderID:     getEnv("SMS_SENDER_ID", "Roamly"),
			CodeTTL:      getEnvAsDuration("SMS_CODE_TTL", 5*time.Minute),
			ResendWindow: getEnvAsDuration("SMS_RESEND_WINDOW", 60*time.Second),
		},
	}

	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
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

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
