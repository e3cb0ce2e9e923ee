package config

import (
	"encoding/base64"
	"fmt"
	"os"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	JWTSecret  string
	HMACSecret string

	// PANKey is the decoded AES key used to encrypt card numbers at rest.
	PANKey []byte

	// SMTP settings for card notifications. Optional: when SMTPHost is
	// empty, notifications are disabled.
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=bankcards sslmode=disable"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		HMACSecret:   getEnv("HMAC_SECRET", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "noreply@bankcards.local"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}

	key, err := loadPANKey()
	if err != nil {
		return nil, err
	}
	cfg.PANKey = key

	return cfg, nil
}

// loadPANKey reads and validates the card number encryption key. A missing or
// malformed key is a startup failure, never a per-request one.
func loadPANKey() ([]byte, error) {
	keyB64 := os.Getenv("PAN_ENCRYPTION_KEY_BASE64")
	if keyB64 == "" {
		return nil, fmt.Errorf("PAN_ENCRYPTION_KEY_BASE64 is required")
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PAN_ENCRYPTION_KEY_BASE64: %w", err)
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("PAN encryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
