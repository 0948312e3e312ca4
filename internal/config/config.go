package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port             string
	DBConn           string
	LocalDBPath      string
	LogLevel         string
	JWTSecret        string
	Environment      string
	ClientName       string
	ProviderURL      string
	ProviderClientID string
	ProviderSecret   string
	SMTPHost         string
	SMTPPort         string
	SMTPUsername     string
	SMTPPassword     string
	SenderEmail      string
	AlertEmail       string
}

// NewConfig loads configuration from environment variables. A local .env
// file is applied first when present.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DBConn:           getEnv("DB_CONN", "host=localhost port=5432 user=finance password=finance dbname=finance sslmode=disable"),
		LocalDBPath:      getEnv("LOCAL_DB_PATH", "gateway.db"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		Environment:      getEnv("ENVIRONMENT", "production"),
		ClientName:       getEnv("CLIENT_NAME", "Finance Gateway"),
		ProviderURL:      getEnv("PROVIDER_URL", "https://sandbox.provider.example.com"),
		ProviderClientID: getEnv("PROVIDER_CLIENT_ID", ""),
		ProviderSecret:   getEnv("PROVIDER_SECRET", ""),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnv("SMTP_PORT", "587"),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SenderEmail:      getEnv("SENDER_EMAIL", "alerts@finance-gateway.local"),
		AlertEmail:       getEnv("ALERT_EMAIL", ""),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.ProviderURL == "" {
		return nil, fmt.Errorf("PROVIDER_URL is required")
	}

	return cfg, nil
}

// IsDevelopment reports whether the development/test overrides (future
// transaction dates) are enabled.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "test"
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
