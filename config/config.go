// ABOUTME: This file handles configuration management for the Cafe24 admin service
// ABOUTME: Loads CAFE24_* environment variables and validates OAuth client settings

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"cafe24-admin/models"
)

// Config holds all configuration for the Cafe24 admin service
type Config struct {
	// Service configuration
	ServiceName string
	LogLevel    string
	HTTPPort    string

	// Cafe24 API configuration
	Cafe24 Cafe24Config

	// Token lifecycle configuration
	Token TokenConfig
}

// Cafe24Config holds upstream Admin API settings
type Cafe24Config struct {
	MerchantID   string
	ClientID     string
	ClientSecret string
	APIVersion   string
	// BaseURLOverride replaces the merchant-derived base URL, mainly for
	// pointing tests and staging at a stub server.
	BaseURLOverride string
	RequestTimeout  time.Duration
	RetryCount      int
}

// TokenConfig holds token persistence and refresh settings
type TokenConfig struct {
	// Seed tokens used when the credential file is absent.
	AccessToken  string
	RefreshToken string

	FilePath             string
	RefreshCheckInterval time.Duration
	RefreshMargin        time.Duration
}

// LoadConfig loads configuration from environment variables. A local .env
// file is honoured when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: getEnvOrDefault("SERVICE_NAME", "cafe24-admin"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort:    getEnvOrDefault("HTTP_PORT", "8080"),

		Cafe24: Cafe24Config{
			MerchantID:      os.Getenv("CAFE24_MERCHANT_ID"),
			ClientID:        os.Getenv("CAFE24_CLIENT_ID"),
			ClientSecret:    os.Getenv("CAFE24_CLIENT_SECRET"),
			APIVersion:      getEnvOrDefault("CAFE24_API_VERSION", "2025-06-01"),
			BaseURLOverride: os.Getenv("CAFE24_BASE_URL"),
			RequestTimeout:  secondsEnv("CAFE24_REQUEST_TIMEOUT_S", 30),
			RetryCount:      intEnv("CAFE24_RETRY_COUNT", 3),
		},

		Token: TokenConfig{
			AccessToken:          os.Getenv("CAFE24_ACCESS_TOKEN"),
			RefreshToken:         os.Getenv("CAFE24_REFRESH_TOKEN"),
			FilePath:             getEnvOrDefault("CAFE24_TOKEN_FILE", "./oauth_token.json"),
			RefreshCheckInterval: secondsEnv("CAFE24_REFRESH_CHECK_INTERVAL_S", 1800),
			RefreshMargin:        secondsEnv("CAFE24_REFRESH_MARGIN_S", 300),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Cafe24.MerchantID == "" {
		return fmt.Errorf("CAFE24_MERCHANT_ID is required")
	}

	if c.Cafe24.ClientID == "" {
		return fmt.Errorf("CAFE24_CLIENT_ID is required")
	}

	if c.Cafe24.ClientSecret == "" {
		return fmt.Errorf("CAFE24_CLIENT_SECRET is required")
	}

	if c.Cafe24.RetryCount < 0 {
		return fmt.Errorf("CAFE24_RETRY_COUNT must not be negative")
	}

	return nil
}

// BaseURL returns the mall origin, derived from the merchant id unless
// explicitly overridden. The transport appends the /api/v2 prefix and the
// OAuth driver its token endpoint path; neither belongs here.
func (c *Cafe24Config) BaseURL() string {
	if c.BaseURLOverride != "" {
		return c.BaseURLOverride
	}
	return fmt.Sprintf("https://%s.cafe24api.com", c.MerchantID)
}

// TokenEndpointURL returns the OAuth token endpoint for refresh exchanges.
func (c *Cafe24Config) TokenEndpointURL() string {
	return c.BaseURL()
}

// SeedRecord builds a credential record from environment-supplied tokens,
// used when no credential file exists yet. Expiry instants are unknown at
// seed time, so the access token is treated as freshly issued.
func (c *Config) SeedRecord(now time.Time) *models.TokenRecord {
	if c.Token.AccessToken == "" || c.Token.RefreshToken == "" {
		return nil
	}
	return &models.TokenRecord{
		MallID:                c.Cafe24.MerchantID,
		ClientID:              c.Cafe24.ClientID,
		ClientSecret:          models.Secret(c.Cafe24.ClientSecret),
		AccessToken:           models.Secret(c.Token.AccessToken),
		RefreshToken:          models.Secret(c.Token.RefreshToken),
		IssuedAt:              now,
		ExpiresAt:             now.Add(models.DefaultAccessTokenTTL),
		RefreshTokenExpiresAt: now.Add(models.DefaultRefreshTokenTTL),
		APIVersion:            c.Cafe24.APIVersion,
		ShopNo:                "1",
	}
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// intEnv parses an integer environment variable, falling back on parse errors
func intEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// secondsEnv parses a seconds-valued environment variable into a duration
func secondsEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(intEnv(key, defaultSeconds)) * time.Second
}
