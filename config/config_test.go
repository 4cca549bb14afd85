// ABOUTME: This file tests configuration loading, validation and derived URLs
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe24-admin/models"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CAFE24_MERCHANT_ID", "demoshop")
	t.Setenv("CAFE24_CLIENT_ID", "client-id")
	t.Setenv("CAFE24_CLIENT_SECRET", "client-secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "cafe24-admin", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "2025-06-01", cfg.Cafe24.APIVersion)
	assert.Equal(t, 30*time.Second, cfg.Cafe24.RequestTimeout)
	assert.Equal(t, 3, cfg.Cafe24.RetryCount)
	assert.Equal(t, 30*time.Minute, cfg.Token.RefreshCheckInterval)
	assert.Equal(t, 5*time.Minute, cfg.Token.RefreshMargin)
	assert.Equal(t, "./oauth_token.json", cfg.Token.FilePath)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CAFE24_REQUEST_TIMEOUT_S", "10")
	t.Setenv("CAFE24_RETRY_COUNT", "1")
	t.Setenv("CAFE24_REFRESH_MARGIN_S", "600")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.Cafe24.RequestTimeout)
	assert.Equal(t, 1, cfg.Cafe24.RetryCount)
	assert.Equal(t, 10*time.Minute, cfg.Token.RefreshMargin)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	tests := map[string]string{
		"missing merchant id":   "CAFE24_MERCHANT_ID",
		"missing client id":     "CAFE24_CLIENT_ID",
		"missing client secret": "CAFE24_CLIENT_SECRET",
	}

	for name, unset := range tests {
		t.Run(name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(unset, "")

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), unset)
		})
	}
}

func TestCafe24Config_BaseURL(t *testing.T) {
	cfg := Cafe24Config{MerchantID: "demoshop"}
	assert.Equal(t, "https://demoshop.cafe24api.com", cfg.BaseURL())

	cfg.BaseURLOverride = "http://127.0.0.1:9999"
	assert.Equal(t, "http://127.0.0.1:9999", cfg.BaseURL())
}

func TestConfig_SeedRecord(t *testing.T) {
	setRequiredEnv(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg.SeedRecord(now), "no seed without both env tokens")

	t.Setenv("CAFE24_ACCESS_TOKEN", "env-access-token")
	t.Setenv("CAFE24_REFRESH_TOKEN", "env-refresh-token")

	cfg, err = LoadConfig()
	require.NoError(t, err)
	seed := cfg.SeedRecord(now)
	require.NotNil(t, seed)
	assert.Equal(t, "demoshop", seed.MallID)
	assert.Equal(t, "env-access-token", seed.AccessToken.Reveal())
	assert.Equal(t, now.Add(models.DefaultAccessTokenTTL), seed.ExpiresAt)
	assert.Equal(t, now.Add(models.DefaultRefreshTokenTTL), seed.RefreshTokenExpiresAt)
	assert.Equal(t, "1", seed.ShopNo)
}
