// ABOUTME: This file tests credential record expiry logic and secret redaction
// ABOUTME: Boundary instants are covered explicitly; expiry equal to now counts as expired
package models

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_Redaction(t *testing.T) {
	tests := map[string]struct {
		secret Secret
		want   string
	}{
		"long_secret_shows_prefix_and_suffix": {
			secret: Secret("AbCdEfGhIjKlMnOp"),
			want:   "AbCd***Op",
		},
		"short_secret_fully_masked": {
			secret: Secret("short"),
			want:   "***",
		},
		"empty_secret_fully_masked": {
			secret: Secret(""),
			want:   "***",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.secret.String())
			assert.NotContains(t, tc.secret.String(), "EfGhIjKl")
		})
	}
}

func TestSecret_SlogRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	token := Secret("super-secret-access-token-value")
	logger.Info("token issued", "access_token", token)

	out := buf.String()
	assert.NotContains(t, out, "super-secret-access-token-value")
	assert.Contains(t, out, "supe***ue")
}

func TestSecret_JSONKeepsRawValue(t *testing.T) {
	// Persistence depends on the raw value surviving marshalling.
	record := TokenRecord{AccessToken: Secret("raw-access-token-material")}
	data, err := json.Marshal(record)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "raw-access-token-material"))
}

func TestTokenRecord_AccessExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		expiresAt time.Time
		want      bool
	}{
		"future_expiry_not_expired":    {expiresAt: now.Add(time.Hour), want: false},
		"past_expiry_expired":          {expiresAt: now.Add(-time.Second), want: true},
		"expiry_equal_to_now_expired":  {expiresAt: now, want: true},
		"one_nanosecond_left_is_valid": {expiresAt: now.Add(time.Nanosecond), want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			record := &TokenRecord{ExpiresAt: tc.expiresAt}
			assert.Equal(t, tc.want, record.AccessExpired(now))
		})
	}
}

func TestTokenRecord_NeedsRefresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	margin := 5 * time.Minute

	record := &TokenRecord{ExpiresAt: now.Add(10 * time.Minute)}
	assert.False(t, record.NeedsRefresh(now, margin))

	record.ExpiresAt = now.Add(4 * time.Minute)
	assert.True(t, record.NeedsRefresh(now, margin))

	record.ExpiresAt = now.Add(-time.Second)
	assert.True(t, record.NeedsRefresh(now, margin))
}

func TestTokenRecord_RefreshExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	record := &TokenRecord{RefreshTokenExpiresAt: now.Add(7 * 24 * time.Hour)}
	assert.False(t, record.RefreshExpired(now))

	record.RefreshTokenExpiresAt = now
	assert.True(t, record.RefreshExpired(now))

	record.RefreshTokenExpiresAt = time.Time{}
	assert.True(t, record.RefreshExpired(now), "zero instant counts as expired")
}

func TestNewTokenRecordFromRefresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	prev := &TokenRecord{
		MallID:       "demoshop",
		ClientID:     "client-id",
		ClientSecret: Secret("client-secret"),
		AccessToken:  Secret("old-access"),
		RefreshToken: Secret("old-refresh"),
		Scopes:       []string{"mall.read_product"},
		APIVersion:   "2025-06-01",
		ShopNo:       "1",
	}

	t.Run("rotates_both_tokens", func(t *testing.T) {
		resp := &TokenResponse{
			AccessToken:           "new-access",
			ExpiresIn:             7200,
			RefreshToken:          "new-refresh",
			RefreshTokenExpiresIn: 1209600,
		}
		rotated := NewTokenRecordFromRefresh(prev, resp, now)

		assert.Equal(t, "new-access", rotated.AccessToken.Reveal())
		assert.Equal(t, "new-refresh", rotated.RefreshToken.Reveal())
		assert.Equal(t, now.Add(2*time.Hour), rotated.ExpiresAt)
		assert.Equal(t, now.Add(14*24*time.Hour), rotated.RefreshTokenExpiresAt)
		assert.Equal(t, now, rotated.IssuedAt)
		assert.Equal(t, "demoshop", rotated.MallID)
		assert.Equal(t, "client-id", rotated.ClientID)
		assert.Equal(t, "1", rotated.ShopNo)
	})

	t.Run("keeps_refresh_token_when_not_rotated", func(t *testing.T) {
		resp := &TokenResponse{AccessToken: "new-access", ExpiresIn: 3600}
		rotated := NewTokenRecordFromRefresh(prev, resp, now)
		assert.Equal(t, "old-refresh", rotated.RefreshToken.Reveal())
	})

	t.Run("applies_default_lifetimes_when_omitted", func(t *testing.T) {
		resp := &TokenResponse{AccessToken: "new-access"}
		rotated := NewTokenRecordFromRefresh(prev, resp, now)
		assert.Equal(t, now.Add(DefaultAccessTokenTTL), rotated.ExpiresAt)
		assert.Equal(t, now.Add(DefaultRefreshTokenTTL), rotated.RefreshTokenExpiresAt)
	})
}

func TestTokenRecord_Clone(t *testing.T) {
	var nilRecord *TokenRecord
	assert.Nil(t, nilRecord.Clone())

	record := &TokenRecord{MallID: "demoshop", Scopes: []string{"a"}}
	clone := record.Clone()
	clone.Scopes[0] = "b"
	assert.Equal(t, "a", record.Scopes[0])
}
