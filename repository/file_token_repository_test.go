// ABOUTME: This file tests the file-backed credential store
// ABOUTME: Covers round-trips, backup siblings, permissions and legacy timestamp shapes
package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe24-admin/models"
)

func testRecord(now time.Time) *models.TokenRecord {
	return &models.TokenRecord{
		MallID:                "demoshop",
		ClientID:              "client-id",
		ClientSecret:          models.Secret("client-secret"),
		AccessToken:           models.Secret("access-token-value"),
		RefreshToken:          models.Secret("refresh-token-value"),
		ExpiresAt:             now.Add(2 * time.Hour),
		RefreshTokenExpiresAt: now.Add(14 * 24 * time.Hour),
		IssuedAt:              now,
		Scopes:                []string{"mall.read_product", "mall.write_product"},
		APIVersion:            "2025-06-01",
		ShopNo:                "1",
	}
}

func TestFileTokenRepository_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth_token.json")
	repo := NewFileTokenRepository(path, nil)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	record := testRecord(now)
	require.NoError(t, repo.Save(ctx, record))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, record.MallID, loaded.MallID)
	assert.Equal(t, record.AccessToken, loaded.AccessToken)
	assert.Equal(t, record.RefreshToken, loaded.RefreshToken)
	assert.True(t, record.ExpiresAt.Equal(loaded.ExpiresAt))
	assert.True(t, record.RefreshTokenExpiresAt.Equal(loaded.RefreshTokenExpiresAt))
	assert.Equal(t, record.Scopes, loaded.Scopes)
	assert.Equal(t, "1", loaded.ShopNo)
}

func TestFileTokenRepository_SerialisationIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth_token.json")
	repo := NewFileTokenRepository(path, nil)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, testRecord(now)))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, loaded))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestFileTokenRepository_LoadMissingFile(t *testing.T) {
	repo := NewFileTokenRepository(filepath.Join(t.TempDir(), "absent.json"), nil)
	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestFileTokenRepository_LoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth_token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	repo := NewFileTokenRepository(path, nil)
	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestFileTokenRepository_BackupKeepsPreviousRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth_token.json")
	repo := NewFileTokenRepository(path, nil)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first := testRecord(now)
	require.NoError(t, repo.Save(ctx, first))

	second := testRecord(now)
	second.AccessToken = models.Secret("rotated-access-token")
	require.NoError(t, repo.Save(ctx, second))

	backup, err := os.ReadFile(path + ".backup")
	require.NoError(t, err)

	var tf tokenFile
	require.NoError(t, json.Unmarshal(backup, &tf))
	assert.Equal(t, "access-token-value", tf.AccessToken)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rotated-access-token", loaded.AccessToken.Reveal())
}

func TestFileTokenRepository_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	path := filepath.Join(t.TempDir(), "oauth_token.json")
	repo := NewFileTokenRepository(path, nil)
	require.NoError(t, repo.Save(context.Background(), testRecord(time.Now().UTC())))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileTokenRepository_LegacyTimestampShapes(t *testing.T) {
	tests := map[string]struct {
		raw  string
		want time.Time
	}{
		"canonical_rfc3339": {
			raw:  "2025-06-01T12:00:00Z",
			want: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		"legacy_millisecond_suffix": {
			raw:  "2025-06-01T12:00:00.000",
			want: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		"bare_timestamp_taken_as_utc": {
			raw:  "2025-06-01T12:00:00",
			want: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseInstant(tc.raw)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got))
		})
	}

	t.Run("garbage_rejected", func(t *testing.T) {
		_, err := parseInstant("last tuesday")
		assert.Error(t, err)
	})

	t.Run("legacy_file_loads", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "oauth_token.json")
		legacy := `{
  "mall_id": "demoshop",
  "client_id": "client-id",
  "client_secret": "client-secret",
  "access_token": "legacy-access",
  "refresh_token": "legacy-refresh",
  "expires_at": "2025-06-01T14:00:00.000",
  "refresh_token_expires_at": "2025-06-15T12:00:00.000",
  "issued_at": "2025-06-01T12:00:00.000",
  "scopes": null,
  "api_version": "2025-06-01",
  "shop_no": "1"
}`
		require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

		repo := NewFileTokenRepository(path, nil)
		loaded, err := repo.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "legacy-access", loaded.AccessToken.Reveal())
		assert.True(t, time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC).Equal(loaded.ExpiresAt))
	})
}
