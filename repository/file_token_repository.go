// ABOUTME: File-backed credential store with atomic two-step writes
// ABOUTME: Serialises to a temp sibling, keeps a .backup of the previous record, then renames

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cafe24-admin/models"
)

// FileTokenRepository persists the TokenRecord as a UTF-8 JSON document.
// Concurrent writers from separate processes are undefined behaviour; within
// one process the mutex serialises access.
type FileTokenRepository struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// tokenFile is the on-disk shape. Timestamps are serialised as strings so the
// canonical RFC3339 UTC form is under our control and legacy values with a
// trailing ".000" still parse.
type tokenFile struct {
	MallID                string   `json:"mall_id"`
	ClientID              string   `json:"client_id"`
	ClientSecret          string   `json:"client_secret"`
	AccessToken           string   `json:"access_token"`
	RefreshToken          string   `json:"refresh_token"`
	ExpiresAt             string   `json:"expires_at"`
	RefreshTokenExpiresAt string   `json:"refresh_token_expires_at"`
	IssuedAt              string   `json:"issued_at"`
	Scopes                []string `json:"scopes"`
	APIVersion            string   `json:"api_version"`
	ShopNo                string   `json:"shop_no"`
}

// NewFileTokenRepository creates a file-backed store at the given path.
func NewFileTokenRepository(path string, logger *slog.Logger) *FileTokenRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileTokenRepository{path: path, logger: logger}
}

// Load reads the most recently saved record. A missing or malformed file
// yields ErrTokenNotFound rather than an error; the operator must then run
// the authorization flow again.
func (r *FileTokenRepository) Load(ctx context.Context) (*models.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		r.logger.Warn("Token file is malformed, treating as uninitialised",
			"path", r.path, "error", err)
		return nil, ErrTokenNotFound
	}

	record, err := tf.toRecord()
	if err != nil {
		r.logger.Warn("Token file has unparseable fields, treating as uninitialised",
			"path", r.path, "error", err)
		return nil, ErrTokenNotFound
	}

	r.logger.Debug("Token record loaded",
		"path", r.path,
		"mall_id", record.MallID,
		"expires_at", record.ExpiresAt)
	return record, nil
}

// Save atomically overwrites the stored record: serialise to a temporary
// sibling, back up the previous file, then rename over the target. Write
// failures are surfaced; the caller's in-memory record stays authoritative
// until a save succeeds.
func (r *FileTokenRepository) Save(ctx context.Context, record *models.TokenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(fromRecord(record), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialise token record: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}

	// Keep the previous record so a crash mid-rename can be recovered.
	if prev, err := os.ReadFile(r.path); err == nil {
		if err := os.WriteFile(r.path+".backup", prev, 0o600); err != nil {
			r.logger.Warn("Failed to write token backup file", "error", err)
		}
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	r.logger.Info("Token record saved",
		"path", r.path,
		"mall_id", record.MallID,
		"expires_at", record.ExpiresAt)
	return nil
}

func fromRecord(rec *models.TokenRecord) tokenFile {
	return tokenFile{
		MallID:                rec.MallID,
		ClientID:              rec.ClientID,
		ClientSecret:          rec.ClientSecret.Reveal(),
		AccessToken:           rec.AccessToken.Reveal(),
		RefreshToken:          rec.RefreshToken.Reveal(),
		ExpiresAt:             formatInstant(rec.ExpiresAt),
		RefreshTokenExpiresAt: formatInstant(rec.RefreshTokenExpiresAt),
		IssuedAt:              formatInstant(rec.IssuedAt),
		Scopes:                rec.Scopes,
		APIVersion:            rec.APIVersion,
		ShopNo:                rec.ShopNo,
	}
}

func (tf tokenFile) toRecord() (*models.TokenRecord, error) {
	expiresAt, err := parseInstant(tf.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("expires_at: %w", err)
	}
	refreshExpiresAt, err := parseInstant(tf.RefreshTokenExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("refresh_token_expires_at: %w", err)
	}
	issuedAt, err := parseInstant(tf.IssuedAt)
	if err != nil {
		return nil, fmt.Errorf("issued_at: %w", err)
	}
	return &models.TokenRecord{
		MallID:                tf.MallID,
		ClientID:              tf.ClientID,
		ClientSecret:          models.Secret(tf.ClientSecret),
		AccessToken:           models.Secret(tf.AccessToken),
		RefreshToken:          models.Secret(tf.RefreshToken),
		ExpiresAt:             expiresAt,
		RefreshTokenExpiresAt: refreshExpiresAt,
		IssuedAt:              issuedAt,
		Scopes:                tf.Scopes,
		APIVersion:            tf.APIVersion,
		ShopNo:                tf.ShopNo,
	}, nil
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseInstant accepts the canonical RFC3339 form plus two legacy shapes seen
// in older token files: a trailing ".000" fraction and a bare timestamp with
// no zone, which is taken as UTC.
func parseInstant(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	s = strings.TrimSuffix(s, ".000")
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	}
	return t.UTC(), nil
}
