// ABOUTME: This file implements the OAuth2 token lifecycle for the Cafe24 Admin API
// ABOUTME: Single authority on the current access token; refreshes are single-flight

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cafe24-admin/driver"
	"cafe24-admin/models"
	"cafe24-admin/repository"
)

// OAuth2Driver is the network half of the token lifecycle.
type OAuth2Driver interface {
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
}

// TokenManagerConfig wires a TokenManager's dependencies and policy knobs.
type TokenManagerConfig struct {
	Repository    repository.TokenRepository
	OAuth2Client  OAuth2Driver
	Clock         Clock
	Logger        *slog.Logger
	Metrics       MetricsCollector
	RefreshMargin time.Duration // proactive margin for on-demand calls, default 5m
	CheckInterval time.Duration // background checker period, default 30m
	Seed          *models.TokenRecord
}

// TokenManager holds the in-memory credential record, refreshes it on demand
// and on a periodic background check, and persists every rotation.
type TokenManager struct {
	repo    repository.TokenRepository
	oauth2  OAuth2Driver
	clock   Clock
	logger  *slog.Logger
	metrics MetricsCollector

	refreshMargin time.Duration
	checkInterval time.Duration

	mu     sync.RWMutex
	record *models.TokenRecord

	refreshGroup singleflight.Group

	ticker    *time.Ticker
	stopChan  chan struct{}
	isRunning bool
	runMu     sync.Mutex
}

// NewTokenManager loads the persisted record (or adopts the seed when storage
// is uninitialised) and returns a manager ready to serve tokens. A manager
// without any record is still usable; operations fail with not_authenticated
// until the operator provisions credentials.
func NewTokenManager(cfg TokenManagerConfig) (*TokenManager, error) {
	if cfg.Repository == nil {
		return nil, fmt.Errorf("token manager requires a repository")
	}
	if cfg.OAuth2Client == nil {
		return nil, fmt.Errorf("token manager requires an OAuth2 client")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NoOpMetricsCollector{}
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = 5 * time.Minute
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 30 * time.Minute
	}

	m := &TokenManager{
		repo:          cfg.Repository,
		oauth2:        cfg.OAuth2Client,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		refreshMargin: cfg.RefreshMargin,
		checkInterval: cfg.CheckInterval,
		stopChan:      make(chan struct{}),
	}

	record, err := cfg.Repository.Load(context.Background())
	switch {
	case err == nil:
		m.record = record
		m.logger.Info("Token record loaded from storage",
			"mall_id", record.MallID,
			"expires_at", record.ExpiresAt,
			"refresh_expires_at", record.RefreshTokenExpiresAt)
	case errors.Is(err, repository.ErrTokenNotFound):
		if cfg.Seed != nil && cfg.Seed.AccessToken != "" {
			m.record = cfg.Seed.Clone()
			if saveErr := cfg.Repository.Save(context.Background(), m.record); saveErr != nil {
				m.logger.Warn("Failed to persist seeded token record", "error", saveErr)
			}
			m.logger.Info("Token record seeded from environment", "mall_id", m.record.MallID)
		} else {
			m.logger.Warn("No token record in storage; authorization flow required")
		}
	default:
		return nil, fmt.Errorf("failed to load token record: %w", err)
	}

	return m, nil
}

// CurrentAccessToken returns an access token valid at this instant, refreshing
// first when the token is inside the proactive margin of its expiry.
func (m *TokenManager) CurrentAccessToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	record := m.record
	m.mu.RUnlock()

	if record == nil {
		return "", &models.APIError{
			Kind:    models.ErrKindNotAuthenticated,
			Message: "no credential record; run the authorization flow",
		}
	}

	now := m.clock.Now()
	if !record.NeedsRefresh(now, m.refreshMargin) {
		return record.AccessToken.Reveal(), nil
	}

	refreshed, err := m.refresh(ctx, record.AccessToken.Reveal())
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken.Reveal(), nil
}

// Refresh forces one refresh-grant exchange even when the record looks valid
// by the clock; the transport uses this after an upstream 401/403. Concurrent
// callers share a single in-flight exchange.
func (m *TokenManager) Refresh(ctx context.Context) error {
	m.mu.RLock()
	record := m.record
	m.mu.RUnlock()
	if record == nil {
		return &models.APIError{
			Kind:    models.ErrKindNotAuthenticated,
			Message: "no credential record; run the authorization flow",
		}
	}
	_, err := m.refresh(ctx, record.AccessToken.Reveal())
	return err
}

// refresh funnels all refresh attempts through a single-flight group so N
// concurrent expired-token callers produce exactly one exchange. staleToken
// is the access token the caller observed failing or expiring; if the record
// has already rotated past it, no exchange is issued.
func (m *TokenManager) refresh(ctx context.Context, staleToken string) (*models.TokenRecord, error) {
	result, err, shared := m.refreshGroup.Do("refresh", func() (any, error) {
		return m.performRefresh(ctx, staleToken)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("Refresh result shared with concurrent caller")
	}
	return result.(*models.TokenRecord), nil
}

// performRefresh runs one exchange. The mutex is held only while swapping the
// record; the network round-trip happens without it.
func (m *TokenManager) performRefresh(ctx context.Context, staleToken string) (*models.TokenRecord, error) {
	m.mu.RLock()
	record := m.record
	m.mu.RUnlock()

	if record == nil {
		return nil, &models.APIError{
			Kind:    models.ErrKindNotAuthenticated,
			Message: "no credential record; run the authorization flow",
		}
	}

	now := m.clock.Now()

	// Another caller may have refreshed while we waited on the group.
	if record.AccessToken.Reveal() != staleToken && record.Valid(now) {
		return record, nil
	}

	// Refuse up front when the refresh window has closed: the server would
	// reject the grant anyway, so no network call is made.
	if record.RefreshExpired(now) {
		m.metrics.IncrementTokenRefresh("refresh_token_expired")
		return nil, &models.APIError{
			Kind:    models.ErrKindRefreshTokenExpired,
			Message: "refresh token expired; re-authorisation required",
		}
	}

	m.logger.Info("Refreshing access token",
		"expires_at", record.ExpiresAt,
		"time_until_expiry", record.TimeUntilExpiry(now))

	resp, err := m.oauth2.RefreshToken(ctx, record.RefreshToken.Reveal())
	if err != nil {
		m.metrics.IncrementTokenRefresh("failure")
		return nil, m.classifyRefreshError(err)
	}

	refreshed := models.NewTokenRecordFromRefresh(record, resp, m.clock.Now())

	m.mu.Lock()
	m.record = refreshed
	m.mu.Unlock()

	if err := m.repo.Save(ctx, refreshed); err != nil {
		// The in-memory record stays authoritative; the next successful save
		// will catch persistence up.
		m.logger.Error("Failed to persist refreshed token record", "error", err)
	}

	m.metrics.IncrementTokenRefresh("success")
	m.metrics.RecordTokenExpiry(refreshed.TimeUntilExpiry(m.clock.Now()).Seconds())
	m.logger.Info("Access token refreshed",
		"expires_at", refreshed.ExpiresAt,
		"refresh_expires_at", refreshed.RefreshTokenExpiresAt)

	return refreshed, nil
}

func (m *TokenManager) classifyRefreshError(err error) error {
	switch {
	case errors.Is(err, driver.ErrRefreshTokenRejected):
		return &models.APIError{Kind: models.ErrKindRefreshTokenExpired,
			Message: "refresh grant rejected; re-authorisation required", Err: err}
	case errors.Is(err, driver.ErrClientCredentialsRejected):
		return &models.APIError{Kind: models.ErrKindClientCredentialsRejected,
			Message: "client credentials rejected during refresh", Err: err}
	case errors.Is(err, driver.ErrRateLimited):
		return &models.APIError{Kind: models.ErrKindRateLimited,
			Message: "token endpoint rate limited", Err: err}
	default:
		return &models.APIError{Kind: models.ErrKindTransport,
			Message: "token refresh exchange failed", Err: err}
	}
}

// StartBackgroundRefresh spawns the periodic expiry check. Idempotent.
func (m *TokenManager) StartBackgroundRefresh() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.isRunning {
		return
	}
	m.isRunning = true
	m.ticker = time.NewTicker(m.checkInterval)
	go m.backgroundLoop()

	m.logger.Info("Background token refresh started",
		"check_interval", m.checkInterval)
}

// StopBackgroundRefresh stops the periodic check. Idempotent.
func (m *TokenManager) StopBackgroundRefresh() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.isRunning {
		return
	}
	m.isRunning = false
	m.ticker.Stop()
	close(m.stopChan)
	m.stopChan = make(chan struct{})
	m.logger.Info("Background token refresh stopped")
}

func (m *TokenManager) backgroundLoop() {
	m.runMu.Lock()
	tick := m.ticker.C
	stop := m.stopChan
	m.runMu.Unlock()

	for {
		select {
		case <-tick:
			m.backgroundCheck()
		case <-stop:
			return
		}
	}
}

// backgroundCheck refreshes when the token will expire within one check
// interval. Failures are logged and retried at the next tick.
func (m *TokenManager) backgroundCheck() {
	m.mu.RLock()
	record := m.record
	m.mu.RUnlock()
	if record == nil {
		return
	}

	now := m.clock.Now()
	if !record.NeedsRefresh(now, m.checkInterval) {
		return
	}
	if record.RefreshExpired(now) {
		m.logger.Error("Refresh token expired; background refresh suspended until re-authorisation",
			"refresh_expires_at", record.RefreshTokenExpiresAt)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := m.refresh(ctx, record.AccessToken.Reveal()); err != nil {
		m.logger.Error("Background token refresh failed; will retry at next tick", "error", err)
		return
	}
	m.metrics.IncrementAutoRefresh()
}

// Record returns a copy of the current credential record, or nil.
func (m *TokenManager) Record() *models.TokenRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.record.Clone()
}

// TokenStatus reports the current lifecycle state for operators.
type TokenStatus struct {
	HasAccessToken   bool      `json:"has_access_token"`
	HasRefreshToken  bool      `json:"has_refresh_token"`
	MallID           string    `json:"mall_id,omitempty"`
	ExpiresAt        time.Time `json:"expires_at,omitempty"`
	ExpiresInSeconds int64     `json:"expires_in_seconds,omitempty"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitempty"`
	NeedsRefresh     bool      `json:"needs_refresh"`
	RefreshExpired   bool      `json:"refresh_expired"`
	IsAutoRefreshing bool      `json:"is_auto_refreshing"`
}

// Status summarises the record without exposing token material.
func (m *TokenManager) Status() TokenStatus {
	m.mu.RLock()
	record := m.record
	m.mu.RUnlock()

	m.runMu.Lock()
	running := m.isRunning
	m.runMu.Unlock()

	status := TokenStatus{IsAutoRefreshing: running}
	if record == nil {
		return status
	}

	now := m.clock.Now()
	status.HasAccessToken = record.AccessToken != ""
	status.HasRefreshToken = record.RefreshToken != ""
	status.MallID = record.MallID
	status.ExpiresAt = record.ExpiresAt
	status.ExpiresInSeconds = int64(record.TimeUntilExpiry(now).Seconds())
	status.RefreshExpiresAt = record.RefreshTokenExpiresAt
	status.NeedsRefresh = record.NeedsRefresh(now, m.refreshMargin)
	status.RefreshExpired = record.RefreshExpired(now)
	return status
}
