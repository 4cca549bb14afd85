// ABOUTME: This file defines the persistent OAuth2 credential record for the Cafe24 Admin API
// ABOUTME: Handles access/refresh token expiry logic and rotation from refresh responses

package models

import (
	"log/slog"
	"time"
)

// Default token lifetimes applied when the token endpoint omits them.
const (
	DefaultAccessTokenTTL  = 2 * time.Hour
	DefaultRefreshTokenTTL = 14 * 24 * time.Hour
)

// Secret is an opaque credential value. Its string and slog renderings are
// redacted so token material never reaches logs or error messages; JSON
// marshalling is left untouched for persistence.
type Secret string

// String renders a short prefix followed by a fixed mask.
func (s Secret) String() string {
	if len(s) <= 8 {
		return "***"
	}
	return string(s[:4]) + "***" + string(s[len(s)-2:])
}

// LogValue implements slog.LogValuer so structured logs get the redacted form.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// Reveal returns the raw credential value.
func (s Secret) Reveal() string {
	return string(s)
}

// TokenRecord is the single persistent credential bundle for one mall. The
// client identity fields never change across refreshes; only the token pair and
// the expiry/issue instants rotate, and always together.
type TokenRecord struct {
	MallID                string    `json:"mall_id"`
	ClientID              string    `json:"client_id"`
	ClientSecret          Secret    `json:"client_secret"`
	AccessToken           Secret    `json:"access_token"`
	RefreshToken          Secret    `json:"refresh_token"`
	ExpiresAt             time.Time `json:"expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	IssuedAt              time.Time `json:"issued_at"`
	Scopes                []string  `json:"scopes"`
	APIVersion            string    `json:"api_version"`
	ShopNo                string    `json:"shop_no"`
}

// TokenResponse is the body returned by the Cafe24 token endpoint for a
// refresh-grant exchange.
type TokenResponse struct {
	AccessToken           string   `json:"access_token"`
	ExpiresIn             int      `json:"expires_in"`
	RefreshToken          string   `json:"refresh_token"`
	RefreshTokenExpiresIn int      `json:"refresh_token_expires_in"`
	TokenType             string   `json:"token_type"`
	Scopes                []string `json:"scopes,omitempty"`
}

// NewTokenRecordFromRefresh builds the rotated record from a refresh response.
// Client identity is carried over from the previous record; the previous
// refresh token is kept when the server does not rotate it.
func NewTokenRecordFromRefresh(prev *TokenRecord, resp *TokenResponse, now time.Time) *TokenRecord {
	accessTTL := DefaultAccessTokenTTL
	if resp.ExpiresIn > 0 {
		accessTTL = time.Duration(resp.ExpiresIn) * time.Second
	}
	refreshTTL := DefaultRefreshTokenTTL
	if resp.RefreshTokenExpiresIn > 0 {
		refreshTTL = time.Duration(resp.RefreshTokenExpiresIn) * time.Second
	}

	refreshToken := prev.RefreshToken
	if resp.RefreshToken != "" {
		refreshToken = Secret(resp.RefreshToken)
	}

	scopes := prev.Scopes
	if len(resp.Scopes) > 0 {
		scopes = resp.Scopes
	}

	return &TokenRecord{
		MallID:                prev.MallID,
		ClientID:              prev.ClientID,
		ClientSecret:          prev.ClientSecret,
		AccessToken:           Secret(resp.AccessToken),
		RefreshToken:          refreshToken,
		ExpiresAt:             now.Add(accessTTL),
		RefreshTokenExpiresAt: now.Add(refreshTTL),
		IssuedAt:              now,
		Scopes:                scopes,
		APIVersion:            prev.APIVersion,
		ShopNo:                prev.ShopNo,
	}
}

// AccessExpired reports whether the access token is invalid at the given
// instant. The expiry instant itself counts as expired.
func (t *TokenRecord) AccessExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// NeedsRefresh reports whether the access token is within the proactive
// refresh margin of its expiry.
func (t *TokenRecord) NeedsRefresh(now time.Time, margin time.Duration) bool {
	return now.Add(margin).After(t.ExpiresAt)
}

// RefreshExpired reports whether the refresh token window has closed, meaning
// a refresh-grant exchange would be pointless.
func (t *TokenRecord) RefreshExpired(now time.Time) bool {
	return t.RefreshTokenExpiresAt.IsZero() || !now.Before(t.RefreshTokenExpiresAt)
}

// Valid reports whether the record holds a usable access token at the given
// instant.
func (t *TokenRecord) Valid(now time.Time) bool {
	return t.AccessToken != "" && !t.AccessExpired(now)
}

// TimeUntilExpiry returns the remaining access token lifetime.
func (t *TokenRecord) TimeUntilExpiry(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}

// Clone returns a copy of the record so callers cannot mutate shared state.
func (t *TokenRecord) Clone() *TokenRecord {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Scopes = append([]string(nil), t.Scopes...)
	return &cp
}
