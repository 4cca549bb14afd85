// ABOUTME: OAuth2 refresh-grant client for the Cafe24 token endpoint
// ABOUTME: Classifies token endpoint failures into sentinel errors for retry decisions

package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cafe24-admin/models"
)

// OAuth2 token endpoint error classes. The token manager branches on these to
// decide whether a refresh failure is retryable.
var (
	ErrRefreshTokenRejected      = errors.New("refresh token is invalid or expired")
	ErrClientCredentialsRejected = errors.New("client credentials rejected by token endpoint")
	ErrRateLimited               = errors.New("token endpoint rate limit exceeded")
	ErrTemporaryFailure          = errors.New("temporary token endpoint failure")
)

// oauth2ErrorResponse is the RFC 6749 error body the token endpoint returns.
type oauth2ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// OAuth2Client performs refresh-grant exchanges against one mall's token
// endpoint, authenticated by HTTP Basic with the app's client credentials.
type OAuth2Client struct {
	clientID     string
	clientSecret models.Secret
	baseURL      string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewOAuth2Client creates a token endpoint client. baseURL is the mall origin,
// e.g. https://<mall_id>.cafe24api.com; tests point it at a stub server.
func NewOAuth2Client(clientID, clientSecret, baseURL string, timeout time.Duration, logger *slog.Logger) *OAuth2Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OAuth2Client{
		clientID:     clientID,
		clientSecret: models.Secret(clientSecret),
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		logger:       logger,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: timeout,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          10,
				MaxIdleConnsPerHost:   2,
			},
		},
	}
}

// RefreshToken exchanges a refresh token for a new access/refresh token pair.
func (c *OAuth2Client) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret.Reveal())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemporaryFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, c.classifyError(resp, body)
	}

	var tokenResp models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response carried no access token")
	}

	c.logger.Info("Token refresh exchange succeeded",
		"access_token", models.Secret(tokenResp.AccessToken),
		"expires_in", tokenResp.ExpiresIn,
		"refresh_token_rotated", tokenResp.RefreshToken != "")

	return &tokenResp, nil
}

// classifyError maps a non-200 token endpoint response onto a sentinel error.
func (c *OAuth2Client) classifyError(resp *http.Response, body []byte) error {
	bodyStr := models.TruncateBody(string(body))

	c.logger.Error("Token refresh exchange failed",
		"status_code", resp.StatusCode,
		"response_body", bodyStr)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		// Basic auth with client_id:client_secret was refused.
		return fmt.Errorf("%w: %s", ErrClientCredentialsRejected, bodyStr)

	case http.StatusBadRequest, http.StatusForbidden:
		var oauthErr oauth2ErrorResponse
		if err := json.Unmarshal(body, &oauthErr); err == nil {
			switch oauthErr.Error {
			case "invalid_grant":
				return fmt.Errorf("%w: %s", ErrRefreshTokenRejected, oauthErr.ErrorDescription)
			case "invalid_client":
				return fmt.Errorf("%w: %s", ErrClientCredentialsRejected, oauthErr.ErrorDescription)
			}
		}
		return fmt.Errorf("%w: %s", ErrRefreshTokenRejected, bodyStr)

	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		c.logger.Warn("Token endpoint rate limited", "retry_after", retryAfter)
		return fmt.Errorf("%w: retry after %s", ErrRateLimited, retryAfter)

	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrTemporaryFailure, resp.StatusCode)

	default:
		return fmt.Errorf("token refresh failed with status %d: %s", resp.StatusCode, bodyStr)
	}
}
