// ABOUTME: This file tests the authenticated transport's retry and re-auth policy
// ABOUTME: Exercises bearer rotation after 401, Retry-After handling and 5xx retries
package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe24-admin/models"
	"cafe24-admin/utils"
)

// fakeTokenSource hands out a settable bearer and rotates it on Refresh.
type fakeTokenSource struct {
	mu         sync.Mutex
	token      string
	refreshes  int
	tokenErr   error
	refreshErr error
}

func (s *fakeTokenSource) CurrentAccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokenErr != nil {
		return "", s.tokenErr
	}
	return s.token, nil
}

func (s *fakeTokenSource) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshErr != nil {
		return s.refreshErr
	}
	s.refreshes++
	s.token = "rotated-token"
	return nil
}

func (s *fakeTokenSource) refreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

func newTestClient(t *testing.T, serverURL string, tokens TokenSource) *APIClient {
	t.Helper()
	return NewAPIClient(APIClientConfig{
		BaseURL:        serverURL,
		RetryCount:     3,
		RetryBaseDelay: time.Millisecond,
	}, tokens, nil)
}

func TestAPIClient_Do_Success(t *testing.T) {
	var gotAuth []string
	var gotPath, gotVersion, gotContentType, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Values("Authorization")
		gotPath = r.URL.Path
		gotVersion = r.Header.Get("X-Cafe24-Api-Version")
		gotContentType = r.Header.Get("Content-Type")
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"products":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeTokenSource{token: "initial-token"})
	query := url.Values{}
	query.Set("limit", "10")

	body, err := client.Do(context.Background(), "list_products", http.MethodGet, "/admin/products", query, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"products":[]}`, string(body))

	assert.Equal(t, "/api/v2/admin/products", gotPath, "resource path gets the Admin API prefix")
	require.Len(t, gotAuth, 1, "exactly one Authorization header")
	assert.Equal(t, "Bearer initial-token", gotAuth[0])
	assert.Equal(t, DefaultAPIVersion, gotVersion)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "limit=10", gotQuery)
}

func TestAPIClient_Do_ComposesAPIBasePath(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeTokenSource{token: "tok"})
	for _, path := range []string{"/admin/products", "/admin/products/42/variants", "/admin/orders"} {
		_, err := client.Do(context.Background(), "op", http.MethodGet, path, nil, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"/api/v2/admin/products",
		"/api/v2/admin/products/42/variants",
		"/api/v2/admin/orders",
	}, paths)
}

func TestAPIClient_Do_401RefreshesOnceAndReissues(t *testing.T) {
	var mu sync.Mutex
	var bearers []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		bearers = append(bearers, r.Header.Get("Authorization"))
		n := len(bearers)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":401}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"product":{}}`))
	}))
	defer server.Close()

	tokens := &fakeTokenSource{token: "stale-token"}
	client := newTestClient(t, server.URL, tokens)

	body, err := client.Do(context.Background(), "get_product", http.MethodGet, "/admin/products/1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"product":{}}`, string(body))

	assert.Equal(t, 1, tokens.refreshCount())
	require.Len(t, bearers, 2)
	assert.Equal(t, "Bearer stale-token", bearers[0])
	assert.Equal(t, "Bearer rotated-token", bearers[1])
	assert.NotEqual(t, bearers[0], bearers[1], "reissued request carries a different bearer")
}

func TestAPIClient_Do_401AfterRefreshIsAuthRejected(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tokens := &fakeTokenSource{token: "doomed-token"}
	client := newTestClient(t, server.URL, tokens)

	_, err := client.Do(context.Background(), "get_product", http.MethodGet, "/admin/products/1", nil, nil)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrKindAuthRejected))
	assert.Equal(t, 1, tokens.refreshCount(), "refresh is attempted exactly once")
	assert.Equal(t, 2, requests)
}

func TestAPIClient_Do_401WithFailedRefreshReturnsOriginalResponse(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"invalid token"}}`))
	}))
	defer server.Close()

	refreshFailure := &models.APIError{
		Kind:    models.ErrKindRefreshTokenExpired,
		Message: "refresh token window closed",
	}
	tokens := &fakeTokenSource{token: "stale-token", refreshErr: refreshFailure}
	client := newTestClient(t, server.URL, tokens)

	_, err := client.Do(context.Background(), "get_product", http.MethodGet, "/admin/products/1", nil, nil)
	require.Error(t, err)

	// The answer is the upstream rejection; the failed refresh is its cause.
	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.ErrKindAuthRejected, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Body, "invalid token")
	assert.ErrorIs(t, err, refreshFailure)
	assert.Equal(t, 1, requests, "no reissue without a fresh token")
}

func TestAPIClient_Do_5xxRetriesThenFails(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeTokenSource{token: "tok"})
	_, err := client.Do(context.Background(), "list_products", http.MethodGet, "/admin/products", nil, nil)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrKindUpstream5xx))
	assert.Equal(t, 4, requests, "initial attempt plus three retries")
}

func TestAPIClient_Do_5xxThenSuccess(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeTokenSource{token: "tok"})
	body, err := client.Do(context.Background(), "list_products", http.MethodGet, "/admin/products", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, 2, requests)
}

func TestAPIClient_Do_429HonoursRetryAfter(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeTokenSource{token: "tok"})
	start := time.Now()
	body, err := client.Do(context.Background(), "update_product", http.MethodPut, "/admin/products/1", nil, map[string]string{"price": "1000"})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, 2, requests)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond, "waits out the Retry-After header")
}

func TestAPIClient_Do_429ExhaustedIsRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewAPIClient(APIClientConfig{
		BaseURL:        server.URL,
		RetryCount:     3,
		RetryBaseDelay: time.Millisecond,
	}, &fakeTokenSource{token: "tok"}, nil)

	// No Retry-After header; the client falls back to the short base delay and
	// fails fast once attempts run out.
	done := make(chan error, 1)
	go func() {
		_, err := client.Do(context.Background(), "list_products", http.MethodGet, "/admin/products", nil, nil)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.ErrKindRateLimited))
	case <-time.After(5 * time.Second):
		t.Fatal("rate-limited request did not terminate")
	}
}

func TestAPIClient_Do_4xxDoesNotRetry(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404,"message":"product not found"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &fakeTokenSource{token: "tok"})
	_, err := client.Do(context.Background(), "get_product", http.MethodGet, "/admin/products/999", nil, nil)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrKindUpstream4xx))
	assert.Equal(t, 1, requests)
}

func TestAPIClient_Do_TokenSourceFailureNotRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach upstream without a token")
	}))
	defer server.Close()

	tokens := &fakeTokenSource{tokenErr: &models.APIError{
		Kind:    models.ErrKindNotAuthenticated,
		Message: "no credentials loaded",
	}}
	client := newTestClient(t, server.URL, tokens)

	_, err := client.Do(context.Background(), "list_products", http.MethodGet, "/admin/products", nil, nil)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrKindNotAuthenticated))
}

func TestAPIClient_Do_TokenFailuresDoNotTripBreaker(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tokens := &fakeTokenSource{tokenErr: &models.APIError{
		Kind:    models.ErrKindNotAuthenticated,
		Message: "no credentials loaded",
	}}
	client := newTestClient(t, server.URL, tokens)

	breaker := utils.NewCircuitBreaker(&utils.BreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Cooldown:         time.Minute,
		ProbeLimit:       1,
	}, nil)
	client.SetCircuitBreaker(breaker)

	// Missing credentials are a local problem; however often they occur, the
	// circuit stays closed for the healthy upstream.
	for i := 0; i < 5; i++ {
		_, err := client.Do(context.Background(), "list_products", http.MethodGet, "/admin/products", nil, nil)
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.ErrKindNotAuthenticated))
	}
	assert.Equal(t, utils.BreakerClosed, breaker.State())

	tokens.mu.Lock()
	tokens.tokenErr = nil
	tokens.token = "tok"
	tokens.mu.Unlock()

	_, err := client.Do(context.Background(), "list_products", http.MethodGet, "/admin/products", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]struct {
		header   string
		fallback time.Duration
		want     time.Duration
	}{
		"seconds header": {
			header:   "7",
			fallback: time.Second,
			want:     7 * time.Second,
		},
		"empty header uses fallback": {
			header:   "",
			fallback: 3 * time.Second,
			want:     3 * time.Second,
		},
		"unparseable header uses fallback": {
			header:   "Wed, 21 Oct 2026 07:28:00 GMT",
			fallback: 2 * time.Second,
			want:     2 * time.Second,
		},
		"zero seconds uses fallback": {
			header:   "0",
			fallback: time.Second,
			want:     time.Second,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRetryAfter(tt.header, tt.fallback))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Count int `json:"count"`
	}
	require.NoError(t, DecodeJSON("count", []byte(`{"count":3}`), &out))
	assert.Equal(t, 3, out.Count)

	err := DecodeJSON("count", []byte(`<html>not json</html>`), &out)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrKindDecode))
}
