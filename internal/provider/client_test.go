package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finwell/finance-gateway/internal/config"
	"github.com/finwell/finance-gateway/internal/models"
	"github.com/finwell/finance-gateway/internal/ratelimit"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		ProviderURL:      srv.URL,
		ProviderClientID: "client-id",
		ProviderSecret:   "client-secret",
	}
	log := logrus.New()
	c := NewClient(cfg, ratelimit.New(ratelimit.NewMemoryStore(), log), log)

	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestCallDecodesResponse(t *testing.T) {
	var gotBody map[string]any
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{"link_token": "link-abc", "request_id": "req-1"})
	})

	resp, err := c.CreateLinkToken(context.Background(), "user-1", "Finance Gateway")
	require.NoError(t, err)
	assert.Equal(t, "link-abc", resp.LinkToken)

	// Credentials ride in every request body.
	assert.Equal(t, "client-id", gotBody["client_id"])
	assert.Equal(t, "client-secret", gotBody["secret"])
}

func TestCallSurfacesProviderError(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error_type":      "INVALID_INPUT",
			"error_code":      "INVALID_ACCESS_TOKEN",
			"error_message":   "the access token is not valid",
			"display_message": "Please relink your account.",
			"request_id":      "req-9",
		})
	})

	_, err := c.GetAccounts(context.Background(), "bad-token", "item-1")
	var perr *models.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "INVALID_ACCESS_TOKEN", perr.ErrorCode)
	assert.Equal(t, "Please relink your account.", perr.DisplayMessage)
	assert.Equal(t, "req-9", perr.RequestID)
}

func TestCallSynthesizesErrorForOpaqueBody(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	var out models.AccountsResponse
	err := c.Call(context.Background(), models.EndpointAccounts, map[string]any{}, "", &out)
	var perr *models.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "API_ERROR", perr.ErrorType)
	assert.Equal(t, "HTTP_502", perr.ErrorCode)
}

func TestCallNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	cfg := &config.Config{ProviderURL: srv.URL}
	log := logrus.New()
	c := NewClient(cfg, ratelimit.New(ratelimit.NewMemoryStore(), log), log)

	err := c.Call(context.Background(), models.EndpointAccounts, map[string]any{}, "", nil)
	var perr *models.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "NETWORK_ERROR", perr.ErrorType)
}

func rateLimitBody(w http.ResponseWriter) {
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]string{
		"error_type":    "RATE_LIMIT_EXCEEDED",
		"error_code":    "TRANSACTIONS_LIMIT",
		"error_message": "rate limit exceeded",
	})
}

func TestRetryOnRateLimitThenSuccess(t *testing.T) {
	attempts := 0
	c, slept := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			rateLimitBody(w)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"transactions":       []any{},
			"total_transactions": 0,
			"request_id":         "req-2",
		})
	})
	c.baseDelay = 10 * time.Millisecond

	resp, err := c.GetTransactions(context.Background(), "token", "item-1", "2024-01-01", "2024-01-31", TransactionsOptions{})
	require.NoError(t, err)
	assert.Equal(t, "req-2", resp.RequestID)

	// Two rate-limited attempts, success on the third, exponential waits.
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *slept)
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	c, slept := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		rateLimitBody(w)
	})
	c.baseDelay = time.Millisecond

	err := c.CallWithRetry(context.Background(), models.EndpointTransactions, map[string]any{}, "", nil)
	var perr *models.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.IsRateLimit())
	assert.Equal(t, defaultMaxRetries+1, attempts)
	assert.Len(t, *slept, defaultMaxRetries)
}

func TestNoRetryOnOtherErrors(t *testing.T) {
	attempts := 0
	c, slept := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error_type":    "INVALID_INPUT",
			"error_code":    "INVALID_FIELD",
			"error_message": "bad field",
		})
	})

	err := c.CallWithRetry(context.Background(), models.EndpointAccounts, map[string]any{}, "", nil)
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "non-rate-limit errors are never retried")
	assert.Empty(t, *slept)
}

func TestTransactionsPageSizeCapped(t *testing.T) {
	var gotBody map[string]any
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{"transactions": []any{}, "total_transactions": 0, "request_id": "r"})
	})

	_, err := c.GetTransactions(context.Background(), "token", "item-1", "2024-01-01", "2024-01-31", TransactionsOptions{Count: 10_000, Offset: 500})
	require.NoError(t, err)

	options := gotBody["options"].(map[string]any)
	assert.Equal(t, float64(MaxTransactionsPerPage), options["count"])
	assert.Equal(t, float64(500), options["offset"])
}

func TestUnknownEndpointRejected(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {})
	err := c.Call(context.Background(), "definitely_not_an_endpoint", nil, "", nil)
	require.Error(t, err)
	var perr *models.ProviderError
	assert.False(t, errors.As(err, &perr), "unknown endpoint is a programmer error, not a provider error")
}
