// Package provider wraps outbound calls to the third-party account
// aggregation API. Every call passes through the local rate limiter first
// and failures surface as typed ProviderError values; rate-limit-class
// provider errors are retried with bounded exponential backoff.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/finwell/finance-gateway/internal/config"
	"github.com/finwell/finance-gateway/internal/models"
	"github.com/finwell/finance-gateway/internal/ratelimit"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
	defaultWaitBudget = 30 * time.Second
)

// paths maps metered endpoint names to provider URL paths.
var paths = map[string]string{
	models.EndpointLinkToken:     "/link/token/create",
	models.EndpointExchangeToken: "/item/public_token/exchange",
	models.EndpointAccounts:      "/accounts/get",
	models.EndpointBalances:      "/accounts/balance/get",
	models.EndpointTransactions:  "/transactions/get",
	models.EndpointInstitution:   "/institutions/get_by_id",
	models.EndpointItemRemove:    "/item/remove",
	models.EndpointItemStatus:    "/item/get",
}

// Client handles integration with the account aggregation provider.
type Client struct {
	baseURL  string
	clientID string
	secret   string
	client   *http.Client
	limiter  *ratelimit.Limiter
	log      *logrus.Logger

	maxRetries int
	baseDelay  time.Duration
	waitBudget time.Duration
	sleep      func(context.Context, time.Duration) error
}

// NewClient initializes a new provider client.
func NewClient(cfg *config.Config, limiter *ratelimit.Limiter, log *logrus.Logger) *Client {
	return &Client{
		baseURL:  cfg.ProviderURL,
		clientID: cfg.ProviderClientID,
		secret:   cfg.ProviderSecret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:    limiter,
		log:        log,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		waitBudget: defaultWaitBudget,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Call performs a single provider request for the named endpoint. It waits
// for a local rate-limit slot, records the request, posts the payload and
// decodes the response into out. Non-success responses come back as a
// *models.ProviderError; transport failures are synthesized as
// NETWORK_ERROR.
func (c *Client) Call(ctx context.Context, endpoint string, payload map[string]any, resourceID string, out any) error {
	path, ok := paths[endpoint]
	if !ok {
		return fmt.Errorf("unknown provider endpoint %q", endpoint)
	}

	if err := c.limiter.AwaitSlot(ctx, endpoint, resourceID, c.waitBudget); err != nil {
		return err
	}
	c.limiter.Record(endpoint, resourceID)

	body, err := c.buildRequest(payload)
	if err != nil {
		return err
	}
	respBody, perr := c.sendRequest(ctx, path, body)
	if perr != nil {
		return perr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

// CallWithRetry performs a provider request, retrying rate-limit-class
// errors with exponential backoff (baseDelay * 2^attempt). Any other error
// propagates unchanged on the first occurrence.
func (c *Client) CallWithRetry(ctx context.Context, endpoint string, payload map[string]any, resourceID string, out any) error {
	for attempt := 0; ; attempt++ {
		err := c.Call(ctx, endpoint, payload, resourceID, out)
		if err == nil {
			return nil
		}
		perr, ok := err.(*models.ProviderError)
		if !ok || !perr.IsRateLimit() || attempt >= c.maxRetries {
			return err
		}
		delay := c.baseDelay * (1 << attempt)
		c.log.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"attempt":  attempt + 1,
			"delay":    delay.String(),
		}).Warn("provider rate limited, backing off")
		if serr := c.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

// buildRequest serializes the payload with the client credentials the
// provider expects in every request body.
func (c *Client) buildRequest(payload map[string]any) ([]byte, error) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["client_id"] = c.clientID
	body["secret"] = c.secret

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}
	return data, nil
}

// sendRequest posts the serialized body and returns the raw response, or a
// *models.ProviderError for transport failures and non-success statuses.
func (c *Client) sendRequest(ctx context.Context, path string, body []byte) ([]byte, *models.ProviderError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, networkError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorBody(resp.StatusCode, respBody)
	}

	c.log.Debugf("provider response %s: %s", path, string(respBody))
	return respBody, nil
}

func networkError(err error) *models.ProviderError {
	return &models.ProviderError{
		ErrorType:    "NETWORK_ERROR",
		ErrorCode:    "NETWORK_ERROR",
		ErrorMessage: err.Error(),
	}
}

// parseErrorBody extracts the provider's error shape from a non-success
// response, falling back to a synthesized API_ERROR when the body is not
// the documented shape.
func parseErrorBody(status int, body []byte) *models.ProviderError {
	perr := &models.ProviderError{}
	if err := json.Unmarshal(body, perr); err == nil && perr.ErrorCode != "" {
		return perr
	}
	return &models.ProviderError{
		ErrorType:    "API_ERROR",
		ErrorCode:    fmt.Sprintf("HTTP_%d", status),
		ErrorMessage: fmt.Sprintf("unexpected status code: %d", status),
	}
}
