package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/finwell/finance-gateway/internal/models"
	"github.com/finwell/finance-gateway/internal/provider"
	"github.com/finwell/finance-gateway/internal/usage"
)

// CallProvider performs a metered provider call for the acting user: the
// client waits for a rate-limit slot, retries rate-limit-class provider
// errors with backoff, and a usage record is written on success. The raw
// response is returned for the caller to shape.
func (g *Gateway) CallProvider(ctx context.Context, endpoint string, payload map[string]any, itemID, actorID string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := g.client.CallWithRetry(ctx, endpoint, payload, itemID, &out); err != nil {
		return nil, err
	}
	g.trackUsage(actorID, endpoint)
	return out, nil
}

// trackUsage records the call and logs a soft warning once the free-tier
// cap is exhausted. Accounting never fails the call that triggered it.
func (g *Gateway) trackUsage(actorID, endpoint string) {
	g.tracker.Track(actorID, endpoint)
	if endpoint != models.EndpointTransactions {
		return
	}
	status, err := g.tracker.CheckFreeTierLimits(actorID)
	if err != nil {
		g.log.WithError(err).Warn("free tier check failed")
		return
	}
	if !status.IsWithinLimits {
		g.log.WithField("user_id", actorID).Warnf("monthly free tier cap of %d transactions fetches exhausted", usage.FreeTierTransactionsCap)
	}
}

// CreateLinkToken starts the account linking flow for the acting user.
func (g *Gateway) CreateLinkToken(ctx context.Context, actorID, clientName string) (*models.LinkTokenResponse, error) {
	resp, err := g.client.CreateLinkToken(ctx, actorID, clientName)
	if err != nil {
		return nil, err
	}
	g.trackUsage(actorID, models.EndpointLinkToken)
	return resp, nil
}

// ExchangePublicToken trades a public token for a durable access token and
// item id.
func (g *Gateway) ExchangePublicToken(ctx context.Context, actorID, publicToken string) (*models.ExchangeTokenResponse, error) {
	resp, err := g.client.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, err
	}
	g.trackUsage(actorID, models.EndpointExchangeToken)
	return resp, nil
}

// GetAccounts fetches the accounts for a linked item.
func (g *Gateway) GetAccounts(ctx context.Context, actorID string, item *models.Item) (*models.AccountsResponse, error) {
	resp, err := g.client.GetAccounts(ctx, item.AccessToken, item.ItemID)
	if err != nil {
		return nil, err
	}
	g.trackUsage(actorID, models.EndpointAccounts)
	return resp, nil
}

// GetBalances fetches real-time balances for a linked item.
func (g *Gateway) GetBalances(ctx context.Context, actorID string, item *models.Item) (*models.AccountsResponse, error) {
	resp, err := g.client.GetBalances(ctx, item.AccessToken, item.ItemID)
	if err != nil {
		return nil, err
	}
	g.trackUsage(actorID, models.EndpointBalances)
	return resp, nil
}

// GetTransactions fetches one page of transactions for a linked item.
func (g *Gateway) GetTransactions(ctx context.Context, actorID string, item *models.Item, startDate, endDate string, opts provider.TransactionsOptions) (*models.TransactionsResponse, error) {
	resp, err := g.client.GetTransactions(ctx, item.AccessToken, item.ItemID, startDate, endDate, opts)
	if err != nil {
		return nil, err
	}
	g.trackUsage(actorID, models.EndpointTransactions)
	return resp, nil
}

// GetInstitution fetches institution metadata.
func (g *Gateway) GetInstitution(ctx context.Context, actorID, institutionID string) (*models.Institution, error) {
	resp, err := g.client.GetInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	g.trackUsage(actorID, models.EndpointInstitution)
	return resp, nil
}

// RemoveItem unlinks an item.
func (g *Gateway) RemoveItem(ctx context.Context, actorID string, item *models.Item) (*models.RemoveItemResponse, error) {
	resp, err := g.client.RemoveItem(ctx, item.AccessToken, item.ItemID)
	if err != nil {
		return nil, err
	}
	g.trackUsage(actorID, models.EndpointItemRemove)
	return resp, nil
}

// GetItemStatus reports connection health for a linked item.
func (g *Gateway) GetItemStatus(ctx context.Context, actorID string, item *models.Item) (*models.ItemStatusResponse, error) {
	resp, err := g.client.GetItemStatus(ctx, item.AccessToken, item.ItemID)
	if err != nil {
		return nil, err
	}
	g.trackUsage(actorID, models.EndpointItemStatus)
	return resp, nil
}

// FreeTierStatus reports the acting user's month-to-date standing against
// the free-tier caps.
func (g *Gateway) FreeTierStatus(actorID string) (*models.FreeTierStatus, error) {
	return g.tracker.CheckFreeTierLimits(actorID)
}

// MonthlyUsage reports per-endpoint call counts for the current month.
func (g *Gateway) MonthlyUsage(actorID string) (map[string]int, error) {
	return g.tracker.MonthlyUsage(actorID, time.Time{})
}
