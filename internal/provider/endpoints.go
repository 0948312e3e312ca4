package provider

import (
	"context"

	"github.com/finwell/finance-gateway/internal/models"
)

// MaxTransactionsPerPage is the provider's hard page-size cap.
const MaxTransactionsPerPage = 500

// CreateLinkToken creates a short-lived token used to start the account
// linking flow.
func (c *Client) CreateLinkToken(ctx context.Context, userID, clientName string) (*models.LinkTokenResponse, error) {
	payload := map[string]any{
		"user":          map[string]any{"client_user_id": userID},
		"client_name":   clientName,
		"language":      "en",
		"country_codes": []string{"US"},
		"products":      []string{"transactions"},
	}
	var out models.LinkTokenResponse
	if err := c.CallWithRetry(ctx, models.EndpointLinkToken, payload, userID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExchangePublicToken trades a public token from the linking flow for a
// durable access token and item id.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*models.ExchangeTokenResponse, error) {
	payload := map[string]any{"public_token": publicToken}
	var out models.ExchangeTokenResponse
	if err := c.CallWithRetry(ctx, models.EndpointExchangeToken, payload, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAccounts fetches the accounts for a linked item.
func (c *Client) GetAccounts(ctx context.Context, accessToken, itemID string) (*models.AccountsResponse, error) {
	payload := map[string]any{"access_token": accessToken}
	var out models.AccountsResponse
	if err := c.CallWithRetry(ctx, models.EndpointAccounts, payload, itemID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBalances fetches real-time balances for a linked item.
func (c *Client) GetBalances(ctx context.Context, accessToken, itemID string) (*models.AccountsResponse, error) {
	payload := map[string]any{"access_token": accessToken}
	var out models.AccountsResponse
	if err := c.CallWithRetry(ctx, models.EndpointBalances, payload, itemID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransactionsOptions controls pagination of a transactions fetch. Count is
// capped at MaxTransactionsPerPage.
type TransactionsOptions struct {
	Count      int
	Offset     int
	AccountIDs []string
}

// GetTransactions fetches one page of transactions for a linked item over a
// date range (YYYY-MM-DD bounds, inclusive).
func (c *Client) GetTransactions(ctx context.Context, accessToken, itemID, startDate, endDate string, opts TransactionsOptions) (*models.TransactionsResponse, error) {
	count := opts.Count
	if count <= 0 || count > MaxTransactionsPerPage {
		count = MaxTransactionsPerPage
	}
	options := map[string]any{
		"count":  count,
		"offset": opts.Offset,
	}
	if len(opts.AccountIDs) > 0 {
		options["account_ids"] = opts.AccountIDs
	}
	payload := map[string]any{
		"access_token": accessToken,
		"start_date":   startDate,
		"end_date":     endDate,
		"options":      options,
	}
	var out models.TransactionsResponse
	if err := c.CallWithRetry(ctx, models.EndpointTransactions, payload, itemID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetInstitution fetches metadata for an institution.
func (c *Client) GetInstitution(ctx context.Context, institutionID string) (*models.Institution, error) {
	payload := map[string]any{
		"institution_id": institutionID,
		"country_codes":  []string{"US"},
	}
	var out models.Institution
	if err := c.CallWithRetry(ctx, models.EndpointInstitution, payload, institutionID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveItem unlinks an item, invalidating its access token.
func (c *Client) RemoveItem(ctx context.Context, accessToken, itemID string) (*models.RemoveItemResponse, error) {
	payload := map[string]any{"access_token": accessToken}
	var out models.RemoveItemResponse
	if err := c.CallWithRetry(ctx, models.EndpointItemRemove, payload, itemID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetItemStatus reports connection health for a linked item.
func (c *Client) GetItemStatus(ctx context.Context, accessToken, itemID string) (*models.ItemStatusResponse, error) {
	payload := map[string]any{"access_token": accessToken}
	var out models.ItemStatusResponse
	if err := c.CallWithRetry(ctx, models.EndpointItemStatus, payload, itemID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
