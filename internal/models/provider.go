package models

import "fmt"

// Provider endpoint names used for rate limiting and usage accounting.
const (
	EndpointAuth          = "auth"
	EndpointLinkToken     = "link_token_create"
	EndpointExchangeToken = "item_public_token_exchange"
	EndpointAccounts      = "accounts_get"
	EndpointBalances      = "accounts_balance_get"
	EndpointTransactions  = "transactions_get"
	EndpointInstitution   = "institutions_get_by_id"
	EndpointItemRemove    = "item_remove"
	EndpointItemStatus    = "item_get"
)

// ProviderError is the typed error surfaced for any non-success provider
// response, shaped after the provider's error body.
type ProviderError struct {
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %s/%s: %s", e.ErrorType, e.ErrorCode, e.ErrorMessage)
}

// IsRateLimit reports whether the error is a provider-side rate-limit
// condition, the only class of errors eligible for automatic retry.
func (e *ProviderError) IsRateLimit() bool {
	return e.ErrorType == "RATE_LIMIT_EXCEEDED"
}

// LinkTokenResponse is returned when creating a short-lived link token.
type LinkTokenResponse struct {
	LinkToken string `json:"link_token"`
	RequestID string `json:"request_id,omitempty"`
}

// ExchangeTokenResponse pairs a durable access token with its item id.
type ExchangeTokenResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id,omitempty"`
}

// ProviderBalances is the balances sub-object of a provider account.
type ProviderBalances struct {
	Current         float64 `json:"current"`
	Available       float64 `json:"available"`
	ISOCurrencyCode string  `json:"iso_currency_code"`
}

// ProviderAccount is one account as reported by the aggregation provider.
type ProviderAccount struct {
	AccountID    string           `json:"account_id"`
	Name         string           `json:"name"`
	OfficialName string           `json:"official_name,omitempty"`
	Type         string           `json:"type"`
	Subtype      string           `json:"subtype,omitempty"`
	Mask         string           `json:"mask,omitempty"`
	Balances     ProviderBalances `json:"balances"`
}

// AccountsResponse wraps an accounts or balances fetch.
type AccountsResponse struct {
	Accounts  []ProviderAccount `json:"accounts"`
	RequestID string            `json:"request_id,omitempty"`
}

// ProviderTransaction is one transaction as reported by the provider.
type ProviderTransaction struct {
	TransactionID string   `json:"transaction_id"`
	AccountID     string   `json:"account_id"`
	Amount        float64  `json:"amount"`
	Date          string   `json:"date"`
	Name          string   `json:"name"`
	Category      []string `json:"category,omitempty"`
	Pending       bool     `json:"pending"`
}

// TransactionsResponse is one page of a transactions fetch.
type TransactionsResponse struct {
	Transactions      []ProviderTransaction `json:"transactions"`
	TotalTransactions int                   `json:"total_transactions"`
	RequestID         string                `json:"request_id"`
}

// Institution is provider institution metadata.
type Institution struct {
	InstitutionID string   `json:"institution_id"`
	Name          string   `json:"name"`
	Products      []string `json:"products,omitempty"`
	CountryCodes  []string `json:"country_codes,omitempty"`
	URL           string   `json:"url,omitempty"`
	RequestID     string   `json:"request_id,omitempty"`
}

// RemoveItemResponse acknowledges removal of a linked item.
type RemoveItemResponse struct {
	Removed   bool   `json:"removed"`
	RequestID string `json:"request_id,omitempty"`
}

// ItemStatusResponse reports connection health for a linked item.
// Status is one of "good", "pending" or "bad".
type ItemStatusResponse struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id,omitempty"`
	Status        string `json:"status"`
	RequestID     string `json:"request_id,omitempty"`
}

// Item is one linked aggregation connection persisted for a user.
type Item struct {
	ItemID        string `json:"item_id"`
	UserID        string `json:"user_id"`
	AccessToken   string `json:"-"` // Not serialized
	InstitutionID string `json:"institution_id,omitempty"`
	Status        string `json:"status"`
}
