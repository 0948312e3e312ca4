package models

// Input shapes are the loosely-typed records arriving from heterogeneous
// sources (manual entry, statement import, provider sync). Fields that vary
// in representation across sources are declared as any and resolved by the
// sanitizer; the validator reports a violation when they cannot be resolved.

// TransactionInput is a candidate transaction before validation.
type TransactionInput struct {
	UserID      string   `json:"user_id"`
	Amount      any      `json:"amount"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Date        any      `json:"date"`
	Note        string   `json:"note,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AccountInput is a candidate account before validation.
type AccountInput struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Balance any    `json:"balance"`
}

// UserInput is a candidate user profile before validation.
type UserInput struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}
