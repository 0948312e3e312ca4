package models

import "time"

// Transaction represents a financial transaction entering the gateway from
// any source: manual entry, statement import, or provider sync.
type Transaction struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	Note        string    `json:"note,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// IsInflow reports whether the transaction moves money into the account.
// Positive amounts are inflows, negative amounts are outflows.
func (t *Transaction) IsInflow() bool {
	return t.Amount > 0
}
