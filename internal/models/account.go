package models

// Account represents a financial account owned by a user.
type Account struct {
	ID      string  `json:"id,omitempty"`
	UserID  string  `json:"user_id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Balance float64 `json:"balance"`
}

// AccountTypes is the fixed set of allowed account types.
var AccountTypes = []string{"checking", "savings", "credit", "investment", "loan"}

// ValidAccountType reports whether t is one of the allowed account types.
func ValidAccountType(t string) bool {
	for _, a := range AccountTypes {
		if a == t {
			return true
		}
	}
	return false
}
