package sanitize

import (
	"fmt"
	"strings"

	"github.com/finwell/finance-gateway/internal/models"
)

// Number resolves a loosely-typed numeric field to a float64. The second
// return value is false when the input is not numeric.
func Number(input any) (float64, bool) {
	switch n := input.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Transaction produces the canonical form of a validated transaction input.
// Returned warnings record non-fatal coercions (unknown category, fallback
// date); the caller logs them, nothing is rejected here.
func Transaction(in *models.TransactionInput, actorID string) (*models.Transaction, []string) {
	var warnings []string

	category, known := Category(in.Category)
	if !known && strings.TrimSpace(in.Category) != "" {
		warnings = append(warnings, fmt.Sprintf("unknown category %q coerced to %q", in.Category, CategoryOther))
	}

	date, err := Timestamp(in.Date)
	if err != nil {
		date = TimestampOrNow(in.Date)
		warnings = append(warnings, "unresolvable date replaced with current time")
	}

	amount, _ := Number(in.Amount)

	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		if t := Text(tag); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		tags = nil
	}

	return &models.Transaction{
		UserID:      ownerID(in.UserID, actorID),
		Amount:      amount,
		Description: Text(in.Description),
		Category:    category,
		Date:        date,
		Note:        Text(in.Note),
		Tags:        tags,
	}, warnings
}

// Account produces the canonical form of a validated account input.
func Account(in *models.AccountInput, actorID string) (*models.Account, []string) {
	balance, _ := Number(in.Balance)
	return &models.Account{
		UserID:  ownerID(in.UserID, actorID),
		Name:    Text(in.Name),
		Type:    strings.ToLower(strings.TrimSpace(in.Type)),
		Balance: balance,
	}, nil
}

// User produces the canonical form of a validated user input.
func User(in *models.UserInput, actorID string) (*models.User, []string) {
	return &models.User{
		UserID: ownerID(in.UserID, actorID),
		Email:  strings.ToLower(strings.TrimSpace(in.Email)),
		Name:   Text(in.Name),
	}, nil
}

// ownerID resolves the ownership field: inputs without one inherit the
// acting identity. Mismatches are rejected upstream before sanitization.
func ownerID(owner, actorID string) string {
	if owner == "" {
		return actorID
	}
	return owner
}
