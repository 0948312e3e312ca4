// Package validate implements the per-entity rule sets applied before any
// record is persisted. Validation is pure and never short-circuits: every
// rule runs so the caller sees all problems in one pass.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/finwell/finance-gateway/internal/models"
	"github.com/finwell/finance-gateway/internal/sanitize"
)

const (
	maxDescriptionLength = 500
	maxNameLength        = 100
	maxAmount            = 1_000_000
	maxRecordAge         = 10 // years
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Result aggregates the outcome of validating one record. Violations reject
// the record; warnings are coerced by the sanitizer and only logged.
type Result struct {
	Violations []string
	Warnings   []string
}

// OK reports whether the record passed validation.
func (r Result) OK() bool {
	return len(r.Violations) == 0
}

// Validator applies the fixed rule sets. AllowFutureDates is the
// development/test override for the future-date rule on transactions.
type Validator struct {
	AllowFutureDates bool
}

// New returns a Validator. allowFutureDates relaxes the future-date rule
// and should only be set outside production.
func New(allowFutureDates bool) *Validator {
	return &Validator{AllowFutureDates: allowFutureDates}
}

// Transaction validates a candidate transaction.
func (v *Validator) Transaction(in *models.TransactionInput) Result {
	var r Result

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		r.Violations = append(r.Violations, "description is required")
	} else if utf8.RuneCountInString(desc) > maxDescriptionLength {
		r.Violations = append(r.Violations, fmt.Sprintf("description must be %d characters or less", maxDescriptionLength))
	}

	amount, numeric := sanitize.Number(in.Amount)
	switch {
	case !numeric || math.IsNaN(amount) || math.IsInf(amount, 0):
		r.Violations = append(r.Violations, "amount must be a number")
	case amount == 0:
		r.Violations = append(r.Violations, "amount must not be zero")
	case math.Abs(amount) > maxAmount:
		r.Violations = append(r.Violations, fmt.Sprintf("amount must not exceed %d in magnitude", maxAmount))
	}

	if date, err := sanitize.Timestamp(in.Date); err != nil {
		r.Violations = append(r.Violations, "date is not a valid timestamp")
	} else {
		now := time.Now()
		if date.Before(now.AddDate(-maxRecordAge, 0, 0)) {
			r.Violations = append(r.Violations, fmt.Sprintf("date must not be more than %d years in the past", maxRecordAge))
		}
		if !v.AllowFutureDates && date.After(now) {
			r.Violations = append(r.Violations, "date must not be in the future")
		}
	}

	if trimmed := strings.TrimSpace(in.Category); trimmed != "" {
		if _, known := sanitize.Category(in.Category); !known {
			r.Warnings = append(r.Warnings, fmt.Sprintf("unknown category %q will be recorded as %q", in.Category, sanitize.CategoryOther))
		}
	}

	return r
}

// Account validates a candidate account.
func (v *Validator) Account(in *models.AccountInput) Result {
	var r Result

	name := strings.TrimSpace(in.Name)
	if name == "" {
		r.Violations = append(r.Violations, "name is required")
	} else if utf8.RuneCountInString(name) > maxNameLength {
		r.Violations = append(r.Violations, fmt.Sprintf("name must be %d characters or less", maxNameLength))
	}

	if !models.ValidAccountType(strings.ToLower(strings.TrimSpace(in.Type))) {
		r.Violations = append(r.Violations, fmt.Sprintf("type must be one of: %s", strings.Join(models.AccountTypes, ", ")))
	}

	balance, numeric := sanitize.Number(in.Balance)
	switch {
	case !numeric || math.IsNaN(balance) || math.IsInf(balance, 0):
		r.Violations = append(r.Violations, "balance must be a number")
	case math.Abs(balance) > maxAmount:
		r.Violations = append(r.Violations, fmt.Sprintf("balance must not exceed %d in magnitude", maxAmount))
	}

	return r
}

// User validates a candidate user profile.
func (v *Validator) User(in *models.UserInput) Result {
	var r Result

	email := strings.TrimSpace(in.Email)
	if email == "" {
		r.Violations = append(r.Violations, "email is required")
	} else if !emailRe.MatchString(email) {
		r.Violations = append(r.Violations, "email is not a valid address")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		r.Violations = append(r.Violations, "name is required")
	} else if utf8.RuneCountInString(name) > maxNameLength {
		r.Violations = append(r.Violations, fmt.Sprintf("name must be %d characters or less", maxNameLength))
	}

	return r
}
