// Package usage accounts for metered provider calls and checks them
// against the fixed free-tier caps.
package usage

import (
	"time"

	"github.com/finwell/finance-gateway/internal/models"
	"github.com/sirupsen/logrus"
)

// FreeTierTransactionsCap is the fixed monthly ceiling on transactions
// fetches. Enforced as a soft client-side warning, never a hard block.
const FreeTierTransactionsCap = 2000

// Store persists usage records and answers monthly aggregation queries.
type Store interface {
	AppendUsage(rec models.UsageRecord) error
	UsageByEndpoint(userID string, start, end time.Time) (map[string]int, error)
}

// Tracker records one usage entry per outbound provider call.
type Tracker struct {
	store Store
	log   *logrus.Logger
	now   func() time.Time
}

// NewTracker returns a Tracker over the given store.
func NewTracker(store Store, log *logrus.Logger) *Tracker {
	return &Tracker{store: store, log: log, now: time.Now}
}

// Track appends a usage record. Best-effort: a storage failure is logged
// and swallowed, it never propagates to the caller.
func (t *Tracker) Track(userID, endpoint string) {
	rec := models.UsageRecord{
		UserID:    userID,
		Endpoint:  endpoint,
		Timestamp: t.now(),
	}
	if err := t.store.AppendUsage(rec); err != nil {
		t.log.WithError(err).WithFields(logrus.Fields{
			"user_id":  userID,
			"endpoint": endpoint,
		}).Warn("usage record write failed")
	}
}

// MonthlyUsage aggregates per-endpoint call counts for the calendar month
// containing ref. A zero ref means the current month.
func (t *Tracker) MonthlyUsage(userID string, ref time.Time) (map[string]int, error) {
	if ref.IsZero() {
		ref = t.now()
	}
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	end := start.AddDate(0, 1, 0)
	return t.store.UsageByEndpoint(userID, start, end)
}

// CheckFreeTierLimits reports the user's month-to-date standing against the
// transactions fetch cap. Remaining floors at zero.
func (t *Tracker) CheckFreeTierLimits(userID string) (*models.FreeTierStatus, error) {
	counts, err := t.MonthlyUsage(userID, time.Time{})
	if err != nil {
		return nil, err
	}

	used := counts[models.EndpointTransactions]
	remaining := FreeTierTransactionsCap - used
	if remaining < 0 {
		remaining = 0
	}
	return &models.FreeTierStatus{
		TransactionsRemaining: remaining,
		IsWithinLimits:        used < FreeTierTransactionsCap,
	}, nil
}
