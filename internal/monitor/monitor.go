// Package monitor implements the suspicious-activity heuristics evaluated
// against incoming writes. Detection is fixed-threshold pattern matching,
// not fraud scoring; a hit flags and logs the write but never blocks it.
package monitor

import (
	"fmt"
	"time"

	"github.com/finwell/finance-gateway/internal/models"
	"github.com/finwell/finance-gateway/internal/ratelimit"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// suspiciousAmountCutoff flags any transaction above this magnitude.
const suspiciousAmountCutoff = 100_000

// disallowedCategories are debug/admin categories that should never appear
// in real user data.
var disallowedCategories = map[string]bool{
	"test":  true,
	"debug": true,
	"admin": true,
}

// Pattern names recorded with a suspicious_activity event.
const (
	PatternBurstRate          = "burst_rate"
	PatternLargeAmount        = "large_amount"
	PatternDisallowedCategory = "disallowed_category"
	PatternFutureDate         = "future_date"
)

// AuditLog receives best-effort security events.
type AuditLog interface {
	AppendSecurityEvent(ev models.SecurityEvent) error
}

// Alerter forwards a flagged write to an out-of-band channel. Optional.
type Alerter interface {
	SendSuspiciousActivity(userID, pattern string, detail map[string]string) error
}

// Activity is the slice of a write the heuristics look at. A zero Date
// means the write carried no date.
type Activity struct {
	Amount   float64
	Category string
	Date     time.Time
}

// Monitor evaluates the fixed heuristic set against incoming writes.
type Monitor struct {
	limiter *ratelimit.Limiter
	audit   AuditLog
	alerter Alerter
	log     *logrus.Logger
	now     func() time.Time
}

// New returns a Monitor. alerter may be nil to disable out-of-band alerts.
func New(limiter *ratelimit.Limiter, audit AuditLog, alerter Alerter, log *logrus.Logger) *Monitor {
	return &Monitor{limiter: limiter, audit: audit, alerter: alerter, log: log, now: time.Now}
}

// IsSuspicious evaluates the heuristics in order and stops at the first
// match: operation burst rate over its ceiling, amount magnitude over the
// cutoff, disallowed category, or a future-dated record. A match emits a
// best-effort suspicious_activity event with the pattern name and returns
// true.
func (m *Monitor) IsSuspicious(userID, operation string, act Activity) bool {
	if pattern := m.match(userID, operation, act); pattern != "" {
		m.flag(userID, operation, pattern, act)
		return true
	}
	return false
}

func (m *Monitor) match(userID, operation string, act Activity) string {
	if !m.limiter.CanProceed(operation, userID) {
		return PatternBurstRate
	}
	m.limiter.Record(operation, userID)

	if act.Amount > suspiciousAmountCutoff || act.Amount < -suspiciousAmountCutoff {
		return PatternLargeAmount
	}
	if disallowedCategories[act.Category] {
		return PatternDisallowedCategory
	}
	if !act.Date.IsZero() && act.Date.After(m.now()) {
		return PatternFutureDate
	}
	return ""
}

// flag records the match. Both the audit write and the alert run detached;
// their failures are logged and never reach the triggering operation.
func (m *Monitor) flag(userID, operation, pattern string, act Activity) {
	detail := map[string]string{
		"operation": operation,
		"pattern":   pattern,
		"amount":    fmt.Sprintf("%.2f", act.Amount),
		"category":  act.Category,
	}

	m.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"operation": operation,
		"pattern":   pattern,
	}).Warn("suspicious activity detected")

	ev := models.SecurityEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		EventType: models.EventSuspiciousActivity,
		Timestamp: m.now(),
		Detail:    detail,
	}
	go func() {
		if err := m.audit.AppendSecurityEvent(ev); err != nil {
			m.log.WithError(err).Warn("security event write failed")
		}
	}()

	if m.alerter != nil {
		go func() {
			if err := m.alerter.SendSuspiciousActivity(userID, pattern, detail); err != nil {
				m.log.WithError(err).Warn("suspicious activity alert failed")
			}
		}()
	}
}
