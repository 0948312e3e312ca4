package models

import "time"

// Security event types written to the audit log.
const (
	EventValidationFailed   = "validation_failed"
	EventUnauthorized       = "unauthorized_access"
	EventSuspiciousActivity = "suspicious_activity"
)

// SecurityEvent is an append-only audit log entry. Writes are best-effort:
// a failed write never aborts the operation that triggered it.
type SecurityEvent struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	EventType string            `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// UsageRecord records one metered outbound provider call.
type UsageRecord struct {
	UserID    string    `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	Timestamp time.Time `json:"timestamp"`
}

// FreeTierStatus reports month-to-date standing against the free-tier caps.
type FreeTierStatus struct {
	TransactionsRemaining int  `json:"transactionsRemaining"`
	IsWithinLimits        bool `json:"isWithinLimits"`
}
