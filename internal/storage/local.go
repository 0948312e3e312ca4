// Package storage provides the local database backing the gateway's
// client-session state: usage records, the security audit log and
// rate-limit windows. It is deliberately separate from the main record
// store; this state is process-local by design.
package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/finwell/finance-gateway/internal/models"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// Local wraps the sqlite connection holding gateway-local state.
type Local struct {
	conn *sql.DB
}

// NewLocal opens the local database and runs migrations. Use ":memory:"
// for tests.
func NewLocal(path string) (*Local, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &Local{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *Local) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS usage_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			ts DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_user_ts ON usage_records(user_id, ts)`,
		`CREATE TABLE IF NOT EXISTS security_events (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			ts DATETIME NOT NULL,
			detail TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS rate_windows (
			key TEXT PRIMARY KEY,
			stamps TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// AppendUsage inserts one usage record.
func (db *Local) AppendUsage(rec models.UsageRecord) error {
	_, err := db.conn.Exec(
		"INSERT INTO usage_records (user_id, endpoint, ts) VALUES (?, ?, ?)",
		rec.UserID, rec.Endpoint, rec.Timestamp,
	)
	return err
}

// UsageByEndpoint counts usage records per endpoint for a user within
// [start, end).
func (db *Local) UsageByEndpoint(userID string, start, end time.Time) (map[string]int, error) {
	rows, err := db.conn.Query(
		"SELECT endpoint, COUNT(*) FROM usage_records WHERE user_id = ? AND ts >= ? AND ts < ? GROUP BY endpoint",
		userID, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var endpoint string
		var n int
		if err := rows.Scan(&endpoint, &n); err != nil {
			return nil, err
		}
		counts[endpoint] = n
	}
	return counts, rows.Err()
}

// AppendSecurityEvent inserts one audit log entry.
func (db *Local) AppendSecurityEvent(ev models.SecurityEvent) error {
	detail, err := json.Marshal(ev.Detail)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		"INSERT INTO security_events (id, user_id, event_type, ts, detail) VALUES (?, ?, ?, ?, ?)",
		ev.ID, ev.UserID, ev.EventType, ev.Timestamp, string(detail),
	)
	return err
}

// SecurityEvents returns the most recent audit entries for a user, newest
// first.
func (db *Local) SecurityEvents(userID string, limit int) ([]models.SecurityEvent, error) {
	rows, err := db.conn.Query(
		"SELECT id, user_id, event_type, ts, detail FROM security_events WHERE user_id = ? ORDER BY ts DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.SecurityEvent
	for rows.Next() {
		var ev models.SecurityEvent
		var detail string
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.EventType, &ev.Timestamp, &detail); err != nil {
			return nil, err
		}
		if detail != "" {
			if err := json.Unmarshal([]byte(detail), &ev.Detail); err != nil {
				return nil, err
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Window returns the recorded request timestamps for a rate-limit key.
// Implements ratelimit.Store.
func (db *Local) Window(key string) ([]time.Time, error) {
	var raw string
	err := db.conn.QueryRow("SELECT stamps FROM rate_windows WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var millis []int64
	if err := json.Unmarshal([]byte(raw), &millis); err != nil {
		return nil, err
	}
	stamps := make([]time.Time, len(millis))
	for i, ms := range millis {
		stamps[i] = time.UnixMilli(ms)
	}
	return stamps, nil
}

// SetWindow replaces the recorded timestamps for a rate-limit key.
// Implements ratelimit.Store.
func (db *Local) SetWindow(key string, stamps []time.Time) error {
	if len(stamps) == 0 {
		_, err := db.conn.Exec("DELETE FROM rate_windows WHERE key = ?", key)
		return err
	}

	millis := make([]int64, len(stamps))
	for i, s := range stamps {
		millis[i] = s.UnixMilli()
	}
	raw, err := json.Marshal(millis)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		`INSERT INTO rate_windows (key, stamps, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET stamps = excluded.stamps, updated_at = excluded.updated_at`,
		key, string(raw), time.Now(),
	)
	return err
}

// SweepUsageBefore deletes usage records older than cutoff, returning the
// number removed.
func (db *Local) SweepUsageBefore(cutoff time.Time) (int64, error) {
	res, err := db.conn.Exec("DELETE FROM usage_records WHERE ts < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SweepEventsBefore deletes audit entries older than cutoff, returning the
// number removed.
func (db *Local) SweepEventsBefore(cutoff time.Time) (int64, error) {
	res, err := db.conn.Exec("DELETE FROM security_events WHERE ts < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SweepIdleWindows deletes rate-limit windows untouched since cutoff.
func (db *Local) SweepIdleWindows(cutoff time.Time) (int64, error) {
	res, err := db.conn.Exec("DELETE FROM rate_windows WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (db *Local) Close() error {
	return db.conn.Close()
}
