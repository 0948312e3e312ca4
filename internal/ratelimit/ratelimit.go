// Package ratelimit implements the sliding-window limiter consulted before
// every metered operation. State lives in an injected key-value store so the
// limiter is testable with an in-memory fake and durable across restarts
// when backed by the local database.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// Window is the trailing interval over which requests are counted.
	Window = 60 * time.Second
	// pollInterval is how often AwaitSlot re-checks for a free slot.
	pollInterval = time.Second
	// DefaultCeiling applies to endpoints without an explicit entry.
	DefaultCeiling = 30
)

// ceilings maps endpoint names to their per-minute request ceilings.
var ceilings = map[string]int{
	"transactions_get":  100,
	"auth":              10,
	"accounts_get":      50,
	"link_token_create": 20,
}

// ErrTimeout is returned by AwaitSlot when no slot frees up within the
// caller's wait budget. Callers may retry at a higher level; the limiter
// itself never does.
var ErrTimeout = errors.New("timed out waiting for rate limit slot")

// Store persists request windows keyed by (endpoint, resource id).
type Store interface {
	// Window returns the recorded request timestamps for key, oldest first.
	// A key that was never written returns an empty window.
	Window(key string) ([]time.Time, error)
	// SetWindow replaces the recorded timestamps for key.
	SetWindow(key string, stamps []time.Time) error
}

// Limiter is a sliding-window request counter.
//
// CanProceed and Record are deliberately separate and not atomic: two
// operations interleaved at an I/O suspension point can both observe an
// under-ceiling window and both proceed. The resulting transient
// over-limit burst is bounded by the window length and accepted; the
// backing store offers no compare-and-swap to close the gap.
type Limiter struct {
	store Store
	log   *logrus.Logger
	now   func() time.Time
}

// New returns a Limiter over the given store.
func New(store Store, log *logrus.Logger) *Limiter {
	return &Limiter{store: store, log: log, now: time.Now}
}

// Ceiling returns the request ceiling for an endpoint.
func Ceiling(endpoint string) int {
	if c, ok := ceilings[endpoint]; ok {
		return c
	}
	return DefaultCeiling
}

func key(endpoint, resourceID string) string {
	if resourceID == "" {
		return endpoint
	}
	return endpoint + ":" + resourceID
}

// CanProceed reports whether another request for (endpoint, resourceID)
// fits under the endpoint's ceiling. Entries older than the window are
// pruned as a side effect. A store failure is logged and the request is
// allowed through: the limiter is a local courtesy budget, not a
// correctness gate.
func (l *Limiter) CanProceed(endpoint, resourceID string) bool {
	k := key(endpoint, resourceID)
	stamps, err := l.store.Window(k)
	if err != nil {
		l.log.WithError(err).WithField("key", k).Warn("rate limit store read failed, allowing request")
		return true
	}

	cutoff := l.now().Add(-Window)
	fresh := stamps[:0]
	for _, s := range stamps {
		if s.After(cutoff) {
			fresh = append(fresh, s)
		}
	}
	if len(fresh) != len(stamps) {
		if err := l.store.SetWindow(k, fresh); err != nil {
			l.log.WithError(err).WithField("key", k).Warn("rate limit window prune failed")
		}
	}

	return len(fresh) < Ceiling(endpoint)
}

// Record appends the current instant to the window for (endpoint,
// resourceID). Call it only after CanProceed returned true for the same
// attempt.
func (l *Limiter) Record(endpoint, resourceID string) {
	k := key(endpoint, resourceID)
	stamps, err := l.store.Window(k)
	if err != nil {
		l.log.WithError(err).WithField("key", k).Warn("rate limit store read failed, dropping record")
		return
	}
	if err := l.store.SetWindow(k, append(stamps, l.now())); err != nil {
		l.log.WithError(err).WithField("key", k).Warn("rate limit record failed")
	}
}

// AwaitSlot polls CanProceed until a slot is free, the context is
// cancelled, or maxWait elapses. The last poll is shortened to whatever
// budget remains, so sub-second waits still get one full chance. Timeout
// surfaces as ErrTimeout, distinct from every other gateway error, so
// callers can treat it as retryable.
func (l *Limiter) AwaitSlot(ctx context.Context, endpoint, resourceID string, maxWait time.Duration) error {
	deadline := l.now().Add(maxWait)
	for {
		if l.CanProceed(endpoint, resourceID) {
			return nil
		}
		remaining := deadline.Sub(l.now())
		if remaining <= 0 {
			return ErrTimeout
		}
		wait := pollInterval
		if remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
