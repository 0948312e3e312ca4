package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/finwell/finance-gateway/internal/models"
	"github.com/finwell/finance-gateway/internal/ratelimit"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (a *recordingAudit) AppendSecurityEvent(ev models.SecurityEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return nil
}

func (a *recordingAudit) snapshot() []models.SecurityEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.SecurityEvent, len(a.events))
	copy(out, a.events)
	return out
}

func testMonitor() (*Monitor, *recordingAudit) {
	audit := &recordingAudit{}
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), logrus.New())
	return New(limiter, audit, nil, logrus.New()), audit
}

func TestLargeAmountFlagged(t *testing.T) {
	m, audit := testMonitor()

	flagged := m.IsSuspicious("u1", "create_transaction", Activity{Amount: 150_000, Category: "transfer"})
	assert.True(t, flagged)

	require.Eventually(t, func() bool { return len(audit.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	ev := audit.snapshot()[0]
	assert.Equal(t, models.EventSuspiciousActivity, ev.EventType)
	assert.Equal(t, PatternLargeAmount, ev.Detail["pattern"])
}

func TestLargeNegativeAmountFlagged(t *testing.T) {
	m, _ := testMonitor()
	assert.True(t, m.IsSuspicious("u1", "create_transaction", Activity{Amount: -150_000, Category: "transfer"}))
}

func TestOrdinaryWriteNotFlagged(t *testing.T) {
	m, audit := testMonitor()

	flagged := m.IsSuspicious("u1", "create_transaction", Activity{Amount: 100, Category: "groceries", Date: time.Now().Add(-time.Minute)})
	assert.False(t, flagged)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, audit.snapshot())
}

func TestDisallowedCategoryFlagged(t *testing.T) {
	m, audit := testMonitor()

	assert.True(t, m.IsSuspicious("u1", "create_transaction", Activity{Amount: 10, Category: "test"}))

	require.Eventually(t, func() bool { return len(audit.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, PatternDisallowedCategory, audit.snapshot()[0].Detail["pattern"])
}

func TestFutureDateFlagged(t *testing.T) {
	m, audit := testMonitor()

	assert.True(t, m.IsSuspicious("u1", "create_transaction", Activity{Amount: 10, Category: "groceries", Date: time.Now().Add(24 * time.Hour)}))

	require.Eventually(t, func() bool { return len(audit.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, PatternFutureDate, audit.snapshot()[0].Detail["pattern"])
}

func TestBurstRateFlagged(t *testing.T) {
	m, audit := testMonitor()
	act := Activity{Amount: 10, Category: "groceries"}

	ceiling := ratelimit.Ceiling("create_transaction")
	for i := 0; i < ceiling; i++ {
		require.False(t, m.IsSuspicious("u1", "create_transaction", act))
	}

	assert.True(t, m.IsSuspicious("u1", "create_transaction", act), "write over the operation ceiling must be flagged")
	require.Eventually(t, func() bool { return len(audit.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, PatternBurstRate, audit.snapshot()[0].Detail["pattern"])
}

func TestChecksStopAtFirstMatch(t *testing.T) {
	m, audit := testMonitor()

	// Large amount wins even though the category is also disallowed.
	assert.True(t, m.IsSuspicious("u1", "create_transaction", Activity{Amount: 150_000, Category: "test"}))
	require.Eventually(t, func() bool { return len(audit.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, PatternLargeAmount, audit.snapshot()[0].Detail["pattern"])
}

type failingAudit struct{}

func (failingAudit) AppendSecurityEvent(models.SecurityEvent) error {
	return assert.AnError
}

func TestAuditFailureDoesNotPanic(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), logrus.New())
	m := New(limiter, failingAudit{}, nil, logrus.New())

	assert.NotPanics(t, func() {
		m.IsSuspicious("u1", "create_transaction", Activity{Amount: 150_000})
	})
	time.Sleep(20 * time.Millisecond)
}
