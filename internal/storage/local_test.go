package storage

import (
	"testing"
	"time"

	"github.com/finwell/finance-gateway/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// LocalTestSuite provides a test suite for the local gateway state store
type LocalTestSuite struct {
	suite.Suite
	db *Local
}

// SetupTest runs before each test
func (suite *LocalTestSuite) SetupTest() {
	db, err := NewLocal(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
}

// TearDownTest runs after each test
func (suite *LocalTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *LocalTestSuite) TestAppendAndAggregateUsage() {
	now := time.Now()
	records := []models.UsageRecord{
		{UserID: "u1", Endpoint: "transactions_get", Timestamp: now},
		{UserID: "u1", Endpoint: "transactions_get", Timestamp: now.Add(time.Minute)},
		{UserID: "u1", Endpoint: "accounts_get", Timestamp: now},
		{UserID: "u2", Endpoint: "transactions_get", Timestamp: now},
	}
	for _, rec := range records {
		require.NoError(suite.T(), suite.db.AppendUsage(rec))
	}

	counts, err := suite.db.UsageByEndpoint("u1", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), map[string]int{"transactions_get": 2, "accounts_get": 1}, counts)
}

func (suite *LocalTestSuite) TestUsageRangeExcludesOtherMonths() {
	now := time.Now()
	lastMonth := now.AddDate(0, 0, -40)
	require.NoError(suite.T(), suite.db.AppendUsage(models.UsageRecord{UserID: "u1", Endpoint: "transactions_get", Timestamp: lastMonth}))
	require.NoError(suite.T(), suite.db.AppendUsage(models.UsageRecord{UserID: "u1", Endpoint: "transactions_get", Timestamp: now}))

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	counts, err := suite.db.UsageByEndpoint("u1", start, start.AddDate(0, 1, 0))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, counts["transactions_get"])
}

func (suite *LocalTestSuite) TestSecurityEvents() {
	ev := models.SecurityEvent{
		ID:        "ev-1",
		UserID:    "u1",
		EventType: models.EventSuspiciousActivity,
		Timestamp: time.Now(),
		Detail:    map[string]string{"pattern": "large_amount"},
	}
	require.NoError(suite.T(), suite.db.AppendSecurityEvent(ev))

	events, err := suite.db.SecurityEvents("u1", 10)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), events, 1)
	assert.Equal(suite.T(), models.EventSuspiciousActivity, events[0].EventType)
	assert.Equal(suite.T(), "large_amount", events[0].Detail["pattern"])
}

func (suite *LocalTestSuite) TestWindowRoundTrip() {
	stamps := []time.Time{
		time.Now().Add(-30 * time.Second).Truncate(time.Millisecond),
		time.Now().Truncate(time.Millisecond),
	}
	require.NoError(suite.T(), suite.db.SetWindow("transactions_get:item-1", stamps))

	got, err := suite.db.Window("transactions_get:item-1")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), got, 2)
	assert.Equal(suite.T(), stamps[0].UnixMilli(), got[0].UnixMilli())
	assert.Equal(suite.T(), stamps[1].UnixMilli(), got[1].UnixMilli())
}

func (suite *LocalTestSuite) TestWindowMissingKeyIsEmpty() {
	got, err := suite.db.Window("never-written")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), got)
}

func (suite *LocalTestSuite) TestEmptyWindowDeletesRow() {
	require.NoError(suite.T(), suite.db.SetWindow("k", []time.Time{time.Now()}))
	require.NoError(suite.T(), suite.db.SetWindow("k", nil))

	got, err := suite.db.Window("k")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), got)
}

func (suite *LocalTestSuite) TestSweeps() {
	old := time.Now().Add(-100 * 24 * time.Hour)
	require.NoError(suite.T(), suite.db.AppendUsage(models.UsageRecord{UserID: "u1", Endpoint: "accounts_get", Timestamp: old}))
	require.NoError(suite.T(), suite.db.AppendUsage(models.UsageRecord{UserID: "u1", Endpoint: "accounts_get", Timestamp: time.Now()}))
	require.NoError(suite.T(), suite.db.AppendSecurityEvent(models.SecurityEvent{ID: "old", UserID: "u1", EventType: "x", Timestamp: old}))

	cutoff := time.Now().Add(-90 * 24 * time.Hour)
	n, err := suite.db.SweepUsageBefore(cutoff)
	require.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 1, n)

	n, err = suite.db.SweepEventsBefore(cutoff)
	require.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 1, n)
}

func TestLocalSuite(t *testing.T) {
	suite.Run(t, new(LocalTestSuite))
}
