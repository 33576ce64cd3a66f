package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLiteDB {
	t.Helper()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "outcomes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLite_InsertAndStats(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()

	outcomes := OutcomesFrom(sampleResult(), time.Now())
	require.NoError(t, db.InsertOutcomes(ctx, outcomes))

	require.NoError(t, db.InsertOutcome(ctx, Outcome{
		ID:           "extra",
		SubmissionID: "sub-2",
		Source:       "text",
		Page:         1,
		Status:       StatusFailed,
		ErrorKind:    "label_not_found",
		ErrorText:    `labeled: "Поїзд" not found`,
		ParsedAt:     time.Now(),
	}))

	stats, err := db.OutcomeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, map[string]int{StatusOK: 1, StatusFailed: 2}, stats.ByStatus)
	assert.Equal(t, map[string]int{"no_time_found": 1, "label_not_found": 1}, stats.ByKind)
	assert.Equal(t, map[string]int{"positional": 1}, stats.ByParser)
}

func TestSQLite_SubmissionOutcomes(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()

	at := time.Date(2021, 12, 24, 12, 5, 0, 0, time.UTC)
	require.NoError(t, db.InsertOutcomes(ctx, OutcomesFrom(sampleResult(), at)))

	got, err := db.SubmissionOutcomes(ctx, "sub-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Page)
	assert.Equal(t, StatusFailed, got[0].Status)
	assert.Empty(t, got[0].Parser)
	assert.Equal(t, "1234-56789012-3456", got[1].TicketUID)
	assert.True(t, got[1].ParsedAt.Equal(at))

	none, err := db.SubmissionOutcomes(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_FailureKinds(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()

	old := time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2021, 12, 24, 12, 0, 0, 500, time.UTC)
	require.NoError(t, db.InsertOutcomes(ctx, OutcomesFrom(sampleResult(), old)))
	require.NoError(t, db.InsertOutcomes(ctx, OutcomesFrom(sampleResult(), recent)))
	require.NoError(t, db.InsertOutcome(ctx, Outcome{
		ID: "extra", SubmissionID: "sub-2", Source: "text", Page: 1,
		Status: StatusFailed, ErrorKind: "label_not_found", ParsedAt: recent,
	}))

	kinds, err := db.FailureKinds(ctx, time.Date(2021, 12, 24, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []KindCount{{Kind: "label_not_found", Count: 1}, {Kind: "no_time_found", Count: 1}}, kinds)

	kinds, err = db.FailureKinds(ctx, old)
	require.NoError(t, err)
	assert.Equal(t, []KindCount{{Kind: "no_time_found", Count: 2}, {Kind: "label_not_found", Count: 1}}, kinds)
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.db")
	ctx := context.Background()

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.InsertOutcomes(ctx, OutcomesFrom(sampleResult(), time.Now())))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	stats, err := db.OutcomeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
}

func TestSQLite_EmptyBatch(t *testing.T) {
	db := openTestSQLite(t)
	assert.NoError(t, db.InsertOutcomes(context.Background(), nil))
}

func TestOpenOutcomeSink(t *testing.T) {
	ctx := context.Background()

	sink, closeFn, err := OpenOutcomeSink(ctx, Config{})
	require.NoError(t, err)
	assert.Nil(t, sink)
	closeFn()

	path := filepath.Join(t.TempDir(), "outcomes.db")
	sink, closeFn, err = OpenOutcomeSink(ctx, Config{SQLitePath: path})
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &SQLiteDB{}, sink)
}
