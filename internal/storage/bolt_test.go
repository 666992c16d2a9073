package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fathomio/fathom-core/internal/anomaly"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fathom.db")
	db, err := Open(path, 7)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenInitializesSchema(t *testing.T) {
	db := openTestDB(t)
	rec, err := db.GetBaseline("node-a")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestPutGetBaseline(t *testing.T) {
	db := openTestDB(t)
	rec := BaselineRecord{
		NodeID:     "node-a",
		LockedAtMs: 60_000,
		Stats: map[string]StatRecord{
			"h_bytes": {Mean: 4.1, Std: 0.3, N: 50},
		},
	}
	require.NoError(t, db.PutBaseline(rec))

	got, err := db.GetBaseline("node-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "node-a", got.NodeID)
	require.Equal(t, uint64(60_000), got.LockedAtMs)
	require.InDelta(t, 4.1, got.Stats["h_bytes"].Mean, 1e-9)
}

func TestAppendAndReadEvents(t *testing.T) {
	db := openTestDB(t)
	ev := anomaly.Event{
		Type:        anomaly.PayloadEntropySpike,
		Severity:    anomaly.Crit,
		TimestampMs: 1000,
		MetricName:  "h_bytes",
		Z:           5.2,
		Message:     "payload byte entropy deviates from baseline",
	}
	require.NoError(t, db.AppendEvent(EventRecordFrom("node-a", ev)))

	entries, err := db.ReadEvents()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "payload_entropy_spike", entries[0].Type)
	require.Equal(t, "crit", entries[0].Severity)

	n, err := db.CountEvents()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestPruneOldEvents(t *testing.T) {
	db := openTestDB(t)
	old := anomaly.Event{Type: anomaly.StructureBreak, TimestampMs: 1, MetricName: "s_lite"}
	require.NoError(t, db.AppendEvent(EventRecordFrom("node-a", old)))

	deleted, err := db.PruneOldEvents()
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	entries, err := db.ReadEvents()
	require.NoError(t, err)
	require.Empty(t, entries)
}
