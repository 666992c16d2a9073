// Package storage — bolt.go
//
// BoltDB-backed persistent storage for the fathom observability core.
//
// Schema (BoltDB bucket layout):
//
//	/baselines
//	    key:   node_id
//	    value: JSON-encoded BaselineRecord (locked statistics snapshot)
//
//	/events
//	    key:   fixed-width RFC3339 millisecond timestamp + "_" + event type  [sortable]
//	    value: JSON-encoded EventRecord
//
//	/meta
//	    key:   "schema_version"
//	    value: "1"
//
// Persistence here is explicit and caller-initiated only: nothing in
// internal/metrics or internal/complexity ever touches this package.
// Computing a snapshot and persisting it are two separate steps; a caller
// that never calls PutBaseline/AppendEvent pays no storage cost at all.
//
// Consistency model:
//   - Single-process, single-writer (BoltDB does not support concurrent
//     writers).
//   - All writes use ACID transactions (bbolt Tx.Commit()).
//   - Reads use read-only transactions (bbolt.View()).
//
// Retention:
//   - Event records older than RetentionDays are pruned on demand via
//     PruneOldEvents; nothing prunes automatically, since this is a library,
//     not a daemon with its own background goroutines.
//
// Failure modes:
//   - BoltDB file corruption: bbolt detects via CRC and returns an error on
//     Open(). Callers should treat this as fatal to the storage layer only —
//     the in-memory engines keep working without persistence.
//   - Disk full: bbolt.Update() returns an error; callers log it and
//     continue, since persistence failures must never corrupt in-memory
//     engine state.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fathomio/fathom-core/internal/anomaly"
	"github.com/fathomio/fathom-core/internal/baseline"
)

const (
	// DefaultDBPath is the default BoltDB file location.
	DefaultDBPath = "/var/lib/fathom/fathom.db"

	// SchemaVersion is the current database schema version.
	SchemaVersion = "1"

	// DefaultRetentionDays is the default event retention period.
	DefaultRetentionDays = 30

	bucketBaselines = "baselines"
	bucketEvents    = "events"
	bucketMeta      = "meta"
)

// StatRecord is the persisted form of one tracked metric key's locked
// baseline statistics.
type StatRecord struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	N    int     `json:"n"`
}

// BaselineRecord is the persisted form of a locked Baseline, keyed by node.
type BaselineRecord struct {
	// NodeID identifies which gateway instance this baseline belongs to.
	NodeID string `json:"node_id"`

	// LockedAtMs is the timestamp at which the baseline transitioned to
	// Locked.
	LockedAtMs uint64 `json:"locked_at_ms"`

	// Stats maps tracked metric key (e.g. "h_bytes", "h_chan_temp") to its
	// accumulated statistics.
	Stats map[string]StatRecord `json:"stats"`

	// UpdatedAt is the wall-clock time of the last write.
	UpdatedAt time.Time `json:"updated_at"`
}

// BaselineRecordFrom builds a BaselineRecord from a locked Baseline, reading
// one stat per key in keys.
func BaselineRecordFrom(nodeID string, b *baseline.Baseline, keys []string) BaselineRecord {
	stats := make(map[string]StatRecord, len(keys))
	for _, key := range keys {
		mean, std, n, ok := b.Stat(key)
		if !ok {
			continue
		}
		stats[key] = StatRecord{Mean: mean, Std: std, N: n}
	}
	return BaselineRecord{
		NodeID:     nodeID,
		LockedAtMs: b.LockedAtMs(),
		Stats:      stats,
	}
}

// EventRecord is the persisted form of one emitted anomaly event.
type EventRecord struct {
	Type          string  `json:"type"`
	Severity      string  `json:"severity"`
	TimestampMs   uint64  `json:"ts_ms"`
	MetricName    string  `json:"metric"`
	ObservedValue float64 `json:"value"`
	BaselineMean  float64 `json:"baseline_mean"`
	BaselineStd   float64 `json:"baseline_std"`
	Z             float64 `json:"z"`
	Message       string  `json:"message"`
	NodeID        string  `json:"node_id"`
}

// EventRecordFrom converts an anomaly.Event into its persisted form.
func EventRecordFrom(nodeID string, ev anomaly.Event) EventRecord {
	return EventRecord{
		Type:          ev.Type.String(),
		Severity:      ev.Severity.String(),
		TimestampMs:   ev.TimestampMs,
		MetricName:    ev.MetricName,
		ObservedValue: ev.ObservedValue,
		BaselineMean:  ev.BaselineMean,
		BaselineStd:   ev.BaselineStd,
		Z:             ev.Z,
		Message:       ev.Message,
		NodeID:        nodeID,
	}
}

// DB wraps a BoltDB instance with typed accessors for fathom data.
type DB struct {
	db            *bolt.DB
	retentionDays int
}

// Open opens (or creates) the BoltDB database at the given path. Initialises
// all required buckets and verifies the schema version.
func Open(path string, retentionDays int) (*DB, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout:      5 * time.Second,
		FreelistType: bolt.FreelistArrayType,
	})
	if err != nil {
		return nil, fmt.Errorf("bolt.Open(%q): %w", path, err)
	}

	d := &DB{db: bdb, retentionDays: retentionDays}

	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketBaselines, bucketEvents, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("CreateBucketIfNotExists(%q): %w", name, err)
			}
		}
		meta := tx.Bucket([]byte(bucketMeta))
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(SchemaVersion)); err != nil {
				return fmt.Errorf("write schema_version: %w", err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("database initialisation failed: %w", err)
	}

	if err := d.checkSchemaVersion(); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return d, nil
}

func (d *DB) checkSchemaVersion() error {
	return d.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(bucketMeta))
		v := meta.Get([]byte("schema_version"))
		if string(v) != SchemaVersion {
			return fmt.Errorf(
				"schema version mismatch: database has %q, core requires %q",
				string(v), SchemaVersion,
			)
		}
		return nil
	})
}

// Close closes the underlying BoltDB file.
func (d *DB) Close() error {
	return d.db.Close()
}

// ─── Baseline operations ──────────────────────────────────────────────────────

// PutBaseline writes or updates the baseline record for a node.
func (d *DB) PutBaseline(rec BaselineRecord) error {
	rec.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("PutBaseline marshal: %w", err)
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketBaselines))
		if err := b.Put([]byte(rec.NodeID), data); err != nil {
			return fmt.Errorf("PutBaseline bolt.Put: %w", err)
		}
		return nil
	})
}

// GetBaseline retrieves the baseline record for a node. Returns (nil, nil)
// if no baseline has been persisted for this node.
func (d *DB) GetBaseline(nodeID string) (*BaselineRecord, error) {
	var rec BaselineRecord
	found := false

	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketBaselines))
		data := b.Get([]byte(nodeID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("GetBaseline(%q): %w", nodeID, err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

// ─── Event operations ─────────────────────────────────────────────────────────

// eventKeyLayout always prints three fractional digits, so every key's
// timestamp has the same width.
const eventKeyLayout = "2006-01-02T15:04:05.000Z07:00"

// eventKey constructs a sortable BoltDB key for an event record. Format:
// eventKeyLayout(ts_ms) + "_" + type. Lexicographic sort = chronological sort.
func eventKey(tsMs uint64, eventType string) []byte {
	t := time.UnixMilli(int64(tsMs)).UTC()
	return []byte(fmt.Sprintf("%s_%s", t.Format(eventKeyLayout), eventType))
}

// AppendEvent writes a new anomaly event record.
func (d *DB) AppendEvent(rec EventRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("AppendEvent marshal: %w", err)
	}

	key := eventKey(rec.TimestampMs, rec.Type)

	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketEvents))
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("AppendEvent bolt.Put: %w", err)
		}
		return nil
	})
}

// PruneOldEvents deletes event records older than retentionDays. Returns the
// number of entries deleted.
func (d *DB) PruneOldEvents() (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -d.retentionDays)
	cutoffKey := []byte(cutoff.Format(eventKeyLayout))

	var deleted int
	err := d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketEvents))
		c := b.Cursor()

		var toDelete [][]byte
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if string(k) >= string(cutoffKey) {
				break
			}
			keyCopy := make([]byte, len(k))
			copy(keyCopy, k)
			toDelete = append(toDelete, keyCopy)
		}

		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("PruneOldEvents delete: %w", err)
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// CountEvents returns the number of event records currently in the ledger.
func (d *DB) CountEvents() (int, error) {
	var n int
	err := d.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bucketEvents)).Stats().KeyN
		return nil
	})
	return n, err
}

// ReadEvents returns all event records in chronological order. For
// operational use (CLI inspection); not called on the hot path.
func (d *DB) ReadEvents() ([]EventRecord, error) {
	var events []EventRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketEvents))
		return b.ForEach(func(_, v []byte) error {
			var rec EventRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			events = append(events, rec)
			return nil
		})
	})
	return events, err
}
