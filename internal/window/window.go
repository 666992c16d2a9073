// Package window — sliding-window sample storage for the metrics engine.
//
// Maintains, per channel, an insertion-ordered queue of timestamped samples
// with amortized-O(1) head-only eviction. Timestamps within a channel are
// kept non-decreasing: a sample that arrives out of order is dropped rather
// than inserted in order, so eviction never has to search past the head.
//
// The window never consults wall-clock; all time arithmetic uses the
// timestamp supplied by the caller.
package window

import (
	"sync"

	"go.uber.org/zap"
)

// Sample is an immutable (value, timestamp) pair.
type Sample struct {
	Value       float64
	TimestampMs uint64
}

// Policy is the eviction policy for a channel window.
type Policy struct {
	// Kind selects which field below is active.
	Kind PolicyKind
	// TimeMillis is used when Kind == PolicyTimeMillis: drop samples with
	// ts < (latest pushed ts - TimeMillis).
	TimeMillis uint64
	// LastN is used when Kind == PolicyLastN: keep at most the N most
	// recent samples.
	LastN int
}

// PolicyKind enumerates the two eviction strategies.
type PolicyKind int

const (
	PolicyTimeMillis PolicyKind = iota
	PolicyLastN
)

// TimeWindow builds a time-based eviction policy.
func TimeWindow(ms uint64) Policy { return Policy{Kind: PolicyTimeMillis, TimeMillis: ms} }

// CountWindow builds a count-based eviction policy.
func CountWindow(n int) Policy { return Policy{Kind: PolicyLastN, LastN: n} }

// channelQueue is a deque over a plain slice: the live region is
// samples[head:], appends go to the tail, and head-eviction just advances
// head. The dead prefix is compacted only once it outgrows the live
// region, so each sample is copied at most once per compaction and
// eviction stays amortized O(1).
type channelQueue struct {
	samples       []Sample
	head          int
	outOfOrder    uint64
	lastPushedMs  uint64
	hasLastPushed bool
}

func (q *channelQueue) live() []Sample { return q.samples[q.head:] }

func (q *channelQueue) popFront(n int) {
	if n <= 0 {
		return
	}
	q.head += n
	if q.head > len(q.samples)-q.head {
		kept := copy(q.samples, q.samples[q.head:])
		q.samples = q.samples[:kept]
		q.head = 0
	}
}

// Window is a per-channel sliding-window store. Exclusively owned by its
// creator. The mutex only protects against accidental concurrent misuse;
// this is not a designed concurrency model.
type Window struct {
	mu       sync.Mutex
	policy   Policy
	channels map[string]*channelQueue
	log      *zap.Logger
}

// New creates a Window with the given eviction policy.
func New(policy Policy, log *zap.Logger) *Window {
	if log == nil {
		log = zap.NewNop()
	}
	return &Window{
		policy:   policy,
		channels: make(map[string]*channelQueue),
		log:      log,
	}
}

// Register pre-creates an empty queue for a channel so it shows up in
// ChannelIDs() even before its first sample arrives.
func (w *Window) Register(channelID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensure(channelID)
}

func (w *Window) ensure(channelID string) *channelQueue {
	q, ok := w.channels[channelID]
	if !ok {
		q = &channelQueue{}
		w.channels[channelID] = q
	}
	return q
}

// Push appends a sample to channelID's queue and prunes the front per
// policy. Out-of-order samples (ts < last pushed ts for this channel) are
// dropped and counted rather than inserted in order, which keeps the
// non-decreasing invariant true without a sorted insert.
func (w *Window) Push(channelID string, value float64, timestampMs uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	q := w.ensure(channelID)
	if q.hasLastPushed && timestampMs < q.lastPushedMs {
		q.outOfOrder++
		w.log.Debug("window: dropped out-of-order sample",
			zap.String("channel", channelID),
			zap.Uint64("ts_ms", timestampMs),
			zap.Uint64("last_ts_ms", q.lastPushedMs),
		)
		return
	}

	q.samples = append(q.samples, Sample{Value: value, TimestampMs: timestampMs})
	q.lastPushedMs = timestampMs
	q.hasLastPushed = true
	w.prune(q, timestampMs)
}

func (w *Window) prune(q *channelQueue, nowMs uint64) {
	switch w.policy.Kind {
	case PolicyTimeMillis:
		cutoff := uint64(0)
		if nowMs > w.policy.TimeMillis {
			cutoff = nowMs - w.policy.TimeMillis
		}
		live := q.live()
		n := 0
		for n < len(live) && live[n].TimestampMs < cutoff {
			n++
		}
		q.popFront(n)
	case PolicyLastN:
		q.popFront(len(q.live()) - w.policy.LastN)
	}
}

// Samples returns a read-only snapshot of channelID's current samples,
// oldest first. The returned slice is a copy and is stable regardless of
// subsequent Push calls.
func (w *Window) Samples(channelID string) []Sample {
	w.mu.Lock()
	defer w.mu.Unlock()
	q, ok := w.channels[channelID]
	if !ok {
		return nil
	}
	live := q.live()
	out := make([]Sample, len(live))
	copy(out, live)
	return out
}

// OutOfOrderCount returns the number of samples dropped for arriving before
// the channel's last accepted timestamp.
func (w *Window) OutOfOrderCount(channelID string) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	q, ok := w.channels[channelID]
	if !ok {
		return 0
	}
	return q.outOfOrder
}

// ChannelIDs returns all known channel ids (registered or with samples).
func (w *Window) ChannelIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.channels))
	for id := range w.channels {
		ids = append(ids, id)
	}
	return ids
}

// ReadyChannelIDs returns channel ids that currently hold at least one
// sample.
func (w *Window) ReadyChannelIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.channels))
	for id, q := range w.channels {
		if len(q.live()) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// RemoveChannel destroys a channel's window entirely.
func (w *Window) RemoveChannel(channelID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.channels, channelID)
}

// Clear removes all channels.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.channels = make(map[string]*channelQueue)
}

// TimeRange returns the minimum and maximum timestamps across all channels.
// ok is false if no samples exist anywhere.
func (w *Window) TimeRange() (minMs, maxMs uint64, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	found := false
	var lo, hi uint64
	for _, q := range w.channels {
		live := q.live()
		if len(live) == 0 {
			continue
		}
		first := live[0].TimestampMs
		last := live[len(live)-1].TimestampMs
		if !found {
			lo, hi = first, last
			found = true
			continue
		}
		if first < lo {
			lo = first
		}
		if last > hi {
			hi = last
		}
	}
	return lo, hi, found
}
