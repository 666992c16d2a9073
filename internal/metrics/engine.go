// Package metrics implements the MetricsEngine: it orchestrates the
// sliding window, aligner, normalizer, entropy estimators, and resilience
// index on a configurable compute schedule, yielding a Snapshot per cycle.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fathomio/fathom-core/internal/align"
	"github.com/fathomio/fathom-core/internal/entropy"
	"github.com/fathomio/fathom-core/internal/errs"
	"github.com/fathomio/fathom-core/internal/normalize"
	"github.com/fathomio/fathom-core/internal/resilience"
	"github.com/fathomio/fathom-core/internal/window"
)

// TriggerKind selects when a compute cycle fires.
type TriggerKind int

const (
	EveryNFlushes TriggerKind = iota
	EveryMillis
	NFlushesOrMillis
)

// Trigger configures the compute schedule. N and Millis are read according
// to Kind; NFlushesOrMillis is an OR of both conditions.
type Trigger struct {
	Kind   TriggerKind
	N      int
	Millis uint64
}

// PayloadSettings controls which payload-entropy outputs a flush produces
// from a staged frame.
type PayloadSettings struct {
	FrameEntropy     bool
	PerChannel       bool
	IncludeHistogram bool
}

// Config holds every MetricsEngine knob: trigger schedule, window policy,
// alignment, normalization, estimator bounds, payload, and resilience.
type Config struct {
	Trigger Trigger

	Alignment           align.Strategy
	Missing             align.MissingPolicy
	Normalize           normalize.Method
	NormalizeMinSamples int
	NormalizeHistoryCap int

	Entropy         entropy.SignalConfig
	Resilience      resilience.Config
	DefaultStrideMs uint64

	Payload PayloadSettings
}

// DefaultConfig returns working defaults for every knob.
func DefaultConfig() Config {
	return Config{
		Trigger:         Trigger{Kind: EveryNFlushes, N: 1},
		Alignment:       align.SampleAndHold,
		Missing:         align.MissingPolicy{Kind: align.MissingDrop},
		Normalize:       normalize.None,
		Entropy:         entropy.DefaultSignalConfig(),
		Resilience:      resilience.DefaultConfig(),
		DefaultStrideMs: 1000,
		Payload:         PayloadSettings{FrameEntropy: true, PerChannel: true},
	}
}

// pendingFrame is the payload buffer staged for the next flush, if any.
type pendingFrame struct {
	buf    []byte
	ranges map[string][2]int
	set    bool
}

// Engine is the single-owner MetricsEngine. Not safe for concurrent use
// across goroutines beyond the mutex it holds internally. All compute is
// synchronous and bounded, so callers never block beyond one cycle's work.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	window *window.Window
	norm   *normalize.Normalizer
	log    *zap.Logger

	pushCount        int
	flushesSinceLast int
	lastFlushMs      uint64
	hasFlushed       bool
	signalComputes   int

	pending      pendingFrame
	lastSnapshot *Snapshot
}

// New creates a MetricsEngine over the given window policy.
func New(policy window.Policy, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		window: window.New(policy, log),
		norm:   normalize.New(cfg.Normalize, cfg.NormalizeMinSamples, cfg.NormalizeHistoryCap),
		log:    log,
	}
}

// RegisterChannel pre-registers a channel before any sample arrives.
func (e *Engine) RegisterChannel(channelID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.window.Register(channelID)
}

// RemoveChannel destroys a channel's window and normalization state.
func (e *Engine) RemoveChannel(channelID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.window.RemoveChannel(channelID)
	e.norm.Remove(channelID)
}

// StageFrame attaches a payload buffer to be consumed by the next flush
// this engine performs.
func (e *Engine) StageFrame(buf []byte, perChannelRanges map[string][2]int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = pendingFrame{buf: buf, ranges: perChannelRanges, set: true}
}

// Push records one sample and, if the compute schedule fires, performs a
// flush and returns the resulting snapshot. Returns a nil snapshot when no
// flush occurred this push. A malformed sample (empty channel id,
// non-finite value) is rejected with an error wrapping ErrInvalidArgument
// and leaves all engine state untouched.
func (e *Engine) Push(channelID string, value float64, tsMs uint64) (*Snapshot, error) {
	if channelID == "" {
		return nil, fmt.Errorf("%w: empty channel id", errs.ErrInvalidArgument)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("%w: non-finite value %f for channel %q", errs.ErrInvalidArgument, value, channelID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.window.Push(channelID, value, tsMs)
	e.pushCount++
	e.flushesSinceLast++

	if !e.shouldFlushLocked(tsMs) {
		return nil, nil
	}
	return e.flushLocked(tsMs), nil
}

func (e *Engine) shouldFlushLocked(nowMs uint64) bool {
	switch e.cfg.Trigger.Kind {
	case EveryNFlushes:
		return e.flushesSinceLast >= maxInt(e.cfg.Trigger.N, 1)
	case EveryMillis:
		return !e.hasFlushed || nowMs-e.lastFlushMs >= e.cfg.Trigger.Millis
	case NFlushesOrMillis:
		byCount := e.flushesSinceLast >= maxInt(e.cfg.Trigger.N, 1)
		byTime := !e.hasFlushed || nowMs-e.lastFlushMs >= e.cfg.Trigger.Millis
		return byCount || byTime
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Flush forces a compute cycle regardless of the schedule. Exposed for
// callers that drive their own tick loop.
func (e *Engine) Flush(nowMs uint64) *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked(nowMs)
}

func (e *Engine) flushLocked(nowMs uint64) *Snapshot {
	e.flushesSinceLast = 0
	e.lastFlushMs = nowMs
	e.hasFlushed = true

	ready := e.window.ReadyChannelIDs()
	sort.Strings(ready)

	snap := &Snapshot{TimestampMs: nowMs}

	if len(ready) > 0 {
		e.computeSignalLocked(ready, snap)
	}

	if e.pending.set {
		if e.cfg.Payload.FrameEntropy {
			opts := entropy.PayloadOptions{IncludeHistogram: e.cfg.Payload.IncludeHistogram}
			if e.cfg.Payload.PerChannel {
				opts.PerChannelRanges = e.pending.ranges
			}
			snap.Payload = entropy.Compute(e.pending.buf, opts)
			snap.HasPayload = true
		}
		e.pending = pendingFrame{}
	}

	e.lastSnapshot = snap
	return snap
}

func (e *Engine) computeSignalLocked(ready []string, snap *Snapshot) {
	minMs, maxMs, ok := e.window.TimeRange()
	if !ok {
		return
	}
	stride := align.Stride(e.window, ready, e.cfg.DefaultStrideMs)
	batch := align.Batch(e.window, ready, minMs, maxMs, stride, e.cfg.Alignment, e.cfg.Missing)
	if len(batch) == 0 {
		return
	}

	columns := make(map[string][]float64, len(ready))
	for _, ch := range ready {
		columns[ch] = make([]float64, 0, len(batch))
	}
	for _, row := range batch {
		if len(row.Values) != len(ready) {
			continue // only full rows feed the joint estimator
		}
		for _, ch := range ready {
			columns[ch] = append(columns[ch], row.Values[ch])
		}
	}

	cols := make([][]float64, len(ready))
	for i, ch := range ready {
		col := columns[ch]
		e.norm.Column(ch, col)
		cols[i] = col
	}

	if len(cols[0]) == 0 {
		return
	}

	signal := entropy.Estimate(ready, cols, e.cfg.Entropy)
	snap.HasSignal = true
	snap.Signal = signal

	if !signal.Valid {
		e.log.Debug("signal entropy invalid", zap.Error(signal.Err))
		return
	}

	e.signalComputes++
	computeCriticality := e.cfg.Resilience.EveryN <= 0 || e.signalComputes%e.cfg.Resilience.EveryN == 0
	res := resilience.Compute(ready, cols, signal, e.cfg.Entropy, e.cfg.Resilience, computeCriticality)
	snap.HasResilience = true
	snap.Resilience = res
}

// LastSnapshot returns the most recently assembled snapshot, or nil if none
// has been computed yet. Never blocks on compute.
func (e *Engine) LastSnapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSnapshot
}

// OutOfOrderCount returns the number of samples channelID has dropped for
// arriving before the channel's last accepted timestamp.
func (e *Engine) OutOfOrderCount(channelID string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window.OutOfOrderCount(channelID)
}

// ReadyChannelIDs exposes the window's current ready-channel set.
func (e *Engine) ReadyChannelIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window.ReadyChannelIDs()
}
