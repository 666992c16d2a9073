// Package observability — metrics.go
//
// Prometheus metrics for the fathom observability core.
//
// Endpoint: GET /metrics on 127.0.0.1:9091 (configurable).
// Format: Prometheus text exposition format (OpenMetrics compatible).
// Bind: loopback only by default — no external exposure.
//
// Metric naming convention: fathom_<subsystem>_<name>_<unit>
//
// All metrics are registered on a dedicated prometheus.Registry (not the
// default global registry) to avoid collisions with other instrumented
// libraries in the same process.
//
// These metrics are fed as a side effect of each MetricsSnapshot /
// ComplexitySnapshot the engines produce — observation never sits on the
// push/tick hot path itself, only downstream of it.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fathomio/fathom-core/internal/anomaly"
	"github.com/fathomio/fathom-core/internal/complexity"
	"github.com/fathomio/fathom-core/internal/errs"
	"github.com/fathomio/fathom-core/internal/metrics"
)

// Metrics holds all Prometheus metric descriptors for the gateway core.
type Metrics struct {
	registry *prometheus.Registry

	// ─── Window / ingest ──────────────────────────────────────────────────────

	// SamplesPushedTotal counts samples pushed into the sliding window, by
	// channel.
	SamplesPushedTotal *prometheus.CounterVec

	// OutOfOrderSamplesTotal counts samples dropped for arriving out of
	// order within their channel.
	OutOfOrderSamplesTotal *prometheus.CounterVec

	// ─── Signal entropy / resilience ─────────────────────────────────────────

	// SignalComputesTotal counts completed signal-entropy compute cycles.
	SignalComputesTotal prometheus.Counter

	// SignalInvalidTotal counts compute cycles that produced an invalid
	// signal estimate, by reason.
	SignalInvalidTotal *prometheus.CounterVec

	// JointEntropy is the most recent joint differential entropy estimate.
	JointEntropy prometheus.Gauge

	// TotalCorrelation is the most recent total correlation estimate.
	TotalCorrelation prometheus.Gauge

	// RedundancyIndex is the most recent normalized redundancy index R.
	RedundancyIndex prometheus.Gauge

	// ResilienceZone is the most recent resilience zone, as a number
	// (0=critical, 1=attention, 2=healthy) so it can be graphed directly.
	ResilienceZone prometheus.Gauge

	// ─── Payload entropy ──────────────────────────────────────────────────────

	// PayloadEntropyHistogram records the distribution of per-frame byte
	// entropy values.
	PayloadEntropyHistogram prometheus.Histogram

	// ─── Baseline / complexity ────────────────────────────────────────────────

	// BaselineLocked is 1 once the baseline has locked, 0 while building.
	BaselineLocked prometheus.Gauge

	// ComplexityTicksTotal counts ComplexityEngine.Process calls.
	ComplexityTicksTotal prometheus.Counter

	// StructureBreaksTotal counts cycles where S-lite signaled a structure
	// break.
	StructureBreaksTotal prometheus.Counter

	// EventsEmittedTotal counts emitted anomaly events, by type and
	// severity.
	EventsEmittedTotal *prometheus.CounterVec

	// ─── Storage ──────────────────────────────────────────────────────────────

	// StorageWriteLatency records BoltDB write transaction latency.
	StorageWriteLatency prometheus.Histogram

	// StorageLedgerEntries is the current number of audit ledger entries.
	StorageLedgerEntries prometheus.Gauge

	// ─── Process ──────────────────────────────────────────────────────────────

	// UptimeSeconds is the number of seconds since the process started.
	UptimeSeconds prometheus.Gauge

	startTime time.Time

	// lastOutOfOrder tracks the last cumulative out-of-order count seen per
	// channel, so ObserveSamplePush can advance the counter by the delta.
	// Guarded by the single-owner ingest loop, same as the engines.
	lastOutOfOrder map[string]uint64
}

// NewMetrics creates and registers all gateway Prometheus metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry:       reg,
		startTime:      time.Now(),
		lastOutOfOrder: make(map[string]uint64),

		SamplesPushedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fathom",
			Subsystem: "window",
			Name:      "samples_pushed_total",
			Help:      "Total samples pushed into the sliding window, by channel.",
		}, []string{"channel"}),

		OutOfOrderSamplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fathom",
			Subsystem: "window",
			Name:      "out_of_order_samples_total",
			Help:      "Total samples dropped for arriving out of order within their channel.",
		}, []string{"channel"}),

		SignalComputesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fathom",
			Subsystem: "signal",
			Name:      "computes_total",
			Help:      "Total completed signal-entropy compute cycles.",
		}),

		SignalInvalidTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fathom",
			Subsystem: "signal",
			Name:      "invalid_total",
			Help:      "Total compute cycles that produced an invalid signal estimate, by reason.",
		}, []string{"reason"}),

		JointEntropy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fathom",
			Subsystem: "signal",
			Name:      "joint_entropy_bits",
			Help:      "Most recent joint differential entropy estimate.",
		}),

		TotalCorrelation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fathom",
			Subsystem: "signal",
			Name:      "total_correlation_bits",
			Help:      "Most recent total correlation estimate.",
		}),

		RedundancyIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fathom",
			Subsystem: "resilience",
			Name:      "redundancy_index",
			Help:      "Most recent normalized redundancy index R, in [0, 1].",
		}),

		ResilienceZone: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fathom",
			Subsystem: "resilience",
			Name:      "zone",
			Help:      "Most recent resilience zone (0=critical, 1=attention, 2=healthy).",
		}),

		PayloadEntropyHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fathom",
			Subsystem: "payload",
			Name:      "entropy_bits",
			Help:      "Distribution of per-frame byte entropy values, in bits.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 7.5, 7.9, 8},
		}),

		BaselineLocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fathom",
			Subsystem: "baseline",
			Name:      "locked",
			Help:      "1 once the baseline has locked, 0 while building.",
		}),

		ComplexityTicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fathom",
			Subsystem: "complexity",
			Name:      "ticks_total",
			Help:      "Total ComplexityEngine.Process calls.",
		}),

		StructureBreaksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fathom",
			Subsystem: "complexity",
			Name:      "structure_breaks_total",
			Help:      "Total cycles where S-lite signaled a structure break.",
		}),

		EventsEmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fathom",
			Subsystem: "complexity",
			Name:      "events_emitted_total",
			Help:      "Total emitted anomaly events, by type and severity.",
		}, []string{"type", "severity"}),

		StorageWriteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fathom",
			Subsystem: "storage",
			Name:      "write_latency_seconds",
			Help:      "BoltDB write transaction latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),

		StorageLedgerEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fathom",
			Subsystem: "storage",
			Name:      "ledger_entries",
			Help:      "Current number of audit ledger entries in BoltDB.",
		}),

		UptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fathom",
			Subsystem: "process",
			Name:      "uptime_seconds",
			Help:      "Number of seconds since the process started.",
		}),
	}

	reg.MustRegister(
		m.SamplesPushedTotal,
		m.OutOfOrderSamplesTotal,
		m.SignalComputesTotal,
		m.SignalInvalidTotal,
		m.JointEntropy,
		m.TotalCorrelation,
		m.RedundancyIndex,
		m.ResilienceZone,
		m.PayloadEntropyHistogram,
		m.BaselineLocked,
		m.ComplexityTicksTotal,
		m.StructureBreaksTotal,
		m.EventsEmittedTotal,
		m.StorageWriteLatency,
		m.StorageLedgerEntries,
		m.UptimeSeconds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveSamplePush records one accepted sample push for a channel and
// folds in the channel's cumulative out-of-order drop count, advancing the
// drop counter by the delta since the last observation.
func (m *Metrics) ObserveSamplePush(channelID string, outOfOrderTotal uint64) {
	m.SamplesPushedTotal.WithLabelValues(channelID).Inc()
	if last := m.lastOutOfOrder[channelID]; outOfOrderTotal > last {
		m.OutOfOrderSamplesTotal.WithLabelValues(channelID).Add(float64(outOfOrderTotal - last))
		m.lastOutOfOrder[channelID] = outOfOrderTotal
	}
}

// ObserveStorageWrite records one BoltDB write transaction's duration.
func (m *Metrics) ObserveStorageWrite(d time.Duration) {
	m.StorageWriteLatency.Observe(d.Seconds())
}

// SetLedgerEntries updates the audit-ledger size gauge.
func (m *Metrics) SetLedgerEntries(n int) {
	m.StorageLedgerEntries.Set(float64(n))
}

// ObserveMetricsSnapshot records a MetricsEngine Snapshot's values. Called by
// the caller after each Push/Flush that returns a non-nil snapshot; never
// invoked from inside the engine itself.
func (m *Metrics) ObserveMetricsSnapshot(snap *metrics.Snapshot) {
	if snap == nil {
		return
	}
	if snap.HasSignal {
		if snap.Signal.Valid {
			m.SignalComputesTotal.Inc()
			m.JointEntropy.Set(snap.Signal.HJoint)
			m.TotalCorrelation.Set(snap.Signal.TC)
		} else {
			m.SignalInvalidTotal.WithLabelValues(errs.Label(snap.Signal.Err)).Inc()
		}
	}
	if snap.HasPayload {
		m.PayloadEntropyHistogram.Observe(snap.Payload.FrameEntropy)
	}
	if snap.HasResilience && snap.Resilience.Valid {
		m.RedundancyIndex.Set(snap.Resilience.R)
		m.ResilienceZone.Set(float64(snap.Resilience.Zone))
	}
}

// ObserveComplexitySnapshot records a ComplexityEngine Snapshot's values.
func (m *Metrics) ObserveComplexitySnapshot(snap *complexity.Snapshot) {
	if snap == nil {
		return
	}
	m.ComplexityTicksTotal.Inc()
	if snap.BaselineStatus.Locked {
		m.BaselineLocked.Set(1)
	} else {
		m.BaselineLocked.Set(0)
	}
	if snap.SLite != nil && snap.SLite.Break {
		m.StructureBreaksTotal.Inc()
	}
	for _, ev := range snap.Events {
		m.EventsEmittedTotal.WithLabelValues(ev.Type.String(), severityLabel(ev.Severity)).Inc()
	}
}

func severityLabel(s anomaly.Severity) string {
	return s.String()
}

// ServeMetrics starts the Prometheus HTTP metrics server on the given
// address. Blocks until ctx is cancelled or the server fails.
func (m *Metrics) ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go m.updateUptime(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}

// updateUptime periodically updates the UptimeSeconds gauge.
func (m *Metrics) updateUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.UptimeSeconds.Set(time.Since(m.startTime).Seconds())
		case <-ctx.Done():
			return
		}
	}
}
