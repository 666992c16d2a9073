// Package config provides configuration loading, defaulting, and validation
// for the fathom observability core.
//
// Configuration file: fathomctl reads a single YAML file named by its
// -config flag and runs on Defaults() when none is given; library callers can construct a Config
// programmatically via Defaults() and skip the file entirely.
//
// Schema version: 1
//
// Config is immutable once a Window/Engine has been constructed from it;
// there is no hot-reload path here, since the core is a library embedded in
// a gateway process rather than a standalone daemon.
//
// Validation:
//   - Validate range-checks covariance_epsilon (> 0), the sample and
//     channel minimums (>= 1), ema_alpha (in (0,1], Ema mode only),
//     break_threshold (>= 0), retention_days (>= 1) and the ordering of
//     the resilience zone and z-score thresholds; other numeric fields,
//     such as the delta smoothing alpha and min_sum_h, are not
//     range-checked.
//   - Validate accumulates every violation instead of stopping at the first,
//     so a misconfigured file reports everything wrong with it in one pass.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fathomio/fathom-core/internal/align"
	"github.com/fathomio/fathom-core/internal/anomaly"
	"github.com/fathomio/fathom-core/internal/baseline"
	"github.com/fathomio/fathom-core/internal/complexity"
	"github.com/fathomio/fathom-core/internal/delta"
	"github.com/fathomio/fathom-core/internal/entropy"
	"github.com/fathomio/fathom-core/internal/metrics"
	"github.com/fathomio/fathom-core/internal/normalize"
	"github.com/fathomio/fathom-core/internal/resilience"
	"github.com/fathomio/fathom-core/internal/structure"
	"github.com/fathomio/fathom-core/internal/window"
)

// Version, GitCommit, BuildTime are injected at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// DefaultDBPath is the default BoltDB file location.
const DefaultDBPath = "/var/lib/fathom/fathom.db"

// Config is the root configuration structure.
type Config struct {
	SchemaVersion string `yaml:"schema_version"`

	// NodeID identifies this gateway instance in logs and the audit ledger.
	// Default: hostname.
	NodeID string `yaml:"node_id"`

	Metrics       MetricsConfig       `yaml:"metrics"`
	Complexity    ComplexityConfig    `yaml:"complexity"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// MetricsConfig mirrors the MetricsEngine's configuration surface.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	SignalCompute TriggerConfig      `yaml:"signal_compute"`
	SignalWindow  SignalWindowConfig `yaml:"signal_window"`

	// Alignment selects SampleAndHold, Nearest, or Linear.
	Alignment string `yaml:"alignment"`

	MissingData MissingDataConfig `yaml:"missing_data"`

	// Normalization selects None, ZScore, or RobustMad.
	Normalization       string `yaml:"normalization"`
	NormalizeMinSamples int    `yaml:"normalize_min_samples"`
	NormalizeHistoryCap int    `yaml:"normalize_history_cap"`

	// LogBase selects "e" (nats) or "2" (bits, the default).
	LogBase string `yaml:"log_base"`

	CovarianceEpsilon   float64 `yaml:"covariance_epsilon"`
	MinAlignedSamples   int     `yaml:"min_aligned_samples"`
	MaxChannelsForJoint int     `yaml:"max_channels_for_joint"`
	DefaultStrideMs     uint64  `yaml:"default_stride_ms"`

	Payload    PayloadConfig    `yaml:"payload"`
	Resilience ResilienceConfig `yaml:"resilience"`
}

// TriggerConfig selects the compute schedule. Kind is one of EveryN,
// EveryMs, NOrMs.
type TriggerConfig struct {
	Kind   string `yaml:"kind"`
	N      int    `yaml:"n"`
	Millis uint64 `yaml:"millis"`
}

// SignalWindowConfig selects the sliding-window eviction policy. Kind is
// one of TimeMs, LastN.
type SignalWindowConfig struct {
	Kind   string `yaml:"kind"`
	TimeMs uint64 `yaml:"time_ms"`
	LastN  int    `yaml:"last_n"`
}

// MissingDataConfig selects the aligner's missing-channel policy. Kind
// is one of Drop, AllowPartial, FillLastKnown.
type MissingDataConfig struct {
	Kind        string `yaml:"kind"`
	MinChannels int    `yaml:"min_channels"`
}

// PayloadConfig controls payload-entropy output.
type PayloadConfig struct {
	FrameEntropy      bool `yaml:"frame_entropy"`
	PerChannelEntropy bool `yaml:"per_channel_entropy"`
	IncludeHistogram  bool `yaml:"include_histogram"`
}

// ResilienceConfig controls the resilience index.
type ResilienceConfig struct {
	Enabled    bool    `yaml:"enabled"`
	MinSumH    float64 `yaml:"min_sum_h"`
	Thresholds struct {
		HealthyMin   float64 `yaml:"healthy_min"`
		AttentionMin float64 `yaml:"attention_min"`
	} `yaml:"thresholds"`
	Criticality struct {
		Enabled     bool `yaml:"enabled"`
		MaxChannels int  `yaml:"max_channels"`
		EveryN      int  `yaml:"every_n"`
	} `yaml:"criticality"`
}

// ComplexityConfig mirrors the ComplexityEngine's configuration surface.
type ComplexityConfig struct {
	Enabled bool `yaml:"enabled"`

	Baseline  BaselineConfig  `yaml:"baseline"`
	Deltas    DeltasConfig    `yaml:"deltas"`
	Structure StructureConfig `yaml:"structure"`
	Anomaly   AnomalyConfig   `yaml:"anomaly"`
	Output    OutputConfig    `yaml:"output"`

	ZoneHealthyMin   float64 `yaml:"zone_healthy_min"`
	ZoneAttentionMin float64 `yaml:"zone_attention_min"`
}

// BaselineConfig controls the baseline accumulator. UpdateMode is one of Frozen, Ema,
// Rolling.
type BaselineConfig struct {
	BuildTimeMs            uint64  `yaml:"build_time_ms"`
	MinValidSnapshots      int     `yaml:"min_valid_snapshots"`
	UpdateMode             string  `yaml:"update_mode"`
	EmaAlpha               float64 `yaml:"ema_alpha"`
	RollingWindowSnapshots int     `yaml:"rolling_window_snapshots"`
}

// DeltasConfig controls delta/z-score computation.
type DeltasConfig struct {
	ComputeTC             bool `yaml:"compute_tc"`
	ComputeR              bool `yaml:"compute_r"`
	ComputeHJoint         bool `yaml:"compute_h_joint"`
	ComputePayloadEntropy bool `yaml:"compute_payload_entropy"`
	Smoothing             struct {
		Enabled bool    `yaml:"enabled"`
		Alpha   float64 `yaml:"alpha"`
	} `yaml:"smoothing"`
}

// StructureConfig controls the S-lite structure summary.
type StructureConfig struct {
	Enabled     bool `yaml:"enabled"`
	EmitSLite   bool `yaml:"emit_s_lite"`
	MaxChannels int  `yaml:"max_channels"`
	Sparsify    struct {
		Enabled      bool    `yaml:"enabled"`
		TopKEdges    int     `yaml:"top_k_edges"`
		MinAbsWeight float64 `yaml:"min_abs_weight"`
	} `yaml:"sparsify"`
	DetectBreaks   bool    `yaml:"detect_breaks"`
	BreakThreshold float64 `yaml:"break_threshold"`
}

// AnomalyConfig controls the anomaly detector.
type AnomalyConfig struct {
	Enabled        bool    `yaml:"enabled"`
	ZThresholdWarn float64 `yaml:"z_threshold_warn"`
	ZThresholdCrit float64 `yaml:"z_threshold_crit"`
	PersistenceMs  uint64  `yaml:"persistence_ms"`
	CooldownMs     uint64  `yaml:"cooldown_ms"`

	// Events maps each event type's string name (e.g. "structure_break") to
	// whether it is enabled. Missing entries default to enabled.
	Events map[string]bool `yaml:"events"`
}

// OutputConfig controls ComplexitySnapshot emission cadence and content.
type OutputConfig struct {
	SnapshotEveryNTicks  int  `yaml:"snapshot_every_n_ticks"`
	EmitEvents           bool `yaml:"emit_events"`
	IncludeBaselineStats bool `yaml:"include_baseline_stats"`
}

// StorageConfig holds BoltDB parameters.
type StorageConfig struct {
	// DBPath is the absolute path to the BoltDB file.
	DBPath string `yaml:"db_path"`

	// RetentionDays is the ledger retention period. Default: 30.
	RetentionDays int `yaml:"retention_days"`
}

// ObservabilityConfig holds metrics and logging parameters.
type ObservabilityConfig struct {
	// MetricsAddr is the Prometheus metrics HTTP bind address.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogFormat controls the log output format (json, console).
	LogFormat string `yaml:"log_format"`
}

// Defaults returns a Config populated with every documented default.
func Defaults() Config {
	hostname, _ := os.Hostname()
	cfg := Config{
		SchemaVersion: "1",
		NodeID:        hostname,
		Metrics: MetricsConfig{
			Enabled:             true,
			SignalCompute:       TriggerConfig{Kind: "EveryN", N: 1},
			SignalWindow:        SignalWindowConfig{Kind: "TimeMs", TimeMs: 60_000},
			Alignment:           "SampleAndHold",
			MissingData:         MissingDataConfig{Kind: "Drop"},
			Normalization:       "None",
			NormalizeMinSamples: 30,
			NormalizeHistoryCap: 256,
			LogBase:             "2",
			CovarianceEpsilon:   1e-8,
			MinAlignedSamples:   32,
			MaxChannelsForJoint: 32,
			DefaultStrideMs:     1000,
			Payload: PayloadConfig{
				FrameEntropy:      true,
				PerChannelEntropy: true,
				IncludeHistogram:  false,
			},
		},
		Complexity: ComplexityConfig{
			Enabled: true,
			Baseline: BaselineConfig{
				BuildTimeMs:            60_000,
				MinValidSnapshots:      30,
				UpdateMode:             "Frozen",
				EmaAlpha:               0.2,
				RollingWindowSnapshots: 256,
			},
			Deltas: DeltasConfig{
				ComputeTC:             true,
				ComputeR:              true,
				ComputeHJoint:         true,
				ComputePayloadEntropy: true,
			},
			Structure: StructureConfig{
				Enabled:        true,
				EmitSLite:      true,
				MaxChannels:    32,
				DetectBreaks:   true,
				BreakThreshold: 0.3,
			},
			Anomaly: AnomalyConfig{
				Enabled:        true,
				ZThresholdWarn: 2.0,
				ZThresholdCrit: 3.0,
				PersistenceMs:  30_000,
				CooldownMs:     120_000,
			},
			Output: OutputConfig{
				SnapshotEveryNTicks:  1,
				EmitEvents:           true,
				IncludeBaselineStats: true,
			},
			ZoneHealthyMin:   0.5,
			ZoneAttentionMin: 0.2,
		},
		Storage: StorageConfig{
			DBPath:        DefaultDBPath,
			RetentionDays: 30,
		},
		Observability: ObservabilityConfig{
			MetricsAddr: "127.0.0.1:9091",
			LogLevel:    "info",
			LogFormat:   "json",
		},
	}
	cfg.Metrics.Resilience.Enabled = true
	cfg.Metrics.Resilience.MinSumH = 0.1
	cfg.Metrics.Resilience.Thresholds.HealthyMin = 0.5
	cfg.Metrics.Resilience.Thresholds.AttentionMin = 0.2
	cfg.Metrics.Resilience.Criticality.Enabled = true
	cfg.Metrics.Resilience.Criticality.MaxChannels = 16
	cfg.Metrics.Resilience.Criticality.EveryN = 10
	cfg.Complexity.Structure.Sparsify.Enabled = true
	cfg.Complexity.Structure.Sparsify.TopKEdges = 64
	cfg.Complexity.Structure.Sparsify.MinAbsWeight = 0.2
	cfg.Complexity.Deltas.Smoothing.Alpha = 0.2
	return cfg
}

// Load reads and validates a config file from the given path. Returns the
// merged config (defaults overridden by file values).
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks all config fields for correctness, accumulating every
// violation into one error.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.SchemaVersion != "1" {
		errs = append(errs, fmt.Sprintf("schema_version must be \"1\", got %q", cfg.SchemaVersion))
	}
	if cfg.NodeID == "" {
		errs = append(errs, "node_id must not be empty")
	}

	switch cfg.Metrics.Alignment {
	case "SampleAndHold", "Nearest", "Linear":
	default:
		errs = append(errs, fmt.Sprintf("metrics.alignment must be one of SampleAndHold, Nearest, Linear, got %q", cfg.Metrics.Alignment))
	}
	switch cfg.Metrics.MissingData.Kind {
	case "Drop", "AllowPartial", "FillLastKnown":
	default:
		errs = append(errs, fmt.Sprintf("metrics.missing_data.kind must be one of Drop, AllowPartial, FillLastKnown, got %q", cfg.Metrics.MissingData.Kind))
	}
	switch cfg.Metrics.Normalization {
	case "None", "ZScore", "RobustMad":
	default:
		errs = append(errs, fmt.Sprintf("metrics.normalization must be one of None, ZScore, RobustMad, got %q", cfg.Metrics.Normalization))
	}
	switch cfg.Metrics.LogBase {
	case "e", "2":
	default:
		errs = append(errs, fmt.Sprintf("metrics.log_base must be \"e\" or \"2\", got %q", cfg.Metrics.LogBase))
	}
	switch cfg.Metrics.SignalCompute.Kind {
	case "EveryN", "EveryMs", "NOrMs":
	default:
		errs = append(errs, fmt.Sprintf("metrics.signal_compute.kind must be one of EveryN, EveryMs, NOrMs, got %q", cfg.Metrics.SignalCompute.Kind))
	}
	switch cfg.Metrics.SignalWindow.Kind {
	case "TimeMs", "LastN":
	default:
		errs = append(errs, fmt.Sprintf("metrics.signal_window.kind must be one of TimeMs, LastN, got %q", cfg.Metrics.SignalWindow.Kind))
	}
	if cfg.Metrics.CovarianceEpsilon <= 0 {
		errs = append(errs, fmt.Sprintf("metrics.covariance_epsilon must be > 0, got %f", cfg.Metrics.CovarianceEpsilon))
	}
	if cfg.Metrics.MinAlignedSamples < 1 {
		errs = append(errs, fmt.Sprintf("metrics.min_aligned_samples must be >= 1, got %d", cfg.Metrics.MinAlignedSamples))
	}
	if cfg.Metrics.MaxChannelsForJoint < 1 {
		errs = append(errs, fmt.Sprintf("metrics.max_channels_for_joint must be >= 1, got %d", cfg.Metrics.MaxChannelsForJoint))
	}
	if cfg.Metrics.Resilience.Enabled {
		if cfg.Metrics.Resilience.Thresholds.HealthyMin < cfg.Metrics.Resilience.Thresholds.AttentionMin {
			errs = append(errs, "metrics.resilience.thresholds.healthy_min must be >= attention_min")
		}
	}

	switch cfg.Complexity.Baseline.UpdateMode {
	case "Frozen", "Ema", "Rolling":
	default:
		errs = append(errs, fmt.Sprintf("complexity.baseline.update_mode must be one of Frozen, Ema, Rolling, got %q", cfg.Complexity.Baseline.UpdateMode))
	}
	if cfg.Complexity.Baseline.UpdateMode == "Ema" && (cfg.Complexity.Baseline.EmaAlpha <= 0 || cfg.Complexity.Baseline.EmaAlpha > 1) {
		errs = append(errs, fmt.Sprintf("complexity.baseline.ema_alpha must be in (0, 1], got %f", cfg.Complexity.Baseline.EmaAlpha))
	}
	if cfg.Complexity.Baseline.MinValidSnapshots < 1 {
		errs = append(errs, fmt.Sprintf("complexity.baseline.min_valid_snapshots must be >= 1, got %d", cfg.Complexity.Baseline.MinValidSnapshots))
	}
	if cfg.Complexity.Anomaly.ZThresholdCrit < cfg.Complexity.Anomaly.ZThresholdWarn {
		errs = append(errs, "complexity.anomaly.z_threshold_crit must be >= z_threshold_warn")
	}
	if cfg.Complexity.Structure.BreakThreshold < 0 {
		errs = append(errs, fmt.Sprintf("complexity.structure.break_threshold must be >= 0, got %f", cfg.Complexity.Structure.BreakThreshold))
	}

	if cfg.Storage.DBPath == "" {
		errs = append(errs, "storage.db_path must not be empty")
	}
	if cfg.Storage.RetentionDays < 1 {
		errs = append(errs, fmt.Sprintf("storage.retention_days must be >= 1, got %d", cfg.Storage.RetentionDays))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", joinStrings(errs, "\n  - "))
	}
	return nil
}

// joinStrings joins a slice of strings with a separator.
func joinStrings(ss []string, sep string) string {
	if len(ss) == 0 {
		return ""
	}
	result := ss[0]
	for _, s := range ss[1:] {
		result += sep + s
	}
	return result
}

// ToWindowPolicy converts the signal_window block into a window.Policy.
func (c MetricsConfig) ToWindowPolicy() window.Policy {
	if c.SignalWindow.Kind == "LastN" {
		return window.CountWindow(c.SignalWindow.LastN)
	}
	return window.TimeWindow(c.SignalWindow.TimeMs)
}

// ToMetricsConfig converts the YAML-facing MetricsConfig into the
// MetricsEngine's metrics.Config.
func (c MetricsConfig) ToMetricsConfig() (metrics.Config, error) {
	var trig metrics.Trigger
	switch c.SignalCompute.Kind {
	case "EveryMs":
		trig = metrics.Trigger{Kind: metrics.EveryMillis, Millis: c.SignalCompute.Millis}
	case "NOrMs":
		trig = metrics.Trigger{Kind: metrics.NFlushesOrMillis, N: c.SignalCompute.N, Millis: c.SignalCompute.Millis}
	default:
		trig = metrics.Trigger{Kind: metrics.EveryNFlushes, N: c.SignalCompute.N}
	}

	var alignment align.Strategy
	switch c.Alignment {
	case "Nearest":
		alignment = align.Nearest
	case "Linear":
		alignment = align.LinearInterpolation
	default:
		alignment = align.SampleAndHold
	}

	var missing align.MissingPolicy
	switch c.MissingData.Kind {
	case "AllowPartial":
		missing = align.MissingPolicy{Kind: align.MissingAllowPartial, MinChannels: c.MissingData.MinChannels}
	case "FillLastKnown":
		missing = align.MissingPolicy{Kind: align.MissingFillLastKnown}
	default:
		missing = align.MissingPolicy{Kind: align.MissingDrop}
	}

	var norm normalize.Method
	switch c.Normalization {
	case "ZScore":
		norm = normalize.ZScore
	case "RobustMad":
		norm = normalize.RobustMad
	default:
		norm = normalize.None
	}

	var base entropy.LogBase
	if c.LogBase == "e" {
		base = entropy.LogBaseE
	} else {
		base = entropy.LogBase2
	}

	return metrics.Config{
		Trigger:             trig,
		Alignment:           alignment,
		Missing:             missing,
		Normalize:           norm,
		NormalizeMinSamples: c.NormalizeMinSamples,
		NormalizeHistoryCap: c.NormalizeHistoryCap,
		Entropy: entropy.SignalConfig{
			Epsilon:             c.CovarianceEpsilon,
			MinAlignedSamples:   c.MinAlignedSamples,
			MaxChannelsForJoint: c.MaxChannelsForJoint,
			Base:                base,
		},
		Resilience: resilience.Config{
			Enabled:            c.Resilience.Enabled,
			MinSumH:            c.Resilience.MinSumH,
			HealthyMin:         c.Resilience.Thresholds.HealthyMin,
			AttentionMin:       c.Resilience.Thresholds.AttentionMin,
			CriticalityEnabled: c.Resilience.Criticality.Enabled,
			MaxChannels:        c.Resilience.Criticality.MaxChannels,
			EveryN:             c.Resilience.Criticality.EveryN,
		},
		DefaultStrideMs: c.DefaultStrideMs,
		Payload: metrics.PayloadSettings{
			FrameEntropy:     c.Payload.FrameEntropy,
			PerChannel:       c.Payload.PerChannelEntropy,
			IncludeHistogram: c.Payload.IncludeHistogram,
		},
	}, nil
}

// eventNameToType maps the anomaly.events.* config keys to anomaly.EventType.
var eventNameToType = map[string]anomaly.EventType{
	"baseline_locked":       anomaly.BaselineLocked,
	"baseline_building":     anomaly.BaselineBuilding,
	"payload_entropy_spike": anomaly.PayloadEntropySpike,
	"structure_break":       anomaly.StructureBreak,
	"redundancy_drop":       anomaly.RedundancyDrop,
	"complexity_surge":      anomaly.ComplexitySurge,
	"criticality_shift":     anomaly.CriticalityShift,
}

// ToComplexityConfig converts the YAML-facing ComplexityConfig into the
// ComplexityEngine's complexity.Config.
func (c ComplexityConfig) ToComplexityConfig() (complexity.Config, error) {
	var updateMode baseline.UpdateMode
	switch c.Baseline.UpdateMode {
	case "Ema":
		updateMode = baseline.Ema
	case "Rolling":
		updateMode = baseline.Rolling
	default:
		updateMode = baseline.Frozen
	}

	enabled := make(map[anomaly.EventType]bool, len(eventNameToType))
	for _, t := range eventNameToType {
		enabled[t] = c.Anomaly.Enabled
	}
	if c.Anomaly.Enabled {
		for name, on := range c.Anomaly.Events {
			t, ok := eventNameToType[name]
			if !ok {
				return complexity.Config{}, fmt.Errorf("complexity.anomaly.events: unknown event type %q", name)
			}
			enabled[t] = on
		}
	}

	return complexity.Config{
		Enabled: c.Enabled,
		Baseline: baseline.Config{
			BuildTimeMs:            c.Baseline.BuildTimeMs,
			MinValidSnapshots:      c.Baseline.MinValidSnapshots,
			UpdateMode:             updateMode,
			EmaAlpha:               c.Baseline.EmaAlpha,
			RollingWindowSnapshots: c.Baseline.RollingWindowSnapshots,
		},
		ComputeTC:             c.Deltas.ComputeTC,
		ComputeR:              c.Deltas.ComputeR,
		ComputeHJoint:         c.Deltas.ComputeHJoint,
		ComputePayloadEntropy: c.Deltas.ComputePayloadEntropy,
		Delta: delta.Config{
			SmoothingEnabled: c.Deltas.Smoothing.Enabled,
			Alpha:            c.Deltas.Smoothing.Alpha,
		},
		Structure: structure.Config{
			MaxChannels:     c.Structure.MaxChannels,
			SparsifyEnabled: c.Structure.Sparsify.Enabled,
			TopKEdges:       c.Structure.Sparsify.TopKEdges,
			MinAbsWeight:    c.Structure.Sparsify.MinAbsWeight,
			DetectBreaks:    c.Structure.DetectBreaks,
			BreakThreshold:  c.Structure.BreakThreshold,
		},
		EmitSLite: c.Structure.Enabled && c.Structure.EmitSLite,
		Anomaly: anomaly.Config{
			ZThresholdWarn: c.Anomaly.ZThresholdWarn,
			ZThresholdCrit: c.Anomaly.ZThresholdCrit,
			PersistenceMs:  c.Anomaly.PersistenceMs,
			CooldownMs:     c.Anomaly.CooldownMs,
			Enabled:        enabled,
		},
		ZoneHealthyMin:       c.ZoneHealthyMin,
		ZoneAttentionMin:     c.ZoneAttentionMin,
		OutputEveryNTicks:    c.Output.SnapshotEveryNTicks,
		EmitEvents:           c.Output.EmitEvents,
		IncludeBaselineStats: c.Output.IncludeBaselineStats,
	}, nil
}
