// Package resilience computes the normalized redundancy index R and
// leave-one-out channel criticality from a signal entropy estimate.
package resilience

import (
	"github.com/fathomio/fathom-core/internal/entropy"
)

// Zone classifies the current redundancy level.
type Zone int

const (
	Critical Zone = iota
	Attention
	Healthy
)

func (z Zone) String() string {
	switch z {
	case Healthy:
		return "healthy"
	case Attention:
		return "attention"
	default:
		return "critical"
	}
}

// Config holds the zone thresholds and criticality cost controls.
type Config struct {
	Enabled      bool
	MinSumH      float64 // default 0.1
	HealthyMin   float64 // default 0.5
	AttentionMin float64 // default 0.2

	CriticalityEnabled bool
	MaxChannels        int // cap on channels considered for leave-one-out
	EveryN             int // compute criticality only every N signal computes
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		MinSumH:            0.1,
		HealthyMin:         0.5,
		AttentionMin:       0.2,
		CriticalityEnabled: true,
		MaxChannels:        16,
		EveryN:             10,
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Metrics is the outcome of one resilience evaluation.
type Metrics struct {
	Valid       bool
	R           float64
	Zone        Zone
	Criticality map[string]float64 // channel id -> delta R, only when computed this cycle
}

// Compute derives R and the zone from a SignalMetrics result. computeCriticality
// is the caller's decision (driven by every_n_signal_computes); when true and
// cfg.CriticalityEnabled, Compute recomputes joint entropy on each
// (k-1)-channel submatrix of columns to produce per-channel delta R, capped to
// cfg.MaxChannels channels (first N in channelIDs order).
func Compute(channelIDs []string, columns [][]float64, signal entropy.SignalMetrics, entropyCfg entropy.SignalConfig, cfg Config, computeCriticality bool) Metrics {
	if !cfg.Enabled || !signal.Valid {
		return Metrics{}
	}

	var sumH float64
	for _, h := range signal.HMarginal {
		sumH += h
	}
	if sumH < cfg.MinSumH {
		return Metrics{}
	}

	r := clamp01(1 - signal.HJoint/sumH)
	zone := Critical
	if r >= cfg.HealthyMin {
		zone = Healthy
	} else if r >= cfg.AttentionMin {
		zone = Attention
	}

	m := Metrics{Valid: true, R: r, Zone: zone}

	if computeCriticality && cfg.CriticalityEnabled {
		m.Criticality = leaveOneOut(channelIDs, columns, entropyCfg, cfg, r)
	}
	return m
}

func leaveOneOut(channelIDs []string, columns [][]float64, entropyCfg entropy.SignalConfig, cfg Config, r float64) map[string]float64 {
	k := len(channelIDs)
	limit := k
	if cfg.MaxChannels > 0 && cfg.MaxChannels < limit {
		limit = cfg.MaxChannels
	}

	out := make(map[string]float64, limit)
	for i := 0; i < limit; i++ {
		subIDs := make([]string, 0, k-1)
		subCols := make([][]float64, 0, k-1)
		var subSumH float64
		for j := 0; j < k; j++ {
			if j == i {
				continue
			}
			subIDs = append(subIDs, channelIDs[j])
			subCols = append(subCols, columns[j])
		}
		subEstimate := entropy.Estimate(subIDs, subCols, entropyCfg)
		if !subEstimate.Valid {
			continue
		}
		for _, h := range subEstimate.HMarginal {
			subSumH += h
		}
		if subSumH < cfg.MinSumH {
			continue
		}
		rSub := clamp01(1 - subEstimate.HJoint/subSumH)
		out[channelIDs[i]] = r - rSub
	}
	return out
}
