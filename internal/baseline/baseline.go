// Package baseline implements the Building/Locked Welford accumulator over
// tracked metric keys, with Frozen/EMA/Rolling post-lock update modes.
package baseline

import "math"

// UpdateMode selects how a locked baseline reacts to further observations.
type UpdateMode int

const (
	Frozen UpdateMode = iota
	Ema
	Rolling
)

// Config holds the Building-phase thresholds and locked-phase update mode.
type Config struct {
	BuildTimeMs       uint64
	MinValidSnapshots int

	UpdateMode             UpdateMode
	EmaAlpha               float64 // used when UpdateMode == Ema
	RollingWindowSnapshots int     // used when UpdateMode == Rolling
}

// DefaultConfig returns reasonable Building-phase defaults; callers
// typically override BuildTimeMs/MinValidSnapshots per deployment.
func DefaultConfig() Config {
	return Config{
		BuildTimeMs:            60_000,
		MinValidSnapshots:      30,
		UpdateMode:             Frozen,
		EmaAlpha:               0.2,
		RollingWindowSnapshots: 256,
	}
}

// Stats is one metric key's accumulated statistics.
type Stats struct {
	N    int
	Mean float64
	M2   float64

	ring []float64 // only populated under Rolling mode
}

// Std returns sqrt(m2 / max(n-1, 1)).
func (s Stats) Std() float64 {
	denom := s.N - 1
	if denom < 1 {
		denom = 1
	}
	return math.Sqrt(s.M2 / float64(denom))
}

func (s *Stats) updateWelford(x float64) {
	s.N++
	delta := x - s.Mean
	s.Mean += delta / float64(s.N)
	delta2 := x - s.Mean
	s.M2 += delta * delta2
}

// updateEma applies the variance-coupling recurrence
// m2 <- (1-a)*m2 + a*(x-mean_old)*(x-mean_new). This does not reproduce a
// true exponentially-weighted variance exactly; treat variance under EMA
// as an approximation.
func (s *Stats) updateEma(x, alpha float64) {
	meanOld := s.Mean
	s.Mean = (1-alpha)*s.Mean + alpha*x
	s.M2 = (1-alpha)*s.M2 + alpha*(x-meanOld)*(x-s.Mean)
	s.N++
}

func (s *Stats) updateRolling(x float64, windowSize int) {
	s.ring = append(s.ring, x)
	if len(s.ring) > windowSize {
		s.ring = s.ring[len(s.ring)-windowSize:]
	}
	n := len(s.ring)
	var sum float64
	for _, v := range s.ring {
		sum += v
	}
	mean := sum / float64(n)
	var sq float64
	for _, v := range s.ring {
		d := v - mean
		sq += d * d
	}
	s.Mean = mean
	s.M2 = sq
	s.N = n
}

// Baseline accumulates per-metric-key statistics through a Building phase
// and transitions to Locked exactly once per lifetime.
type Baseline struct {
	cfg Config

	locked     bool
	startedMs  uint64
	hasStarted bool
	lockedAtMs uint64
	validSeen  int
	totalSeen  int

	stats map[string]*Stats
}

// New creates a Baseline in the Building phase.
func New(cfg Config) *Baseline {
	return &Baseline{cfg: cfg, stats: make(map[string]*Stats)}
}

// Locked reports whether the baseline has transitioned out of Building.
func (b *Baseline) Locked() bool { return b.locked }

// Progress returns (validSnapshotsSeen, elapsedMs) while Building; callers
// use this to report a Building(progress) status.
func (b *Baseline) Progress(nowMs uint64) (validSeen int, elapsedMs uint64) {
	if !b.hasStarted {
		return 0, 0
	}
	return b.validSeen, nowMs - b.startedMs
}

// Observe feeds one snapshot's tracked metric values at nowMs. valid
// indicates whether the source snapshot itself was valid; invalid
// snapshots count toward totalSeen but never toward n or the accumulators.
// Returns true the instant this call causes a Building->Locked transition.
func (b *Baseline) Observe(nowMs uint64, values map[string]float64, valid bool) bool {
	if !b.hasStarted {
		b.hasStarted = true
		b.startedMs = nowMs
	}
	b.totalSeen++

	if b.locked {
		if valid {
			b.updateLocked(values)
		}
		return false
	}

	if valid {
		b.validSeen++
		for key, x := range values {
			s, ok := b.stats[key]
			if !ok {
				s = &Stats{}
				b.stats[key] = s
			}
			s.updateWelford(x)
		}
	}

	if nowMs-b.startedMs >= b.cfg.BuildTimeMs && b.validSeen >= b.cfg.MinValidSnapshots {
		b.locked = true
		b.lockedAtMs = nowMs
		return true
	}
	return false
}

func (b *Baseline) updateLocked(values map[string]float64) {
	switch b.cfg.UpdateMode {
	case Frozen:
		return
	case Ema:
		alpha := b.cfg.EmaAlpha
		if alpha <= 0 {
			alpha = 0.2
		}
		for key, x := range values {
			s, ok := b.stats[key]
			if !ok {
				s = &Stats{}
				b.stats[key] = s
			}
			s.updateEma(x, alpha)
		}
	case Rolling:
		w := b.cfg.RollingWindowSnapshots
		if w <= 0 {
			w = 256
		}
		for key, x := range values {
			s, ok := b.stats[key]
			if !ok {
				s = &Stats{}
				b.stats[key] = s
			}
			s.updateRolling(x, w)
		}
	}
}

// Stat returns the accumulated (mean, std, n) for a metric key and whether
// any observation has been recorded for it.
func (b *Baseline) Stat(key string) (mean, std float64, n int, ok bool) {
	s, found := b.stats[key]
	if !found {
		return 0, 0, 0, false
	}
	return s.Mean, s.Std(), s.N, true
}

// LockedAtMs returns the timestamp of the Building->Locked transition, or 0
// if not yet locked.
func (b *Baseline) LockedAtMs() uint64 { return b.lockedAtMs }
