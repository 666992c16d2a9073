// Package entropy estimates differential entropy of an aligned, normalized
// multi-channel signal under a Gaussian covariance model, and the Shannon
// entropy of raw payload byte buffers.
package entropy

import (
	"fmt"
	"math"

	"github.com/fathomio/fathom-core/internal/errs"
)

// LogBase selects the logarithm base used for differential entropy:
// natural log (nats) or log base 2 (bits, the default).
type LogBase int

const (
	LogBase2 LogBase = iota
	LogBaseE
)

func (b LogBase) log(x float64) float64 {
	if b == LogBaseE {
		return math.Log(x)
	}
	return math.Log2(x)
}

// fromNat converts a natural-log quantity into this base.
func (b LogBase) fromNat(x float64) float64 {
	if b == LogBaseE {
		return x
	}
	return x / math.Ln2
}

const twoPiE = 2 * math.Pi * math.E

// SignalConfig bounds the joint-entropy estimator.
type SignalConfig struct {
	Epsilon             float64 // covariance regularization, default 1e-8
	MinAlignedSamples   int     // default 32
	MaxChannelsForJoint int     // default 32
	Base                LogBase
}

// DefaultSignalConfig returns the stock estimator bounds.
func DefaultSignalConfig() SignalConfig {
	return SignalConfig{
		Epsilon:             1e-8,
		MinAlignedSamples:   32,
		MaxChannelsForJoint: 32,
		Base:                LogBase2,
	}
}

// SignalMetrics is the result of one joint/marginal entropy estimate.
type SignalMetrics struct {
	Valid        bool
	HJoint       float64
	HMarginal    map[string]float64 // per channel id
	TC           float64
	ChannelOrder []string // stable iteration order for HMarginal

	// Err classifies why Valid is false; wraps one of the errs sentinels.
	Err error
}

// Estimate computes joint and marginal differential entropy plus total
// correlation for an aligned column matrix: columns[i] holds channel
// channelIDs[i]'s series, all the same length n.
//
// Returns Valid=false (with Err set) if n is below MinAlignedSamples, the
// channel count exceeds MaxChannelsForJoint, any marginal variance is
// non-positive, or both Cholesky and the eigendecomposition fallback fail
// to produce a usable determinant.
func Estimate(channelIDs []string, columns [][]float64, cfg SignalConfig) SignalMetrics {
	k := len(channelIDs)
	if k == 0 || len(columns) != k {
		return SignalMetrics{Err: fmt.Errorf("%w: no channels", errs.ErrInvalidArgument)}
	}
	n := len(columns[0])
	for _, col := range columns {
		if len(col) != n {
			return SignalMetrics{Err: fmt.Errorf("%w: ragged column lengths", errs.ErrInvalidArgument)}
		}
	}
	if n < cfg.MinAlignedSamples {
		return SignalMetrics{Err: fmt.Errorf("%w: %d aligned rows, need %d", errs.ErrInsufficientData, n, cfg.MinAlignedSamples)}
	}
	if k > cfg.MaxChannelsForJoint {
		return SignalMetrics{Err: fmt.Errorf("%w: %d channels exceeds joint-estimate cap %d", errs.ErrInvalidArgument, k, cfg.MaxChannelsForJoint)}
	}

	eps := cfg.Epsilon
	if eps <= 0 {
		eps = 1e-8
	}

	means := make([]float64, k)
	for i, col := range columns {
		means[i] = mean(col)
	}

	cov := sampleCovariance(columns, means)
	for i := 0; i < k; i++ {
		if cov[i][i] <= 0 {
			return SignalMetrics{Err: fmt.Errorf("%w: non-positive marginal variance", errs.ErrNumericFailure)}
		}
		cov[i][i] += eps
	}

	variances := make([]float64, k)
	hMarginal := make(map[string]float64, k)
	for i := range channelIDs {
		variances[i] = cov[i][i]
		hMarginal[channelIDs[i]] = 0.5 * cfg.Base.log(twoPiE*variances[i])
	}

	logDet, ok := logDeterminant(cov)
	if !ok {
		return SignalMetrics{Err: fmt.Errorf("%w: covariance not positive-definite", errs.ErrNumericFailure)}
	}

	hJoint := 0.5 * (float64(k)*cfg.Base.log(twoPiE) + cfg.Base.fromNat(logDet))

	var sumMarginal float64
	for _, h := range hMarginal {
		sumMarginal += h
	}
	// Estimator noise can produce a small negative TC; any negative value,
	// however large, is clamped to zero rather than rejected.
	tc := sumMarginal - hJoint
	if tc < 0 {
		tc = 0
	}

	return SignalMetrics{
		Valid:        true,
		HJoint:       hJoint,
		HMarginal:    hMarginal,
		TC:           tc,
		ChannelOrder: append([]string(nil), channelIDs...),
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleCovariance computes the unbiased (n-1 divisor) sample covariance
// matrix for k series of equal length n.
func sampleCovariance(columns [][]float64, means []float64) [][]float64 {
	k := len(columns)
	n := len(columns[0])
	cov := make([][]float64, k)
	for i := range cov {
		cov[i] = make([]float64, k)
	}
	if n < 2 {
		return cov
	}
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			var sum float64
			for t := 0; t < n; t++ {
				sum += (columns[i][t] - means[i]) * (columns[j][t] - means[j])
			}
			v := sum / float64(n-1)
			cov[i][j] = v
			cov[j][i] = v
		}
	}
	return cov
}

// logDeterminant computes log(det(A)) for a symmetric positive-definite
// matrix via Cholesky (sum of 2*log(diag(L))), falling back to a Jacobi
// eigendecomposition (log sum of eigenvalues) if Cholesky fails.
func logDeterminant(a [][]float64) (float64, bool) {
	if L := choleskyDecompose(a); L != nil {
		var sum float64
		for i := range L {
			sum += 2 * math.Log(L[i][i])
		}
		return sum, true
	}
	eigenvalues := jacobiEigenvalues(a)
	var sum float64
	for _, lambda := range eigenvalues {
		if lambda <= 0 {
			return 0, false
		}
		sum += math.Log(lambda)
	}
	return sum, true
}

// choleskyDecompose returns the lower-triangular factor L such that
// L*Lᵀ = A, or nil if A is not positive-definite.
func choleskyDecompose(a [][]float64) [][]float64 {
	n := len(a)
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i][j]
			for t := 0; t < j; t++ {
				sum -= l[i][t] * l[j][t]
			}
			if i == j {
				if sum <= 0 {
					return nil
				}
				l[i][j] = math.Sqrt(sum)
			} else {
				if l[j][j] == 0 {
					return nil
				}
				l[i][j] = sum / l[j][j]
			}
		}
	}
	return l
}

// jacobiEigenvalues computes the eigenvalues of a symmetric matrix via the
// cyclic Jacobi rotation method. a is not mutated. Converges quickly for
// the small (k <= max_channels_for_joint) matrices this estimator handles.
func jacobiEigenvalues(a [][]float64) []float64 {
	n := len(a)
	m := make([][]float64, n)
	for i := range a {
		m[i] = append([]float64(nil), a[i]...)
	}

	const maxSweeps = 100
	const tol = 1e-12

	for sweep := 0; sweep < maxSweeps; sweep++ {
		off := offDiagonalNorm(m)
		if off < tol {
			break
		}
		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(m[p][q]) < tol {
					continue
				}
				theta := (m[q][q] - m[p][p]) / (2 * m[p][q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				if theta == 0 {
					t = 1
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				mpp, mqq, mpq := m[p][p], m[q][q], m[p][q]
				m[p][p] = c*c*mpp - 2*s*c*mpq + s*s*mqq
				m[q][q] = s*s*mpp + 2*s*c*mpq + c*c*mqq
				m[p][q] = 0
				m[q][p] = 0

				for r := 0; r < n; r++ {
					if r == p || r == q {
						continue
					}
					mrp, mrq := m[r][p], m[r][q]
					m[r][p] = c*mrp - s*mrq
					m[p][r] = m[r][p]
					m[r][q] = s*mrp + c*mrq
					m[q][r] = m[r][q]
				}
			}
		}
	}

	eig := make([]float64, n)
	for i := 0; i < n; i++ {
		eig[i] = m[i][i]
	}
	return eig
}

func offDiagonalNorm(m [][]float64) float64 {
	var sum float64
	for i := range m {
		for j := range m[i] {
			if i != j {
				sum += m[i][j] * m[i][j]
			}
		}
	}
	return sum
}
