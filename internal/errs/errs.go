// Package errs defines the sentinel error kinds shared across the core.
//
// Only ErrInvalidArgument surfaces to callers, at the ingest boundary. The
// other kinds are absorbed inside the engines and materialize as
// valid=false on the affected metric substructure; they exist as sentinels
// so tests and metric labels can classify the failure without string
// matching.
package errs

import "errors"

var (
	// ErrInvalidArgument marks a rejected ingest call: empty channel id,
	// non-finite value.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientData marks an estimate skipped for lack of aligned
	// rows or marginal entropy mass.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNumericFailure marks a covariance matrix that stayed
	// non-positive-definite after regularization.
	ErrNumericFailure = errors.New("numeric failure")
)

// Label maps err to a fixed low-cardinality string, usable as a metrics
// label dimension.
func Label(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrNumericFailure):
		return "numeric_failure"
	default:
		return "other"
	}
}
