package markov

import (
	"errors"
	"fmt"
)

// Domain errors for chain construction and evaluation.
var (
	// ErrShape indicates a rate matrix that is not S×S or N×S×S.
	ErrShape = errors.New("markov: rate matrix must be square (S×S or N×S×S)")

	// ErrSign indicates a non-positive or non-finite off-diagonal rate.
	ErrSign = errors.New("markov: off-diagonal rates must be strictly positive")

	// ErrDomain indicates a state outside the domain of a logarithm.
	ErrDomain = errors.New("markov: state entries must be strictly positive")

	// ErrSupportMismatch indicates two distributions with different supports.
	ErrSupportMismatch = fmt.Errorf("%w: distributions must share the same support", ErrDomain)

	// ErrDimensionMismatch indicates a state batch that does not match the chain.
	ErrDimensionMismatch = errors.New("markov: dimension mismatch between state and chain")

	// ErrParameter indicates a solver or distribution parameter out of range.
	ErrParameter = errors.New("markov: parameter out of valid bounds")

	// ErrDegenerateSpectrum indicates zero or several zero eigenvalues.
	ErrDegenerateSpectrum = errors.New("markov: expected exactly one zero eigenvalue")

	// ErrEigenFailed indicates the eigen-decomposition did not factorize.
	ErrEigenFailed = errors.New("markov: eigen decomposition failed")

	// ErrAnalyticSkipped indicates the problem size exceeded the analytic threshold.
	ErrAnalyticSkipped = errors.New("markov: problem size above analytic threshold")
)

// RateError reports the offending entry of a rejected rate matrix.
type RateError struct {
	Chain   int
	Row     int
	Col     int
	Value   float64
	Wrapped error
}

func (e *RateError) Error() string {
	return fmt.Sprintf("%v: R[%d][%d][%d] = %g", e.Wrapped, e.Chain, e.Row, e.Col, e.Value)
}

func (e *RateError) Unwrap() error {
	return e.Wrapped
}
