package markov

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Method records how a chain's steady state was seeded.
type Method int

const (
	Analytic Method = iota
	Numeric
)

func (m Method) String() string {
	if m == Analytic {
		return "analytic"
	}
	return "numeric"
}

// NESSOptions configures the steady-state solver.
type NESSOptions struct {
	Dt            float64 // relaxation step
	MaxIter       int
	ForceAnalytic bool
	RelTol        float64 // derivative closeness to zero
	AbsTol        float64
	EigenTol      float64 // |λ| below which an eigenvalue counts as zero
}

func DefaultNESSOptions() NESSOptions {
	return NESSOptions{
		Dt:       0.1,
		MaxIter:  500,
		RelTol:   1e-5,
		AbsTol:   1e-8,
		EigenTol: 1e-8,
	}
}

func (o NESSOptions) validate() error {
	switch {
	case !(o.Dt > 0):
		return fmt.Errorf("ness dt %g: %w", o.Dt, ErrParameter)
	case o.MaxIter < 0:
		return fmt.Errorf("ness max iter %d: %w", o.MaxIter, ErrParameter)
	case o.RelTol < 0 || o.AbsTol < 0 || o.EigenTol < 0:
		return fmt.Errorf("ness tolerances must be non-negative: %w", ErrParameter)
	}
	return nil
}

// NESSResult is a steady state together with how it was obtained.
type NESSResult struct {
	State      Batch
	Methods    []Method
	Fallbacks  []error // nil for chains solved analytically
	Converged  bool
	Iterations int
}

// estimate is the analytic attempt for one chain: a distribution, or the
// reason none could be taken from the spectrum.
type estimate struct {
	state  State
	reason error
}

func (c *Chain) analyticEstimate(k int, tol float64) estimate {
	var eig mat.Eigen
	if ok := eig.Factorize(c.rates[k].T(), mat.EigenRight); !ok {
		return estimate{reason: ErrEigenFailed}
	}

	zero, count := -1, 0
	for i, v := range eig.Values(nil) {
		if cmplx.Abs(v) <= tol {
			zero = i
			count++
		}
	}
	if count != 1 {
		return estimate{reason: fmt.Errorf("found %d: %w", count, ErrDegenerateSpectrum)}
	}

	var vecs mat.CDense
	eig.VectorsTo(&vecs)

	s := make(State, c.states)
	for i := range s {
		s[i] = cmplx.Abs(vecs.At(i, zero))
	}
	sum := floats.Sum(s)
	if !(sum > 0) || math.IsInf(sum, 0) {
		return estimate{reason: fmt.Errorf("null vector sums to %g: %w", sum, ErrDegenerateSpectrum)}
	}
	floats.Scale(1/sum, s)
	return estimate{state: s}
}

// useAnalytic applies the log(N)·sqrt(S) size heuristic.
func (c *Chain) useAnalytic(force bool) bool {
	return force || math.Log(float64(len(c.rates)))*math.Sqrt(float64(c.states)) < c.analyticThreshold
}

func (c *Chain) stationary(b Batch, opts NESSOptions) bool {
	for _, d := range c.derivative(b) {
		for _, v := range d {
			if !isClose(v, 0, opts.RelTol, opts.AbsTol) {
				return false
			}
		}
	}
	return true
}

// NESS returns the non-equilibrium steady state, computing and caching it on
// first use. Chains whose spectrum cannot be used start from the uniform
// distribution; every chain is then relaxed with Euler steps until the time
// derivative vanishes or MaxIter is reached. Non-convergence is reported in
// the result, not as an error.
func (c *Chain) NESS(opts NESSOptions) (*NESSResult, error) {
	if cached, ok := c.ness.get(); ok {
		return cached, nil
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	n := len(c.rates)
	res := &NESSResult{
		State:     make(Batch, n),
		Methods:   make([]Method, n),
		Fallbacks: make([]error, n),
	}

	analytic := c.useAnalytic(opts.ForceAnalytic)
	uniform := c.Uniform()
	for k := 0; k < n; k++ {
		reason := ErrAnalyticSkipped
		if analytic {
			est := c.analyticEstimate(k, opts.EigenTol)
			if est.reason == nil {
				res.State[k] = est.state
				res.Methods[k] = Analytic
				continue
			}
			reason = est.reason
		}
		res.State[k] = uniform[k]
		res.Methods[k] = Numeric
		res.Fallbacks[k] = reason
		c.logger.Debug("ness defaulting to numeric solution", "chain", k, "reason", reason)
	}

	ness := res.State
	i := 0
	for !c.stationary(ness, opts) && i < opts.MaxIter {
		ness = c.evolve(ness, opts.Dt)
		i++
	}

	res.State = ness
	res.Iterations = i
	res.Converged = c.stationary(ness, opts)
	if !res.Converged {
		c.logger.Warn("ness did not converge", "iterations", i, "chains", n)
	}

	c.ness.set(res)
	return res, nil
}
