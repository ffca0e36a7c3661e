package markov

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Uniform returns 1/S in every state of every chain.
func (c *Chain) Uniform() Batch {
	out := newBatch(len(c.rates), c.states)
	for _, s := range out {
		for i := range s {
			s[i] = 1 / float64(c.states)
		}
	}
	return out
}

// RandomState draws every entry from [1e-16, 1) and normalises each chain.
// The result is strictly positive but not uniform over the simplex.
func (c *Chain) RandomState() Batch {
	const lo = 1e-16
	out := newBatch(len(c.rates), c.states)
	for _, s := range out {
		for i := range s {
			s[i] = lo + (1-lo)*c.rng.Float64()
		}
		floats.Scale(1/floats.Sum(s), s)
	}
	return out
}

// LocalState returns a Gaussian bump on the ring of state indices for each
// chain, centred at mu[k] with width sigma[k]. A nil mu picks a random centre
// per chain; a nil sigma draws widths from [0.1, floor(S/3)).
func (c *Chain) LocalState(mu []int, sigma []float64) (Batch, error) {
	n := len(c.rates)
	if mu == nil {
		mu = make([]int, n)
		for k := range mu {
			mu[k] = c.rng.IntN(c.states)
		}
	}
	if sigma == nil {
		lo, hi := 0.1, float64(c.states/3)
		sigma = make([]float64, n)
		for k := range sigma {
			sigma[k] = lo + (hi-lo)*c.rng.Float64()
		}
	}
	if len(mu) != n || len(sigma) != n {
		return nil, fmt.Errorf("local state: got %d centres and %d widths for %d chains: %w",
			len(mu), len(sigma), n, ErrDimensionMismatch)
	}

	idx := make([]float64, c.states)
	for i := range idx {
		idx[i] = float64(i)
	}

	out := make(Batch, n)
	for k := range out {
		if mu[k] < 0 || mu[k] >= c.states {
			return nil, fmt.Errorf("local state: centre %d outside [0, %d): %w", mu[k], c.states, ErrParameter)
		}
		if !(sigma[k] > 0) || math.IsInf(sigma[k], 0) {
			return nil, fmt.Errorf("local state: width %g: %w", sigma[k], ErrParameter)
		}

		s := State(CyclicDistance(idx, float64(mu[k])))
		for i, d := range s {
			s[i] = math.Exp(-d * d / (2 * sigma[k] * sigma[k]))
		}
		floats.Scale(1/floats.Sum(s), s)
		out[k] = s
	}
	return out, nil
}

// KL returns the Kullback-Leibler divergence D(p‖q). Both arguments are
// renormalised first and must share the same support.
func KL(p, q State) (float64, error) {
	if len(p) != len(q) {
		return 0, fmt.Errorf("kl: lengths %d and %d: %w", len(p), len(q), ErrDimensionMismatch)
	}
	for i := range p {
		if p[i] < 0 || q[i] < 0 || math.IsNaN(p[i]) || math.IsNaN(q[i]) {
			return 0, fmt.Errorf("kl: negative probability at %d: %w", i, ErrDomain)
		}
		if (p[i] != 0) != (q[i] != 0) {
			return 0, fmt.Errorf("kl: state %d: %w", i, ErrSupportMismatch)
		}
	}

	ps, qs := floats.Sum(p), floats.Sum(q)
	if !(ps > 0) || !(qs > 0) {
		return 0, fmt.Errorf("kl: empty distribution: %w", ErrDomain)
	}

	var d float64
	for i := range p {
		if p[i] == 0 {
			// outside the support both sides are 1 and the term is zero
			continue
		}
		pi, qi := p[i]/ps, q[i]/qs
		d += pi * math.Log(pi/qi)
	}
	return d, nil
}

// DKL returns KL(p[k], q[k]) for every chain.
func (c *Chain) DKL(p, q Batch) ([]float64, error) {
	if err := c.checkBatch(p); err != nil {
		return nil, fmt.Errorf("dkl: %w", err)
	}
	if err := c.checkBatch(q); err != nil {
		return nil, fmt.Errorf("dkl: %w", err)
	}
	out := make([]float64, len(p))
	for k := range p {
		d, err := KL(p[k], q[k])
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", k, err)
		}
		out[k] = d
	}
	return out, nil
}

// CyclicDistance returns x−i measured on a ring of len(x) positions. Offsets
// longer than half the ring take the shorter arc, with the sign flipped.
func CyclicDistance(x []float64, i float64) []float64 {
	l := float64(len(x))
	half := float64(len(x) / 2)
	out := make([]float64, len(x))
	for k, v := range x {
		d := v - i
		if math.Abs(d) > half {
			d = -math.Copysign(l-math.Abs(d), d)
		}
		out[k] = d
	}
	return out
}
