package markov

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// State is a probability distribution over the states of one chain.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Sum() float64 {
	return floats.Sum(s)
}

// Positive reports whether every entry is strictly positive.
func (s State) Positive() bool {
	for _, v := range s {
		if !(v > 0) {
			return false
		}
	}
	return true
}

// Normalized returns s scaled to sum to one.
func (s State) Normalized() State {
	c := s.Clone()
	if sum := floats.Sum(c); sum != 0 {
		floats.Scale(1/sum, c)
	}
	return c
}

// Batch holds one State per chain.
type Batch []State

func (b Batch) Clone() Batch {
	c := make(Batch, len(b))
	for i, s := range b {
		c[i] = s.Clone()
	}
	return c
}

// Sums returns the per-chain total probability.
func (b Batch) Sums() []float64 {
	out := make([]float64, len(b))
	for i, s := range b {
		out[i] = s.Sum()
	}
	return out
}

func newBatch(n, s int) Batch {
	b := make(Batch, n)
	for i := range b {
		b[i] = make(State, s)
	}
	return b
}

// isClose mirrors the usual |a-b| <= atol + rtol*|b| closeness test.
func isClose(a, b, rtol, atol float64) bool {
	return math.Abs(a-b) <= atol+rtol*math.Abs(b)
}

func allClose(a, b State, rtol, atol float64) bool {
	for i := range a {
		if !isClose(a[i], b[i], rtol, atol) {
			return false
		}
	}
	return true
}
