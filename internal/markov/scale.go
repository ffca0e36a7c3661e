package markov

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultMaxRate caps the largest rescaled rate magnitude.
const DefaultMaxRate = 1.0

// normalizeRates divides each chain by max|R|/min(max|R|, maxRate) in place
// and returns the per-chain scale.
func normalizeRates(mats []*mat.Dense, maxRate float64) ([]float64, error) {
	if !(maxRate > 0) || math.IsInf(maxRate, 0) {
		return nil, fmt.Errorf("max rate %g: %w", maxRate, ErrParameter)
	}

	scale := make([]float64, len(mats))
	for k, m := range mats {
		rMax := floats.Norm(m.RawMatrix().Data, math.Inf(1))
		scale[k] = rMax / math.Min(rMax, maxRate)
		m.Scale(1/scale[k], m)
	}
	return scale, nil
}

// statewiseQ returns Σ_j R[i][j]·log(R[i][j]/R[j][i]) for every state.
func statewiseQ(m *mat.Dense) State {
	s, _ := m.Dims()
	q := make(State, s)
	for i := 0; i < s; i++ {
		for j := 0; j < s; j++ {
			if i == j {
				continue
			}
			rij := m.At(i, j)
			q[i] += rij * math.Log(rij/m.At(j, i))
		}
	}
	return q
}
