package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ctmc/internal/markov"
)

// Relaxation returns KL(trajectory[i][k] ‖ target[k]) for every recorded
// state of chain k.
func Relaxation(trajectory []markov.Batch, target markov.Batch, k int) ([]float64, error) {
	if k < 0 || k >= len(target) {
		return nil, fmt.Errorf("chain %d outside [0, %d)", k, len(target))
	}
	out := make([]float64, len(trajectory))
	for i, b := range trajectory {
		if k >= len(b) {
			return nil, fmt.Errorf("trajectory state %d has %d chains", i, len(b))
		}
		d, err := markov.KL(b[k], target[k])
		if err != nil {
			return nil, fmt.Errorf("trajectory state %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

// RelaxationRate estimates λ in d(i) ≈ d(0)·exp(−λ·i) from the positive
// entries of a divergence series. Entries at or below floor are skipped, as
// they carry only rounding noise.
func RelaxationRate(divergences []float64, floor float64) float64 {
	var x, y []float64
	for i, d := range divergences {
		if d > floor {
			x = append(x, float64(i))
			y = append(y, math.Log(d))
		}
	}
	if len(x) < 2 {
		return 0
	}
	_, slope := stat.LinearRegression(x, y, nil, false)
	return -slope
}
