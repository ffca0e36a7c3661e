package markov

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// validated is a rate matrix in canonical form, before scaling.
type validated struct {
	mats    []*mat.Dense
	states  int
	batched bool
}

// verifyRateMatrix squeezes raw, checks shape and sign pattern, and derives
// the diagonal of every chain whose rows do not already sum to zero.
func verifyRateMatrix(raw Array) (validated, error) {
	if raw.Size() != len(raw.Data) {
		return validated{}, fmt.Errorf("shape %v holds %d values, data has %d: %w", raw.Shape, raw.Size(), len(raw.Data), ErrShape)
	}
	a := raw.Squeeze()

	var n int
	switch len(a.Shape) {
	case 2:
		n = 1
	case 3:
		n = a.Shape[0]
	default:
		return validated{}, fmt.Errorf("squeezed shape %v has rank %d: %w", a.Shape, len(a.Shape), ErrShape)
	}

	s := a.Shape[len(a.Shape)-1]
	if s < 2 || n < 1 || a.Shape[len(a.Shape)-2] != s || a.Size() != n*s*s {
		return validated{}, fmt.Errorf("squeezed shape %v: %w", a.Shape, ErrShape)
	}

	mats := make([]*mat.Dense, n)
	for k := 0; k < n; k++ {
		data := make([]float64, s*s)
		copy(data, a.Data[k*s*s:(k+1)*s*s])
		m := mat.NewDense(s, s, data)

		for i := 0; i < s; i++ {
			for j := 0; j < s; j++ {
				if i == j {
					continue
				}
				v := m.At(i, j)
				if !(v > 0) || math.IsInf(v, 0) {
					return validated{}, &RateError{Chain: k, Row: i, Col: j, Value: v, Wrapped: ErrSign}
				}
			}
		}

		if !rowsSumToZero(m) {
			setDiagonal(m)
		}
		mats[k] = m
	}

	return validated{mats: mats, states: s, batched: len(a.Shape) == 3}, nil
}

func rowsSumToZero(m *mat.Dense) bool {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		if sum := mat.Sum(m.RowView(i)); sum != 0 {
			return false
		}
	}
	return true
}

// setDiagonal replaces R[i][i] with the negative off-diagonal row sum.
func setDiagonal(m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		off := 0.0
		for j := 0; j < c; j++ {
			if j != i {
				off += m.At(i, j)
			}
		}
		m.Set(i, i, -off)
	}
}
