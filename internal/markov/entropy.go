package markov

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func (c *Chain) statewiseEPR(b Batch) Batch {
	out := make(Batch, len(b))
	for k, s := range b {
		logs := make([]float64, len(s))
		for i, v := range s {
			logs[i] = math.Log(v)
		}
		var surprisal mat.VecDense
		surprisal.MulVec(c.rates[k], mat.NewVecDense(len(logs), logs))

		row := make(State, len(s))
		for i := range row {
			row[i] = -surprisal.AtVec(i) + c.q[k][i]
		}
		out[k] = row
	}
	return out
}

func (c *Chain) epr(b Batch, statewise Batch) []float64 {
	out := make([]float64, len(b))
	for k, s := range b {
		out[k] = floats.Dot(s, statewise[k])
	}
	return out
}

func (c *Chain) checkPositive(b Batch) error {
	for k, s := range b {
		for i, v := range s {
			if !(v > 0) {
				return fmt.Errorf("chain %d state %d = %g: %w", k, i, v, ErrDomain)
			}
		}
	}
	return nil
}

// StatewiseEPR returns −(R·log state) + Q for every state. Every entry of b
// must be strictly positive.
func (c *Chain) StatewiseEPR(b Batch) (Batch, error) {
	if err := c.checkBatch(b); err != nil {
		return nil, fmt.Errorf("statewise epr: %w", err)
	}
	if err := c.checkPositive(b); err != nil {
		return nil, fmt.Errorf("statewise epr: %w", err)
	}
	return c.statewiseEPR(b), nil
}

// EPR returns the entropy production rate of each chain.
func (c *Chain) EPR(b Batch) ([]float64, error) {
	sw, err := c.StatewiseEPR(b)
	if err != nil {
		return nil, err
	}
	return c.epr(b, sw), nil
}
