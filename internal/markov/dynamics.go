package markov

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ctmc/internal/integrators"
)

// generatorField is the master equation dp/dt = p·R of one chain.
type generatorField struct {
	r *mat.Dense
}

func (f generatorField) Derive(x []float64) []float64 {
	var v mat.VecDense
	v.MulVec(f.r.T(), mat.NewVecDense(len(x), x))
	return v.RawVector().Data
}

var euler = integrators.NewEuler()

func (c *Chain) derivative(b Batch) Batch {
	out := make(Batch, len(b))
	for k, s := range b {
		out[k] = generatorField{r: c.rates[k]}.Derive(s)
	}
	return out
}

func (c *Chain) evolve(b Batch, dt float64) Batch {
	out := make(Batch, len(b))
	for k, s := range b {
		out[k] = euler.Step(generatorField{r: c.rates[k]}, s, dt)
	}
	return out
}

// TimeDerivative returns dState/dt = state·R for every chain.
func (c *Chain) TimeDerivative(b Batch) (Batch, error) {
	if err := c.checkBatch(b); err != nil {
		return nil, fmt.Errorf("time derivative: %w", err)
	}
	return c.derivative(b), nil
}

// ActivityIn returns the probability flowing into each state from the others.
func (c *Chain) ActivityIn(b Batch) (Batch, error) {
	if err := c.checkBatch(b); err != nil {
		return nil, fmt.Errorf("activity in: %w", err)
	}
	out := c.derivative(b)
	for k, s := range b {
		for j := range s {
			out[k][j] -= s[j] * c.rates[k].At(j, j)
		}
	}
	return out, nil
}

// ActivityOut returns the probability leaving each state.
func (c *Chain) ActivityOut(b Batch) (Batch, error) {
	if err := c.checkBatch(b); err != nil {
		return nil, fmt.Errorf("activity out: %w", err)
	}
	out := newBatch(len(b), c.states)
	for k, s := range b {
		for i := range s {
			out[k][i] = -c.rates[k].At(i, i) * s[i]
		}
	}
	return out, nil
}

// Activity returns the total inflow per chain.
func (c *Chain) Activity(b Batch) ([]float64, error) {
	in, err := c.ActivityIn(b)
	if err != nil {
		return nil, err
	}
	return in.Sums(), nil
}

// StatewiseProbCurrent returns |dState/dt| element-wise.
func (c *Chain) StatewiseProbCurrent(b Batch) (Batch, error) {
	if err := c.checkBatch(b); err != nil {
		return nil, fmt.Errorf("prob current: %w", err)
	}
	out := c.derivative(b)
	for _, s := range out {
		for i, v := range s {
			s[i] = math.Abs(v)
		}
	}
	return out, nil
}

// ProbCurrent returns the unsigned probability flow per chain.
func (c *Chain) ProbCurrent(b Batch) ([]float64, error) {
	cur, err := c.StatewiseProbCurrent(b)
	if err != nil {
		return nil, err
	}
	return cur.Sums(), nil
}

// EvolveState takes one explicit Euler step of length dt.
func (c *Chain) EvolveState(b Batch, dt float64) (Batch, error) {
	if err := c.checkBatch(b); err != nil {
		return nil, fmt.Errorf("evolve state: %w", err)
	}
	return c.evolve(b, dt), nil
}
