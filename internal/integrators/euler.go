package integrators

// Field is an autonomous vector field dx/dt = f(x).
type Field interface {
	Derive(x []float64) []float64
}

// FieldFunc adapts a plain function to Field.
type FieldFunc func(x []float64) []float64

func (f FieldFunc) Derive(x []float64) []float64 { return f(x) }

// Euler is the explicit forward Euler method. It performs no step-size
// control; callers pick dt for stability.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(f Field, x []float64, dt float64) []float64 {
	dx := f.Derive(x)
	result := make([]float64, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
