package integrators

import (
	"math"
	"testing"
)

func decay(x []float64) []float64 {
	return []float64{-x[0]}
}

func TestEulerAccuracy(t *testing.T) {
	integ := NewEuler()

	x := []float64{1.0}
	dt := 0.001
	steps := 1000

	for i := 0; i < steps; i++ {
		x = integ.Step(FieldFunc(decay), x, dt)
	}

	expected := math.Exp(-1.0)
	if math.Abs(x[0]-expected) > 1e-3 {
		t.Errorf("decay error too large: got %.6f, expected %.6f", x[0], expected)
	}
}

func TestEulerDoesNotMutateInput(t *testing.T) {
	integ := NewEuler()

	x0 := []float64{2.0, 3.0}
	rot := FieldFunc(func(x []float64) []float64 { return []float64{x[1], -x[0]} })

	x1 := integ.Step(rot, x0, 0.5)

	if x0[0] != 2.0 || x0[1] != 3.0 {
		t.Errorf("input mutated: %v", x0)
	}
	if x1[0] != 3.5 || x1[1] != 2.0 {
		t.Errorf("unexpected step result: %v", x1)
	}
}
