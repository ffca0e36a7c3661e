package markov

import (
	"errors"
	"math"
	"testing"
)

func TestNewDerivesDiagonal(t *testing.T) {
	c, err := NewMatrix([][]float64{
		{0, 2, 1},
		{1, 0, 3},
		{4, 1, 0},
	}, WithMaxRate(100))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	r := c.RateMatrix(0)
	for i := 0; i < 3; i++ {
		sum := 0.0
		for j := 0; j < 3; j++ {
			sum += r.At(i, j)
		}
		if math.Abs(sum) > 1e-12 {
			t.Errorf("row %d sums to %g", i, sum)
		}
	}
	if r.At(1, 1) != -4 {
		t.Errorf("expected R[1][1] = -4, got %g", r.At(1, 1))
	}
	if c.Batched() {
		t.Error("rank 2 input should not be batched")
	}
	if c.Chains() != 1 || c.States() != 3 {
		t.Errorf("expected 1 chain of 3 states, got %d of %d", c.Chains(), c.States())
	}
}

func TestNewRejectsInvalidRates(t *testing.T) {
	tests := []struct {
		name string
		rows [][]float64
		want error
	}{
		{"zero off diagonal", [][]float64{{0, 0}, {1, 0}}, ErrSign},
		{"negative off diagonal", [][]float64{{0, -1}, {1, 0}}, ErrSign},
		{"infinite rate", [][]float64{{0, math.Inf(1)}, {1, 0}}, ErrSign},
		{"nan rate", [][]float64{{0, math.NaN()}, {1, 0}}, ErrSign},
		{"not square", [][]float64{{0, 1, 1}, {1, 0, 1}}, ErrShape},
		{"single state", [][]float64{{0}}, ErrShape},
		{"ragged", [][]float64{{0, 1}, {1}}, ErrShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMatrix(tt.rows)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRateErrorLocatesEntry(t *testing.T) {
	_, err := NewBatch([][][]float64{
		{{0, 1}, {1, 0}},
		{{0, 1}, {-2, 0}},
	})
	var re *RateError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RateError, got %v", err)
	}
	if re.Chain != 1 || re.Row != 1 || re.Col != 0 || re.Value != -2 {
		t.Errorf("unexpected location %+v", re)
	}
}

func TestSqueezeSingletonBatch(t *testing.T) {
	c, err := New(Array{Shape: []int{1, 2, 2}, Data: []float64{0, 1, 1, 0}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Batched() {
		t.Error("1×S×S input squeezes to a single chain")
	}

	_, err = New(Array{Shape: []int{2, 2, 2}, Data: []float64{0, 1, 1, 0}})
	if !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape for short data, got %v", err)
	}

	_, err = New(Array{Shape: []int{2, 2, 2, 2}, Data: make([]float64, 16)})
	if !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape for rank 4, got %v", err)
	}
}

func TestSetRateMatrixKeepsChainOnError(t *testing.T) {
	c, err := NewMatrix([][]float64{{0, 2}, {1, 0}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	before := c.RateMatrix(0)

	bad, _ := Matrix([][]float64{{0, 0}, {1, 0}})
	if err := c.SetRateMatrix(bad, 1); err == nil {
		t.Fatal("expected error")
	}
	good, _ := Matrix([][]float64{{0, 1}, {1, 0}})
	if err := c.SetRateMatrix(good, 0); !errors.Is(err, ErrParameter) {
		t.Errorf("expected ErrParameter for zero max rate, got %v", err)
	}

	after := c.RateMatrix(0)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if before.At(i, j) != after.At(i, j) {
				t.Fatalf("rates changed after failed update")
			}
		}
	}
}
