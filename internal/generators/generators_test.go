package generators

import (
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/ctmc/internal/markov"
)

func TestRegistryBuildsValidChains(t *testing.T) {
	g := NewWithT(t)
	reg := NewRegistry()

	g.Expect(reg.Names()).To(Equal([]string{
		"cyclic", "detailed_balance", "gamma", "landscape", "normal", "uniform",
	}))

	for _, name := range reg.Names() {
		t.Run(name, func(t *testing.T) {
			g := NewWithT(t)
			gen, err := reg.Get(name, 6, 3, nil)
			g.Expect(err).NotTo(HaveOccurred())

			c, err := markov.FromGenerator(gen, markov.WithSeed(5))
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(c.Chains()).To(Equal(3))
			g.Expect(c.States()).To(Equal(6))
			g.Expect(c.Batched()).To(BeTrue())
		})
	}

	_, err := reg.Get("brownian", 3, 1, nil)
	g.Expect(err).To(HaveOccurred())
}

func TestGeneratorsAreSeeded(t *testing.T) {
	g := NewWithT(t)
	gen := Normal(4, 2, 0, 1)

	a, err := markov.FromGenerator(gen, markov.WithSeed(9))
	g.Expect(err).NotTo(HaveOccurred())
	b, err := markov.FromGenerator(gen, markov.WithSeed(9))
	g.Expect(err).NotTo(HaveOccurred())
	c, err := markov.FromGenerator(gen, markov.WithSeed(10))
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(a.Rates().Data).To(Equal(b.Rates().Data))
	g.Expect(a.Rates().Data).NotTo(Equal(c.Rates().Data))
}

func TestUniformRounding(t *testing.T) {
	gen := Uniform(5, 1, 3)
	c, err := markov.FromGenerator(gen, markov.WithSeed(1), markov.WithMaxRate(100))
	if err != nil {
		t.Fatalf("from generator: %v", err)
	}
	if c.Scale()[0] != 1 {
		t.Fatalf("expected unscaled rates, got scale %g", c.Scale()[0])
	}

	r := c.RateMatrix(0)
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			if i == j {
				continue
			}
			v := r.At(i, j)
			if v < 1e-3 || v > 1 {
				t.Errorf("R[%d][%d] = %g outside [1e-3, 1]", i, j, v)
			}
			if math.Abs(v*1000-math.Round(v*1000)) > 1e-9 {
				t.Errorf("R[%d][%d] = %g not rounded to 3 decimals", i, j, v)
			}
		}
	}
}

func TestDetailedBalanceSteadyState(t *testing.T) {
	energy := [][]float64{{0, 0.5, 1, 0.25}}
	c, err := markov.FromGenerator(DetailedBalance(4, 1, energy, 1, 0, 0), markov.WithSeed(1))
	if err != nil {
		t.Fatalf("from generator: %v", err)
	}

	res, err := c.NESS(markov.DefaultNESSOptions())
	if err != nil {
		t.Fatalf("ness: %v", err)
	}

	z := 0.0
	for _, e := range energy[0] {
		z += math.Exp(-2 * e)
	}
	for i, e := range energy[0] {
		want := math.Exp(-2*e) / z
		if math.Abs(res.State[0][i]-want) > 1e-6 {
			t.Errorf("state %d: expected %g, got %g", i, want, res.State[0][i])
		}
	}

	epr, err := c.EPR(res.State)
	if err != nil {
		t.Fatalf("epr: %v", err)
	}
	if math.Abs(epr[0]) > 1e-9 {
		t.Errorf("expected zero EPR at equilibrium, got %g", epr[0])
	}
}

func TestLandscapeDriveProducesEntropy(t *testing.T) {
	tests := []struct {
		name     string
		drive    float64
		positive bool
	}{
		{"equilibrium", 0, false},
		{"driven", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := markov.FromGenerator(Landscape(5, 1, 2, tt.drive, 1.5), markov.WithSeed(4))
			if err != nil {
				t.Fatalf("from generator: %v", err)
			}
			res, err := c.NESS(markov.DefaultNESSOptions())
			if err != nil {
				t.Fatalf("ness: %v", err)
			}
			epr, err := c.EPR(res.State)
			if err != nil {
				t.Fatalf("epr: %v", err)
			}
			if tt.positive && epr[0] < 1e-6 {
				t.Errorf("expected positive EPR, got %g", epr[0])
			}
			if !tt.positive && math.Abs(epr[0]) > 1e-9 {
				t.Errorf("expected zero EPR, got %g", epr[0])
			}
		})
	}
}

func TestGeneratorErrors(t *testing.T) {
	tests := []struct {
		name string
		gen  markov.Generator
		want error
	}{
		{"one state", Uniform(1, 1, 6), markov.ErrParameter},
		{"no chains", Normal(3, 0, 0, 1), markov.ErrParameter},
		{"zero sigma", Normal(3, 1, 0, 0), markov.ErrParameter},
		{"gamma mean", Gamma(3, 1, 0, 1), markov.ErrParameter},
		{"long jump", Cyclic(3, 1, 0, 1, 3), markov.ErrParameter},
		{"energy rows", DetailedBalance(3, 2, [][]float64{{0, 1, 2}}, 1, 0, 1), markov.ErrDimensionMismatch},
		{"empty range", DetailedBalance(3, 1, nil, 1, 1, 1), markov.ErrParameter},
		{"frequency", Landscape(3, 1, 1, 0, 0), markov.ErrParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := markov.FromGenerator(tt.gen, markov.WithSeed(1))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestShortCyclicJumpLeavesZeroRates(t *testing.T) {
	_, err := markov.FromGenerator(Cyclic(4, 1, 0, 1, 1), markov.WithSeed(1))
	if !errors.Is(err, markov.ErrSign) {
		t.Errorf("expected ErrSign, got %v", err)
	}
}
