package analysis

import (
	"math"
	"testing"

	"github.com/san-kum/ctmc/internal/markov"
)

func TestEPRTrend(t *testing.T) {
	series := []float64{5, 4, 3, 2, 1}
	slope, intercept := EPRTrend(series)
	if math.Abs(slope+1) > 1e-12 || math.Abs(intercept-5) > 1e-12 {
		t.Errorf("expected slope -1 intercept 5, got %f %f", slope, intercept)
	}

	slope, _ = EPRTrend([]float64{1})
	if slope != 0 {
		t.Error("single point has no trend")
	}
}

func TestMonotoneFraction(t *testing.T) {
	tests := []struct {
		series []float64
		want   float64
	}{
		{[]float64{3, 2, 1}, 1},
		{[]float64{1, 2, 1}, 0.5},
		{[]float64{1, 2, 3}, 0},
		{nil, 1},
	}
	for _, tt := range tests {
		if got := MonotoneFraction(tt.series); got != tt.want {
			t.Errorf("%v: expected %f, got %f", tt.series, tt.want, got)
		}
	}
}

func TestMeanAndChainEPR(t *testing.T) {
	eprs := [][]float64{{1, 3}, {2, 4}}
	mean := MeanEPR(eprs)
	if mean[0] != 2 || mean[1] != 3 {
		t.Errorf("unexpected mean %v", mean)
	}
	chain := ChainEPR(eprs, 1)
	if len(chain) != 2 || chain[0] != 3 || chain[1] != 4 {
		t.Errorf("unexpected chain series %v", chain)
	}
}

func TestRelaxationRate(t *testing.T) {
	d := make([]float64, 20)
	for i := range d {
		d[i] = 2 * math.Exp(-0.3*float64(i))
	}
	d = append(d, 0)
	if got := RelaxationRate(d, 1e-15); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("expected rate 0.3, got %f", got)
	}
}

func TestRelaxationTowardsSteadyState(t *testing.T) {
	c, err := markov.NewMatrix([][]float64{{0, 3, 1}, {1, 0, 2}, {4, 1, 0}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ness, err := c.NESS(markov.DefaultNESSOptions())
	if err != nil {
		t.Fatalf("ness: %v", err)
	}

	traj := []markov.Batch{{{0.8, 0.1, 0.1}}}
	for i := 0; i < 50; i++ {
		next, err := c.EvolveState(traj[len(traj)-1], 0.1)
		if err != nil {
			t.Fatalf("evolve: %v", err)
		}
		traj = append(traj, next)
	}

	d, err := Relaxation(traj, ness.State, 0)
	if err != nil {
		t.Fatalf("relaxation: %v", err)
	}
	if d[len(d)-1] >= d[0] {
		t.Errorf("expected divergence to fall, got %g -> %g", d[0], d[len(d)-1])
	}
	if RelaxationRate(d, 1e-15) <= 0 {
		t.Error("expected a positive relaxation rate")
	}

	if _, err := Relaxation(traj, ness.State, 1); err == nil {
		t.Error("expected error for missing chain")
	}
}
