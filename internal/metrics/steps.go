package metrics

import "github.com/san-kum/ctmc/internal/markov"

// Rejections counts chain updates reverted for leaving the simplex.
type Rejections struct {
	name  string
	count int
}

func NewRejections() *Rejections {
	return &Rejections{name: "rejections"}
}

func (r *Rejections) Name() string { return r.name }

func (r *Rejections) Observe(it markov.Iteration) {
	for _, rej := range it.Rejected {
		if rej {
			r.count++
		}
	}
}

func (r *Rejections) Value() float64 { return float64(r.count) }

func (r *Rejections) Reset() { r.count = 0 }

// StepSize is the step length used at the latest iteration.
type StepSize struct {
	name string
	dt   float64
}

func NewStepSize() *StepSize {
	return &StepSize{name: "final_dt"}
}

func (s *StepSize) Name() string { return s.name }

func (s *StepSize) Observe(it markov.Iteration) { s.dt = it.Dt }

func (s *StepSize) Value() float64 { return s.dt }

func (s *StepSize) Reset() { s.dt = 0 }

// DoneFraction is the share of chains that had converged at the latest
// iteration.
type DoneFraction struct {
	name     string
	done     int
	chains   int
	observed bool
}

func NewDoneFraction() *DoneFraction {
	return &DoneFraction{name: "done_fraction"}
}

func (d *DoneFraction) Name() string { return d.name }

func (d *DoneFraction) Observe(it markov.Iteration) {
	d.done = 0
	for _, ok := range it.Done {
		if ok {
			d.done++
		}
	}
	d.chains = len(it.Done)
	d.observed = true
}

func (d *DoneFraction) Value() float64 {
	if !d.observed || d.chains == 0 {
		return 0
	}
	return float64(d.done) / float64(d.chains)
}

func (d *DoneFraction) Reset() {
	d.done = 0
	d.chains = 0
	d.observed = false
}
