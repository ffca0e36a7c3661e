package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ctmc/internal/markov"
)

// EPRDrop is the fall in chain-averaged EPR from the first iteration to the
// latest one.
type EPRDrop struct {
	name    string
	first   float64
	last    float64
	samples int
}

func NewEPRDrop() *EPRDrop {
	return &EPRDrop{name: "epr_drop"}
}

func (e *EPRDrop) Name() string { return e.name }

func (e *EPRDrop) Observe(it markov.Iteration) {
	mean := stat.Mean(it.EPR, nil)
	if e.samples == 0 {
		e.first = mean
	}
	e.last = mean
	e.samples++
}

func (e *EPRDrop) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.first - e.last
}

func (e *EPRDrop) Reset() {
	e.first = 0
	e.last = 0
	e.samples = 0
}

// FinalEPR is the chain-averaged EPR at the latest iteration.
type FinalEPR struct {
	name  string
	value float64
}

func NewFinalEPR() *FinalEPR {
	return &FinalEPR{name: "final_epr"}
}

func (f *FinalEPR) Name() string { return f.name }

func (f *FinalEPR) Observe(it markov.Iteration) {
	f.value = stat.Mean(it.EPR, nil)
}

func (f *FinalEPR) Value() float64 { return f.value }

func (f *FinalEPR) Reset() { f.value = 0 }
