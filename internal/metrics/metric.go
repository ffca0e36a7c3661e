package metrics

import "github.com/san-kum/ctmc/internal/markov"

// Metric summarises a MEPS run one iteration at a time.
type Metric interface {
	Name() string
	Observe(it markov.Iteration)
	Value() float64
	Reset()
}

// Collector fans MEPS iterations out to a set of metrics. It satisfies
// markov.Observer.
type Collector struct {
	metrics []Metric
}

func NewCollector(ms ...Metric) *Collector {
	return &Collector{metrics: ms}
}

func (c *Collector) Add(m Metric) { c.metrics = append(c.metrics, m) }

func (c *Collector) OnIteration(it markov.Iteration) {
	for _, m := range c.metrics {
		m.Observe(it)
	}
}

func (c *Collector) Values() map[string]float64 {
	out := make(map[string]float64, len(c.metrics))
	for _, m := range c.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (c *Collector) Reset() {
	for _, m := range c.metrics {
		m.Reset()
	}
}

// Defaults returns one of each metric in this package.
func Defaults() []Metric {
	return []Metric{
		NewEPRDrop(),
		NewFinalEPR(),
		NewRejections(),
		NewStepSize(),
		NewDoneFraction(),
	}
}
