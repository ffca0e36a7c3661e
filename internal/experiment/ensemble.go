package experiment

import (
	"context"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ctmc/internal/config"
	"github.com/san-kum/ctmc/internal/markov"
)

// Ensemble runs one generator config over consecutive seeds, one goroutine
// per run. An observer passed through WithObserver is shared by every run;
// its calls are serialized, so it needs no locking of its own.
type Ensemble struct {
	cfg       *config.Config
	opts      []Option
	numRuns   int
	seedStart uint64
}

func NewEnsemble(cfg *config.Config, numRuns int, seedStart uint64, opts ...Option) *Ensemble {
	return &Ensemble{cfg: cfg, opts: opts, numRuns: numRuns, seedStart: seedStart}
}

// Run returns the results in seed order, or the first error.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var mu sync.Mutex
	opts := append(append([]Option(nil), e.opts...), serializeObserver(&mu))

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := e.cfg.Clone()
			cfgCopy.Seed = e.seedStart + uint64(idx)

			results[idx], errs[idx] = New(cfgCopy, opts...).Run(ctx)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

type lockedObserver struct {
	mu   *sync.Mutex
	next markov.Observer
}

func (o lockedObserver) OnIteration(it markov.Iteration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next.OnIteration(it)
}

// serializeObserver wraps whatever observer the earlier options installed.
func serializeObserver(mu *sync.Mutex) Option {
	return func(e *Experiment) {
		if e.observer != nil {
			e.observer = lockedObserver{mu: mu, next: e.observer}
		}
	}
}

// Summary is the mean and standard deviation of one metric across runs.
type Summary struct {
	Mean, Std float64
}

// Summarize aggregates every metric present in all results.
func Summarize(results []*Result) map[string]Summary {
	out := make(map[string]Summary)
	if len(results) == 0 {
		return out
	}
	for name := range results[0].Metrics {
		vals := make([]float64, 0, len(results))
		for _, r := range results {
			v, ok := r.Metrics[name]
			if !ok {
				break
			}
			vals = append(vals, v)
		}
		if len(vals) != len(results) {
			continue
		}
		mean, std := stat.MeanStdDev(vals, nil)
		out[name] = Summary{Mean: mean, Std: std}
	}
	return out
}
