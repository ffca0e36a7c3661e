package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ctmc/internal/analysis"
	"github.com/san-kum/ctmc/internal/config"
	"github.com/san-kum/ctmc/internal/generators"
	"github.com/san-kum/ctmc/internal/markov"
	"github.com/san-kum/ctmc/internal/metrics"
	"github.com/san-kum/ctmc/internal/storage"
)

type Experiment struct {
	cfg      *config.Config
	registry *generators.Registry
	logger   *slog.Logger
	observer markov.Observer
	chain    *markov.Chain
}

type Option func(*Experiment)

func WithRegistry(r *generators.Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

// WithObserver is notified of every MEPS iteration alongside the metrics.
func WithObserver(o markov.Observer) Option {
	return func(e *Experiment) { e.observer = o }
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = generators.NewRegistry()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

type Result struct {
	NESS     *markov.NESSResult
	MEPS     *markov.MEPSResult
	NESSEPR  []float64
	MEPSEPR  []float64
	Metrics  map[string]float64
	Duration time.Duration
}

// NESSOptions maps the config onto solver options.
func NESSOptions(cfg *config.Config) markov.NESSOptions {
	opts := markov.DefaultNESSOptions()
	opts.Dt = cfg.NESS.Dt
	opts.MaxIter = cfg.NESS.MaxIter
	opts.ForceAnalytic = cfg.NESS.ForceAnalytic
	return opts
}

func MEPSOptions(cfg *config.Config) markov.MEPSOptions {
	opts := markov.DefaultMEPSOptions()
	opts.Dt0 = cfg.MEPS.Dt0
	opts.MaxIter = cfg.MEPS.MaxIter
	opts.DtIter = cfg.MEPS.DtIter
	opts.Diagnostic = cfg.MEPS.Diagnostic
	return opts
}

// Build creates the chain from the explicit matrices in the config, or from
// its generator.
func (e *Experiment) Build() (*markov.Chain, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := []markov.Option{
		markov.WithMaxRate(e.cfg.MaxRate),
		markov.WithLogger(e.logger),
	}
	if e.cfg.Seed != 0 {
		opts = append(opts, markov.WithSeed(e.cfg.Seed))
	}
	if e.cfg.NESS.AnalyticThreshold > 0 {
		opts = append(opts, markov.WithAnalyticThreshold(e.cfg.NESS.AnalyticThreshold))
	}

	var (
		chain *markov.Chain
		err   error
	)
	switch {
	case e.cfg.RateMatrix != nil:
		chain, err = markov.NewMatrix(e.cfg.RateMatrix, opts...)
	case e.cfg.RateMatrices != nil:
		chain, err = markov.NewBatch(e.cfg.RateMatrices, opts...)
	default:
		var gen markov.Generator
		gen, err = e.registry.Get(e.cfg.Generator, e.cfg.States, e.cfg.Batch, e.cfg.Params)
		if err != nil {
			return nil, err
		}
		chain, err = markov.FromGenerator(gen, opts...)
	}
	if err != nil {
		return nil, err
	}

	e.chain = chain
	return chain, nil
}

// Chain returns the chain built by Build or Run, or nil.
func (e *Experiment) Chain() *markov.Chain {
	return e.chain
}

// Run builds the chain if needed, then computes its NESS, a MEPS path from
// it, and the run metrics. ctx is checked between phases.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	if e.chain == nil {
		if _, err := e.Build(); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ness, err := e.chain.NESS(NESSOptions(e.cfg))
	if err != nil {
		return nil, fmt.Errorf("ness: %w", err)
	}
	nessEPR, err := e.chain.EPR(ness.State)
	if err != nil {
		return nil, fmt.Errorf("ness epr: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	col := metrics.NewCollector(metrics.Defaults()...)
	mopts := MEPSOptions(e.cfg)
	mopts.Observer = col
	if e.observer != nil {
		mopts.Observer = markov.ObserverFunc(func(it markov.Iteration) {
			col.OnIteration(it)
			e.observer.OnIteration(it)
		})
	}

	run, err := e.chain.NewMEPSRun(mopts)
	if err != nil {
		return nil, fmt.Errorf("meps: %w", err)
	}
	for run.Step() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	meps := run.Result()

	mepsEPR, err := e.chain.EPR(meps.State)
	if err != nil {
		return nil, fmt.Errorf("meps epr: %w", err)
	}

	vals := col.Values()
	series := analysis.MeanEPR(meps.EPR)
	slope, _ := analysis.EPRTrend(series)
	vals["epr_trend"] = slope
	vals["monotone_fraction"] = analysis.MonotoneFraction(series)
	vals["ness_epr"] = stat.Mean(nessEPR, nil)
	vals["meps_epr"] = stat.Mean(mepsEPR, nil)
	vals["meps_iterations"] = float64(meps.Iterations)

	e.logger.Info("experiment finished",
		"chains", e.chain.Chains(),
		"states", e.chain.States(),
		"ness_converged", ness.Converged,
		"meps_converged", meps.Converged,
		"iterations", meps.Iterations,
	)

	return &Result{
		NESS:     ness,
		MEPS:     meps,
		NESSEPR:  nessEPR,
		MEPSEPR:  mepsEPR,
		Metrics:  vals,
		Duration: time.Since(start),
	}, nil
}

// Record converts a result into a storable run.
func (e *Experiment) Record(res *Result) *storage.Run {
	gen := e.cfg.Generator
	if e.cfg.Explicit() {
		gen = "explicit"
	}
	return &storage.Run{
		Generator:     gen,
		States:        e.chain.States(),
		Chains:        e.chain.Chains(),
		Seed:          e.cfg.Seed,
		MaxRate:       e.cfg.MaxRate,
		Params:        e.cfg.Params,
		NESS:          res.NESS.State,
		NESSConverged: res.NESS.Converged,
		MEPS:          res.MEPS.State,
		MEPSConverged: res.MEPS.Converged,
		Iterations:    res.MEPS.Iterations,
		EPR:           res.MEPS.EPR,
		Metrics:       res.Metrics,
	}
}
