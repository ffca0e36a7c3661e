package markov

import (
	"fmt"

	"github.com/san-kum/ctmc/internal/integrators"
)

// MEPSOptions configures the minimum entropy production path solver.
type MEPSOptions struct {
	Dt0        float64 // initial step; decays as Dt0·2/(2+epoch)
	MaxIter    int
	DtIter     int // iterations per epoch
	AbsTol     float64
	RelTol     float64
	Diagnostic bool  // keep the full trajectory
	Start      Batch // nil: cached NESS if computed, else uniform
	Observer   Observer
}

func DefaultMEPSOptions() MEPSOptions {
	return MEPSOptions{
		Dt0:     0.5,
		MaxIter: 500,
		DtIter:  5,
		AbsTol:  1e-6,
		RelTol:  1e-5,
	}
}

func (o MEPSOptions) validate() error {
	switch {
	case !(o.Dt0 > 0):
		return fmt.Errorf("meps dt0 %g: %w", o.Dt0, ErrParameter)
	case o.MaxIter < 0:
		return fmt.Errorf("meps max iter %d: %w", o.MaxIter, ErrParameter)
	case o.DtIter < 1:
		return fmt.Errorf("meps dt iter %d: %w", o.DtIter, ErrParameter)
	case o.AbsTol < 0 || o.RelTol < 0:
		return fmt.Errorf("meps tolerances must be non-negative: %w", ErrParameter)
	}
	return nil
}

// Iteration describes one MEPS step. Its slices must not be modified.
type Iteration struct {
	Index    int
	Dt       float64
	EPR      []float64 // before the step
	State    Batch     // after the step
	Rejected []bool
	Done     []bool
}

// Observer is notified after every MEPS iteration.
type Observer interface {
	OnIteration(it Iteration)
}

type ObserverFunc func(it Iteration)

func (f ObserverFunc) OnIteration(it Iteration) { f(it) }

// MEPSResult is the outcome of a MEPS run.
type MEPSResult struct {
	State      Batch
	EPR        [][]float64 // iterations × chains
	Trajectory []Batch     // diagnostic runs only, initial state first
	Done       []bool
	Converged  bool
	Iterations int
	Rejections int
	FinalDt    float64
}

// MEPSRun advances a MEPS computation one iteration at a time. A run is tied
// to the rates it started with: once SetRateMatrix replaces them, the next
// Step ends the run unconverged and its result is not cached.
type MEPSRun struct {
	c     *Chain
	opts  MEPSOptions
	gen   uint64
	stale bool

	state    Batch
	i, j     int
	dt       float64
	done     []bool
	rejected []bool
	retry    bool

	eprs       [][]float64
	trajectory []Batch
	rejections int

	result *MEPSResult
}

// NewMEPSRun prepares a MEPS run without taking any step.
func (c *Chain) NewMEPSRun(opts MEPSOptions) (*MEPSRun, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var start Batch
	switch {
	case opts.Start != nil:
		if err := c.checkBatch(opts.Start); err != nil {
			return nil, fmt.Errorf("meps start: %w", err)
		}
		start = opts.Start.Clone()
	default:
		if ness, ok := c.ness.get(); ok {
			start = ness.State.Clone()
		} else {
			start = c.Uniform()
		}
	}
	if err := c.checkPositive(start); err != nil {
		return nil, fmt.Errorf("meps start: %w", err)
	}

	n := len(c.rates)
	r := &MEPSRun{
		c:        c,
		opts:     opts,
		gen:      c.gen,
		state:    start,
		j:        -1,
		dt:       opts.Dt0,
		done:     make([]bool, n),
		rejected: make([]bool, n),
	}
	if opts.Diagnostic {
		r.trajectory = append(r.trajectory, start)
	}
	return r, nil
}

func (r *MEPSRun) allDone() bool {
	for _, d := range r.done {
		if !d {
			return false
		}
	}
	return true
}

// Step performs one iteration. It returns false once the run has finished,
// either by convergence or by reaching MaxIter.
func (r *MEPSRun) Step() bool {
	if r.result != nil {
		return false
	}
	if r.gen != r.c.gen {
		r.stale = true
		r.finish()
		return false
	}
	if (r.allDone() && !r.retry) || r.i >= r.opts.MaxIter {
		r.finish()
		return false
	}

	c := r.c
	if r.i%r.opts.DtIter == 0 {
		r.j++
	}
	r.dt = r.opts.Dt0 * (2 / (2 + float64(r.j)))

	sw := c.statewiseEPR(r.state)
	epr := c.epr(r.state, sw)
	r.eprs = append(r.eprs, epr)
	deriv := c.derivative(r.state)

	next := make(Batch, len(r.state))
	r.retry = false
	for k, s := range r.state {
		r.rejected[k] = false
		if r.done[k] {
			next[k] = s
			continue
		}

		field := integrators.FieldFunc(func(x []float64) []float64 {
			d := make([]float64, len(x))
			for i := range x {
				d[i] = deriv[k][i] + x[i]*(epr[k]-sw[k][i])
			}
			return d
		})
		candidate := State(euler.Step(field, s, r.dt))

		// log(0) is undefined in the next EPR, so zero is rejected with the negatives
		if !candidate.Positive() {
			next[k] = s
			r.rejected[k] = true
			r.retry = true
			r.rejections++
			continue
		}
		next[k] = candidate
	}
	if r.retry {
		r.j++
		c.logger.Debug("meps step rejected, shrinking dt", "iteration", r.i)
	}

	for k := range next {
		r.done[k] = !r.rejected[k] && allClose(r.state[k], next[k], r.opts.RelTol, r.opts.AbsTol)
	}

	r.state = next
	if r.opts.Diagnostic {
		r.trajectory = append(r.trajectory, next)
	}
	r.i++

	if r.opts.Observer != nil {
		r.opts.Observer.OnIteration(Iteration{
			Index:    r.i - 1,
			Dt:       r.dt,
			EPR:      epr,
			State:    next,
			Rejected: append([]bool(nil), r.rejected...),
			Done:     append([]bool(nil), r.done...),
		})
	}
	return true
}

func (r *MEPSRun) finish() {
	converged := !r.stale && r.allDone() && !r.retry
	switch {
	case r.stale:
		r.c.logger.Warn("meps run abandoned, rate matrix replaced", "iterations", r.i)
	case !converged:
		pending := 0
		for _, d := range r.done {
			if !d {
				pending++
			}
		}
		r.c.logger.Warn("meps did not converge", "iterations", r.i, "pending_chains", pending)
	}

	r.result = &MEPSResult{
		State:      r.state,
		EPR:        r.eprs,
		Trajectory: r.trajectory,
		Done:       append([]bool(nil), r.done...),
		Converged:  converged,
		Iterations: r.i,
		Rejections: r.rejections,
		FinalDt:    r.dt,
	}
	if !r.stale {
		r.c.meps.set(r.result)
	}
}

// Iteration is the number of completed iterations.
func (r *MEPSRun) Iteration() int { return r.i }

// State is the current distribution. It must not be modified.
func (r *MEPSRun) State() Batch { return r.state }

// EPR is the per-iteration EPR history so far.
func (r *MEPSRun) EPR() [][]float64 { return r.eprs }

func (r *MEPSRun) Dt() float64 { return r.dt }

func (r *MEPSRun) Done() []bool { return append([]bool(nil), r.done...) }

func (r *MEPSRun) Finished() bool { return r.result != nil }

// Result returns the final result once Step has returned false, or nil.
func (r *MEPSRun) Result() *MEPSResult { return r.result }

// MEPS runs the minimum entropy production solver to completion and caches
// its final state. Hitting MaxIter is reported through Converged.
func (c *Chain) MEPS(opts MEPSOptions) (*MEPSResult, error) {
	run, err := c.NewMEPSRun(opts)
	if err != nil {
		return nil, err
	}
	for run.Step() {
	}
	return run.Result(), nil
}
