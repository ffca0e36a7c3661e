package markov

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"
)

// DefaultAnalyticThreshold bounds log(N)·sqrt(S) for the eigen-decomposition
// NESS path. The cutoff is empirical.
const DefaultAnalyticThreshold = 65.0

// Generator produces a raw rate matrix from a random source.
type Generator func(src rand.Source) (Array, error)

// Chain is a continuous-time Markov chain, or a batch of independent ones
// sharing a state count.
type Chain struct {
	rates   []*mat.Dense
	q       Batch
	scale   []float64
	states  int
	batched bool
	gen     uint64 // bumped by every SetRateMatrix

	maxRate           float64
	analyticThreshold float64

	src    rand.Source
	rng    *rand.Rand
	logger *slog.Logger

	ness cache[*NESSResult]
	meps cache[*MEPSResult]
}

type Option func(*Chain)

// WithMaxRate sets the rescaling cap used at construction.
func WithMaxRate(maxRate float64) Option {
	return func(c *Chain) { c.maxRate = maxRate }
}

func WithAnalyticThreshold(threshold float64) Option {
	return func(c *Chain) { c.analyticThreshold = threshold }
}

// WithSeed makes random distributions and generators reproducible.
func WithSeed(seed uint64) Option {
	return func(c *Chain) { c.src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15) }
}

func WithSource(src rand.Source) Option {
	return func(c *Chain) { c.src = src }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) { c.logger = logger }
}

func newChain(opts []Option) *Chain {
	c := &Chain{
		maxRate:           DefaultMaxRate,
		analyticThreshold: DefaultAnalyticThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		seed := uint64(time.Now().UnixNano())
		c.src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.rng = rand.New(c.src)
	return c
}

// New validates and rescales r and returns the chain it describes.
func New(r Array, opts ...Option) (*Chain, error) {
	c := newChain(opts)
	if err := c.SetRateMatrix(r, c.maxRate); err != nil {
		return nil, err
	}
	return c, nil
}

// NewMatrix is New for a single S×S chain given as rows.
func NewMatrix(rows [][]float64, opts ...Option) (*Chain, error) {
	a, err := Matrix(rows)
	if err != nil {
		return nil, err
	}
	return New(a, opts...)
}

// NewBatch is New for N chains given as nested S×S matrices.
func NewBatch(mats [][][]float64, opts ...Option) (*Chain, error) {
	a, err := Stack(mats)
	if err != nil {
		return nil, err
	}
	return New(a, opts...)
}

// FromGenerator draws a rate matrix from gen using the chain's random source.
func FromGenerator(gen Generator, opts ...Option) (*Chain, error) {
	if gen == nil {
		return nil, fmt.Errorf("nil generator: %w", ErrParameter)
	}
	c := newChain(opts)
	r, err := gen(c.src)
	if err != nil {
		return nil, fmt.Errorf("generate rate matrix: %w", err)
	}
	if err := c.SetRateMatrix(r, c.maxRate); err != nil {
		return nil, err
	}
	return c, nil
}

// SetRateMatrix replaces the rates. On error the chain is left unchanged;
// on success cached NESS and MEPS results become stale.
func (c *Chain) SetRateMatrix(r Array, maxRate float64) error {
	v, err := verifyRateMatrix(r)
	if err != nil {
		return fmt.Errorf("set rate matrix: %w", err)
	}
	scale, err := normalizeRates(v.mats, maxRate)
	if err != nil {
		return fmt.Errorf("set rate matrix: %w", err)
	}

	q := make(Batch, len(v.mats))
	for k, m := range v.mats {
		q[k] = statewiseQ(m)
	}

	c.rates = v.mats
	c.states = v.states
	c.batched = v.batched
	c.scale = scale
	c.q = q
	c.maxRate = maxRate
	c.gen++

	c.ness.invalidate()
	c.meps.invalidate()

	c.logger.Debug("rate matrix set", "chains", len(c.rates), "states", c.states, "batched", c.batched)
	return nil
}

// States is the number of states S per chain.
func (c *Chain) States() int { return c.states }

// Chains is the batch size N (1 for a single chain).
func (c *Chain) Chains() int { return len(c.rates) }

// Batched reports whether the input was rank 3 after squeezing.
func (c *Chain) Batched() bool { return c.batched }

func (c *Chain) MaxRate() float64 { return c.maxRate }

func (c *Chain) AnalyticThreshold() float64 { return c.analyticThreshold }

// Scale returns the per-chain factor the input rates were divided by.
func (c *Chain) Scale() []float64 {
	out := make([]float64, len(c.scale))
	copy(out, c.scale)
	return out
}

// StatewiseQ returns a copy of the static per-state entropy term.
func (c *Chain) StatewiseQ() Batch { return c.q.Clone() }

// RateMatrix returns a copy of the rescaled rates of chain k.
func (c *Chain) RateMatrix(k int) *mat.Dense {
	return mat.DenseCopyOf(c.rates[k])
}

// Rates returns the rescaled rates as an N×S×S array.
func (c *Chain) Rates() Array {
	s := c.states
	data := make([]float64, 0, len(c.rates)*s*s)
	for _, m := range c.rates {
		for i := 0; i < s; i++ {
			data = append(data, m.RawRowView(i)...)
		}
	}
	return Array{Shape: []int{len(c.rates), s, s}, Data: data}
}

func (c *Chain) NESSStatus() CacheStatus { return c.ness.status }

func (c *Chain) MEPSStatus() CacheStatus { return c.meps.status }

// CachedNESS returns the steady state computed for the current rates.
func (c *Chain) CachedNESS() (*NESSResult, bool) { return c.ness.get() }

// CachedMEPS returns the last MEPS result computed for the current rates.
func (c *Chain) CachedMEPS() (*MEPSResult, bool) { return c.meps.get() }

// ResetCache drops both cached results.
func (c *Chain) ResetCache() {
	c.ness.reset()
	c.meps.reset()
}

func (c *Chain) checkBatch(b Batch) error {
	if len(b) != len(c.rates) {
		return fmt.Errorf("got %d chains, want %d: %w", len(b), len(c.rates), ErrDimensionMismatch)
	}
	for k, s := range b {
		if len(s) != c.states {
			return fmt.Errorf("chain %d has %d states, want %d: %w", k, len(s), c.states, ErrDimensionMismatch)
		}
	}
	return nil
}
