// Package generators draws random rate matrices for markov chains.
//
// Every generator returns a markov.Generator that fills an N×S×S array from
// the chain's random source, so seeding the chain seeds the matrix too.
// Diagonals are left at zero or arbitrary values; the chain derives them.
package generators

import (
	"fmt"
	"math"
	"math/rand/v2"

	opensimplex "github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/ctmc/internal/markov"
)

func checkSize(s, n int) error {
	if s < 2 || n < 1 {
		return fmt.Errorf("generator size S=%d N=%d: %w", s, n, markov.ErrParameter)
	}
	return nil
}

func newArray(s, n int) markov.Array {
	return markov.Array{Shape: []int{n, s, s}, Data: make([]float64, n*s*s)}
}

// fill sets every off-diagonal entry from draw.
func fill(a markov.Array, draw func() float64) {
	n, s := a.Shape[0], a.Shape[1]
	for k := 0; k < n; k++ {
		for i := 0; i < s; i++ {
			for j := 0; j < s; j++ {
				if i != j {
					a.Data[(k*s+i)*s+j] = draw()
				}
			}
		}
	}
}

// Uniform draws rates from U(10^-tol, 1) rounded to tol decimals.
func Uniform(s, n, minRateTol int) markov.Generator {
	return func(src rand.Source) (markov.Array, error) {
		if err := checkSize(s, n); err != nil {
			return markov.Array{}, err
		}
		if minRateTol < 1 {
			return markov.Array{}, fmt.Errorf("min rate tolerance %d: %w", minRateTol, markov.ErrParameter)
		}
		pow := math.Pow(10, float64(minRateTol))
		u := distuv.Uniform{Min: 1 / pow, Max: 1, Src: src}

		a := newArray(s, n)
		fill(a, func() float64 { return math.Round(u.Rand()*pow) / pow })
		return a, nil
	}
}

// Normal draws rates from |N(mu, sigma)|.
func Normal(s, n int, mu, sigma float64) markov.Generator {
	return func(src rand.Source) (markov.Array, error) {
		if err := checkSize(s, n); err != nil {
			return markov.Array{}, err
		}
		if !(sigma > 0) {
			return markov.Array{}, fmt.Errorf("normal sigma %g: %w", sigma, markov.ErrParameter)
		}
		d := distuv.Normal{Mu: mu, Sigma: sigma, Src: src}

		a := newArray(s, n)
		fill(a, func() float64 { return math.Abs(d.Rand()) })
		return a, nil
	}
}

// Gamma draws rates from a gamma distribution with mean mu and standard
// deviation sigma.
func Gamma(s, n int, mu, sigma float64) markov.Generator {
	return func(src rand.Source) (markov.Array, error) {
		if err := checkSize(s, n); err != nil {
			return markov.Array{}, err
		}
		if !(mu > 0) || !(sigma > 0) {
			return markov.Array{}, fmt.Errorf("gamma mu %g sigma %g: %w", mu, sigma, markov.ErrParameter)
		}
		// shape mu²/σ², rate mu/σ²
		d := distuv.Gamma{Alpha: mu * mu / (sigma * sigma), Beta: mu / (sigma * sigma), Src: src}

		a := newArray(s, n)
		fill(a, func() float64 { return d.Rand() })
		return a, nil
	}
}

// Cyclic builds rates that favour jumps to higher indices. For each jump
// length k up to maxJump, the forward rate out of state i is |S−k+N(mu, σ)|
// and the backward rate is that value times |N(0.6, 0.3)|. A maxJump below
// S−1 leaves zero rates, which chain construction rejects; 0 means S−1.
func Cyclic(s, n int, mu, sigma float64, maxJump int) markov.Generator {
	return func(src rand.Source) (markov.Array, error) {
		if err := checkSize(s, n); err != nil {
			return markov.Array{}, err
		}
		jumps := maxJump
		if jumps == 0 {
			jumps = s - 1
		}
		if jumps < 1 || jumps > s-1 {
			return markov.Array{}, fmt.Errorf("max jump %d outside [1, %d]: %w", jumps, s-1, markov.ErrParameter)
		}
		if !(sigma > 0) {
			return markov.Array{}, fmt.Errorf("cyclic sigma %g: %w", sigma, markov.ErrParameter)
		}
		noise := distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
		back := distuv.Normal{Mu: 0.6, Sigma: 0.3, Src: src}

		a := newArray(s, n)
		for k := 0; k < n; k++ {
			for jump := 1; jump <= jumps; jump++ {
				for i := 0; i < s; i++ {
					fwd := math.Abs(float64(s-jump) + noise.Rand())
					bwd := math.Abs(fwd * back.Rand())
					if i+jump < s {
						a.Data[(k*s+i)*s+i+jump] = fwd
					}
					if i-jump >= 0 {
						a.Data[(k*s+i)*s+i-jump] = bwd
					}
				}
			}
		}
		return a, nil
	}
}

// DetailedBalance builds R[i][j] = exp(β(E_i − E_j)), which satisfies
// detailed balance with respect to exp(−2βE). A nil energy draws E from
// U(lo, hi) per chain and state; otherwise energy holds N rows of S values.
func DetailedBalance(s, n int, energy [][]float64, beta, lo, hi float64) markov.Generator {
	return func(src rand.Source) (markov.Array, error) {
		if err := checkSize(s, n); err != nil {
			return markov.Array{}, err
		}
		e := energy
		if e == nil {
			if !(hi > lo) {
				return markov.Array{}, fmt.Errorf("energy range [%g, %g): %w", lo, hi, markov.ErrParameter)
			}
			u := distuv.Uniform{Min: lo, Max: hi, Src: src}
			e = make([][]float64, n)
			for k := range e {
				e[k] = make([]float64, s)
				for i := range e[k] {
					e[k][i] = u.Rand()
				}
			}
		}
		if len(e) != n {
			return markov.Array{}, fmt.Errorf("energy has %d rows, want %d: %w", len(e), n, markov.ErrDimensionMismatch)
		}

		a := newArray(s, n)
		for k, row := range e {
			if len(row) != s {
				return markov.Array{}, fmt.Errorf("energy row %d has %d values, want %d: %w", k, len(row), s, markov.ErrDimensionMismatch)
			}
			for i := 0; i < s; i++ {
				for j := 0; j < s; j++ {
					a.Data[(k*s+i)*s+j] = math.Exp(beta * (row[i] - row[j]))
				}
			}
		}
		return a, nil
	}
}

// Landscape places the states on a ring through a simplex noise field and
// uses the sampled heights as energies for detailed-balance rates. Every
// clockwise edge i→i+1 is then multiplied by exp(drive), so a non-zero drive
// yields a steady state with positive entropy production.
func Landscape(s, n int, beta, drive, frequency float64) markov.Generator {
	return func(src rand.Source) (markov.Array, error) {
		if err := checkSize(s, n); err != nil {
			return markov.Array{}, err
		}
		if !(frequency > 0) {
			return markov.Array{}, fmt.Errorf("landscape frequency %g: %w", frequency, markov.ErrParameter)
		}

		energy := make([][]float64, n)
		for k := range energy {
			noise := opensimplex.NewNormalized(int64(src.Uint64() >> 1))
			energy[k] = make([]float64, s)
			for i := range energy[k] {
				theta := 2 * math.Pi * float64(i) / float64(s)
				energy[k][i] = noise.Eval2(frequency*math.Cos(theta), frequency*math.Sin(theta))
			}
		}

		a, err := DetailedBalance(s, n, energy, beta, 0, 1)(src)
		if err != nil {
			return markov.Array{}, err
		}
		push := math.Exp(drive)
		for k := 0; k < n; k++ {
			for i := 0; i < s; i++ {
				a.Data[(k*s+i)*s+(i+1)%s] *= push
			}
		}
		return a, nil
	}
}
