package generators

import (
	"fmt"
	"sort"

	"github.com/san-kum/ctmc/internal/markov"
)

// Factory builds a generator for S states and N chains from named parameters.
// Missing parameters take the generator's defaults.
type Factory func(s, n int, params map[string]float64) markov.Generator

type Registry struct {
	factories map[string]Factory
}

func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.factories["uniform"] = func(s, n int, p map[string]float64) markov.Generator {
		return Uniform(s, n, int(param(p, "min_rate_tol", 6)))
	}
	r.factories["normal"] = func(s, n int, p map[string]float64) markov.Generator {
		return Normal(s, n, param(p, "mu", 0), param(p, "sigma", 1))
	}
	r.factories["gamma"] = func(s, n int, p map[string]float64) markov.Generator {
		return Gamma(s, n, param(p, "mu", 1), param(p, "sigma", 0.1))
	}
	r.factories["cyclic"] = func(s, n int, p map[string]float64) markov.Generator {
		return Cyclic(s, n, param(p, "mu", 0), param(p, "sigma", 1), int(param(p, "max_jump", 0)))
	}
	r.factories["detailed_balance"] = func(s, n int, p map[string]float64) markov.Generator {
		return DetailedBalance(s, n, nil, param(p, "beta", 1), param(p, "lo", 0.1), param(p, "hi", 1))
	}
	r.factories["landscape"] = func(s, n int, p map[string]float64) markov.Generator {
		return Landscape(s, n, param(p, "beta", 2), param(p, "drive", 1), param(p, "frequency", 1.5))
	}

	return r
}

// Register adds or replaces a generator.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

func (r *Registry) Get(name string, s, n int, params map[string]float64) (markov.Generator, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown generator: %s", name)
	}
	return f(s, n, params), nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
