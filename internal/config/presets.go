package config

import "sort"

var Presets = map[string]map[string]*Config{
	"uniform": {
		"small": {
			Generator: "uniform", States: 5, Batch: 1, MaxRate: 1,
			Params: map[string]float64{"min_rate_tol": 6},
		},
		"wide": {
			Generator: "uniform", States: 20, Batch: 4, MaxRate: 1,
			Params: map[string]float64{"min_rate_tol": 3},
		},
	},
	"normal": {
		"folded": {
			Generator: "normal", States: 8, Batch: 2, MaxRate: 1,
			Params: map[string]float64{"mu": 0, "sigma": 1},
		},
	},
	"gamma": {
		"narrow": {
			Generator: "gamma", States: 8, Batch: 2, MaxRate: 1,
			Params: map[string]float64{"mu": 1, "sigma": 0.1},
		},
		"heavy": {
			Generator: "gamma", States: 8, Batch: 2, MaxRate: 1,
			Params: map[string]float64{"mu": 1, "sigma": 2},
		},
	},
	"cyclic": {
		"ring": {
			Generator: "cyclic", States: 6, Batch: 1, MaxRate: 1,
			Params: map[string]float64{"mu": 0, "sigma": 1},
		},
		"many": {
			Generator: "cyclic", States: 12, Batch: 8, MaxRate: 1,
			Params: map[string]float64{"mu": 0, "sigma": 2},
		},
	},
	"detailed_balance": {
		"equilibrium": {
			Generator: "detailed_balance", States: 6, Batch: 1, MaxRate: 1,
			Params: map[string]float64{"beta": 1, "lo": 0.1, "hi": 1},
		},
		"cold": {
			Generator: "detailed_balance", States: 6, Batch: 1, MaxRate: 1,
			Params: map[string]float64{"beta": 5, "lo": 0.1, "hi": 1},
		},
	},
	"landscape": {
		"driven": {
			Generator: "landscape", States: 16, Batch: 1, MaxRate: 1,
			Params: map[string]float64{"beta": 2, "drive": 1, "frequency": 1.5},
		},
		"rugged": {
			Generator: "landscape", States: 32, Batch: 4, MaxRate: 1,
			Params: map[string]float64{"beta": 4, "drive": 0.5, "frequency": 4},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(generator, preset string) *Config {
	genPresets, ok := Presets[generator]
	if !ok {
		return nil
	}
	cfg, ok := genPresets[preset]
	if !ok {
		return nil
	}
	out := DefaultConfig()
	out.Generator = cfg.Generator
	out.States = cfg.States
	out.Batch = cfg.Batch
	out.MaxRate = cfg.MaxRate
	out.Params = cfg.Clone().Params
	return out
}

func ListPresets(generator string) []string {
	genPresets, ok := Presets[generator]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(genPresets))
	for name := range genPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
