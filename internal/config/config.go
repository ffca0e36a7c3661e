package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultGenerator         = "uniform"
	DefaultStates            = 10
	DefaultBatch             = 1
	DefaultMaxRate           = 1.0
	DefaultNESSDt            = 0.1
	DefaultNESSMaxIter       = 500
	DefaultAnalyticThreshold = 65.0
	DefaultMEPSDt0           = 0.5
	DefaultMEPSMaxIter       = 500
	DefaultMEPSDtIter        = 5
)

type Config struct {
	Generator    string             `yaml:"generator"`
	States       int                `yaml:"states"`
	Batch        int                `yaml:"batch"`
	Seed         uint64             `yaml:"seed"`
	MaxRate      float64            `yaml:"max_rate"`
	Params       map[string]float64 `yaml:"params,omitempty"`
	RateMatrix   [][]float64        `yaml:"rate_matrix,omitempty"`
	RateMatrices [][][]float64      `yaml:"rate_matrices,omitempty"`
	NESS         NESSConfig         `yaml:"ness"`
	MEPS         MEPSConfig         `yaml:"meps"`
}

type NESSConfig struct {
	Dt                float64 `yaml:"dt"`
	MaxIter           int     `yaml:"max_iter"`
	AnalyticThreshold float64 `yaml:"analytic_threshold"`
	ForceAnalytic     bool    `yaml:"force_analytic"`
}

type MEPSConfig struct {
	Dt0        float64 `yaml:"dt0"`
	MaxIter    int     `yaml:"max_iter"`
	DtIter     int     `yaml:"dt_iter"`
	Diagnostic bool    `yaml:"diagnostic"`
}

func DefaultConfig() *Config {
	return &Config{
		Generator: DefaultGenerator,
		States:    DefaultStates,
		Batch:     DefaultBatch,
		MaxRate:   DefaultMaxRate,
		NESS: NESSConfig{
			Dt:                DefaultNESSDt,
			MaxIter:           DefaultNESSMaxIter,
			AnalyticThreshold: DefaultAnalyticThreshold,
		},
		MEPS: MEPSConfig{
			Dt0:     DefaultMEPSDt0,
			MaxIter: DefaultMEPSMaxIter,
			DtIter:  DefaultMEPSDtIter,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy, so presets can be overridden safely.
func (c *Config) Clone() *Config {
	out := *c
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	if c.RateMatrix != nil {
		out.RateMatrix = make([][]float64, len(c.RateMatrix))
		for i, row := range c.RateMatrix {
			out.RateMatrix[i] = append([]float64(nil), row...)
		}
	}
	if c.RateMatrices != nil {
		out.RateMatrices = make([][][]float64, len(c.RateMatrices))
		for k, m := range c.RateMatrices {
			out.RateMatrices[k] = make([][]float64, len(m))
			for i, row := range m {
				out.RateMatrices[k][i] = append([]float64(nil), row...)
			}
		}
	}
	return &out
}

// Explicit reports whether the rates are given rather than generated.
func (c *Config) Explicit() bool {
	return c.RateMatrix != nil || c.RateMatrices != nil
}

// Validate checks the fields a run cannot start without. Rate values are
// checked later, when the chain is built.
func (c *Config) Validate() error {
	if c.RateMatrix != nil && c.RateMatrices != nil {
		return fmt.Errorf("rate_matrix and rate_matrices are mutually exclusive")
	}
	if !c.Explicit() {
		if c.Generator == "" {
			return fmt.Errorf("generator is required without an explicit rate matrix")
		}
		if c.States < 2 {
			return fmt.Errorf("states must be at least 2, got %d", c.States)
		}
		if c.Batch < 1 {
			return fmt.Errorf("batch must be at least 1, got %d", c.Batch)
		}
	}
	if c.MaxRate <= 0 {
		return fmt.Errorf("max_rate must be positive, got %g", c.MaxRate)
	}
	if c.NESS.Dt <= 0 || c.MEPS.Dt0 <= 0 {
		return fmt.Errorf("ness dt and meps dt0 must be positive")
	}
	if c.NESS.MaxIter < 0 || c.MEPS.MaxIter < 0 {
		return fmt.Errorf("max_iter must not be negative")
	}
	if c.MEPS.DtIter < 1 {
		return fmt.Errorf("meps dt_iter must be at least 1, got %d", c.MEPS.DtIter)
	}
	return nil
}
