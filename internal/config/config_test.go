package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Generator != "uniform" {
		t.Errorf("expected generator uniform, got %s", cfg.Generator)
	}
	if cfg.NESS.Dt != 0.1 || cfg.NESS.MaxIter != 500 {
		t.Errorf("unexpected ness defaults %+v", cfg.NESS)
	}
	if cfg.MEPS.Dt0 != 0.5 || cfg.MEPS.DtIter != 5 {
		t.Errorf("unexpected meps defaults %+v", cfg.MEPS)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("landscape", "driven")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Params["drive"] != 1 {
		t.Errorf("expected drive 1, got %f", cfg.Params["drive"])
	}
	if cfg.NESS.MaxIter != DefaultNESSMaxIter {
		t.Error("preset should carry solver defaults")
	}

	cfg.Params["drive"] = 7
	if Presets["landscape"]["driven"].Params["drive"] != 1 {
		t.Error("modifying a preset copy changed the preset")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	cfg := GetPreset("uniform", "nonexistent")
	if cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}

	cfg = GetPreset("nonexistent", "small")
	if cfg != nil {
		t.Error("expected nil for nonexistent generator")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("cyclic")
	if len(presets) != 2 || presets[0] != "many" || presets[1] != "ring" {
		t.Errorf("expected sorted cyclic presets, got %v", presets)
	}

	presets = ListPresets("nonexistent")
	if presets != nil {
		t.Error("expected nil for nonexistent generator")
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.yaml")

	cfg := DefaultConfig()
	cfg.RateMatrix = [][]float64{{0, 2}, {1, 0}}
	cfg.Seed = 42
	cfg.MEPS.Diagnostic = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Explicit() {
		t.Error("expected explicit rate matrix")
	}
	if loaded.RateMatrix[0][1] != 2 || loaded.Seed != 42 || !loaded.MEPS.Diagnostic {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("generator: cyclic\nstates: 7\nmeps:\n  dt0: 0.25\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Generator != "cyclic" || cfg.States != 7 {
		t.Errorf("unexpected %s/%d", cfg.Generator, cfg.States)
	}
	if cfg.MEPS.Dt0 != 0.25 {
		t.Errorf("expected dt0 0.25, got %g", cfg.MEPS.Dt0)
	}
	if cfg.MEPS.MaxIter != DefaultMEPSMaxIter || cfg.NESS.Dt != DefaultNESSDt {
		t.Error("unset fields should keep their defaults")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"one state", func(c *Config) { c.States = 1 }},
		{"no batch", func(c *Config) { c.Batch = 0 }},
		{"no generator", func(c *Config) { c.Generator = "" }},
		{"zero max rate", func(c *Config) { c.MaxRate = 0 }},
		{"zero dt", func(c *Config) { c.NESS.Dt = 0 }},
		{"zero dt iter", func(c *Config) { c.MEPS.DtIter = 0 }},
		{"both matrices", func(c *Config) {
			c.RateMatrix = [][]float64{{0, 1}, {1, 0}}
			c.RateMatrices = [][][]float64{{{0, 1}, {1, 0}}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.States = 0
	cfg.RateMatrix = [][]float64{{0, 1}, {1, 0}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("explicit matrix needs no generator size: %v", err)
	}
}
