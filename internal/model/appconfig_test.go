package model

import (
	"errors"
	"testing"
)

func TestDefaultRunConfigIsValid(t *testing.T) {
	cfg := DefaultRunConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Refine.Schedule != ScheduleLinear {
		t.Errorf("expected linear schedule, got %s", cfg.Refine.Schedule)
	}
	if cfg.Cascade.BeamWidth != 1 {
		t.Errorf("expected beam width 1, got %d", cfg.Cascade.BeamWidth)
	}
	if cfg.Refine.Bound != CoordinateLimit {
		t.Errorf("expected bound %f, got %f", CoordinateLimit, cfg.Refine.Bound)
	}
}

func TestRunConfigValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(c *RunConfig){
		"negative iterations":   func(c *RunConfig) { c.Refine.Iterations = -1 },
		"probabilities":         func(c *RunConfig) { c.Refine.SwapProb = 0.7; c.Refine.ScaleProb = 0.5 },
		"directed moves":        func(c *RunConfig) { c.Refine.EdgeProb = 0.9 },
		"negative move prob":    func(c *RunConfig) { c.Refine.CentroidProb = -0.1 },
		"zero temperature":      func(c *RunConfig) { c.Refine.TempEnd = 0 },
		"schedule":              func(c *RunConfig) { c.Refine.Schedule = "cubic" },
		"beam width":            func(c *RunConfig) { c.Cascade.BeamWidth = 0 },
		"decimals":              func(c *RunConfig) { c.Decimals = 30 },
		"workers":               func(c *RunConfig) { c.Workers = -2 },
		"scale radius":          func(c *RunConfig) { c.Refine.ScaleRadius = 1 },
		"compress factor":       func(c *RunConfig) { c.Refine.CompressSteps = 3; c.Refine.CompressFactor = 1 },
		"compress without step": func(c *RunConfig) { c.Refine.CompressSteps = 3; c.Refine.RelaxStep = 0 },
	}
	for name, mutate := range cases {
		cfg := DefaultRunConfig()
		mutate(&cfg)
		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidSettings) {
			t.Errorf("%s: expected ErrInvalidSettings, got %v", name, err)
		}
	}
}

func TestRunConfigValidateRejectsBadGroupList(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.Groups = "5-2"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidGroupList) {
		t.Errorf("expected ErrInvalidGroupList, got %v", err)
	}
}
