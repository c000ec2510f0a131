package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/QoPMLProject/AQoPA-sub000/sim/trace"
)

// RunDefaults holds run options read from a defaults file. Flags given on the
// command line win over the file; callers check cmd.Flags().Changed().
// All top-level keys must be listed to satisfy KnownFields(true) strict parsing.
type RunDefaults struct {
	Versions  []string `yaml:"versions"`
	MaxSteps  int64    `yaml:"max_steps"`
	Trace     string   `yaml:"trace"`
	CostParam string   `yaml:"cost_param"`
	Parallel  int      `yaml:"parallel"`
	Log       string   `yaml:"log"`
}

// loadRunDefaults parses a defaults file with strict field checking.
func loadRunDefaults(path string) (*RunDefaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading defaults file: %w", err)
	}
	var cfg RunDefaults
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing defaults file %s: %w", path, err)
	}
	if !trace.IsValidTraceLevel(cfg.Trace) {
		return nil, fmt.Errorf("defaults file %s: unknown trace level %q", path, cfg.Trace)
	}
	if cfg.MaxSteps < 0 {
		return nil, fmt.Errorf("defaults file %s: max_steps must be >= 0, got %d", path, cfg.MaxSteps)
	}
	if cfg.Parallel < 0 {
		return nil, fmt.Errorf("defaults file %s: parallel must be >= 0, got %d", path, cfg.Parallel)
	}
	return &cfg, nil
}
