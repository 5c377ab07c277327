package goverif

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the run configuration for the checker core. All fields have
// usable defaults; a config file only needs to name what it overrides.
type Config struct {
	// TestOutputDir is where generated test units are written.
	TestOutputDir string `toml:"test_output_dir"`
	// MaxTestsPerFunc caps recorded assignments per function. Zero means
	// unlimited.
	MaxTestsPerFunc int `toml:"max_tests_per_func"`
	// DumpSolverState logs the solver's asserted state at debug level on
	// every probed condition.
	DumpSolverState bool `toml:"dump_solver_state"`
}

func DefaultConfig() *Config {
	return &Config{
		TestOutputDir: "generated_tests",
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}
