package goverif

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TestOutputDir != "generated_tests" {
		t.Error("wrong default output directory")
	}
	if cfg.MaxTestsPerFunc != 0 || cfg.DumpSolverState {
		t.Error("wrong default values")
	}
}

func TestConfigLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goverif.toml")
	data := "test_output_dir = \"out\"\nmax_tests_per_func = 8\ndump_solver_state = true\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Errorf("unexpected error: %v", err)
		return
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
		return
	}
	if cfg.TestOutputDir != "out" || cfg.MaxTestsPerFunc != 8 || !cfg.DumpSolverState {
		t.Error("config file values not applied")
	}
}

func TestConfigPartialLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goverif.toml")
	if err := os.WriteFile(path, []byte("max_tests_per_func = 4\n"), 0o644); err != nil {
		t.Errorf("unexpected error: %v", err)
		return
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
		return
	}
	if cfg.TestOutputDir != "generated_tests" {
		t.Error("unset keys should keep their defaults")
	}
	if cfg.MaxTestsPerFunc != 4 {
		t.Error("config file values not applied")
	}
}

func TestConfigUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goverif.toml")
	if err := os.WriteFile(path, []byte("no_such_key = 1\n"), 0o644); err != nil {
		t.Errorf("unexpected error: %v", err)
		return
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("unknown keys should be rejected")
	}
}
