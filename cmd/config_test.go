package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/cwbudde/synthfit/internal/fit"
	"github.com/cwbudde/synthfit/internal/signal"
	"github.com/cwbudde/synthfit/internal/store"
)

func newTestCommand(t *testing.T, cfg *runConfig) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	bindCommonFlags(cmd, cfg)
	return cmd
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefaultRunConfig(t *testing.T) {
	cfg := defaultRunConfig()

	if cfg.Method != "subtractive" {
		t.Errorf("Expected method subtractive, got %s", cfg.Method)
	}
	if cfg.Metric != "freq" {
		t.Errorf("Expected metric freq, got %s", cfg.Metric)
	}
	if cfg.GA.Population != 100 || cfg.GA.Additions != 5 || cfg.GA.Generations != 1000 {
		t.Errorf("Unexpected GA defaults %+v", cfg.GA)
	}
	if cfg.GA.Evolution != "constant" {
		t.Errorf("Expected constant evolution, got %s", cfg.GA.Evolution)
	}
	if cfg.Climb.Iterations != 3000 || cfg.Climb.MaxFailures != 5000 {
		t.Errorf("Unexpected climb defaults %+v", cfg.Climb)
	}
}

func TestLoadRunConfig_FileAndFlags(t *testing.T) {
	path := writeConfig(t, `
target = "piano.wav"
metric = "time"
envelope = true

[ga]
population = 20
evolution = "increasing"
`)

	cfg := defaultRunConfig()
	cmd := newTestCommand(t, &cfg)
	if err := cmd.Flags().Set("config", path); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("metric", "freq"); err != nil {
		t.Fatal(err)
	}

	if err := loadRunConfig(cmd, &cfg); err != nil {
		t.Fatalf("loadRunConfig failed: %v", err)
	}

	if cfg.Target != "piano.wav" {
		t.Errorf("Expected target from file, got %s", cfg.Target)
	}
	if cfg.Metric != "freq" {
		t.Errorf("Expected explicit flag to win, got %s", cfg.Metric)
	}
	if !cfg.Envelope || !cfg.Oscillator {
		t.Errorf("Expected envelope and oscillator enabled, got %+v", cfg)
	}
	if cfg.GA.Population != 20 || cfg.GA.Evolution != "increasing" {
		t.Errorf("Expected GA settings from file, got %+v", cfg.GA)
	}
	if cfg.GA.Additions != 5 {
		t.Errorf("Expected untouched default additions 5, got %d", cfg.GA.Additions)
	}
}

func TestLoadRunConfig_UnknownKey(t *testing.T) {
	path := writeConfig(t, `
target = "piano.wav"
circles = 5
`)

	cfg := defaultRunConfig()
	cmd := newTestCommand(t, &cfg)
	_ = cmd.Flags().Set("config", path)

	if err := loadRunConfig(cmd, &cfg); err == nil {
		t.Fatal("Expected error for unknown key")
	}
}

func TestLoadRunConfig_MissingFile(t *testing.T) {
	cfg := defaultRunConfig()
	cmd := newTestCommand(t, &cfg)
	_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.toml"))

	if err := loadRunConfig(cmd, &cfg); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestLoadRunConfig_NoFile(t *testing.T) {
	cfg := defaultRunConfig()
	cmd := newTestCommand(t, &cfg)

	if err := loadRunConfig(cmd, &cfg); err != nil {
		t.Errorf("Expected no error without --config, got %v", err)
	}
}

func TestRunConfig_Generator(t *testing.T) {
	target, err := fit.NewTarget(signal.Sine(440, 0.5, signal.SampleRate, 0.5, 0))
	if err != nil {
		t.Fatalf("NewTarget failed: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(c *runConfig)
		wantErr bool
		dim     int
	}{
		{"oscillator", func(c *runConfig) {}, false, 7},
		{"oscillator and envelope", func(c *runConfig) { c.Envelope = true }, false, 11},
		{"no genes", func(c *runConfig) { c.Oscillator = false }, true, 0},
		{"bad filter", func(c *runConfig) { c.Filter = "comb" }, true, 0},
		{"bad metric", func(c *runConfig) { c.Metric = "cosine" }, true, 0},
		{"additive", func(c *runConfig) { c.Method = "additive" }, false, 10},
		{"additive without harmonics", func(c *runConfig) { c.Method = "additive"; c.Harmonics = false }, true, 0},
		{"unknown method", func(c *runConfig) { c.Method = "fm" }, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultRunConfig()
			tt.mutate(&cfg)

			gen, err := cfg.generator(target)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if gen.Dim() != tt.dim {
				t.Errorf("Expected dim %d, got %d", tt.dim, gen.Dim())
			}
		})
	}
}

func TestRunConfig_Components(t *testing.T) {
	cfg := defaultRunConfig()
	cfg.Envelope = true
	cfg.Filter = "lowpass"

	got := cfg.components()
	if len(got) != 3 || got[0] != "oscillator" || got[2] != "filter:lowpass" {
		t.Errorf("Unexpected components %v", got)
	}

	cfg.Method = "additive"
	if got := cfg.components(); len(got) != 1 || got[0] != "harmonics" {
		t.Errorf("Unexpected additive components %v", got)
	}
}

func TestRenderTone(t *testing.T) {
	synthFreq = 15000
	synthAmplitudes = []float64{0.5, 0.25}
	defer func() {
		synthFreq = 440
		synthAmplitudes = []float64{0.5}
	}()

	if _, err := renderTone(); err == nil {
		t.Error("Expected error for partials above Nyquist")
	}

	synthFreq = 220
	tone, err := renderTone()
	if err != nil {
		t.Fatalf("renderTone failed: %v", err)
	}
	if len(tone) != int(signal.Duration*signal.SampleRate) {
		t.Errorf("Expected %d samples, got %d", int(signal.Duration*signal.SampleRate), len(tone))
	}
}

func TestSynthClimbPlot_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	synthOut = filepath.Join(dir, "target.wav")
	synthFreq = 330
	synthAmplitudes = []float64{0.6, 0.3}
	defer func() {
		synthOut = "target.wav"
		synthFreq = 440
		synthAmplitudes = []float64{0.5}
	}()
	if err := runSynth(nil, nil); err != nil {
		t.Fatalf("synth failed: %v", err)
	}

	cfg := defaultRunConfig()
	cmd := newTestCommand(t, &cfg)
	cfg.Target = synthOut
	cfg.Seed = 7
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.Export = filepath.Join(dir, "best.wav")
	cfg.CSV = filepath.Join(dir, "telemetry.csv")
	cfg.Climb.Iterations = 5

	if err := runOptimizer(cmd, &cfg, store.OptimizerHillClimb, buildHillClimb); err != nil {
		t.Fatalf("runOptimizer failed: %v", err)
	}

	runStore, err := store.NewFSStore(cfg.DataDir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	infos, err := runStore.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(infos))
	}
	info := infos[0]
	if info.Steps != 5 {
		t.Errorf("Expected 5 steps, got %d", info.Steps)
	}
	if info.Reason != "max_iterations" {
		t.Errorf("Expected reason max_iterations, got %s", info.Reason)
	}

	for _, path := range []string{
		cfg.Export,
		cfg.CSV,
		filepath.Join(runStore.RunDir(info.RunID), traceFile),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected %s to exist: %v", path, err)
		}
	}

	plotRunID = info.RunID
	plotDataDir = cfg.DataDir
	plotOut = filepath.Join(dir, "fitness.png")
	defer func() {
		plotRunID = ""
		plotDataDir = "./data"
		plotOut = "fitness.png"
	}()
	if err := runPlot(nil, nil); err != nil {
		t.Fatalf("plot failed: %v", err)
	}
	if _, err := os.Stat(plotOut); err != nil {
		t.Errorf("Expected plot at %s: %v", plotOut, err)
	}
}

func TestRunOptimizer_MissingTarget(t *testing.T) {
	cfg := defaultRunConfig()
	cmd := newTestCommand(t, &cfg)

	if err := runOptimizer(cmd, &cfg, store.OptimizerGenetic, buildGenetic); err == nil {
		t.Fatal("Expected error without --target")
	}
}

func TestPlot_NoSource(t *testing.T) {
	if err := runPlot(nil, nil); err == nil {
		t.Fatal("Expected error without a history source")
	}
}
