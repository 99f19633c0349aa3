package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cwbudde/synthfit/internal/fit"
	"github.com/cwbudde/synthfit/internal/opt"
)

// runConfig collects the settings shared by the optimizer commands. It can
// be loaded from a TOML file with --config; flags given on the command line
// win over file values.
type runConfig struct {
	Target     string `toml:"target"`
	Method     string `toml:"method"`
	Oscillator bool   `toml:"oscillator"`
	Envelope   bool   `toml:"envelope"`
	Filter     string `toml:"filter"`
	Harmonics  bool   `toml:"harmonics"`
	Metric     string `toml:"metric"`
	Seed       int64  `toml:"seed"`

	CSV     string `toml:"csv"`
	Trace   bool   `toml:"trace"`
	SQLite  string `toml:"sqlite"`
	Export  string `toml:"export"`
	DataDir string `toml:"data_dir"`

	GA     gaConfig     `toml:"ga"`
	Climb  climbConfig  `toml:"climb"`
	Mayfly mayflyConfig `toml:"mayfly"`
}

type gaConfig struct {
	Population  int     `toml:"population"`
	Additions   int     `toml:"additions"`
	Mutation    float64 `toml:"mutation"`
	Generations int     `toml:"generations"`
	Evolution   string  `toml:"evolution"`
	Workers     int     `toml:"workers"`
	Patience    int     `toml:"patience"`
	Threshold   float64 `toml:"threshold"`
}

type climbConfig struct {
	StepSize    float64 `toml:"step_size"`
	MinStepSize float64 `toml:"min_step_size"`
	Iterations  int     `toml:"iterations"`
	MaxFailures int     `toml:"max_failures"`
}

type mayflyConfig struct {
	Iterations int `toml:"iterations"`
	PopSize    int `toml:"pop"`
}

func defaultRunConfig() runConfig {
	ga := opt.DefaultGeneticConfig()
	hc := opt.DefaultHillClimbConfig()
	mf := opt.DefaultMayflyConfig()
	conv := fit.DefaultConvergenceConfig()

	return runConfig{
		Method:     "subtractive",
		Oscillator: true,
		Harmonics:  true,
		Metric:     fit.FrequencyDomainMSE.String(),
		Trace:      true,
		DataDir:    "./data",
		GA: gaConfig{
			Population:  ga.InitialPopulation,
			Additions:   ga.RandomAdditions,
			Mutation:    ga.MutationRate,
			Generations: ga.MaxGenerations,
			Evolution:   ga.Evolution.String(),
			Threshold:   conv.Threshold,
		},
		Climb: climbConfig{
			StepSize:    hc.InitStepSize,
			MinStepSize: hc.MinStepSize,
			Iterations:  hc.MaxIterations,
			MaxFailures: hc.MaxFailures,
		},
		Mayfly: mayflyConfig{
			Iterations: mf.MaxIterations,
			PopSize:    mf.PopSize,
		},
	}
}

// bindCommonFlags registers the target, layout and output flags.
func bindCommonFlags(cmd *cobra.Command, cfg *runConfig) {
	f := cmd.Flags()
	f.String("config", "", "TOML run configuration file")
	f.StringVar(&cfg.Target, "target", cfg.Target, "Target WAV file (required)")
	f.StringVar(&cfg.Method, "method", cfg.Method, "Synthesis method: subtractive, additive")
	f.BoolVar(&cfg.Oscillator, "oscillator", cfg.Oscillator, "Enable the oscillator gene (subtractive)")
	f.BoolVar(&cfg.Envelope, "envelope", cfg.Envelope, "Enable the ADSR envelope gene (subtractive)")
	f.StringVar(&cfg.Filter, "filter", cfg.Filter, "Enable a filter gene (subtractive): lowpass, highpass, bandpass, bandreject")
	f.BoolVar(&cfg.Harmonics, "harmonics", cfg.Harmonics, "Enable the harmonic series gene (additive)")
	f.StringVar(&cfg.Metric, "metric", cfg.Metric, "Fitness metric: freq, time")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 = random)")
	f.StringVar(&cfg.CSV, "csv", cfg.CSV, "Write per-step telemetry to this CSV file")
	f.BoolVar(&cfg.Trace, "trace", cfg.Trace, "Write a JSONL trace into the run directory")
	f.StringVar(&cfg.SQLite, "sqlite", cfg.SQLite, "Record telemetry into this SQLite database")
	f.StringVar(&cfg.Export, "export", cfg.Export, "Export the best rendered signal to this WAV file")
	f.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Base directory for run summaries")
}

// loadRunConfig merges the --config file into cfg. Flags set explicitly on
// the command line are re-applied after decoding.
func loadRunConfig(cmd *cobra.Command, cfg *runConfig) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return nil
	}

	changed := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}

	for name, value := range changed {
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("failed to re-apply --%s: %w", name, err)
		}
	}
	return nil
}

// components lists the enabled genes for the run summary.
func (c runConfig) components() []string {
	var out []string
	switch c.Method {
	case "additive":
		if c.Harmonics {
			out = append(out, "harmonics")
		}
	default:
		if c.Oscillator {
			out = append(out, "oscillator")
		}
		if c.Envelope {
			out = append(out, "envelope")
		}
		if c.Filter != "" {
			out = append(out, "filter:"+c.Filter)
		}
	}
	return out
}

// generator builds the individual generator for the configured layout.
func (c runConfig) generator(target *fit.Target) (fit.Generator, error) {
	metric, err := fit.ParseFitnessType(c.Metric)
	if err != nil {
		return nil, err
	}

	switch c.Method {
	case "subtractive", "":
		gen := fit.NewSubtractiveGenerator(target, metric)
		if c.Oscillator {
			gen = gen.Oscillator()
		}
		if c.Envelope {
			gen = gen.Envelope()
		}
		if c.Filter != "" {
			kind, err := fit.ParseFilterKind(c.Filter)
			if err != nil {
				return nil, err
			}
			gen = gen.Filter(kind)
		}
		if gen.Dim() == 0 {
			return nil, fmt.Errorf("subtractive method needs at least one of --oscillator, --envelope, --filter")
		}
		return gen, nil
	case "additive":
		gen := fit.NewAdditiveGenerator(target, metric)
		if c.Harmonics {
			gen = gen.Harmonics()
		}
		if gen.Dim() == 0 {
			return nil, fmt.Errorf("additive method needs --harmonics")
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown method: %s", c.Method)
	}
}
