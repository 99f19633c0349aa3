package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/synthfit/internal/audio"
	"github.com/cwbudde/synthfit/internal/fit"
	"github.com/cwbudde/synthfit/internal/opt"
	"github.com/cwbudde/synthfit/internal/store"
	"github.com/cwbudde/synthfit/internal/telemetry"
)

const (
	traceFile = "trace.jsonl"
)

var (
	gaCfg     = defaultRunConfig()
	climbCfg  = defaultRunConfig()
	mayflyCfg = defaultRunConfig()
)

var gaCmd = &cobra.Command{
	Use:   "ga",
	Short: "Evolve a population with the genetic algorithm",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOptimizer(cmd, &gaCfg, store.OptimizerGenetic, buildGenetic)
	},
}

var climbCmd = &cobra.Command{
	Use:   "climb",
	Short: "Refine a single patch with the hill climber",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOptimizer(cmd, &climbCfg, store.OptimizerHillClimb, buildHillClimb)
	},
}

var mayflyCmd = &cobra.Command{
	Use:   "mayfly",
	Short: "Search the patch space with the Mayfly swarm optimizer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOptimizer(cmd, &mayflyCfg, store.OptimizerMayfly, buildMayfly)
	},
}

func init() {
	bindCommonFlags(gaCmd, &gaCfg)
	f := gaCmd.Flags()
	f.IntVar(&gaCfg.GA.Population, "population", gaCfg.GA.Population, "Initial population size")
	f.IntVar(&gaCfg.GA.Additions, "additions", gaCfg.GA.Additions, "Random immigrants per generation")
	f.Float64Var(&gaCfg.GA.Mutation, "mutation", gaCfg.GA.Mutation, "Per-gene mutation probability")
	f.IntVar(&gaCfg.GA.Generations, "generations", gaCfg.GA.Generations, "Max generations")
	f.StringVar(&gaCfg.GA.Evolution, "evolution", gaCfg.GA.Evolution, "Population evolution: constant, increasing")
	f.IntVar(&gaCfg.GA.Workers, "workers", gaCfg.GA.Workers, "Parallel evaluations (0 = GOMAXPROCS)")
	f.IntVar(&gaCfg.GA.Patience, "patience", gaCfg.GA.Patience, "Stop after N generations without improvement (0 = disabled)")
	f.Float64Var(&gaCfg.GA.Threshold, "threshold", gaCfg.GA.Threshold, "Relative improvement that resets --patience")

	bindCommonFlags(climbCmd, &climbCfg)
	f = climbCmd.Flags()
	f.Float64Var(&climbCfg.Climb.StepSize, "step-size", climbCfg.Climb.StepSize, "Initial step size")
	f.Float64Var(&climbCfg.Climb.MinStepSize, "min-step-size", climbCfg.Climb.MinStepSize, "Stop when the step size drops below this")
	f.IntVar(&climbCfg.Climb.Iterations, "iterations", climbCfg.Climb.Iterations, "Max iterations")
	f.IntVar(&climbCfg.Climb.MaxFailures, "max-failures", climbCfg.Climb.MaxFailures, "Max consecutive rejected candidates")

	bindCommonFlags(mayflyCmd, &mayflyCfg)
	f = mayflyCmd.Flags()
	f.IntVar(&mayflyCfg.Mayfly.Iterations, "iterations", mayflyCfg.Mayfly.Iterations, "Max iterations")
	f.IntVar(&mayflyCfg.Mayfly.PopSize, "pop", mayflyCfg.Mayfly.PopSize, "Population size (>= 20)")

	rootCmd.AddCommand(gaCmd, climbCmd, mayflyCmd)
}

type buildFunc func(cfg runConfig, gen fit.Generator, opts ...opt.Option) (opt.Optimizer, error)

func buildGenetic(cfg runConfig, gen fit.Generator, opts ...opt.Option) (opt.Optimizer, error) {
	evolution, err := opt.ParsePopulationEvolution(cfg.GA.Evolution)
	if err != nil {
		return nil, err
	}
	gc := opt.DefaultGeneticConfig()
	gc.InitialPopulation = cfg.GA.Population
	gc.RandomAdditions = cfg.GA.Additions
	gc.MutationRate = cfg.GA.Mutation
	gc.MaxGenerations = cfg.GA.Generations
	gc.Evolution = evolution
	gc.Workers = cfg.GA.Workers
	gc.Seed = cfg.Seed
	if cfg.GA.Patience > 0 {
		gc.Convergence = fit.ConvergenceConfig{Enabled: true, Patience: cfg.GA.Patience, Threshold: cfg.GA.Threshold}
	}
	return opt.NewGenetic(gen, gc, opts...)
}

func buildHillClimb(cfg runConfig, gen fit.Generator, opts ...opt.Option) (opt.Optimizer, error) {
	hc := opt.HillClimbConfig{
		InitStepSize:  cfg.Climb.StepSize,
		MinStepSize:   cfg.Climb.MinStepSize,
		MaxIterations: cfg.Climb.Iterations,
		MaxFailures:   cfg.Climb.MaxFailures,
		Seed:          cfg.Seed,
	}
	return opt.NewHillClimb(gen, hc, opts...)
}

func buildMayfly(cfg runConfig, gen fit.Generator, opts ...opt.Option) (opt.Optimizer, error) {
	return opt.NewMayfly(gen, opt.MayflyConfig{
		MaxIterations: cfg.Mayfly.Iterations,
		PopSize:       cfg.Mayfly.PopSize,
		Seed:          cfg.Seed,
	}, opts...)
}

func (c runConfig) storeConfig(optimizer string) store.RunConfig {
	rc := store.RunConfig{
		TargetPath: c.Target,
		Method:     c.Method,
		Metric:     c.Metric,
		Components: c.components(),
		Seed:       c.Seed,
	}
	switch optimizer {
	case store.OptimizerGenetic:
		rc.Population = c.GA.Population
		rc.Additions = c.GA.Additions
		rc.Mutation = c.GA.Mutation
		rc.Evolution = c.GA.Evolution
		rc.MaxSteps = c.GA.Generations
	case store.OptimizerHillClimb:
		rc.StepSize = c.Climb.StepSize
		rc.MinStepSize = c.Climb.MinStepSize
		rc.MaxSteps = c.Climb.Iterations
		rc.MaxFailures = c.Climb.MaxFailures
	case store.OptimizerMayfly:
		rc.Population = c.Mayfly.PopSize
		rc.MaxSteps = c.Mayfly.Iterations
	}
	return rc
}

// runOptimizer loads the target, wires telemetry and export, runs the
// optimizer built by build and stores a summary of the outcome.
func runOptimizer(cmd *cobra.Command, cfg *runConfig, name string, build buildFunc) error {
	if err := loadRunConfig(cmd, cfg); err != nil {
		return err
	}
	if cfg.Target == "" {
		return fmt.Errorf("--target is required")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	samples, _, err := audio.Load(cfg.Target)
	if err != nil {
		return err
	}
	target, err := fit.NewTarget(samples)
	if err != nil {
		return fmt.Errorf("invalid target %s: %w", cfg.Target, err)
	}
	gen, err := cfg.generator(target)
	if err != nil {
		return err
	}

	runStore, err := store.NewFSStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}
	summary := store.NewRunSummary(name, cfg.storeConfig(name))

	sink, artifacts, err := openSinks(ctx, *cfg, runStore.RunDir(summary.RunID), summary.RunID)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Warn("Failed to close telemetry", "error", err)
		}
	}()
	summary.Artifacts = artifacts

	opts := []opt.Option{opt.WithSink(sink), opt.WithLogger(logger)}
	if cfg.Export != "" {
		opts = append(opts, opt.WithExporter(audio.FileExporter{Path: cfg.Export}))
	}

	optimizer, err := build(*cfg, gen, opts...)
	if err != nil {
		return err
	}

	slog.Info("Starting optimization",
		"run_id", summary.RunID,
		"optimizer", name,
		"method", cfg.Method,
		"metric", cfg.Metric,
		"components", cfg.components(),
	)
	start := time.Now()
	outcome, runErr := optimizer.Optimize(ctx)
	elapsed := time.Since(start)

	if outcome.Best.Genome() == nil {
		return runErr
	}
	summary.BestFitness = outcome.Best.Fitness()
	summary.Fundamental, _ = outcome.Best.Fundamental()
	summary.Steps = outcome.Steps
	summary.Reason = string(outcome.Reason)
	summary.Genome = fmt.Sprint(outcome.Best.Genome())
	summary.Timestamp = time.Now()
	if err := runStore.SaveRun(summary); err != nil {
		return errors.Join(runErr, fmt.Errorf("failed to save run summary: %w", err))
	}

	slog.Info("Optimization complete",
		"run_id", summary.RunID,
		"elapsed", elapsed,
		"steps", outcome.Steps,
		"reason", outcome.Reason,
		"fitness", summary.BestFitness,
	)
	fmt.Printf("Run %s: fitness %.6f after %d steps (%s)\n  %s\n",
		summary.RunID, summary.BestFitness, summary.Steps, summary.Reason, summary.Genome)
	return runErr
}

// openSinks creates the telemetry sinks requested by cfg and returns the
// artifact names written into runDir.
func openSinks(ctx context.Context, cfg runConfig, runDir, runID string) (telemetry.Sink, []string, error) {
	var sinks []telemetry.Sink
	var artifacts []string
	closeAll := func() { _ = telemetry.Multi(sinks...).Close() }

	if cfg.Trace {
		tw, err := telemetry.NewTraceWriter(filepath.Join(runDir, traceFile), false)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, tw)
		artifacts = append(artifacts, traceFile)
	}
	if cfg.CSV != "" {
		cs, err := telemetry.NewCSVSink(cfg.CSV)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, cs)
	}
	if cfg.SQLite != "" {
		db := telemetry.NewSQLiteSink(cfg.SQLite, runID)
		if err := db.Init(ctx); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to open sqlite telemetry: %w", err)
		}
		sinks = append(sinks, db)
	}
	return telemetry.Multi(sinks...), artifacts, nil
}
