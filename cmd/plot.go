package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cwbudde/synthfit/internal/report"
	"github.com/cwbudde/synthfit/internal/store"
	"github.com/cwbudde/synthfit/internal/telemetry"
)

var (
	plotTrace   string
	plotRunID   string
	plotSQLite  string
	plotDataDir string
	plotOut     string
	plotTitle   string
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot the fitness history of a run",
	Long: `Draw the fitness history of a run as PNG or SVG (by --out extension).

The history is read from a trace file (--trace), from the trace of a stored
run (--run), or from a SQLite telemetry database (--sqlite with --run).`,
	RunE: runPlot,
}

func init() {
	rootCmd.AddCommand(plotCmd)

	plotCmd.Flags().StringVar(&plotTrace, "trace", "", "Trace file to plot")
	plotCmd.Flags().StringVar(&plotRunID, "run", "", "Run ID to plot")
	plotCmd.Flags().StringVar(&plotSQLite, "sqlite", "", "SQLite telemetry database holding the run")
	plotCmd.Flags().StringVar(&plotDataDir, "data-dir", "./data", "Base directory for run summaries")
	plotCmd.Flags().StringVar(&plotOut, "out", "fitness.png", "Output image (.png or .svg)")
	plotCmd.Flags().StringVar(&plotTitle, "title", "", "Plot title (defaults to the run ID)")
}

func runPlot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if cmd != nil && cmd.Context() != nil {
		ctx = cmd.Context()
	}

	gens, iters, err := loadHistory(ctx)
	if err != nil {
		return err
	}

	title := plotTitle
	if title == "" {
		title = plotRunID
	}
	if title == "" {
		title = filepath.Base(plotTrace)
	}

	// A run is either generational or iterative; prefer generations.
	if len(gens) > 0 {
		err = report.PlotGenerations(gens, title, plotOut)
	} else {
		err = report.PlotIterations(iters, title, plotOut)
	}
	if err != nil {
		return fmt.Errorf("failed to plot: %w", err)
	}

	slog.Info("Wrote plot", "path", plotOut, "generations", len(gens), "iterations", len(iters))
	return nil
}

func loadHistory(ctx context.Context) ([]telemetry.GenerationRecord, []telemetry.IterationRecord, error) {
	switch {
	case plotSQLite != "":
		if plotRunID == "" {
			return nil, nil, fmt.Errorf("--sqlite requires --run")
		}
		db := telemetry.NewSQLiteSink(plotSQLite, plotRunID)
		if err := db.Init(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite telemetry: %w", err)
		}
		defer db.Close()

		gens, err := db.Generations(ctx)
		if err != nil {
			return nil, nil, err
		}
		iters, err := db.Iterations(ctx)
		if err != nil {
			return nil, nil, err
		}
		return gens, iters, nil

	case plotTrace != "" || plotRunID != "":
		path := plotTrace
		if path == "" {
			runStore, err := store.NewFSStore(plotDataDir)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create run store: %w", err)
			}
			if _, err := runStore.LoadRun(plotRunID); err != nil {
				return nil, nil, err
			}
			path = filepath.Join(runStore.RunDir(plotRunID), traceFile)
		}

		tr, err := telemetry.NewTraceReader(path)
		if err != nil {
			return nil, nil, err
		}
		defer tr.Close()

		entries, err := tr.ReadAll()
		if err != nil {
			return nil, nil, err
		}
		return telemetry.Generations(entries), telemetry.Iterations(entries), nil

	default:
		return nil, nil, fmt.Errorf("one of --trace, --run or --sqlite is required")
	}
}
