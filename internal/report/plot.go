// Package report draws fitness histories recorded by the optimizers.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cwbudde/synthfit/internal/telemetry"
)

// ErrNoRecords is returned when there is nothing to draw.
var ErrNoRecords = errors.New("report: no records to plot")

const (
	width  = 6 * vg.Inch
	height = 4 * vg.Inch
)

var (
	bestColor = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	meanColor = color.RGBA{R: 40, G: 80, B: 200, A: 255}
	stdColor  = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// PlotGenerations draws best and mean fitness per generation, with the
// standard deviation as a dashed line. The image format follows the
// extension of path.
func PlotGenerations(records []telemetry.GenerationRecord, title, path string) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	best := make(plotter.XYs, len(records))
	mean := make(plotter.XYs, len(records))
	std := make(plotter.XYs, len(records))
	for i, r := range records {
		x := float64(r.Generation)
		best[i].X, best[i].Y = x, r.MaxFitness
		mean[i].X, mean[i].Y = x, r.MeanFitness
		std[i].X, std[i].Y = x, r.StdDev
	}

	p := newPlot(title, "Generation")
	bestLine, err := plotter.NewLine(best)
	if err != nil {
		return err
	}
	bestLine.Color = bestColor

	meanLine, err := plotter.NewLine(mean)
	if err != nil {
		return err
	}
	meanLine.Color = meanColor

	stdLine, err := plotter.NewLine(std)
	if err != nil {
		return err
	}
	stdLine.Color = stdColor
	stdLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(bestLine, meanLine, stdLine)
	p.Legend.Add("best", bestLine)
	p.Legend.Add("mean", meanLine)
	p.Legend.Add("std", stdLine)

	return save(p, path)
}

// PlotIterations draws the current fitness per hill-climbing iteration.
func PlotIterations(records []telemetry.IterationRecord, title, path string) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	pts := make(plotter.XYs, len(records))
	for i, r := range records {
		pts[i].X = float64(r.Iteration)
		pts[i].Y = r.Fitness
	}

	p := newPlot(title, "Iteration")
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = bestColor
	p.Add(line)
	p.Legend.Add("fitness", line)

	return save(p, path)
}

func newPlot(title, xLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Fitness"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true
	return p
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
