// Package telemetry records per-step optimizer statistics and writes them to
// CSV, JSONL and SQLite sinks.
package telemetry

import (
	"context"
	"errors"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// GenerationRecord is emitted by the genetic optimizer before the first
// generation and after every generation.
type GenerationRecord struct {
	Generation  int     `json:"generation"`
	Offspring   int     `json:"offspring"`
	Fundamental float64 `json:"fundamental"`
	MaxFitness  float64 `json:"max_fitness"`
	MeanFitness float64 `json:"average_fitness"`
	StdDev      float64 `json:"std"`
}

// IterationRecord is emitted by the hill climber once per iteration.
type IterationRecord struct {
	Iteration   int     `json:"iteration"`
	Fitness     float64 `json:"fitness"`
	Fundamental float64 `json:"fundamental"`
}

// Summarize returns the maximum, mean and population standard deviation of
// the given fitness values. An empty slice yields zeros.
func Summarize(fitness []float64) (maxFitness, mean, std float64) {
	if len(fitness) == 0 {
		return 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(fitness, nil)
	return slices.Max(fitness), mean, std
}

// Sink consumes telemetry records.
type Sink interface {
	RecordGeneration(ctx context.Context, r GenerationRecord) error
	RecordIteration(ctx context.Context, r IterationRecord) error
	Close() error
}

type multiSink []Sink

// Multi fans records out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) RecordGeneration(ctx context.Context, r GenerationRecord) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.RecordGeneration(ctx, r))
	}
	return errors.Join(errs...)
}

func (m multiSink) RecordIteration(ctx context.Context, r IterationRecord) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.RecordIteration(ctx, r))
	}
	return errors.Join(errs...)
}

func (m multiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Memory keeps records in memory. It is used by tests and by callers that
// post-process a run.
type Memory struct {
	Generations []GenerationRecord
	Iterations  []IterationRecord
}

func (m *Memory) RecordGeneration(_ context.Context, r GenerationRecord) error {
	m.Generations = append(m.Generations, r)
	return nil
}

func (m *Memory) RecordIteration(_ context.Context, r IterationRecord) error {
	m.Iterations = append(m.Iterations, r)
	return nil
}

func (m *Memory) Close() error { return nil }
