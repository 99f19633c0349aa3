package telemetry

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSummarize(t *testing.T) {
	maxF, mean, std := Summarize([]float64{0.2, 0.4, 0.6, 0.8})

	if maxF != 0.8 {
		t.Errorf("Expected max 0.8, got %f", maxF)
	}
	if math.Abs(mean-0.5) > 1e-12 {
		t.Errorf("Expected mean 0.5, got %f", mean)
	}
	// Population variance is 0.05.
	if math.Abs(std-math.Sqrt(0.05)) > 1e-12 {
		t.Errorf("Expected std %f, got %f", math.Sqrt(0.05), std)
	}

	maxF, mean, std = Summarize(nil)
	if maxF != 0 || mean != 0 || std != 0 {
		t.Errorf("Expected zeros for empty input, got %f %f %f", maxF, mean, std)
	}
}

type failingSink struct{ Memory }

func (f *failingSink) RecordGeneration(context.Context, GenerationRecord) error {
	return errors.New("disk full")
}

func TestMultiSkipsNilAndJoinsErrors(t *testing.T) {
	mem := &Memory{}
	bad := &failingSink{}
	sink := Multi(nil, mem, bad)

	err := sink.RecordGeneration(context.Background(), GenerationRecord{Generation: 1})
	if err == nil {
		t.Fatal("Expected error from failing sink")
	}
	if len(mem.Generations) != 1 {
		t.Errorf("Expected healthy sink to receive the record, got %d", len(mem.Generations))
	}

	if err := sink.RecordIteration(context.Background(), IterationRecord{Iteration: 3}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if len(mem.Iterations) != 1 || len(bad.Iterations) != 1 {
		t.Error("Expected both sinks to receive the iteration record")
	}
}

func TestCSVSinkGenerations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csv", "run.csv")

	sink, err := NewCSVSink(path)
	if err != nil {
		t.Fatalf("Failed to create csv sink: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		r := GenerationRecord{Generation: i, Offspring: 50, Fundamental: 440, MaxFitness: 0.3, MeanFitness: 0.3, StdDev: 0.3}
		if err := sink.RecordGeneration(ctx, r); err != nil {
			t.Fatalf("Failed to record: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header + 3 rows, got %d", len(rows))
	}
	for i, h := range generationHeader {
		if rows[0][i] != h {
			t.Errorf("Header column %d: expected %q, got %q", i, h, rows[0][i])
		}
	}
	if rows[2][0] != "1" || rows[2][1] != "50" || rows[2][3] != "0.3" {
		t.Errorf("Unexpected row: %v", rows[2])
	}
}

func TestTraceWriter_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")

	writer, err := NewTraceWriter(path, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	ctx := context.Background()
	gens := []GenerationRecord{
		{Generation: 0, Offspring: 0, Fundamental: 0, MaxFitness: 0.1, MeanFitness: 0.05, StdDev: 0.01},
		{Generation: 1, Offspring: 50, Fundamental: 440, MaxFitness: 0.2, MeanFitness: 0.1, StdDev: 0.02},
	}
	for _, g := range gens {
		if err := writer.RecordGeneration(ctx, g); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.RecordIteration(ctx, IterationRecord{Iteration: 7, Fitness: 0.9, Fundamental: 220}); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	reader, err := NewTraceReader(path)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	got := Generations(entries)
	if len(got) != len(gens) {
		t.Fatalf("Expected %d generation records, got %d", len(gens), len(got))
	}
	for i := range gens {
		if got[i] != gens[i] {
			t.Errorf("Generation %d: expected %+v, got %+v", i, gens[i], got[i])
		}
	}

	its := Iterations(entries)
	if len(its) != 1 || its[0].Iteration != 7 || its[0].Fitness != 0.9 {
		t.Errorf("Unexpected iteration records: %+v", its)
	}
}

func TestTraceWriter_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		writer, err := NewTraceWriter(path, true)
		if err != nil {
			t.Fatalf("Failed to create trace writer: %v", err)
		}
		if err := writer.RecordIteration(ctx, IterationRecord{Iteration: i}); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("Failed to close writer: %v", err)
		}
	}

	reader, err := NewTraceReader(path)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries after append, got %d", len(entries))
	}
}

func TestTraceReader_MissingFile(t *testing.T) {
	_, err := NewTraceReader(filepath.Join(t.TempDir(), "missing.jsonl"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Expected not-exist error, got %v", err)
	}
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	sink := NewSQLiteSink(path, "run-1")
	if err := sink.RecordGeneration(ctx, GenerationRecord{}); err == nil {
		t.Fatal("Expected error before Init")
	}
	if err := sink.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer sink.Close()

	for i := 0; i < 3; i++ {
		r := GenerationRecord{Generation: i, Offspring: i * 10, MaxFitness: float64(i) / 10}
		if err := sink.RecordGeneration(ctx, r); err != nil {
			t.Fatalf("RecordGeneration failed: %v", err)
		}
	}
	if err := sink.RecordIteration(ctx, IterationRecord{Iteration: 0, Fitness: 0.5, Fundamental: 100}); err != nil {
		t.Fatalf("RecordIteration failed: %v", err)
	}

	gens, err := sink.Generations(ctx)
	if err != nil {
		t.Fatalf("Generations failed: %v", err)
	}
	if len(gens) != 3 {
		t.Fatalf("Expected 3 generations, got %d", len(gens))
	}
	if gens[2].Offspring != 20 || gens[2].MaxFitness != 0.2 {
		t.Errorf("Unexpected record %+v", gens[2])
	}

	its, err := sink.Iterations(ctx)
	if err != nil {
		t.Fatalf("Iterations failed: %v", err)
	}
	if len(its) != 1 || its[0].Fundamental != 100 {
		t.Errorf("Unexpected iterations %+v", its)
	}

	// A second run in the same database stays separate.
	other := NewSQLiteSink(path, "run-2")
	if err := other.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer other.Close()
	gens, err = other.Generations(ctx)
	if err != nil {
		t.Fatalf("Generations failed: %v", err)
	}
	if len(gens) != 0 {
		t.Errorf("Expected no generations for run-2, got %d", len(gens))
	}
}
