package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Trace entry kinds.
const (
	KindGeneration = "generation"
	KindIteration  = "iteration"
)

// TraceEntry represents a single entry in the fitness history trace.
// Each entry is serialized as a JSON line.
type TraceEntry struct {
	// Kind is KindGeneration or KindIteration
	Kind string `json:"kind"`

	// Step is the generation or iteration number
	Step int `json:"step"`

	// Fitness is the best fitness for generations and the current fitness for iterations
	Fitness float64 `json:"fitness"`

	// MeanFitness and StdDev describe the population (generations only)
	MeanFitness float64 `json:"meanFitness,omitempty"`
	StdDev      float64 `json:"stdDev,omitempty"`

	// Offspring is the number of children produced (generations only)
	Offspring int `json:"offspring,omitempty"`

	// Fundamental is the frequency reported by the best genome, 0 if none
	Fundamental float64 `json:"fundamental"`

	// Timestamp records when this trace entry was created
	Timestamp time.Time `json:"timestamp"`
}

// TraceWriter writes trace entries to a JSONL file.
// It uses buffered I/O for performance and is safe for concurrent use.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewTraceWriter creates a trace file at path, creating parent directories.
// If append is true, new entries are appended to an existing file.
func NewTraceWriter(path string, append bool) (*TraceWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}

	var file *os.File
	var err error
	if append {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024), // 64KB buffer
		path:   path,
	}, nil
}

// Write appends a trace entry to the file.
// The entry is buffered and will be written on Flush() or Close().
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}
	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	if err := tw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

func (tw *TraceWriter) RecordGeneration(_ context.Context, r GenerationRecord) error {
	return tw.Write(TraceEntry{
		Kind:        KindGeneration,
		Step:        r.Generation,
		Fitness:     r.MaxFitness,
		MeanFitness: r.MeanFitness,
		StdDev:      r.StdDev,
		Offspring:   r.Offspring,
		Fundamental: r.Fundamental,
		Timestamp:   time.Now(),
	})
}

func (tw *TraceWriter) RecordIteration(_ context.Context, r IterationRecord) error {
	return tw.Write(TraceEntry{
		Kind:        KindIteration,
		Step:        r.Iteration,
		Fitness:     r.Fitness,
		Fundamental: r.Fundamental,
		Timestamp:   time.Now(),
	})
}

// Flush writes any buffered data to the file.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace writer: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}
	return nil
}

// Close flushes buffered data and closes the trace file.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close() // Try to close anyway
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the trace file.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// TraceReader reads trace entries from a JSONL file.
type TraceReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewTraceReader opens the trace at path.
func NewTraceReader(path string) (*TraceReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &TraceReader{
		file:    file,
		scanner: scanner,
	}, nil
}

// Read reads the next trace entry from the file.
// Returns io.EOF when no more entries are available.
func (tr *TraceReader) Read() (*TraceEntry, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan trace line: %w", err)
		}
		return nil, io.EOF
	}

	var entry TraceEntry
	if err := json.Unmarshal(tr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trace entry: %w", err)
	}
	return &entry, nil
}

// ReadAll reads all remaining trace entries.
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	var entries []TraceEntry
	for {
		entry, err := tr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Close closes the trace reader.
func (tr *TraceReader) Close() error {
	if err := tr.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// Generations converts generation entries back into records.
func Generations(entries []TraceEntry) []GenerationRecord {
	var out []GenerationRecord
	for _, e := range entries {
		if e.Kind != KindGeneration {
			continue
		}
		out = append(out, GenerationRecord{
			Generation:  e.Step,
			Offspring:   e.Offspring,
			Fundamental: e.Fundamental,
			MaxFitness:  e.Fitness,
			MeanFitness: e.MeanFitness,
			StdDev:      e.StdDev,
		})
	}
	return out
}

// Iterations converts iteration entries back into records.
func Iterations(entries []TraceEntry) []IterationRecord {
	var out []IterationRecord
	for _, e := range entries {
		if e.Kind != KindIteration {
			continue
		}
		out = append(out, IterationRecord{Iteration: e.Step, Fitness: e.Fitness, Fundamental: e.Fundamental})
	}
	return out
}
