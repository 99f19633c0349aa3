package telemetry

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

var (
	generationHeader = []string{"generation", "offspring", "fundamental", "max_fitness", "average_fitness", "std"}
	iterationHeader  = []string{"iteration", "fitness", "fundamental"}
)

// CSVSink writes one header row followed by one row per record. A sink
// should receive a single record kind; the header is chosen by the first
// record written.
type CSVSink struct {
	mu     sync.Mutex
	file   *os.File
	w      *csv.Writer
	header bool
}

// NewCSVSink creates path and any missing parent directories.
func NewCSVSink(path string) (*CSVSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create csv directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create csv file: %w", err)
	}
	return &CSVSink{file: f, w: csv.NewWriter(f)}, nil
}

func (c *CSVSink) RecordGeneration(_ context.Context, r GenerationRecord) error {
	return c.write(generationHeader, []string{
		strconv.Itoa(r.Generation),
		strconv.Itoa(r.Offspring),
		formatFloat(r.Fundamental),
		formatFloat(r.MaxFitness),
		formatFloat(r.MeanFitness),
		formatFloat(r.StdDev),
	})
}

func (c *CSVSink) RecordIteration(_ context.Context, r IterationRecord) error {
	return c.write(iterationHeader, []string{
		strconv.Itoa(r.Iteration),
		formatFloat(r.Fitness),
		formatFloat(r.Fundamental),
	})
}

func (c *CSVSink) write(header, row []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.header {
		if err := c.w.Write(header); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
		c.header = true
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (c *CSVSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.file.Close()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return c.file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
