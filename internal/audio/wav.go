// Package audio decodes target sounds from WAV files and exports rendered
// signals.
package audio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/youpy/go-wav"

	"github.com/cwbudde/synthfit/internal/signal"
)

// Format describes a decoded WAV stream.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Load decodes a PCM WAV file and mixes all channels down to mono.
func Load(path string) (signal.Signal, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Format{}, fmt.Errorf("failed to open wav: %w", err)
	}
	defer f.Close()

	r := wav.NewReader(f)
	wf, err := r.Format()
	if err != nil {
		return nil, Format{}, fmt.Errorf("failed to read wav format: %w", err)
	}
	format := Format{
		SampleRate:    int(wf.SampleRate),
		Channels:      int(wf.NumChannels),
		BitsPerSample: int(wf.BitsPerSample),
	}
	if format.Channels == 0 {
		return nil, format, fmt.Errorf("wav %s declares no channels", path)
	}

	var out signal.Signal
	for {
		samples, err := r.ReadSamples()
		for _, s := range samples {
			var sum float64
			for ch := 0; ch < format.Channels; ch++ {
				sum += r.FloatValue(s, uint(ch))
			}
			out = append(out, float32(sum/float64(format.Channels)))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, format, fmt.Errorf("failed to read wav samples: %w", err)
		}
	}

	if format.SampleRate != signal.SampleRate {
		slog.Warn("Target sample rate differs from synthesis rate",
			"path", path,
			"sample_rate", format.SampleRate,
			"expected", signal.SampleRate,
		)
	}
	return out, format, nil
}

// Save writes s as a 16-bit mono WAV file. Samples are clipped to [-1, 1].
func Save(path string, s signal.Signal, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav: %w", err)
	}

	bw := bufio.NewWriter(f)
	if err := Encode(bw, s, sampleRate); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush wav: %w", err)
	}
	return f.Close()
}

// Encode writes s as 16-bit mono PCM WAV data to w.
func Encode(w io.Writer, s signal.Signal, sampleRate int) error {
	samples := make([]wav.Sample, len(s))
	for i, v := range s {
		x := math.Max(-1, math.Min(1, float64(v)))
		samples[i] = wav.Sample{Values: [2]int{int(x * math.MaxInt16)}}
	}

	ww := wav.NewWriter(w, uint32(len(s)), 1, uint32(sampleRate), 16)
	if err := ww.WriteSamples(samples); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	return nil
}

// FileExporter writes the final signal of a run to a WAV file.
type FileExporter struct {
	Path       string
	SampleRate int
}

// Export implements the optimizer exporter hook.
func (e FileExporter) Export(s signal.Signal) error {
	rate := e.SampleRate
	if rate == 0 {
		rate = signal.SampleRate
	}
	if err := Save(e.Path, s, rate); err != nil {
		return err
	}
	slog.Info("Exported rendered signal", "path", e.Path, "samples", len(s))
	return nil
}
