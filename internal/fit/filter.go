package fit

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/cwbudde/synthfit/internal/signal"
)

var (
	cutoffRange = Range{Min: 0, Max: 20_000}
	bandRange   = Range{Min: 0.01, Max: 4}
)

// FilterKind is the filter family of a Filter gene.
type FilterKind int

const (
	LowPass FilterKind = iota
	HighPass
	BandPass
	BandReject
)

func (k FilterKind) String() string {
	switch k {
	case LowPass:
		return "lowpass"
	case HighPass:
		return "highpass"
	case BandPass:
		return "bandpass"
	case BandReject:
		return "bandreject"
	default:
		return fmt.Sprintf("FilterKind(%d)", int(k))
	}
}

// ParseFilterKind parses the names printed by String.
func ParseFilterKind(s string) (FilterKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lowpass", "low-pass", "lp":
		return LowPass, nil
	case "highpass", "high-pass", "hp":
		return HighPass, nil
	case "bandpass", "band-pass", "bp":
		return BandPass, nil
	case "bandreject", "band-reject", "br":
		return BandReject, nil
	default:
		return 0, fmt.Errorf("unknown filter kind %q", s)
	}
}

func (k FilterKind) banded() bool {
	return k == BandPass || k == BandReject
}

func (k FilterKind) bounds() Bounds {
	if k.banded() {
		return Bounds{cutoffRange, cutoffRange, bandRange}
	}
	return Bounds{cutoffRange, bandRange}
}

// Filter is an FIR filter gene. Cutoff is used by the low- and high-pass
// kinds; Low and High bound the band of the other two, with Low <= High.
// Band is the transition bandwidth.
type Filter struct {
	Kind   FilterKind
	Cutoff float64
	Low    float64
	High   float64
	Band   float64
}

// NewFilter draws a random filter of the given kind.
func NewFilter(kind FilterKind, rng *rand.Rand) Filter {
	return filterFrom(kind, kind.bounds().Random(rng))
}

// Combine blends two filters of the same kind. It reports false when the
// kinds differ.
func (f Filter) Combine(other Filter, rate float64, rng *rand.Rand) (Filter, bool) {
	if f.Kind != other.Kind {
		return Filter{}, false
	}
	return filterFrom(f.Kind, f.Kind.bounds().Blend(rng, f.params(), other.params(), rate)), true
}

// Evolve perturbs every filter parameter within its range; the kind is kept.
func (f Filter) Evolve(step float64, rng *rand.Rand) Filter {
	return filterFrom(f.Kind, f.Kind.bounds().Evolve(rng, f.params(), step))
}

// Kernel builds the convolution kernel for the filter.
func (f Filter) Kernel() []float64 {
	switch f.Kind {
	case HighPass:
		return signal.HighPassKernel(f.Cutoff, f.Band)
	case BandPass:
		return signal.BandPassKernel(f.Low, f.High, f.Band)
	case BandReject:
		return signal.BandRejectKernel(f.Low, f.High, f.Band)
	default:
		return signal.LowPassKernel(f.Cutoff, f.Band)
	}
}

// Apply convolves s with the filter kernel.
func (f Filter) Apply(s signal.Signal) signal.Signal {
	return s.Convolve(f.Kernel())
}

func (f Filter) String() string {
	if f.Kind.banded() {
		return fmt.Sprintf("%s(%.1f-%.1fHz band=%.3f)", f.Kind, f.Low, f.High, f.Band)
	}
	return fmt.Sprintf("%s(%.1fHz band=%.3f)", f.Kind, f.Cutoff, f.Band)
}

func (f Filter) params() []float64 {
	if f.Kind.banded() {
		return []float64{f.Low, f.High, f.Band}
	}
	return []float64{f.Cutoff, f.Band}
}

// filterFrom builds a filter from its parameter vector, re-sorting band edges.
func filterFrom(kind FilterKind, p []float64) Filter {
	if !kind.banded() {
		return Filter{Kind: kind, Cutoff: p[0], Band: p[1]}
	}
	low, high := p[0], p[1]
	if high < low {
		low, high = high, low
	}
	return Filter{Kind: kind, Low: low, High: high, Band: p[2]}
}
