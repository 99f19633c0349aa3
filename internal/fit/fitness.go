package fit

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/synthfit/internal/signal"
)

const (
	// MinFitness is assigned to genomes that cannot be rendered or evaluated.
	MinFitness = 0.0
	// MaxFitness is the upper bound of every score.
	MaxFitness = 2.0
)

// ErrNoTarget is returned when scoring is attempted without a target.
var ErrNoTarget = errors.New("no target signal")

// FitnessType selects the metric used to compare a candidate with the target.
type FitnessType int

const (
	FrequencyDomainMSE FitnessType = iota
	TimeDomainEuclidean
)

func (t FitnessType) String() string {
	switch t {
	case FrequencyDomainMSE:
		return "freq"
	case TimeDomainEuclidean:
		return "time"
	default:
		return fmt.Sprintf("FitnessType(%d)", int(t))
	}
}

// ParseFitnessType accepts the names used on the command line.
func ParseFitnessType(s string) (FitnessType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "freq", "frequency", "mse":
		return FrequencyDomainMSE, nil
	case "time", "euclidean":
		return TimeDomainEuclidean, nil
	default:
		return 0, fmt.Errorf("unknown fitness type %q (want freq or time)", s)
	}
}

// Target is the shared, read-only reference every individual is scored against.
// Its spectrum is computed once on construction.
type Target struct {
	sig      signal.Signal
	spectrum []float64
}

// NewTarget wraps s. An empty or non-finite target is rejected here so that
// the error surfaces while configuring a run rather than in the middle of one.
func NewTarget(s signal.Signal) (*Target, error) {
	spec, err := signal.Spectrum(s)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	return &Target{sig: s, spectrum: spec}, nil
}

// Signal returns the target samples. Callers must not modify them.
func (t *Target) Signal() signal.Signal {
	return t.sig
}

// Score rates candidate against the target using metric.
func (t *Target) Score(candidate signal.Signal, metric FitnessType) (float64, error) {
	switch metric {
	case FrequencyDomainMSE:
		return frequencyFitness(candidate, t.spectrum)
	case TimeDomainEuclidean:
		return timeFitness(candidate, t.sig), nil
	default:
		return MinFitness, fmt.Errorf("unsupported fitness type %v", metric)
	}
}

// Score rates candidate against target. The result is always in
// [MinFitness, MaxFitness]; spectrum failures are returned as errors.
func Score(candidate, target signal.Signal, metric FitnessType) (float64, error) {
	switch metric {
	case FrequencyDomainMSE:
		spec, err := signal.Spectrum(target)
		if err != nil {
			return MinFitness, fmt.Errorf("frequency fitness: target: %w", err)
		}
		return frequencyFitness(candidate, spec)
	case TimeDomainEuclidean:
		return timeFitness(candidate, target), nil
	default:
		return MinFitness, fmt.Errorf("unsupported fitness type %v", metric)
	}
}

func frequencyFitness(candidate signal.Signal, targetSpectrum []float64) (float64, error) {
	spec, err := signal.Spectrum(candidate)
	if err != nil {
		return MinFitness, fmt.Errorf("frequency fitness: %w", err)
	}
	mse := signal.SpectrumMSE(spec, targetSpectrum)
	return costToFitness(math.Exp(math.Log10(mse / 1000))), nil
}

func timeFitness(candidate, target signal.Signal) float64 {
	d := signal.EuclideanDistance(candidate, target)
	return costToFitness(math.Exp(math.Log10(d / 500)))
}

// costToFitness maps a non-negative cost onto (0, 1]; a zero cost scores 1.
func costToFitness(cost float64) float64 {
	f := 2 * sigmoid(-cost)
	if math.IsNaN(f) {
		return MinFitness
	}
	return math.Max(MinFitness, math.Min(MaxFitness, f))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
