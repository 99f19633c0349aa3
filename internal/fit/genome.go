package fit

import (
	"math/rand"
	"strings"

	"github.com/cwbudde/synthfit/internal/signal"
)

// Genome is one synthesis layout. Implementations are immutable values;
// Crossover and Evolve return new genomes.
type Genome interface {
	// Render synthesizes the genome into Duration seconds of audio.
	Render() signal.Signal
	// Valid reports whether the genome may be rendered. Invalid genomes are
	// scored MinFitness.
	Valid() bool
	// Crossover combines each gene present in both parents. Genes whose
	// combination is undefined are absent from the offspring.
	Crossover(other Genome, rate float64, rng *rand.Rand) Genome
	// Evolve perturbs every present gene by step.
	Evolve(step float64, rng *rand.Rand) Genome
	// Fundamental returns the frequency reported in telemetry, if any.
	Fundamental() (float64, bool)
	String() string
}

// Subtractive starts from silence, then applies an oscillator, an envelope
// and a filter. Nil genes are absent.
type Subtractive struct {
	Oscillator *Oscillator
	Envelope   *Envelope
	Filter     *Filter
}

// Render shapes the oscillator with the envelope and then filters it.
func (g Subtractive) Render() signal.Signal {
	s := signal.Silence(signal.Duration, signal.SampleRate)
	if g.Oscillator != nil {
		s = g.Oscillator.Render()
	}
	if g.Envelope != nil {
		s = g.Envelope.Apply(s)
	}
	if g.Filter != nil {
		s = g.Filter.Apply(s)
	}
	return s
}

// Valid is always true; a genome without genes renders silence.
func (g Subtractive) Valid() bool {
	return true
}

// Crossover combines the genes both parents carry.
func (g Subtractive) Crossover(other Genome, rate float64, rng *rand.Rand) Genome {
	o, _ := other.(Subtractive)
	var child Subtractive
	if g.Oscillator != nil && o.Oscillator != nil {
		if c, ok := g.Oscillator.Combine(*o.Oscillator, rate, rng); ok {
			child.Oscillator = &c
		}
	}
	if g.Envelope != nil && o.Envelope != nil {
		if c, ok := g.Envelope.Combine(*o.Envelope, rate, rng); ok {
			child.Envelope = &c
		}
	}
	if g.Filter != nil && o.Filter != nil {
		if c, ok := g.Filter.Combine(*o.Filter, rate, rng); ok {
			child.Filter = &c
		}
	}
	return child
}

// Evolve perturbs every present gene.
func (g Subtractive) Evolve(step float64, rng *rand.Rand) Genome {
	var next Subtractive
	if g.Oscillator != nil {
		c := g.Oscillator.Evolve(step, rng)
		next.Oscillator = &c
	}
	if g.Envelope != nil {
		c := g.Envelope.Evolve(step, rng)
		next.Envelope = &c
	}
	if g.Filter != nil {
		c := g.Filter.Evolve(step, rng)
		next.Filter = &c
	}
	return next
}

// Fundamental returns the oscillator frequency.
func (g Subtractive) Fundamental() (float64, bool) {
	if g.Oscillator == nil {
		return 0, false
	}
	return g.Oscillator.Freq, true
}

// String lists the present genes.
func (g Subtractive) String() string {
	var parts []string
	if g.Oscillator != nil {
		parts = append(parts, g.Oscillator.String())
	}
	if g.Envelope != nil {
		parts = append(parts, g.Envelope.String())
	}
	if g.Filter != nil {
		parts = append(parts, g.Filter.String())
	}
	if len(parts) == 0 {
		return "subtractive(empty)"
	}
	return "subtractive " + strings.Join(parts, " ")
}

// Additive sums the partials of a harmonic series.
type Additive struct {
	Harmonics *HarmonicSeries
}

// Render sums the partials of the harmonic series.
func (g Additive) Render() signal.Signal {
	if g.Harmonics == nil {
		return signal.Silence(signal.Duration, signal.SampleRate)
	}
	return g.Harmonics.Render()
}

// Valid is false when any partial reaches the Nyquist frequency.
func (g Additive) Valid() bool {
	return g.Harmonics == nil || g.Harmonics.Valid()
}

// Crossover combines the harmonic series of both parents.
func (g Additive) Crossover(other Genome, rate float64, rng *rand.Rand) Genome {
	o, _ := other.(Additive)
	var child Additive
	if g.Harmonics != nil && o.Harmonics != nil {
		if c, ok := g.Harmonics.Combine(*o.Harmonics, rate, rng); ok {
			child.Harmonics = &c
		}
	}
	return child
}

// Evolve perturbs the harmonic series.
func (g Additive) Evolve(step float64, rng *rand.Rand) Genome {
	if g.Harmonics == nil {
		return Additive{}
	}
	c := g.Harmonics.Evolve(step, rng)
	return Additive{Harmonics: &c}
}

// Fundamental returns the fundamental of the harmonic series.
func (g Additive) Fundamental() (float64, bool) {
	if g.Harmonics == nil {
		return 0, false
	}
	return g.Harmonics.Freq, true
}

// String formats the harmonic series.
func (g Additive) String() string {
	if g.Harmonics == nil {
		return "additive(empty)"
	}
	return "additive " + g.Harmonics.String()
}
