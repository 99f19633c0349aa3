package fit

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/synthfit/internal/signal"
)

var (
	freqRange    = Range{Min: 20, Max: 10_000}
	ampRange     = Range{Min: 0, Max: 1}
	phaseRange   = Range{Min: 0, Max: 2 * math.Pi}
	attackRange  = Range{Min: 0, Max: 2000}
	decayRange   = Range{Min: 0, Max: 3000}
	sustainRange = Range{Min: 0, Max: 255}
	releaseRange = Range{Min: 0, Max: 5000}
)

const harmonicsCount = 9

// Oscillator sums a sine, a square and a saw wave at one frequency, each with
// its own amplitude and phase.
type Oscillator struct {
	Freq        float64
	SineAmp     float64
	SinePhase   float64
	SquareAmp   float64
	SquarePhase float64
	SawAmp      float64
	SawPhase    float64
}

var oscillatorBounds = Bounds{freqRange, ampRange, phaseRange, ampRange, phaseRange, ampRange, phaseRange}

// NewOscillator draws every parameter uniformly from its range.
func NewOscillator(rng *rand.Rand) Oscillator {
	return oscillatorFrom(oscillatorBounds.Random(rng))
}

// Combine blends two oscillators. It is always defined.
func (o Oscillator) Combine(other Oscillator, rate float64, rng *rand.Rand) (Oscillator, bool) {
	return oscillatorFrom(oscillatorBounds.Blend(rng, o.params(), other.params(), rate)), true
}

// Evolve moves each parameter within a window of step times its range.
func (o Oscillator) Evolve(step float64, rng *rand.Rand) Oscillator {
	return oscillatorFrom(oscillatorBounds.Evolve(rng, o.params(), step))
}

// Render produces Duration seconds of the summed waveforms.
func (o Oscillator) Render() signal.Signal {
	sine := signal.Sine(o.Freq, signal.Duration, signal.SampleRate, o.SineAmp, o.SinePhase)
	square := signal.Square(o.Freq, signal.Duration, signal.SampleRate, o.SquareAmp, o.SquarePhase)
	saw := signal.Saw(o.Freq, signal.Duration, signal.SampleRate, o.SawAmp, o.SawPhase)
	return sine.Add(square).Add(saw)
}

// String formats the oscillator parameters.
func (o Oscillator) String() string {
	return fmt.Sprintf("osc(%.1fHz sine=%.3f/%.2f square=%.3f/%.2f saw=%.3f/%.2f)",
		o.Freq, o.SineAmp, o.SinePhase, o.SquareAmp, o.SquarePhase, o.SawAmp, o.SawPhase)
}

func (o Oscillator) params() []float64 {
	return []float64{o.Freq, o.SineAmp, o.SinePhase, o.SquareAmp, o.SquarePhase, o.SawAmp, o.SawPhase}
}

func oscillatorFrom(p []float64) Oscillator {
	return Oscillator{
		Freq:        p[0],
		SineAmp:     p[1],
		SinePhase:   p[2],
		SquareAmp:   p[3],
		SquarePhase: p[4],
		SawAmp:      p[5],
		SawPhase:    p[6],
	}
}

// Envelope is a linear ADSR shape. Times are in milliseconds and Sustain is a
// level on a 0-255 scale.
type Envelope struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

var envelopeBounds = Bounds{attackRange, decayRange, sustainRange, releaseRange}

// NewEnvelope draws a random envelope.
func NewEnvelope(rng *rand.Rand) Envelope {
	return envelopeFrom(envelopeBounds.Random(rng))
}

// Combine blends both envelopes stage by stage.
func (e Envelope) Combine(other Envelope, rate float64, rng *rand.Rand) (Envelope, bool) {
	return envelopeFrom(envelopeBounds.Blend(rng, e.params(), other.params(), rate)), true
}

// Evolve perturbs every stage within a window of width step.
func (e Envelope) Evolve(step float64, rng *rand.Rand) Envelope {
	return envelopeFrom(envelopeBounds.Evolve(rng, e.params(), step))
}

// Apply shapes s with the envelope.
func (e Envelope) Apply(s signal.Signal) signal.Signal {
	return s.ApplyEnvelope(e.Attack, e.Decay, e.Sustain/sustainRange.Max, e.Release)
}

// String formats the ADSR stages.
func (e Envelope) String() string {
	return fmt.Sprintf("env(a=%.0fms d=%.0fms s=%.0f r=%.0fms)", e.Attack, e.Decay, e.Sustain, e.Release)
}

func (e Envelope) params() []float64 {
	return []float64{e.Attack, e.Decay, e.Sustain, e.Release}
}

func envelopeFrom(p []float64) Envelope {
	return Envelope{Attack: p[0], Decay: p[1], Sustain: p[2], Release: p[3]}
}

// HarmonicSeries is a fundamental plus the amplitudes of its first nine
// partials.
type HarmonicSeries struct {
	Freq       float64
	Amplitudes []float64
}

func seriesBounds(partials int) Bounds {
	b := Bounds{freqRange}
	for i := 0; i < partials; i++ {
		b = append(b, ampRange)
	}
	return b
}

// NewHarmonicSeries draws a random fundamental with random partial amplitudes.
func NewHarmonicSeries(rng *rand.Rand) HarmonicSeries {
	return harmonicsFrom(seriesBounds(harmonicsCount).Random(rng))
}

// Combine blends two series. It reports false when the partial counts differ.
func (h HarmonicSeries) Combine(other HarmonicSeries, rate float64, rng *rand.Rand) (HarmonicSeries, bool) {
	if len(h.Amplitudes) != len(other.Amplitudes) {
		return HarmonicSeries{}, false
	}
	return harmonicsFrom(h.bounds().Blend(rng, h.params(), other.params(), rate)), true
}

// Evolve perturbs the fundamental and every partial amplitude.
func (h HarmonicSeries) Evolve(step float64, rng *rand.Rand) HarmonicSeries {
	return harmonicsFrom(h.bounds().Evolve(rng, h.params(), step))
}

// Render adds the partials to Duration seconds of silence.
func (h HarmonicSeries) Render() signal.Signal {
	return signal.Silence(signal.Duration, signal.SampleRate).ApplyHarmonics(h.Freq, h.Amplitudes)
}

// Valid reports whether every partial stays below the Nyquist frequency.
func (h HarmonicSeries) Valid() bool {
	for i := 1; i <= len(h.Amplitudes); i++ {
		if h.Freq*float64(i) >= signal.Nyquist() {
			return false
		}
	}
	return true
}

// String formats the fundamental and the partial amplitudes.
func (h HarmonicSeries) String() string {
	return fmt.Sprintf("harmonics(%.1fHz %.3f)", h.Freq, h.Amplitudes)
}

func (h HarmonicSeries) bounds() Bounds {
	return seriesBounds(len(h.Amplitudes))
}

func (h HarmonicSeries) params() []float64 {
	p := make([]float64, 0, 1+len(h.Amplitudes))
	p = append(p, h.Freq)
	return append(p, h.Amplitudes...)
}

func harmonicsFrom(p []float64) HarmonicSeries {
	amps := make([]float64, len(p)-1)
	copy(amps, p[1:])
	return HarmonicSeries{Freq: p[0], Amplitudes: amps}
}
