package signal

import "math"

const (
	// SampleRate is the rate every rendered and target signal is assumed to use.
	SampleRate = 44100

	// Duration is the length in seconds of every rendered candidate.
	Duration = 3.0

	// AnalysisLength is the fixed number of samples fed to the spectrum transform.
	AnalysisLength = 16384
)

// Nyquist returns half the sample rate. No rendered partial may reach it.
func Nyquist() float64 {
	return SampleRate / 2.0
}

// Signal is an ordered sequence of amplitude samples at SampleRate.
// Operations never modify the receiver; they return new signals.
type Signal []float32

// Silence creates a zero signal lasting duration seconds at sampleRate.
func Silence(duration, sampleRate float64) Signal {
	n := int(duration * sampleRate)
	if n < 0 {
		n = 0
	}
	return make(Signal, n)
}

// FromSamples copies samples into a new signal.
func FromSamples(samples []float32) Signal {
	out := make(Signal, len(samples))
	copy(out, samples)
	return out
}

// Len returns the number of samples.
func (s Signal) Len() int {
	return len(s)
}

// Add sums two signals elementwise over the shorter length.
func (s Signal) Add(other Signal) Signal {
	n := min(len(s), len(other))
	out := make(Signal, n)
	for i := 0; i < n; i++ {
		out[i] = s[i] + other[i]
	}
	return out
}

// Scale multiplies every sample by factor.
func (s Signal) Scale(factor float32) Signal {
	out := make(Signal, len(s))
	for i, v := range s {
		out[i] = v * factor
	}
	return out
}

// Normalize truncates or zero-pads the signal to exactly AnalysisLength samples.
// Normalizing an already normalized signal returns an equal signal.
func (s Signal) Normalize() Signal {
	out := make(Signal, AnalysisLength)
	copy(out, s)
	return out
}

// Equal reports whether both signals hold the same samples.
func (s Signal) Equal(other Signal) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Finite reports whether every sample is a real number.
func (s Signal) Finite() bool {
	for _, v := range s {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Float64 widens the samples for numeric routines that work in float64.
func (s Signal) Float64() []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

// EuclideanDistance computes the distance between two raw sample sequences,
// pairing samples over the shorter length.
func EuclideanDistance(a, b Signal) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
