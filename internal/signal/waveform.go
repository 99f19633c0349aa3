package signal

import "math"

const twoPi = 2 * math.Pi

// Sine renders amplitude*sin(2π·freq·t + phase).
func Sine(freq, duration, sampleRate, amplitude, phase float64) Signal {
	out := Silence(duration, sampleRate)
	period := 1 / sampleRate
	for i := range out {
		out[i] = float32(amplitude * math.Sin(twoPi*freq*float64(i)*period+phase))
	}
	return out
}

// Square renders a ±amplitude square wave with a 50% duty cycle. The phase
// shifts the wave by phase/2π of a cycle.
func Square(freq, duration, sampleRate, amplitude, phase float64) Signal {
	out := Silence(duration, sampleRate)
	cycle := sampleRate / freq
	shift := cycle / twoPi * phase
	for i := range out {
		v := amplitude
		if math.Mod(float64(i)+shift, cycle) >= cycle/2 {
			v = -amplitude
		}
		out[i] = float32(v)
	}
	return out
}

// Saw renders a rising sawtooth in [-amplitude, amplitude).
func Saw(freq, duration, sampleRate, amplitude, phase float64) Signal {
	out := Silence(duration, sampleRate)
	period := 1 / sampleRate
	shift := sampleRate / (freq * twoPi) * phase
	for i := range out {
		t := (float64(i) + shift) * period
		v := freq*math.Mod(t, 1/freq)*2 - 1
		out[i] = float32(amplitude * v)
	}
	return out
}

// Partial is one sine component of a harmonic series.
type Partial struct {
	Freq      float64
	Amplitude float64
}

// Harmonics pairs the i-th amplitude with frequency freq·(i+1).
func Harmonics(freq float64, amplitudes []float64) []Partial {
	partials := make([]Partial, len(amplitudes))
	for i, a := range amplitudes {
		partials[i] = Partial{Freq: freq * float64(i+1), Amplitude: a}
	}
	return partials
}

// ApplyHarmonics adds one zero-phase sine per partial to s.
func (s Signal) ApplyHarmonics(freq float64, amplitudes []float64) Signal {
	out := FromSamples(s)
	period := 1.0 / SampleRate
	for _, p := range Harmonics(freq, amplitudes) {
		for i := range out {
			out[i] += float32(p.Amplitude * math.Sin(twoPi*p.Freq*float64(i)*period))
		}
	}
	return out
}
