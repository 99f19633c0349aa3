package signal

import (
	"math"

	"github.com/mjibson/go-dsp/window"
)

// LowPassKernel builds a Blackman-windowed sinc FIR kernel with unit DC gain.
// band is the transition bandwidth as a fraction of the sample rate; the
// kernel length is ceil(4/band) rounded up to an even number.
func LowPassKernel(cutoff, band float64) []float64 {
	fc := cutoff / SampleRate

	n := int(math.Ceil(4 / band))
	if n%2 == 1 {
		n++
	}
	if n < 2 {
		n = 2
	}

	blackman := window.Blackman(n)
	kernel := make([]float64, n)
	var sum float64
	mid := float64(n-1) / 2
	for i := range kernel {
		kernel[i] = sinc(2*fc*(float64(i)-mid)) * blackman[i]
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// HighPassKernel is the spectral inversion of LowPassKernel.
func HighPassKernel(cutoff, band float64) []float64 {
	return SpectralInvert(LowPassKernel(cutoff, band))
}

// BandPassKernel passes low..high by cascading a low-pass at high with a
// high-pass at low.
func BandPassKernel(low, high, band float64) []float64 {
	return convolveFull(LowPassKernel(high, band), HighPassKernel(low, band))
}

// BandRejectKernel removes low..high by summing a low-pass at low with a
// high-pass at high.
func BandRejectKernel(low, high, band float64) []float64 {
	lp := LowPassKernel(low, band)
	hp := HighPassKernel(high, band)
	out := make([]float64, len(lp))
	for i := range out {
		out[i] = lp[i] + hp[i]
	}
	return out
}

// SpectralInvert negates a kernel and adds one at its centre tap, turning a
// low-pass into a high-pass. The kernel length must be even.
func SpectralInvert(kernel []float64) []float64 {
	out := make([]float64, len(kernel))
	for i, v := range kernel {
		out[i] = -v
	}
	out[len(kernel)/2] += 1
	return out
}

// Convolve filters s with kernel. The output has the same length as s and is
// aligned on the kernel centre.
func (s Signal) Convolve(kernel []float64) Signal {
	out := make(Signal, len(s))
	half := len(kernel) / 2
	for i := range out {
		var acc float64
		for j, h := range kernel {
			k := i + j - half
			if k < 0 || k >= len(s) {
				continue
			}
			acc += float64(s[k]) * h
		}
		out[i] = float32(acc)
	}
	return out
}

func convolveFull(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}
