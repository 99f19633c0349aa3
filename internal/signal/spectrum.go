package signal

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrInvalidSpectrum is returned when a magnitude spectrum cannot be computed.
var ErrInvalidSpectrum = errors.New("invalid spectrum")

// fourier.FFT keeps work buffers and is not safe for concurrent use.
var fftPool = sync.Pool{
	New: func() any {
		return fourier.NewFFT(AnalysisLength)
	},
}

// Spectrum computes the magnitude spectrum over all bins 0..N/2 of the
// normalized signal, then subtracts the smallest magnitude from every bin.
func Spectrum(s Signal) ([]float64, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: empty signal", ErrInvalidSpectrum)
	}
	if !s.Finite() {
		return nil, fmt.Errorf("%w: signal contains non-finite samples", ErrInvalidSpectrum)
	}

	seq := s.Normalize().Float64()

	fft := fftPool.Get().(*fourier.FFT)
	coeffs := fft.Coefficients(nil, seq)
	fftPool.Put(fft)

	mags := make([]float64, len(coeffs))
	floor := math.Inf(1)
	for i, c := range coeffs {
		mags[i] = cmplx.Abs(c)
		if mags[i] < floor {
			floor = mags[i]
		}
	}
	for i := range mags {
		mags[i] -= floor
	}

	return mags, nil
}

// SpectrumMSE is the mean squared difference between two magnitude spectra.
// Only the overlapping bin range is compared; both spectra come from the same
// analysis length so in practice they always line up bin for bin.
func SpectrumMSE(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum / float64(n)
}

// FrequencyMSE normalizes both signals, computes their spectra and returns
// the mean squared error between them.
func FrequencyMSE(a, b Signal) (float64, error) {
	sa, err := Spectrum(a)
	if err != nil {
		return 0, err
	}
	sb, err := Spectrum(b)
	if err != nil {
		return 0, err
	}
	return SpectrumMSE(sa, sb), nil
}
