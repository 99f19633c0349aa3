package signal

import (
	"math"
	"testing"
)

const waveTolerance = 1e-6

func assertSamples(t *testing.T, name string, got Signal, want []float64) {
	t.Helper()
	if len(got) < len(want) {
		t.Fatalf("%s: expected at least %d samples, got %d", name, len(want), len(got))
	}
	for i, w := range want {
		if math.Abs(float64(got[i])-w) > waveTolerance {
			t.Errorf("%s: sample %d = %f, expected %f", name, i, got[i], w)
		}
	}
}

func TestSine(t *testing.T) {
	s := Sine(1, 1, 4, 1, 0)
	if s.Len() != 4 {
		t.Fatalf("Expected 4 samples, got %d", s.Len())
	}
	assertSamples(t, "sine", s, []float64{0, 1, 0, -1})
}

func TestSquare(t *testing.T) {
	s := Square(1, 1, 4, 1, 0)
	assertSamples(t, "square", s, []float64{1, 1, -1, -1})
}

func TestSaw(t *testing.T) {
	s := Saw(1, 2, 4, 1, 0)
	if s.Len() != 8 {
		t.Fatalf("Expected 8 samples, got %d", s.Len())
	}
	assertSamples(t, "saw", s, []float64{-1, -0.5, 0, 0.5})
}

func TestSquarePhaseShift(t *testing.T) {
	// Half a cycle of phase flips the wave.
	s := Square(1, 1, 4, 1, math.Pi)
	assertSamples(t, "square shifted", s, []float64{-1, -1, 1, 1})
}

func TestHarmonics(t *testing.T) {
	pairs := Harmonics(440, []float64{0.1, 0.2, 0.4, 0.8})

	want := []Partial{
		{Freq: 440, Amplitude: 0.1},
		{Freq: 880, Amplitude: 0.2},
		{Freq: 1320, Amplitude: 0.4},
		{Freq: 1760, Amplitude: 0.8},
	}
	if len(pairs) != len(want) {
		t.Fatalf("Expected %d partials, got %d", len(want), len(pairs))
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("Partial %d = %+v, expected %+v", i, pairs[i], want[i])
		}
	}
}

func TestApplyHarmonicsKeepsLength(t *testing.T) {
	base := Silence(0.1, SampleRate)
	out := base.ApplyHarmonics(440, []float64{0.5, 0.25})

	if out.Len() != base.Len() {
		t.Fatalf("Expected %d samples, got %d", base.Len(), out.Len())
	}
	if out[0] != 0 {
		t.Errorf("Zero-phase partials should start at 0, got %f", out[0])
	}

	var energy float64
	for _, v := range out {
		energy += float64(v * v)
	}
	if energy == 0 {
		t.Error("Expected non-silent output")
	}
}
