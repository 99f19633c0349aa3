package fit

import (
	"math"
	"math/rand"
)

// Range is the legal interval [Min, Max) of one genome parameter.
type Range struct {
	Min, Max float64
}

// Width returns Max - Min.
func (r Range) Width() float64 {
	return r.Max - r.Min
}

// Random draws a value uniformly from the range.
func (r Range) Random(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*r.Width()
}

// Clamp limits v to [Min, Max].
func (r Range) Clamp(v float64) float64 {
	return clamp(v, r.Min, r.Max)
}

// Blend combines two parent values. With probability rate the result is a
// fresh random value (mutation); otherwise it is β·a + (1-β)·b for a uniformly
// drawn β.
func (r Range) Blend(rng *rand.Rand, a, b, rate float64) float64 {
	beta := rng.Float64()
	if rng.Float64() < rate {
		return r.Random(rng)
	}
	return beta*a + (1-beta)*b
}

// Evolve draws a value uniformly from a window of width step·Width() centred
// on v and clipped to the range.
func (r Range) Evolve(rng *rand.Rand, v, step float64) float64 {
	dist := r.Width() * step / 2
	lo := r.Clamp(v - dist)
	hi := r.Clamp(v + dist)
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}

// Denormalize maps x in [0,1] back onto the range.
func (r Range) Denormalize(x float64) float64 {
	return r.Min + clamp(x, 0, 1)*r.Width()
}

// Bounds is a flat parameter layout, one Range per dimension.
type Bounds []Range

// Random draws every parameter independently.
func (b Bounds) Random(rng *rand.Rand) []float64 {
	out := make([]float64, len(b))
	for i, r := range b {
		out[i] = r.Random(rng)
	}
	return out
}

// Blend combines two parameter vectors gene by gene.
func (b Bounds) Blend(rng *rand.Rand, x, y []float64, rate float64) []float64 {
	out := make([]float64, len(b))
	for i, r := range b {
		out[i] = r.Blend(rng, x[i], y[i], rate)
	}
	return out
}

// Evolve moves every parameter within its window.
func (b Bounds) Evolve(rng *rand.Rand, x []float64, step float64) []float64 {
	out := make([]float64, len(b))
	for i, r := range b {
		out[i] = r.Evolve(rng, x[i], step)
	}
	return out
}

// Denormalize decodes a unit-hypercube position.
func (b Bounds) Denormalize(pos []float64) []float64 {
	out := make([]float64, len(b))
	for i, r := range b {
		out[i] = r.Denormalize(pos[i])
	}
	return out
}

func clamp(val, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, val))
}
