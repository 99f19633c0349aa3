package fit

import "math/rand"

// Generator produces random individuals for one target, metric and gene
// layout. Generators are immutable once built and safe for concurrent use.
type Generator interface {
	// Generate draws a random genome and scores it.
	Generate(rng *rand.Rand) (Individual, error)
	Target() *Target
	Metric() FitnessType
	// Dim is the length of the normalized vector encoding of the layout.
	Dim() int
	// Decode builds a genome from a position in the unit hypercube.
	Decode(pos []float64) Genome
}

// SubtractiveGenerator builds Subtractive genomes. Configure it with the
// chained methods; each returns a modified copy.
type SubtractiveGenerator struct {
	target     *Target
	metric     FitnessType
	oscillator bool
	envelope   bool
	filter     bool
	filterKind FilterKind
}

// NewSubtractiveGenerator returns a generator with no genes enabled.
func NewSubtractiveGenerator(target *Target, metric FitnessType) SubtractiveGenerator {
	return SubtractiveGenerator{target: target, metric: metric}
}

// Oscillator adds an oscillator gene to the layout.
func (g SubtractiveGenerator) Oscillator() SubtractiveGenerator {
	g.oscillator = true
	return g
}

// Envelope adds an ADSR envelope gene to the layout.
func (g SubtractiveGenerator) Envelope() SubtractiveGenerator {
	g.envelope = true
	return g
}

// Filter adds a filter gene of the given kind to the layout.
func (g SubtractiveGenerator) Filter(kind FilterKind) SubtractiveGenerator {
	g.filter = true
	g.filterKind = kind
	return g
}

func (g SubtractiveGenerator) Target() *Target     { return g.target }
func (g SubtractiveGenerator) Metric() FitnessType { return g.metric }

// Random draws a genome without scoring it.
func (g SubtractiveGenerator) Random(rng *rand.Rand) Subtractive {
	var genome Subtractive
	if g.oscillator {
		o := NewOscillator(rng)
		genome.Oscillator = &o
	}
	if g.envelope {
		e := NewEnvelope(rng)
		genome.Envelope = &e
	}
	if g.filter {
		f := NewFilter(g.filterKind, rng)
		genome.Filter = &f
	}
	return genome
}

func (g SubtractiveGenerator) Generate(rng *rand.Rand) (Individual, error) {
	return NewIndividual(g.Random(rng), g.target, g.metric)
}

func (g SubtractiveGenerator) Dim() int {
	n := 0
	if g.oscillator {
		n += len(oscillatorBounds)
	}
	if g.envelope {
		n += len(envelopeBounds)
	}
	if g.filter {
		n += len(g.filterKind.bounds())
	}
	return n
}

func (g SubtractiveGenerator) Decode(pos []float64) Genome {
	var genome Subtractive
	off := 0
	if g.oscillator {
		o := oscillatorFrom(oscillatorBounds.Denormalize(pos[off:]))
		genome.Oscillator = &o
		off += len(oscillatorBounds)
	}
	if g.envelope {
		e := envelopeFrom(envelopeBounds.Denormalize(pos[off:]))
		genome.Envelope = &e
		off += len(envelopeBounds)
	}
	if g.filter {
		f := filterFrom(g.filterKind, g.filterKind.bounds().Denormalize(pos[off:]))
		genome.Filter = &f
	}
	return genome
}

// AdditiveGenerator builds Additive genomes.
type AdditiveGenerator struct {
	target    *Target
	metric    FitnessType
	harmonics bool
}

// NewAdditiveGenerator returns a generator with no genes enabled.
func NewAdditiveGenerator(target *Target, metric FitnessType) AdditiveGenerator {
	return AdditiveGenerator{target: target, metric: metric}
}

// Harmonics enables the harmonic series gene.
func (g AdditiveGenerator) Harmonics() AdditiveGenerator {
	g.harmonics = true
	return g
}

func (g AdditiveGenerator) Target() *Target     { return g.target }
func (g AdditiveGenerator) Metric() FitnessType { return g.metric }

// Random draws an unscored additive genome.
func (g AdditiveGenerator) Random(rng *rand.Rand) Additive {
	if !g.harmonics {
		return Additive{}
	}
	h := NewHarmonicSeries(rng)
	return Additive{Harmonics: &h}
}

func (g AdditiveGenerator) Generate(rng *rand.Rand) (Individual, error) {
	return NewIndividual(g.Random(rng), g.target, g.metric)
}

func (g AdditiveGenerator) Dim() int {
	if !g.harmonics {
		return 0
	}
	return harmonicsCount + 1
}

func (g AdditiveGenerator) Decode(pos []float64) Genome {
	if !g.harmonics {
		return Additive{}
	}
	h := harmonicsFrom(seriesBounds(harmonicsCount).Denormalize(pos))
	return Additive{Harmonics: &h}
}
