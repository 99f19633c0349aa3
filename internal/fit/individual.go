package fit

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"

	"github.com/cwbudde/synthfit/internal/signal"
)

// Individual is a genome together with its score. It is built once by
// NewIndividual and never changes, so it can be shared between goroutines.
type Individual struct {
	genome  Genome
	target  *Target
	metric  FitnessType
	fitness float64
}

// NewIndividual renders and scores g. Invalid genomes and renders containing
// non-finite samples score MinFitness; a spectrum failure is returned.
func NewIndividual(g Genome, target *Target, metric FitnessType) (Individual, error) {
	if target == nil {
		return Individual{}, ErrNoTarget
	}
	f, err := evaluate(g, target, metric)
	if err != nil {
		return Individual{}, err
	}
	return Individual{genome: g, target: target, metric: metric, fitness: f}, nil
}

func evaluate(g Genome, target *Target, metric FitnessType) (float64, error) {
	if g == nil || !g.Valid() {
		return MinFitness, nil
	}
	s := g.Render()
	if !s.Finite() {
		return MinFitness, nil
	}
	return target.Score(s, metric)
}

func (ind Individual) Genome() Genome      { return ind.genome }
func (ind Individual) Target() *Target     { return ind.target }
func (ind Individual) Metric() FitnessType { return ind.metric }
func (ind Individual) Fitness() float64    { return ind.fitness }

// Fundamental returns the genome's reported frequency, if any.
func (ind Individual) Fundamental() (float64, bool) {
	if ind.genome == nil {
		return 0, false
	}
	return ind.genome.Fundamental()
}

// Render synthesizes the genome.
func (ind Individual) Render() signal.Signal {
	if ind.genome == nil {
		return signal.Silence(signal.Duration, signal.SampleRate)
	}
	return ind.genome.Render()
}

// Crossover always produces an offspring; genes that cannot be combined are
// dropped from it.
func (ind Individual) Crossover(other Individual, rate float64, rng *rand.Rand) (Individual, error) {
	child := ind.genome.Crossover(other.genome, rate, rng)
	return NewIndividual(child, ind.target, ind.metric)
}

// Evolve returns a scored neighbour of ind.
func (ind Individual) Evolve(step float64, rng *rand.Rand) (Individual, error) {
	return NewIndividual(ind.genome.Evolve(step, rng), ind.target, ind.metric)
}

func (ind Individual) String() string {
	return fmt.Sprintf("fitness=%.6f %v", ind.fitness, ind.genome)
}

// Compare orders individuals by fitness only.
func Compare(a, b Individual) int {
	return cmp.Compare(a.fitness, b.fitness)
}

// SortDescending sorts pop fittest first.
func SortDescending(pop []Individual) {
	slices.SortStableFunc(pop, func(a, b Individual) int {
		return Compare(b, a)
	})
}

// Fitnesses extracts the scores of pop in order.
func Fitnesses(pop []Individual) []float64 {
	out := make([]float64, len(pop))
	for i, ind := range pop {
		out[i] = ind.fitness
	}
	return out
}
