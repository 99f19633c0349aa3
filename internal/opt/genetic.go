package opt

import (
	"context"
	"fmt"
	"math/rand"
	"slices"

	"github.com/cwbudde/synthfit/internal/fit"
	"github.com/cwbudde/synthfit/internal/telemetry"
)

// PopulationEvolution selects how many survivors each generation keeps.
type PopulationEvolution int

const (
	// Constant keeps half the initial population size every generation.
	Constant PopulationEvolution = iota
	// Increasing keeps half of the current pool, so the population grows
	// by roughly the number of immigrants per generation.
	Increasing
)

func (e PopulationEvolution) String() string {
	switch e {
	case Constant:
		return "constant"
	case Increasing:
		return "increasing"
	default:
		return fmt.Sprintf("PopulationEvolution(%d)", int(e))
	}
}

// ParsePopulationEvolution accepts "constant" and "increasing".
func ParsePopulationEvolution(s string) (PopulationEvolution, error) {
	switch s {
	case "", "constant":
		return Constant, nil
	case "increasing":
		return Increasing, nil
	default:
		return 0, fmt.Errorf("unknown population evolution %q", s)
	}
}

// GeneticConfig holds the build-time settings of a genetic run.
type GeneticConfig struct {
	InitialPopulation int
	RandomAdditions   int
	MutationRate      float64
	MaxGenerations    int
	Evolution         PopulationEvolution
	Workers           int // 0 uses GOMAXPROCS
	Seed              int64
	Convergence       fit.ConvergenceConfig
}

// DefaultGeneticConfig returns the defaults used by the ga command.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		InitialPopulation: 100,
		RandomAdditions:   5,
		MutationRate:      0.05,
		MaxGenerations:    1000,
		Evolution:         Constant,
		Convergence:       fit.DisabledConvergenceConfig(),
	}
}

func (c GeneticConfig) validate() error {
	if c.InitialPopulation < 2 {
		return fmt.Errorf("%w: initial population must be at least 2, got %d", ErrInvalidConfig, c.InitialPopulation)
	}
	if c.RandomAdditions < 0 {
		return fmt.Errorf("%w: random additions must not be negative, got %d", ErrInvalidConfig, c.RandomAdditions)
	}
	if c.MaxGenerations < 0 {
		return fmt.Errorf("%w: max generations must not be negative, got %d", ErrInvalidConfig, c.MaxGenerations)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("%w: mutation rate must be in [0, 1], got %g", ErrInvalidConfig, c.MutationRate)
	}
	return nil
}

// Genetic evolves a population of individuals by selection, immigration
// and pairwise crossover.
type Genetic struct {
	gen  fit.Generator
	cfg  GeneticConfig
	opts options
	rng  *rand.Rand

	population  []fit.Individual
	generation  int
	offspring   int
	fundamental float64
}

// GeneticResult is the outcome of Genetic.Run.
type GeneticResult struct {
	Best        fit.Individual
	Generations int
	Reason      Reason
}

// NewGenetic validates cfg and scores the initial population.
func NewGenetic(gen fit.Generator, cfg GeneticConfig, opts ...Option) (*Genetic, error) {
	if err := checkGenerator(gen); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	g := &Genetic{
		gen:  gen,
		cfg:  cfg,
		opts: buildOptions(opts),
		rng:  newRand(cfg.Seed),
	}

	pop, err := g.generate(cfg.InitialPopulation)
	if err != nil {
		return nil, fmt.Errorf("initial population: %w", err)
	}
	fit.SortDescending(pop)
	g.population = pop
	return g, nil
}

func (g *Genetic) generate(n int) ([]fit.Individual, error) {
	return fanOut(g.cfg.Workers, g.rng, n, func(_ int, rng *rand.Rand) (fit.Individual, error) {
		return g.gen.Generate(rng)
	})
}

// Population returns a copy of the current population, fittest first.
func (g *Genetic) Population() []fit.Individual {
	return slices.Clone(g.population)
}

// Generation returns the number of completed steps.
func (g *Genetic) Generation() int { return g.generation }

// Offspring returns the number of children produced by the last step.
func (g *Genetic) Offspring() int { return g.offspring }

// Fittest returns the best individual of the current population.
func (g *Genetic) Fittest() fit.Individual {
	return g.population[0]
}

// Step computes the next generation.
func (g *Genetic) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	immigrants, err := g.generate(g.cfg.RandomAdditions)
	if err != nil {
		return fmt.Errorf("generation %d immigrants: %w", g.generation, err)
	}
	current := append(slices.Clone(g.population), immigrants...)
	fit.SortDescending(current)

	var selected int
	switch g.cfg.Evolution {
	case Increasing:
		selected = len(current) / 2
	default:
		selected = g.cfg.InitialPopulation / 2
	}
	selected = min(selected, len(current))
	survivors := slices.Clone(current[:selected])

	var offspring []fit.Individual
	for pass := 0; pass < 2; pass++ {
		g.rng.Shuffle(len(survivors), func(i, j int) {
			survivors[i], survivors[j] = survivors[j], survivors[i]
		})
		pairs := len(survivors) / 2
		children, err := fanOut(g.cfg.Workers, g.rng, pairs, func(i int, rng *rand.Rand) (fit.Individual, error) {
			return survivors[2*i].Crossover(survivors[2*i+1], g.cfg.MutationRate, rng)
		})
		if err != nil {
			return fmt.Errorf("generation %d crossover: %w", g.generation, err)
		}
		offspring = append(offspring, children...)
	}

	g.offspring = len(offspring)
	next := append(survivors, offspring...)
	if len(next) == 0 {
		return fmt.Errorf("generation %d: population died out", g.generation)
	}
	fit.SortDescending(next)
	g.population = next

	fittest := g.population[0]
	g.fundamental = fundamentalOf(fittest)
	if g.generation%10 == 0 {
		g.opts.logger.Info("Generation complete",
			"generation", g.generation,
			"population", len(g.population),
			"offspring", g.offspring,
			"best_fitness", fittest.Fitness(),
			"best", fittest.String(),
		)
	}
	g.generation++
	return nil
}

// Run steps until MaxGenerations is reached, the convergence tracker stops
// the run or ctx is cancelled. One telemetry record is emitted before the
// first step and one after every step.
func (g *Genetic) Run(ctx context.Context) (GeneticResult, error) {
	tracker := fit.NewConvergenceTracker(g.cfg.Convergence)

	if err := g.record(ctx); err != nil {
		return GeneticResult{}, err
	}

	reason := MaxGenerations
	for g.generation < g.cfg.MaxGenerations {
		if err := ctx.Err(); err != nil {
			g.opts.logger.Warn("Genetic run cancelled", "generation", g.generation)
			return g.result(Cancelled), err
		}
		if err := g.Step(ctx); err != nil {
			return g.result(""), err
		}
		if err := g.record(ctx); err != nil {
			return g.result(""), err
		}
		if tracker.Update(g.Fittest().Fitness()) {
			g.opts.logger.Info("Fitness converged",
				"generation", g.generation,
				"best_fitness", tracker.Best(),
				"stale", tracker.StaleCount(),
			)
			reason = Converged
			break
		}
	}

	best := g.Fittest()
	g.opts.logger.Info("Genetic run finished",
		"generations", g.generation,
		"reason", reason,
		"best_fitness", best.Fitness(),
		"best", best.String(),
	)
	if err := export(g.opts, best); err != nil {
		return g.result(reason), fmt.Errorf("export: %w", err)
	}
	return g.result(reason), nil
}

// Optimize implements Optimizer.
func (g *Genetic) Optimize(ctx context.Context) (Outcome, error) {
	res, err := g.Run(ctx)
	return Outcome{Best: res.Best, Steps: res.Generations, Reason: res.Reason}, err
}

func (g *Genetic) result(reason Reason) GeneticResult {
	return GeneticResult{Best: g.Fittest(), Generations: g.generation, Reason: reason}
}

func (g *Genetic) record(ctx context.Context) error {
	if g.opts.sink == nil {
		return nil
	}
	maxF, mean, std := telemetry.Summarize(fit.Fitnesses(g.population))
	err := g.opts.sink.RecordGeneration(ctx, telemetry.GenerationRecord{
		Generation:  g.generation,
		Offspring:   g.offspring,
		Fundamental: g.fundamental,
		MaxFitness:  maxF,
		MeanFitness: mean,
		StdDev:      std,
	})
	if err != nil {
		return fmt.Errorf("record generation %d: %w", g.generation, err)
	}
	return nil
}
