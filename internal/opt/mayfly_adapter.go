package opt

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/synthfit/internal/fit"
	"github.com/cwbudde/synthfit/internal/telemetry"
)

// MayflyConfig configures the swarm search. PopSize must be at least 20
// for mayfly v0.1.0.
type MayflyConfig struct {
	MaxIterations int
	PopSize       int
	Seed          int64
}

// DefaultMayflyConfig returns the smallest swarm mayfly v0.1.0 accepts.
func DefaultMayflyConfig() MayflyConfig {
	return MayflyConfig{
		MaxIterations: 200,
		PopSize:       20,
	}
}

// Mayfly searches the generator's normalized parameter space with the
// external Mayfly library. Positions in the unit hypercube are decoded into
// genomes and scored; the minimized cost is MaxFitness - fitness.
type Mayfly struct {
	gen  fit.Generator
	cfg  MayflyConfig
	opts options
	seed int64
}

// MayflyResult is the outcome of Mayfly.Run.
type MayflyResult struct {
	Best        fit.Individual
	Evaluations int
	Reason      Reason
}

// NewMayfly validates cfg. The swarm is built when Run is called.
func NewMayfly(gen fit.Generator, cfg MayflyConfig, opts ...Option) (*Mayfly, error) {
	if err := checkGenerator(gen); err != nil {
		return nil, err
	}
	if cfg.MaxIterations <= 0 || cfg.PopSize <= 0 {
		return nil, fmt.Errorf("%w: mayfly needs positive iterations and population, got %d/%d",
			ErrInvalidConfig, cfg.MaxIterations, cfg.PopSize)
	}
	if gen.Dim() == 0 {
		return nil, fmt.Errorf("%w: generator has no genes enabled", ErrInvalidConfig)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Mayfly{gen: gen, cfg: cfg, opts: buildOptions(opts), seed: seed}, nil
}

// mayflySearch holds the state shared by objective evaluations.
type mayflySearch struct {
	ctx  context.Context
	gen  fit.Generator
	sink telemetry.Sink

	mu    sync.Mutex
	evals int
	best  fit.Individual
	found bool
	err   error
}

func (s *mayflySearch) evaluate(pos []float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return fit.MaxFitness
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return fit.MaxFitness
	}

	ind, err := fit.NewIndividual(s.gen.Decode(pos), s.gen.Target(), s.gen.Metric())
	if err != nil {
		s.err = fmt.Errorf("evaluation %d: %w", s.evals, err)
		return fit.MaxFitness
	}

	if !s.found || ind.Fitness() > s.best.Fitness() {
		s.best = ind
		s.found = true
		if s.sink != nil {
			err := s.sink.RecordIteration(s.ctx, telemetry.IterationRecord{
				Iteration:   s.evals,
				Fitness:     ind.Fitness(),
				Fundamental: fundamentalOf(ind),
			})
			if err != nil {
				s.err = fmt.Errorf("record evaluation %d: %w", s.evals, err)
			}
		}
	}
	s.evals++
	return fit.MaxFitness - ind.Fitness()
}

// Run executes the Mayfly optimization using the external library
func (m *Mayfly) Run(ctx context.Context) (MayflyResult, error) {
	search := &mayflySearch{ctx: ctx, gen: m.gen, sink: m.opts.sink}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = search.evaluate
	config.ProblemSize = m.gen.Dim()
	config.MaxIterations = m.cfg.MaxIterations
	config.NPop = m.cfg.PopSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := runMayfly(config)

	res := MayflyResult{Best: search.best, Evaluations: search.evals, Reason: MaxIterations}
	if search.err != nil {
		if ctx.Err() != nil {
			m.opts.logger.Warn("Mayfly run cancelled", "evaluations", search.evals)
			res.Reason = Cancelled
			return res, ctx.Err()
		}
		return res, search.err
	}
	if err != nil {
		return res, err
	}

	// The reported global best is re-decoded so the returned individual
	// matches the library's view even if it never passed through evaluate.
	if best, err := fit.NewIndividual(m.gen.Decode(result.GlobalBest.Position), m.gen.Target(), m.gen.Metric()); err == nil {
		if !search.found || best.Fitness() > search.best.Fitness() {
			res.Best = best
		}
	}
	if !search.found && res.Best.Genome() == nil {
		return res, fmt.Errorf("mayfly produced no evaluations")
	}

	m.opts.logger.Info("Mayfly run finished",
		"evaluations", res.Evaluations,
		"best_cost", result.GlobalBest.Cost,
		"fitness", res.Best.Fitness(),
		"best", res.Best.String(),
	)
	if err := export(m.opts, res.Best); err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	return res, nil
}

// Optimize implements Optimizer.
func (m *Mayfly) Optimize(ctx context.Context) (Outcome, error) {
	res, err := m.Run(ctx)
	return Outcome{Best: res.Best, Steps: res.Evaluations, Reason: res.Reason}, err
}

// runMayfly converts library panics into errors.
func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}
