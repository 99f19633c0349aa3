// Package opt contains the search strategies that drive individuals towards
// a target sound: a genetic algorithm, a hill climber and an adapter for the
// Mayfly swarm optimizer.
package opt

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/cwbudde/synthfit/internal/fit"
	"github.com/cwbudde/synthfit/internal/signal"
	"github.com/cwbudde/synthfit/internal/telemetry"
)

var (
	ErrMissingGenerator = errors.New("opt: generator is required")
	ErrMissingTarget    = errors.New("opt: generator has no target signal")
	ErrInvalidConfig    = errors.New("opt: invalid configuration")
)

// Reason explains why a run stopped.
type Reason string

const (
	MaxGenerations       Reason = "max_generations"
	Converged            Reason = "converged"
	MaxIterations        Reason = "max_iterations"
	StepSizeBelowMinimum Reason = "step_size_below_minimum"
	TooManyFailures      Reason = "too_many_failures"
	Cancelled            Reason = "cancelled"
)

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Optimize runs the search to completion and reports the best
	// individual, the number of steps taken and why the run stopped.
	// A cancelled context yields the best individual so far together
	// with the context error.
	Optimize(ctx context.Context) (Outcome, error)
}

// Outcome is the strategy-independent result of a run.
type Outcome struct {
	Best   fit.Individual
	Steps  int
	Reason Reason
}

// Exporter receives the rendered signal of the best individual when a run
// completes.
type Exporter interface {
	Export(s signal.Signal) error
}

// Option configures the collaborators of an optimizer.
type Option func(*options)

type options struct {
	sink     telemetry.Sink
	exporter Exporter
	logger   *slog.Logger
}

// WithSink records one telemetry record per step into sink.
func WithSink(sink telemetry.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithExporter exports the final best signal through e.
func WithExporter(e Exporter) Option {
	return func(o *options) { o.exporter = e }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

func checkGenerator(gen fit.Generator) error {
	if gen == nil {
		return ErrMissingGenerator
	}
	if gen.Target() == nil {
		return ErrMissingTarget
	}
	return nil
}

// newRand returns a source seeded with seed, or with a random seed when
// seed is zero.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = rand.Int63()
	}
	return rand.New(rand.NewSource(seed))
}

func workerCount(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// fanOut runs task for i in [0, n) on at most workers goroutines and
// collects the results by index. Every task gets its own source drawn from
// rng before any goroutine starts, so results only depend on rng's state.
func fanOut(workers int, rng *rand.Rand, n int, task func(i int, rng *rand.Rand) (fit.Individual, error)) ([]fit.Individual, error) {
	if n <= 0 {
		return nil, nil
	}
	rngs := make([]*rand.Rand, n)
	for i := range rngs {
		rngs[i] = rand.New(rand.NewSource(rng.Int63()))
	}

	out := make([]fit.Individual, n)
	p := pool.New().WithErrors().WithMaxGoroutines(workerCount(workers))
	for i := 0; i < n; i++ {
		p.Go(func() error {
			ind, err := task(i, rngs[i])
			if err != nil {
				return err
			}
			out[i] = ind
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func fundamentalOf(ind fit.Individual) float64 {
	f, _ := ind.Fundamental()
	return f
}

func export(o options, best fit.Individual) error {
	if o.exporter == nil {
		return nil
	}
	return o.exporter.Export(best.Render())
}
