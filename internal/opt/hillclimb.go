package opt

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/cwbudde/synthfit/internal/fit"
	"github.com/cwbudde/synthfit/internal/telemetry"
)

// stepGrowth divides the step size after every accepted move.
const stepGrowth = 0.95

// HillClimbConfig holds the budgets and step sizes of a hill climb.
type HillClimbConfig struct {
	InitStepSize  float64
	MinStepSize   float64
	MaxIterations int
	MaxFailures   int // consecutive rejected candidates
	Seed          int64
}

// DefaultHillClimbConfig returns the defaults used by the climb command.
func DefaultHillClimbConfig() HillClimbConfig {
	return HillClimbConfig{
		InitStepSize:  1.0,
		MinStepSize:   0.0001,
		MaxIterations: 3000,
		MaxFailures:   5000,
	}
}

func (c HillClimbConfig) validate() error {
	if c.MaxIterations < 0 || c.MaxFailures < 0 {
		return fmt.Errorf("%w: iteration budgets must not be negative", ErrInvalidConfig)
	}
	if c.InitStepSize <= 0 {
		return fmt.Errorf("%w: initial step size must be positive, got %g", ErrInvalidConfig, c.InitStepSize)
	}
	return nil
}

// HillClimb perturbs a single individual and keeps strictly fitter
// neighbours.
type HillClimb struct {
	cfg  HillClimbConfig
	opts options
	rng  *rand.Rand

	current     fit.Individual
	iteration   int
	stepSize    float64
	failures    int
	fundamental float64
}

// HillClimbResult is the outcome of HillClimb.Run.
type HillClimbResult struct {
	Best       fit.Individual
	Iterations int
	StepSize   float64
	Reason     Reason
}

// NewHillClimb validates cfg and draws the starting individual.
func NewHillClimb(gen fit.Generator, cfg HillClimbConfig, opts ...Option) (*HillClimb, error) {
	if err := checkGenerator(gen); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	h := &HillClimb{
		cfg:      cfg,
		opts:     buildOptions(opts),
		rng:      newRand(cfg.Seed),
		stepSize: cfg.InitStepSize,
	}
	start, err := gen.Generate(h.rng)
	if err != nil {
		return nil, fmt.Errorf("initial individual: %w", err)
	}
	h.current = start
	return h, nil
}

// Current returns the individual being climbed from.
func (h *HillClimb) Current() fit.Individual { return h.current }
func (h *HillClimb) StepSize() float64       { return h.stepSize }
func (h *HillClimb) Iteration() int          { return h.iteration }

// done reports the termination reason, if any, in priority order.
func (h *HillClimb) done() (Reason, bool) {
	switch {
	case h.iteration >= h.cfg.MaxIterations:
		return MaxIterations, true
	case h.stepSize < h.cfg.MinStepSize:
		return StepSizeBelowMinimum, true
	case h.failures >= h.cfg.MaxFailures:
		return TooManyFailures, true
	}
	return "", false
}

// Step proposes one neighbour and reports whether it was accepted.
func (h *HillClimb) Step(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	candidate, err := h.current.Evolve(h.stepSize, h.rng)
	if err != nil {
		return false, fmt.Errorf("iteration %d: %w", h.iteration, err)
	}

	accepted := candidate.Fitness() > h.current.Fitness()
	if accepted {
		h.current = candidate
		h.stepSize /= stepGrowth
		h.failures = 0
		h.fundamental = fundamentalOf(candidate)
		h.opts.logger.Debug("Accepted candidate",
			"iteration", h.iteration,
			"fitness", candidate.Fitness(),
			"step_size", h.stepSize,
		)
	} else {
		h.failures++
	}
	h.iteration++
	return accepted, nil
}

// Run climbs until a budget is exhausted or ctx is cancelled.
func (h *HillClimb) Run(ctx context.Context) (HillClimbResult, error) {
	var reason Reason
	for {
		var stop bool
		if reason, stop = h.done(); stop {
			break
		}
		if err := ctx.Err(); err != nil {
			h.opts.logger.Warn("Hill climb cancelled", "iteration", h.iteration)
			return h.result(Cancelled), err
		}
		if err := h.record(ctx); err != nil {
			return h.result(""), err
		}
		if _, err := h.Step(ctx); err != nil {
			return h.result(""), err
		}
	}

	h.opts.logger.Info("Hill climb finished",
		"iterations", h.iteration,
		"reason", reason,
		"step_size", h.stepSize,
		"fitness", h.current.Fitness(),
		"best", h.current.String(),
	)
	if err := export(h.opts, h.current); err != nil {
		return h.result(reason), fmt.Errorf("export: %w", err)
	}
	return h.result(reason), nil
}

// Optimize implements Optimizer.
func (h *HillClimb) Optimize(ctx context.Context) (Outcome, error) {
	res, err := h.Run(ctx)
	return Outcome{Best: res.Best, Steps: res.Iterations, Reason: res.Reason}, err
}

func (h *HillClimb) result(reason Reason) HillClimbResult {
	return HillClimbResult{
		Best:       h.current,
		Iterations: h.iteration,
		StepSize:   h.stepSize,
		Reason:     reason,
	}
}

func (h *HillClimb) record(ctx context.Context) error {
	if h.opts.sink == nil {
		return nil
	}
	err := h.opts.sink.RecordIteration(ctx, telemetry.IterationRecord{
		Iteration:   h.iteration,
		Fitness:     h.current.Fitness(),
		Fundamental: h.fundamental,
	})
	if err != nil {
		return fmt.Errorf("record iteration %d: %w", h.iteration, err)
	}
	return nil
}
