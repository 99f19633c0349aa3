package fit

import (
	"log/slog"
	"math"
)

// ConvergenceConfig defines parameters for detecting that a search has stalled
type ConvergenceConfig struct {
	// Enabled controls whether convergence detection is active
	Enabled bool

	// Patience is the number of consecutive generations without a significant
	// improvement of the best fitness before stopping
	Patience int

	// Threshold is the minimum relative improvement required to count as progress
	// Example: 0.001 = 0.1% improvement required
	// Relative improvement = (newFitness - oldFitness) / oldFitness
	Threshold float64
}

// DefaultConvergenceConfig returns sensible defaults for convergence detection
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  50,
		Threshold: 0.0001,
	}
}

// DisabledConvergenceConfig returns a config with convergence detection disabled
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled: false,
	}
}

// ConvergenceTracker follows the best fitness and detects when a search has converged
type ConvergenceTracker struct {
	config          ConvergenceConfig
	updates         int
	best            float64 // Best fitness ever seen
	lastSignificant float64 // Last fitness that was a significant improvement
	staleCount      int     // Number of updates without significant improvement
}

// NewConvergenceTracker creates a new convergence tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		best:            math.Inf(-1),
		lastSignificant: math.Inf(-1),
	}
}

// Update records a new best fitness and returns true if convergence is detected
func (c *ConvergenceTracker) Update(fitness float64) bool {
	if !c.config.Enabled {
		return false
	}

	c.updates++

	if fitness > c.best {
		c.best = fitness
	}

	if c.updates == 1 {
		c.lastSignificant = fitness
		return false
	}

	improvement := relativeImprovement(c.lastSignificant, fitness)

	if improvement >= c.config.Threshold {
		c.lastSignificant = fitness
		c.staleCount = 0
		slog.Debug("Fitness improvement detected",
			"fitness", fitness,
			"relative_improvement", improvement,
		)
		return false
	}

	c.staleCount++
	if c.staleCount >= c.config.Patience {
		slog.Info("Convergence detected - stopping early",
			"stale_count", c.staleCount,
			"patience", c.config.Patience,
			"best_fitness", c.best,
		)
		return true
	}

	return false
}

func relativeImprovement(old, current float64) float64 {
	if old <= 0 {
		if current > old {
			return math.Inf(1)
		}
		return 0
	}
	return (current - old) / old
}

// Best returns the best fitness seen so far
func (c *ConvergenceTracker) Best() float64 {
	return c.best
}

// StaleCount returns the current number of updates without improvement
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}
