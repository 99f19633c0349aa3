package store

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Optimizer names accepted in summaries.
const (
	OptimizerGenetic   = "ga"
	OptimizerHillClimb = "climb"
	OptimizerMayfly    = "mayfly"
)

// RunConfig is the configuration a run was started with.
type RunConfig struct {
	TargetPath  string   `json:"targetPath"`
	Method      string   `json:"method"` // subtractive, additive
	Metric      string   `json:"metric"` // freq, time
	Components  []string `json:"components,omitempty"`
	Seed        int64    `json:"seed"`
	Population  int      `json:"population,omitempty"`
	Additions   int      `json:"additions,omitempty"`
	Mutation    float64  `json:"mutation,omitempty"`
	Evolution   string   `json:"evolution,omitempty"`
	MaxSteps    int      `json:"maxSteps"`
	StepSize    float64  `json:"stepSize,omitempty"`
	MinStepSize float64  `json:"minStepSize,omitempty"`
	MaxFailures int      `json:"maxFailures,omitempty"`
}

// RunSummary is the persisted outcome of one optimization run. The best
// genome is stored in its printed form; runs are not resumable.
type RunSummary struct {
	RunID       string    `json:"runId"`
	Optimizer   string    `json:"optimizer"`
	BestFitness float64   `json:"bestFitness"`
	Fundamental float64   `json:"fundamental,omitempty"`
	Steps       int       `json:"steps"`
	Reason      string    `json:"reason"`
	Genome      string    `json:"genome"`
	Timestamp   time.Time `json:"timestamp"`
	Config      RunConfig `json:"config"`

	// Artifact file names relative to the run directory.
	Artifacts []string `json:"artifacts,omitempty"`
}

// RunInfo is the listing view of a summary.
type RunInfo struct {
	RunID       string    `json:"runId"`
	Optimizer   string    `json:"optimizer"`
	Method      string    `json:"method"`
	Metric      string    `json:"metric"`
	BestFitness float64   `json:"bestFitness"`
	Steps       int       `json:"steps"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
	TargetPath  string    `json:"targetPath"`
}

// NewRunSummary creates a summary with a fresh run ID and the current time.
func NewRunSummary(optimizer string, config RunConfig) *RunSummary {
	return &RunSummary{
		RunID:     uuid.NewString(),
		Optimizer: optimizer,
		Timestamp: time.Now(),
		Config:    config,
	}
}

// ToInfo extracts the listing fields of the summary.
func (s *RunSummary) ToInfo() RunInfo {
	return RunInfo{
		RunID:       s.RunID,
		Optimizer:   s.Optimizer,
		Method:      s.Config.Method,
		Metric:      s.Config.Metric,
		BestFitness: s.BestFitness,
		Steps:       s.Steps,
		Reason:      s.Reason,
		Timestamp:   s.Timestamp,
		TargetPath:  s.Config.TargetPath,
	}
}

// Validate checks if the summary has valid data.
func (s *RunSummary) Validate() error {
	if s.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if _, err := uuid.Parse(s.RunID); err != nil {
		return &ValidationError{Field: "RunID", Reason: "must be a UUID"}
	}
	switch s.Optimizer {
	case OptimizerGenetic, OptimizerHillClimb, OptimizerMayfly:
	default:
		return &ValidationError{Field: "Optimizer", Reason: fmt.Sprintf("unknown optimizer %q", s.Optimizer)}
	}
	if math.IsNaN(s.BestFitness) || s.BestFitness < 0 || s.BestFitness > 2 {
		return &ValidationError{Field: "BestFitness", Reason: "must be within [0, 2]"}
	}
	if s.Steps < 0 {
		return &ValidationError{Field: "Steps", Reason: "cannot be negative"}
	}
	if s.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if s.Config.TargetPath == "" {
		return &ValidationError{Field: "Config.TargetPath", Reason: "cannot be empty"}
	}
	if s.Config.Method == "" {
		return &ValidationError{Field: "Config.Method", Reason: "cannot be empty"}
	}
	if s.Config.MaxSteps < 0 {
		return &ValidationError{Field: "Config.MaxSteps", Reason: "cannot be negative"}
	}
	return nil
}

// ValidationError represents a summary validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
