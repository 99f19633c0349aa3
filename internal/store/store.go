package store

// Store defines the interface for run summary persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the run doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRun atomically writes the summary of a finished run, replacing
	// any summary stored under the same run ID.
	SaveRun(summary *RunSummary) error

	// LoadRun returns ErrNotFound if no summary exists for runID.
	LoadRun(runID string) (*RunSummary, error)

	// ListRuns returns metadata for all stored runs. The slice may be empty.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes the summary and every artifact stored next to it
	// (telemetry, trace and exported audio).
	DeleteRun(runID string) error

	// RunDir is the directory holding the artifacts of runID.
	RunDir(runID string) string
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError reports a run ID with no stored summary. It matches ErrNotFound.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
