package export

import "errors"

var (
	// ErrNotFound is returned when an export run ID does not exist.
	ErrNotFound = errors.New("export not found")

	// ErrRunInProgress is returned when a new run is requested while
	// another is still walking the installation.
	ErrRunInProgress = errors.New("export already in progress")

	// ErrNoGraph is returned when a run has no stored graph document,
	// either because it is still running or because it failed.
	ErrNoGraph = errors.New("export has no graph")
)
