package export

import (
	"time"

	"github.com/foldr-org/howl/internal/convert"
)

// Kind selects what a run produces.
type Kind string

const (
	// KindInstances is a full export of the installation's devices,
	// entities and automations.
	KindInstances Kind = "instances"

	// KindSchema is the standalone vocabulary document.
	KindSchema Kind = "schema"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one export run, persisted in the exports table. The Graph
// field holds the full Turtle document and is only populated when a
// caller asks for it explicitly; listings carry the metadata alone.
type Run struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	Namespace string `json:"namespace"`
	Status    Status `json:"status"`
	Privacy   bool   `json:"privacy"`
	Error     string `json:"error,omitempty"`
	Graph     string `json:"-"`

	Stats convert.Stats `json:"stats"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
