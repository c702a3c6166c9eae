package export

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foldr-org/howl/internal/convert"
	"github.com/foldr-org/howl/internal/graph"
	"github.com/foldr-org/howl/internal/infrastructure/logging"
)

// Publisher is the broker surface the runner announces completed runs
// on. Implemented by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MetricsWriter records run counters in a time-series store.
// Implemented by *influxdb.Client.
type MetricsWriter interface {
	WriteExportRun(runID, kind, status string, fields map[string]interface{})
}

// Runner executes export runs one at a time and owns their lifecycle:
// record creation, conversion, persistence, announcement.
type Runner struct {
	repo Repository
	src  convert.Source
	log  *logging.Logger
	opts convert.Options

	publisher Publisher
	topic     string
	qos       byte
	metrics   MetricsWriter

	mu     sync.Mutex
	active bool
}

// NewRunner creates a runner over the given source and repository.
func NewRunner(repo Repository, src convert.Source, log *logging.Logger, opts convert.Options) *Runner {
	return &Runner{
		repo: repo,
		src:  src,
		log:  log.With("component", "export"),
		opts: opts,
	}
}

// SetPublisher wires run announcements to a broker topic.
func (r *Runner) SetPublisher(p Publisher, topic string, qos byte) {
	r.publisher = p
	r.topic = topic
	r.qos = qos
}

// SetMetrics wires run counters to a time-series store.
func (r *Runner) SetMetrics(m MetricsWriter) {
	r.metrics = m
}

// Start executes a run synchronously and returns its terminal record.
// A non-nil error means infrastructure failed (persistence, slot
// contention); conversion failures are reported through the run's
// Status and Error fields instead.
func (r *Runner) Start(ctx context.Context, kind Kind) (*Run, error) {
	run, err := r.begin(ctx, kind)
	if err != nil {
		return nil, err
	}
	defer r.release()
	if err := r.execute(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Launch starts a run in the background and returns its ID
// immediately. The run outlives the caller's request context.
func (r *Runner) Launch(ctx context.Context, kind Kind) (string, error) {
	run, err := r.begin(ctx, kind)
	if err != nil {
		return "", err
	}
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		defer r.release()
		if err := r.execute(bgCtx, run); err != nil {
			r.log.Error("background export failed", "run", run.ID, "error", err)
		}
	}()
	return run.ID, nil
}

// begin reserves the single run slot and persists the starting record.
func (r *Runner) begin(ctx context.Context, kind Kind) (*Run, error) {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.active = true
	r.mu.Unlock()

	run := &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Namespace: r.opts.Namespace,
		Status:    StatusRunning,
		Privacy:   r.opts.PrivacyEnabled,
		StartedAt: time.Now().UTC(),
	}
	if err := r.repo.Create(ctx, run); err != nil {
		r.release()
		return nil, err
	}
	r.log.Info("export started", "run", run.ID, "kind", string(kind))
	return run, nil
}

func (r *Runner) release() {
	r.mu.Lock()
	r.active = false
	r.mu.Unlock()
}

// snapshotResetter is implemented by sources that memoize lookups,
// such as *hass.Client. Dropping the memo between runs makes each run
// see the registry as it is now.
type snapshotResetter interface {
	Reset()
}

// execute performs the conversion and records the terminal state.
// A fresh Converter per run keeps privacy counters and caches scoped.
func (r *Runner) execute(ctx context.Context, run *Run) error {
	if s, ok := r.src.(snapshotResetter); ok {
		s.Reset()
	}
	c := convert.New(r.src, r.log, r.opts)

	var g *graph.Graph
	var err error
	switch run.Kind {
	case KindSchema:
		g, err = c.Metamodel(ctx)
	default:
		g, err = c.Run(ctx)
	}

	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Stats = c.Stats()
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		r.log.Error("export failed", "run", run.ID, "error", err)
	} else {
		run.Status = StatusCompleted
		run.Graph = g.String()
		r.log.Info("export completed", "run", run.ID, "triples", run.Stats.Triples)
	}

	if err := r.repo.Finish(ctx, run); err != nil {
		return err
	}

	r.announce(run)
	r.record(run)
	return nil
}

// announcement is the JSON payload published when a run reaches a
// terminal state. The graph itself never goes over the broker.
type announcement struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Status     Status    `json:"status"`
	Triples    int       `json:"triples"`
	FinishedAt time.Time `json:"finished_at"`
}

func (r *Runner) announce(run *Run) {
	if r.publisher == nil {
		return
	}
	payload, err := json.Marshal(announcement{
		ID:         run.ID,
		Kind:       run.Kind,
		Status:     run.Status,
		Triples:    run.Stats.Triples,
		FinishedAt: *run.FinishedAt,
	})
	if err != nil {
		return
	}
	if err := r.publisher.Publish(r.topic, payload, r.qos, false); err != nil {
		// Announcements are best effort; the run record is the truth.
		r.log.Warn("export announcement failed", "run", run.ID, "error", err)
	}
}

func (r *Runner) record(run *Run) {
	if r.metrics == nil {
		return
	}
	r.metrics.WriteExportRun(run.ID, string(run.Kind), string(run.Status), map[string]interface{}{
		"devices":             run.Stats.Devices,
		"entities":            run.Stats.Entities,
		"automations":         run.Stats.Automations,
		"skipped_entities":    run.Stats.SkippedEntities,
		"skipped_automations": run.Stats.SkippedAutomations,
		"triples":             run.Stats.Triples,
		"duration_seconds":    run.FinishedAt.Sub(run.StartedAt).Seconds(),
	})
}
