package export

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/foldr-org/howl/internal/convert"
	"github.com/foldr-org/howl/internal/hass"
	"github.com/foldr-org/howl/internal/infrastructure/logging"
)

// stubSource is the smallest possible installation: no devices, no
// states, one service domain.
type stubSource struct {
	failServices bool
}

var errStub = errors.New("stub source failure")

func (s *stubSource) Devices(context.Context) ([]string, error) { return nil, nil }

func (s *stubSource) DeviceAttr(context.Context, string, string) (string, error) {
	return hass.None, nil
}

func (s *stubSource) DeviceEntities(context.Context, string) ([]string, error) { return nil, nil }

func (s *stubSource) DeviceID(context.Context, string) (string, error) { return hass.None, nil }

func (s *stubSource) AreaID(context.Context, string) (string, error) { return hass.None, nil }

func (s *stubSource) AreaName(context.Context, string) (string, error) { return hass.None, nil }

func (s *stubSource) EntityAttributes(context.Context, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (s *stubSource) States(context.Context) ([]hass.State, error) { return nil, nil }

func (s *stubSource) Services(context.Context) (map[string][]string, error) {
	if s.failServices {
		return nil, errStub
	}
	return map[string][]string{"switch": {"toggle", "turn_on"}}, nil
}

func (s *stubSource) AutomationConfig(context.Context, string) (map[string]any, error) {
	return map[string]any{}, nil
}

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	payload []byte
}

func (p *capturePublisher) Publish(topic string, payload []byte, _ byte, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.payload = payload
	return nil
}

type captureMetrics struct {
	mu     sync.Mutex
	runID  string
	status string
	fields map[string]interface{}
}

func (m *captureMetrics) WriteExportRun(runID, _, status string, fields map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runID = runID
	m.status = status
	m.fields = fields
}

// masterServer serves an empty reference ontology so runs never reach
// the network.
func masterServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/turtle")
		_, _ = w.Write([]byte("@prefix saref: <https://saref.etsi.org/core/> .\n"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRunner(t *testing.T, src convert.Source) *Runner {
	t.Helper()
	repo := NewSQLiteRepository(setupTestDB(t))
	return NewRunner(repo, src, logging.Default(), convert.Options{
		Namespace: "http://example.org/home/",
		MasterURL: masterServer(t).URL,
	})
}

func TestRunner_Start_Schema(t *testing.T) {
	r := newTestRunner(t, &stubSource{})
	pub := &capturePublisher{}
	met := &captureMetrics{}
	r.SetPublisher(pub, "howl/exports", 1)
	r.SetMetrics(met)

	run, err := r.Start(context.Background(), KindSchema)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if run.Status != StatusCompleted {
		t.Fatalf("run status = %s, want completed: %s", run.Status, run.Error)
	}
	if run.Stats.Triples == 0 {
		t.Error("schema run should produce triples")
	}
	if run.FinishedAt == nil {
		t.Error("completed run must carry finished_at")
	}

	// The persisted record matches the returned one.
	stored, err := r.repo.Get(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status != StatusCompleted || stored.Stats.Triples != run.Stats.Triples {
		t.Errorf("stored run = %+v", stored)
	}
	doc, err := r.repo.Graph(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Graph() error = %v", err)
	}
	if doc == "" {
		t.Error("stored graph document is empty")
	}

	// Announcement carries metadata, never the document.
	if pub.topic != "howl/exports" {
		t.Errorf("announcement topic = %q", pub.topic)
	}
	var ann announcement
	if err := json.Unmarshal(pub.payload, &ann); err != nil {
		t.Fatalf("announcement payload: %v", err)
	}
	if ann.ID != run.ID || ann.Status != StatusCompleted {
		t.Errorf("announcement = %+v", ann)
	}

	if met.runID != run.ID || met.status != string(StatusCompleted) {
		t.Errorf("metrics = %q/%q", met.runID, met.status)
	}
	if met.fields["triples"] != run.Stats.Triples {
		t.Errorf("metrics triples = %v, want %d", met.fields["triples"], run.Stats.Triples)
	}
}

func TestRunner_Start_Instances(t *testing.T) {
	r := newTestRunner(t, &stubSource{})

	run, err := r.Start(context.Background(), KindInstances)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if run.Status != StatusCompleted {
		t.Fatalf("run status = %s: %s", run.Status, run.Error)
	}
	// Even an empty installation yields the ontology imports header.
	if run.Stats.Triples == 0 {
		t.Error("instances run should produce the import triples")
	}
}

func TestRunner_Start_SourceFailure(t *testing.T) {
	r := newTestRunner(t, &stubSource{failServices: true})

	run, err := r.Start(context.Background(), KindInstances)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if run.Status != StatusFailed {
		t.Fatalf("run status = %s, want failed", run.Status)
	}
	if run.Error == "" {
		t.Error("failed run must carry the error message")
	}

	stored, err := r.repo.Get(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status != StatusFailed {
		t.Errorf("stored status = %s, want failed", stored.Status)
	}
	if _, err := r.repo.Graph(context.Background(), run.ID); !errors.Is(err, ErrNoGraph) {
		t.Errorf("Graph() error = %v, want ErrNoGraph", err)
	}
}

func TestRunner_SingleRunSlot(t *testing.T) {
	r := newTestRunner(t, &stubSource{})

	// Simulate a run in flight.
	r.mu.Lock()
	r.active = true
	r.mu.Unlock()

	if _, err := r.Start(context.Background(), KindSchema); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Start() error = %v, want ErrRunInProgress", err)
	}
	if _, err := r.Launch(context.Background(), KindSchema); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Launch() error = %v, want ErrRunInProgress", err)
	}

	// Releasing the slot makes runs possible again.
	r.release()
	run, err := r.Start(context.Background(), KindSchema)
	if err != nil {
		t.Fatalf("Start() after release error = %v", err)
	}
	if run.Status != StatusCompleted {
		t.Errorf("run status = %s", run.Status)
	}
}
