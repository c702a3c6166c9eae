package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foldr-org/howl/internal/convert"
	"github.com/foldr-org/howl/internal/export"
	"github.com/foldr-org/howl/internal/hass"
	"github.com/foldr-org/howl/internal/infrastructure/config"
	"github.com/foldr-org/howl/internal/infrastructure/logging"
)

const (
	testJWTSecret     = "test-secret-for-api-tests-0123456789"
	testAdminUser     = "operator"
	testAdminPassword = "operator-password"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// stubSource is an empty installation. The optional gate channel blocks
// Services() so tests can hold an export run open.
type stubSource struct {
	gate chan struct{}
}

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
	if s.gate != nil {
		<-s.gate
	}
	return map[string][]string{}, nil
}

func (s *stubSource) AutomationConfig(context.Context, string) (map[string]any, error) {
	return nil, nil
}

// fakeRepo is an in-memory export.Repository.
type fakeRepo struct {
	mu    sync.Mutex
	runs  map[string]*export.Run
	order []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{runs: make(map[string]*export.Run)}
}

func (r *fakeRepo) Create(_ context.Context, run *export.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[run.ID] = &cp
	r.order = append(r.order, run.ID)
	return nil
}

func (r *fakeRepo) Finish(_ context.Context, run *export.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return export.ErrNotFound
	}
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (*export.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, export.ErrNotFound
	}
	cp := *run
	cp.Graph = ""
	return &cp, nil
}

func (r *fakeRepo) Graph(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return "", export.ErrNotFound
	}
	if run.Graph == "" {
		return "", export.ErrNoGraph
	}
	return run.Graph, nil
}

func (r *fakeRepo) List(_ context.Context, limit int) ([]export.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []export.Run
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		run := r.runs[r.order[i]]
		cp := *run
		cp.Graph = ""
		out = append(out, cp)
	}
	return out, nil
}

// masterServer serves a minimal reference ontology document.
func masterServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "@prefix saref: <https://saref.etsi.org/core/> .\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, src convert.Source, repo export.Repository) *Server {
	t.Helper()

	runner := export.NewRunner(repo, src, logging.Default(), convert.Options{
		Namespace: "http://example.org/home/",
		MasterURL: masterServer(t).URL,
	})

	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		Security: config.SecurityConfig{
			JWT:   config.JWTConfig{Secret: testJWTSecret, AccessTokenTTL: 15},
			Admin: config.AdminConfig{Username: testAdminUser, Password: testAdminPassword},
		},
		Logger:  logging.Default(),
		Runner:  runner,
		Repo:    repo,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

// doRequest runs a request through the full middleware stack.
func doRequest(s *Server, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	return rec
}

// login obtains a JWT via the login endpoint.
func login(t *testing.T, s *Server) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, testAdminUser, testAdminPassword)
	rec := doRequest(s, http.MethodPost, "/api/v1/auth/login", "", []byte(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	return resp.AccessToken
}

// =============================================================================
// Health and Auth
// =============================================================================

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubSource{}, newFakeRepo())

	rec := doRequest(s, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health body = %s, want status ok", rec.Body.String())
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(t, &stubSource{}, newFakeRepo())

	body := fmt.Sprintf(`{"username":%q,"password":"wrong"}`, testAdminUser)
	rec := doRequest(s, http.MethodPost, "/api/v1/auth/login", "", []byte(body))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login status = %d, want 401", rec.Code)
	}
}

func TestLogin_DisabledWithoutPassword(t *testing.T) {
	s := newTestServer(t, &stubSource{}, newFakeRepo())
	s.secCfg.Admin.Password = ""

	// Even a blank password must not match a blank configuration.
	body := fmt.Sprintf(`{"username":%q,"password":""}`, testAdminUser)
	rec := doRequest(s, http.MethodPost, "/api/v1/auth/login", "", []byte(body))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login status = %d, want 401 when no password is configured", rec.Code)
	}
}

func TestExports_RequireAuth(t *testing.T) {
	s := newTestServer(t, &stubSource{}, newFakeRepo())

	rec := doRequest(s, http.MethodGet, "/api/v1/exports", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without token", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/api/v1/exports", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for malformed token", rec.Code)
	}
}

// =============================================================================
// Export Endpoints
// =============================================================================

func TestCreateExport(t *testing.T) {
	repo := newFakeRepo()
	s := newTestServer(t, &stubSource{}, repo)
	token := login(t, s)

	rec := doRequest(s, http.MethodPost, "/api/v1/exports", token,
		[]byte(`{"kind":"schema"}`))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp createExportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ID == "" {
		t.Error("response ID is empty")
	}
	if resp.Kind != export.KindSchema {
		t.Errorf("kind = %q, want schema", resp.Kind)
	}
	if resp.Status != export.StatusRunning {
		t.Errorf("status = %q, want running", resp.Status)
	}

	// The run executes in the background; wait for it to finish.
	deadline := time.Now().Add(5 * time.Second)
	for {
		run, err := repo.Get(context.Background(), resp.ID)
		if err == nil && run.Status != export.StatusRunning {
			if run.Status != export.StatusCompleted {
				t.Errorf("final status = %q, want completed (error: %s)", run.Status, run.Error)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for background run to finish")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCreateExport_EmptyBody(t *testing.T) {
	s := newTestServer(t, &stubSource{}, newFakeRepo())
	token := login(t, s)

	rec := doRequest(s, http.MethodPost, "/api/v1/exports", token, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp createExportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Kind != export.KindInstances {
		t.Errorf("kind = %q, want instances default", resp.Kind)
	}
}

func TestCreateExport_InvalidKind(t *testing.T) {
	s := newTestServer(t, &stubSource{}, newFakeRepo())
	token := login(t, s)

	rec := doRequest(s, http.MethodPost, "/api/v1/exports", token,
		[]byte(`{"kind":"everything"}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateExport_Conflict(t *testing.T) {
	gate := make(chan struct{})
	src := &stubSource{gate: gate}
	s := newTestServer(t, src, newFakeRepo())
	token := login(t, s)

	rec := doRequest(s, http.MethodPost, "/api/v1/exports", token, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first run status = %d", rec.Code)
	}

	rec = doRequest(s, http.MethodPost, "/api/v1/exports", token, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second run status = %d, want 409", rec.Code)
	}

	close(gate)
}

func TestGetExport(t *testing.T) {
	repo := newFakeRepo()
	finished := time.Now().UTC()
	repo.Create(context.Background(), &export.Run{
		ID:         "run-1",
		Kind:       export.KindInstances,
		Namespace:  "http://example.org/home/",
		Status:     export.StatusCompleted,
		Privacy:    true,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: &finished,
	})

	s := newTestServer(t, &stubSource{}, repo)
	token := login(t, s)

	rec := doRequest(s, http.MethodGet, "/api/v1/exports/run-1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var run export.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if run.ID != "run-1" || run.Status != export.StatusCompleted {
		t.Errorf("run = %+v, want run-1 completed", run)
	}
}

func TestGetExport_NotFound(t *testing.T) {
	s := newTestServer(t, &stubSource{}, newFakeRepo())
	token := login(t, s)

	rec := doRequest(s, http.MethodGet, "/api/v1/exports/missing", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetExportGraph(t *testing.T) {
	repo := newFakeRepo()
	doc := "@prefix hass: <http://example.org/home/> .\n"
	repo.Create(context.Background(), &export.Run{
		ID:     "run-1",
		Kind:   export.KindInstances,
		Status: export.StatusCompleted,
		Graph:  doc,
	})

	s := newTestServer(t, &stubSource{}, repo)
	token := login(t, s)

	rec := doRequest(s, http.MethodGet, "/api/v1/exports/run-1/graph.ttl", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/turtle") {
		t.Errorf("Content-Type = %q, want text/turtle", ct)
	}
	if rec.Body.String() != doc {
		t.Errorf("body = %q, want %q", rec.Body.String(), doc)
	}
}

func TestGetExportGraph_NoGraph(t *testing.T) {
	repo := newFakeRepo()
	repo.Create(context.Background(), &export.Run{
		ID:     "run-failed",
		Kind:   export.KindInstances,
		Status: export.StatusFailed,
		Error:  "source unreachable",
	})

	s := newTestServer(t, &stubSource{}, repo)
	token := login(t, s)

	rec := doRequest(s, http.MethodGet, "/api/v1/exports/run-failed/graph.ttl", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListExports(t *testing.T) {
	repo := newFakeRepo()
	for i := 0; i < 3; i++ {
		repo.Create(context.Background(), &export.Run{
			ID:     fmt.Sprintf("run-%d", i),
			Kind:   export.KindInstances,
			Status: export.StatusCompleted,
		})
	}

	s := newTestServer(t, &stubSource{}, repo)
	token := login(t, s)

	rec := doRequest(s, http.MethodGet, "/api/v1/exports?limit=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Exports []export.Run `json:"exports"`
		Count   int          `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 2 || len(resp.Exports) != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Exports[0].ID != "run-2" {
		t.Errorf("first run = %q, want newest (run-2)", resp.Exports[0].ID)
	}
}

func TestListExports_InvalidLimit(t *testing.T) {
	s := newTestServer(t, &stubSource{}, newFakeRepo())
	token := login(t, s)

	rec := doRequest(s, http.MethodGet, "/api/v1/exports?limit=nope", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
