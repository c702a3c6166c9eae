package export

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the exports table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE exports (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			namespace TEXT NOT NULL,
			status TEXT NOT NULL,
			privacy INTEGER NOT NULL DEFAULT 0,
			graph TEXT,
			error TEXT,
			devices INTEGER NOT NULL DEFAULT 0,
			entities INTEGER NOT NULL DEFAULT 0,
			automations INTEGER NOT NULL DEFAULT 0,
			skipped_entities INTEGER NOT NULL DEFAULT 0,
			skipped_automations INTEGER NOT NULL DEFAULT 0,
			triples INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func testRun(id string) *Run {
	return &Run{
		ID:        id,
		Kind:      KindInstances,
		Namespace: "http://example.org/home/",
		Status:    StatusRunning,
		Privacy:   true,
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	run := testRun("run-1")
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Kind != KindInstances || got.Status != StatusRunning || !got.Privacy {
		t.Errorf("Get() = %+v, want running instances run with privacy", got)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, run.StartedAt)
	}
	if got.FinishedAt != nil {
		t.Error("fresh run should have no finished_at")
	}
}

func TestSQLiteRepository_Get_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_Finish(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	run := testRun("run-1")
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	run.Status = StatusCompleted
	run.Graph = "@prefix saref: <https://saref.etsi.org/core/> .\n"
	run.Stats.Devices = 3
	run.Stats.Triples = 42
	run.FinishedAt = &now
	if err := repo.Finish(ctx, run); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := repo.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusCompleted || got.Stats.Devices != 3 || got.Stats.Triples != 42 {
		t.Errorf("finished run = %+v", got)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(now) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, now)
	}

	doc, err := repo.Graph(ctx, "run-1")
	if err != nil {
		t.Fatalf("Graph() error = %v", err)
	}
	if doc != run.Graph {
		t.Errorf("Graph() = %q, want stored document", doc)
	}
}

func TestSQLiteRepository_Finish_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	now := time.Now().UTC()
	run := testRun("ghost")
	run.FinishedAt = &now
	if err := repo.Finish(context.Background(), run); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_Graph_Empty(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testRun("run-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Still running: no document stored yet.
	if _, err := repo.Graph(ctx, "run-1"); !errors.Is(err, ErrNoGraph) {
		t.Errorf("Graph() error = %v, want ErrNoGraph", err)
	}

	if _, err := repo.Graph(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Graph() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_List(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := testRun(id)
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	runs, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("List() returned %d runs, want 2", len(runs))
	}
	// Newest first.
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Errorf("List() order = %s, %s; want run-c, run-b", runs[0].ID, runs[1].ID)
	}
}
