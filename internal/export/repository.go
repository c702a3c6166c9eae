package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the persistence operations for export runs.
type Repository interface {
	Create(ctx context.Context, run *Run) error
	Finish(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	Graph(ctx context.Context, id string) (string, error)
	List(ctx context.Context, limit int) ([]Run, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed export repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a freshly started run.
func (r *SQLiteRepository) Create(ctx context.Context, run *Run) error {
	const query = `INSERT INTO exports (id, kind, namespace, status, privacy, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, string(run.Kind), run.Namespace, string(run.Status),
		run.Privacy, run.StartedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting export %s: %w", run.ID, err)
	}
	return nil
}

// Finish records the terminal state of a run: status, counters, the
// graph document on success or the error message on failure.
func (r *SQLiteRepository) Finish(ctx context.Context, run *Run) error {
	const query = `UPDATE exports SET
		status = ?, error = ?, graph = ?,
		devices = ?, entities = ?, automations = ?,
		skipped_entities = ?, skipped_automations = ?, triples = ?,
		finished_at = ?
		WHERE id = ?`
	finished := ""
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	res, err := r.db.ExecContext(ctx, query,
		string(run.Status), run.Error, run.Graph,
		run.Stats.Devices, run.Stats.Entities, run.Stats.Automations,
		run.Stats.SkippedEntities, run.Stats.SkippedAutomations, run.Stats.Triples,
		finished, run.ID)
	if err != nil {
		return fmt.Errorf("finishing export %s: %w", run.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing export %s: %w", run.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("finishing export %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

const runColumns = `id, kind, namespace, status, privacy, COALESCE(error, ''),
	devices, entities, automations, skipped_entities, skipped_automations, triples,
	started_at, COALESCE(finished_at, '')`

// Get returns a run's metadata by ID, without the graph document.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM exports WHERE id = ?`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("export %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting export %s: %w", id, err)
	}
	return run, nil
}

// Graph returns the stored Turtle document of a completed run.
func (r *SQLiteRepository) Graph(ctx context.Context, id string) (string, error) {
	const query = `SELECT COALESCE(graph, '') FROM exports WHERE id = ?`
	var doc string
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("export %s: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("getting export graph %s: %w", id, err)
	}
	if doc == "" {
		return "", fmt.Errorf("export %s: %w", id, ErrNoGraph)
	}
	return doc, nil
}

// List returns the most recent runs, newest first.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM exports ORDER BY started_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning export row: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exports: %w", err)
	}
	return runs, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var kind, status, startedAt, finishedAt string
	if err := s.Scan(
		&run.ID, &kind, &run.Namespace, &status, &run.Privacy, &run.Error,
		&run.Stats.Devices, &run.Stats.Entities, &run.Stats.Automations,
		&run.Stats.SkippedEntities, &run.Stats.SkippedAutomations, &run.Stats.Triples,
		&startedAt, &finishedAt,
	); err != nil {
		return nil, err
	}
	run.Kind = Kind(kind)
	run.Status = Status(status)
	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt) //nolint:errcheck // Format is controlled
	if finishedAt != "" {
		t, err := time.Parse(time.RFC3339, finishedAt)
		if err == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}
