package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/foldr-org/howl/internal/export"
)

// List pagination limits.
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// createExportRequest is the request body for POST /exports.
// The body is optional; an empty body starts an instances export.
type createExportRequest struct {
	Kind string `json:"kind"`
}

// createExportResponse is the response body for POST /exports.
type createExportResponse struct {
	ID     string        `json:"id"`
	Kind   export.Kind   `json:"kind"`
	Status export.Status `json:"status"`
}

// handleCreateExport starts a new export run in the background.
//
// Runs execute one at a time; a second request while a run is active
// returns 409. The response carries the run ID so clients can poll
// GET /exports/{id} for completion.
func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	kind := export.KindInstances

	var req createExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	switch req.Kind {
	case "", string(export.KindInstances):
		// default
	case string(export.KindSchema):
		kind = export.KindSchema
	default:
		writeBadRequest(w, "kind must be \"instances\" or \"schema\"")
		return
	}

	id, err := s.runner.Launch(r.Context(), kind)
	if err != nil {
		if errors.Is(err, export.ErrRunInProgress) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "an export run is already in progress")
			return
		}
		s.logger.Error("failed to start export run", "error", err)
		writeInternalError(w, "failed to start export run")
		return
	}

	writeJSON(w, http.StatusAccepted, createExportResponse{
		ID:     id,
		Kind:   kind,
		Status: export.StatusRunning,
	})
}

// handleListExports returns recent export runs, newest first.
func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	runs, err := s.repo.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list export runs", "error", err)
		writeInternalError(w, "failed to list export runs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"exports": runs,
		"count":   len(runs),
	})
}

// handleGetExport returns the metadata for a single export run.
func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, export.ErrNotFound) {
			writeNotFound(w, "export not found")
			return
		}
		s.logger.Error("failed to load export run", "run_id", id, "error", err)
		writeInternalError(w, "failed to load export run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleGetExportGraph serves the Turtle document produced by a run.
func (s *Server) handleGetExportGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.repo.Graph(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, export.ErrNotFound):
			writeNotFound(w, "export not found")
		case errors.Is(err, export.ErrNoGraph):
			writeNotFound(w, "export produced no graph")
		default:
			s.logger.Error("failed to load export graph", "run_id", id, "error", err)
			writeInternalError(w, "failed to load export graph")
		}
		return
	}

	w.Header().Set("Content-Type", "text/turtle; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	io.WriteString(w, doc)
}
