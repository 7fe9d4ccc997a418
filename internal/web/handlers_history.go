package web

import (
	"net/http"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	"github.com/edrees2022/log-and-ledger-sub006/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleHistory returns recent import runs for a target, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	if _, err := core.GetConfig(target); err != nil {
		s.respondError(w, r, err)
		return
	}

	limit := parseIntParam(r, "limit", store.DefaultHistoryLimit)
	if limit == 0 || limit > maxPageSize {
		limit = store.DefaultHistoryLimit
	}

	runs, err := s.store.ListRuns(r.Context(), target, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []core.ImportRun{}
	}
	writeJSON(w, runs)
}
