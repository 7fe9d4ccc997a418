package web

import (
	"net/http"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	"github.com/edrees2022/log-and-ledger-sub006/internal/store"
	"github.com/go-chi/chi/v5"
)

// saveMappingRequest creates or updates a saved mapping. With session_id set
// and mapping omitted, the session's current mapping and headers are saved.
type saveMappingRequest struct {
	Name      string             `json:"name" validate:"required,max=100"`
	Mapping   core.ColumnMapping `json:"mapping"`
	Headers   []string           `json:"headers"`
	SessionID string             `json:"session_id" validate:"omitempty,uuid"`
}

// resolve fills mapping and headers from the session when asked to.
func (s *Server) resolve(req *saveMappingRequest, target string) error {
	if req.SessionID == "" || len(req.Mapping) > 0 {
		if len(req.Mapping) == 0 {
			return errInvalidRequestf("mapping is required")
		}
		return nil
	}

	snap, err := s.service.GetSession(req.SessionID)
	if err != nil {
		return err
	}
	if snap.Target != target {
		return errInvalidRequestf("session %s imports %s, not %s", snap.ID, snap.Target, target)
	}
	if len(snap.Mapping) == 0 {
		return errInvalidRequestf("session %s has no mapping yet", snap.ID)
	}
	req.Mapping = snap.Mapping
	req.Headers = snap.Headers
	return nil
}

// handleListMappings returns saved mappings for a target. With a headers
// query parameter only mappings matching those headers are returned, best first.
func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	if _, err := core.GetConfig(target); err != nil {
		s.respondError(w, r, err)
		return
	}

	if headers := splitHeaders(r.URL.Query().Get("headers")); headers != nil {
		matches, err := s.store.MatchMappings(r.Context(), target, headers)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if matches == nil {
			matches = []store.MappingMatch{}
		}
		writeJSON(w, matches)
		return
	}

	mappings, err := s.store.ListMappings(r.Context(), target)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if mappings == nil {
		mappings = []store.SavedMapping{}
	}
	writeJSON(w, mappings)
}

// handleCreateMapping saves a named mapping.
func (s *Server) handleCreateMapping(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	var req saveMappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.resolve(&req, target); err != nil {
		s.respondError(w, r, err)
		return
	}

	saved, err := s.store.SaveMapping(r.Context(), target, req.Name, req.Mapping, req.Headers)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, saved)
}

// handleUpdateSavedMapping replaces a saved mapping's name, columns and headers.
func (s *Server) handleUpdateSavedMapping(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	var req saveMappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.resolve(&req, target); err != nil {
		s.respondError(w, r, err)
		return
	}

	saved, err := s.store.UpdateMapping(r.Context(), target, chi.URLParam(r, "mappingID"), req.Name, req.Mapping, req.Headers)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, saved)
}

// handleDeleteMapping deletes a saved mapping.
func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMapping(r.Context(), chi.URLParam(r, "target"), chi.URLParam(r, "mappingID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
