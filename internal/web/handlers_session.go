package web

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	"github.com/go-chi/chi/v5"
)

type targetRequest struct {
	Target string `json:"target" validate:"required"`
}

type updateMappingRequest struct {
	Field  string `json:"field" validate:"required"`
	Column string `json:"column"` // empty unbinds the field
}

type applyMappingRequest struct {
	MappingID string `json:"mapping_id" validate:"required,uuid"`
}

// handleCreateSession starts a wizard session for a target.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	snap, err := s.service.CreateSession(r.Context(), req.Target)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

// handleDeleteSession cancels any running import and drops the session.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSession(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSelectTarget switches the session to another target.
func (s *Server) handleSelectTarget(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondSnapshot(w, r)(s.service.SelectTarget(chi.URLParam(r, "id"), req.Target))
}

// handleUpload parses the multipart "file" field into the session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	maxSize := s.cfg.Import.MaxFileSize

	// Allow room for the multipart envelope around the file
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+maxBodyBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, err)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > maxSize {
		s.respondError(w, r, &http.MaxBytesError{Limit: maxSize})
		return
	}

	snap, err := s.service.Upload(r.Context(), id, header.Filename, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

// handleUpdateMapping binds one field to a column.
func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	var req updateMappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondSnapshot(w, r)(s.service.UpdateMapping(chi.URLParam(r, "id"), req.Field, req.Column))
}

// handleSuggestions returns ranked header candidates for unmapped fields.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.service.Suggestions(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []core.Suggestion{}
	}
	writeJSON(w, suggestions)
}

// handleApplyMapping replaces the session mapping with a saved mapping.
func (s *Server) handleApplyMapping(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req applyMappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	snap, err := s.service.GetSession(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	saved, err := s.store.GetMapping(r.Context(), req.MappingID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if saved.Target != snap.Target {
		s.respondError(w, r, fmt.Errorf("%w: mapping %s belongs to %s, session imports %s",
			errInvalidRequest, saved.ID, saved.Target, snap.Target))
		return
	}
	s.respondSnapshot(w, r)(s.service.ApplyMapping(id, saved.Mapping))
}

// handleValidate classifies every row and moves the session to previewing.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.respondSnapshot(w, r)(s.service.Validate(chi.URLParam(r, "id")))
}

// handleBack returns a previewing session to mapping.
func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.respondSnapshot(w, r)(s.service.BackToMapping(chi.URLParam(r, "id")))
}

// handleReset returns the session to collecting.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.respondSnapshot(w, r)(s.service.Reset(chi.URLParam(r, "id")))
}

// RowsResponse is one page of parsed rows.
type RowsResponse struct {
	Rows   []core.ParsedRow `json:"rows"`
	Total  int              `json:"total"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}

// handleRows pages through validated rows, optionally filtered by status.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	status, err := parseStatus(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	offset := parseIntParam(r, "offset", 0)
	limit := parseIntParam(r, "limit", defaultPageSize)
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	rows, total, err := s.service.Rows(chi.URLParam(r, "id"), status, offset, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.ParsedRow{}
	}
	writeJSON(w, RowsResponse{Rows: rows, Total: total, Offset: offset, Limit: limit})
}

// handleStartImport starts the batch in the background.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	snap, err := s.service.StartImport(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, snap)
}

// handleProgress streams import progress via Server-Sent Events.
// The event ID is the progress percentage; a reconnecting client passes the
// last one it saw as lastEventId (or Last-Event-ID) and skips events it has.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lastEventIDStr := r.URL.Query().Get("lastEventId")
	if lastEventIDStr == "" {
		lastEventIDStr = r.Header.Get("Last-Event-ID")
	}
	lastEventID := -1
	if lastEventIDStr != "" {
		if n, err := strconv.Atoi(lastEventIDStr); err == nil {
			lastEventID = n
		}
	}

	progressCh, err := s.service.SubscribeProgress(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	flush := func() { _ = rc.Flush() }
	flush()

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed - import finished or cancelled
				s.writeCompleteEvent(w, id)
				flush()
				return
			}

			running := progress.Phase == core.PhaseStarting || progress.Phase == core.PhaseImporting
			if running && progress.Percent <= lastEventID {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", progress.Percent, data)
			flush()

		case <-r.Context().Done():
			return
		}
	}
}

// writeCompleteEvent sends the final result summary on the stream.
func (s *Server) writeCompleteEvent(w io.Writer, id string) {
	payload := []byte("{}")
	if snap, err := s.service.GetSession(id); err == nil && snap.Result != nil {
		payload, _ = json.Marshal(toResultResponse(snap.Result))
	}
	fmt.Fprintf(w, "event: complete\ndata: %s\n\n", payload)
}

// handleCancel stops a running import before its next row.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelImport(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

// handleResult returns the bounded result of the finished import.
// With wait=true the request blocks until the running import finishes.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.result(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, toResultResponse(res))
}

// result resolves the import result of the session named in the URL.
func (s *Server) result(r *http.Request) (*core.ImportResult, error) {
	id := chi.URLParam(r, "id")
	if r.URL.Query().Get("wait") == "true" {
		res, err := s.service.WaitResult(r.Context(), id)
		if err == nil && res != nil {
			return res, nil
		}
		if !errors.Is(err, core.ErrNoImportRunning) {
			return nil, err
		}
	}

	snap, err := s.service.GetSession(id)
	if err != nil {
		return nil, err
	}
	if snap.Result == nil {
		return nil, &core.StageError{Op: "read result", Stage: snap.Stage}
	}
	return snap.Result, nil
}

// handleFailedRows exports the rows rejected during import as CSV.
func (s *Server) handleFailedRows(w http.ResponseWriter, r *http.Request) {
	res, err := s.result(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	snap, err := s.service.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_failed_rows_%s.csv", snap.Target, timestamp)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	csvWriter := csv.NewWriter(w)

	header := []string{"row", "sheet_line", "reason"}
	for _, f := range snap.Fields {
		header = append(header, f.Key)
	}
	csvWriter.Write(header)

	for _, row := range res.FailedRows {
		record := []string{strconv.Itoa(row.Row), strconv.Itoa(row.SheetLine), row.Reason}
		for _, f := range snap.Fields {
			record = append(record, row.Data[f.Key].String())
		}
		csvWriter.Write(record)
	}

	csvWriter.Flush()
}

// respondSnapshot adapts a (Snapshot, error) service call to a JSON response.
func (s *Server) respondSnapshot(w http.ResponseWriter, r *http.Request) func(core.Snapshot, error) {
	return func(snap core.Snapshot, err error) {
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, snap)
	}
}
