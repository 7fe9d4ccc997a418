package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	"github.com/edrees2022/log-and-ledger-sub006/internal/sheet"
	"github.com/go-chi/chi/v5"
)

// TargetSummary is the list view of an import target.
type TargetSummary struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Required []string `json:"required"`
	Fields   int      `json:"fields"`
}

// handleListTargets returns every registered import target.
func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	targets := s.service.ListTargets()
	out := make([]TargetSummary, 0, len(targets))
	for _, t := range targets {
		out = append(out, TargetSummary{
			ID:       t.ID,
			Label:    t.Label,
			Required: t.RequiredFields(),
			Fields:   len(t.Fields),
		})
	}
	writeJSON(w, out)
}

// handleGetTarget returns the full field schema of one target.
func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	cfg, err := core.GetConfig(chi.URLParam(r, "target"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, cfg)
}

// handleTemplate downloads the import template for a target.
// The format query parameter selects xlsx (default) or csv.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	format := sheet.Format(strings.ToLower(r.URL.Query().Get("format")))
	if format == sheet.FormatUnknown {
		format = sheet.FormatXLSX
	}
	if format != sheet.FormatXLSX && format != sheet.FormatCSV {
		s.respondError(w, r, errInvalidRequestf("template format %q", format))
		return
	}

	tmpl, err := core.GenerateTemplate(target)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := sheet.WriteTemplate(&buf, tmpl, format); err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s_template.%s", target, format)
	w.Header().Set("Content-Type", sheet.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(buf.Bytes())
}

// handleImportStatus returns the current state of the import limiter.
// Used for monitoring and to check if the system can accept more imports.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.LimiterStatus())
}
