package core

import (
	"context"
	"errors"
)

// Stage is a step of the import lifecycle.
type Stage string

const (
	StageCollecting Stage = "collecting"
	StageMapping    Stage = "mapping"
	StagePreviewing Stage = "previewing"
	StageImporting  Stage = "importing"
	StageComplete   Stage = "complete"
)

// PreviewRowLimit caps the parsed rows included in a snapshot.
const PreviewRowLimit = 50

// Session sequences one import attempt:
//
//	collecting -> mapping -> previewing -> importing -> complete
//
// with previewing -> mapping allowed and Reset allowed from any stage.
// A Session is not safe for concurrent use; Service serializes access.
type Session struct {
	id     string
	target ImportTypeConfig
	parser Parser

	stage      Stage
	fileName   string
	headers    []string
	rawRows    []RawRow
	mapping    ColumnMapping
	parsedRows []ParsedRow
	progress   int
	result     *ImportResult
	lastErr    error
}

// NewSession creates a session in the collecting stage.
func NewSession(id string, target ImportTypeConfig, parser Parser) *Session {
	return &Session{
		id:     id,
		target: target,
		parser: parser,
		stage:  StageCollecting,
	}
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Stage returns the current stage.
func (s *Session) Stage() Stage { return s.stage }

// Target returns the selected import target.
func (s *Session) Target() ImportTypeConfig { return s.target }

// Mapping returns a copy of the current column mapping.
func (s *Session) Mapping() ColumnMapping { return s.mapping.Clone() }

// Headers returns the uploaded sheet's headers.
func (s *Session) Headers() []string { return append([]string(nil), s.headers...) }

// ParsedRows returns the rows produced by the last validation.
func (s *Session) ParsedRows() []ParsedRow { return s.parsedRows }

// Progress returns the import progress, 0..100.
func (s *Session) Progress() int { return s.progress }

// Result returns the last import result, or nil.
func (s *Session) Result() *ImportResult { return s.result }

// FileName returns the uploaded file name.
func (s *Session) FileName() string { return s.fileName }

// Reset discards all pipeline state and returns to collecting.
func (s *Session) Reset() {
	s.stage = StageCollecting
	s.fileName = ""
	s.headers = nil
	s.rawRows = nil
	s.mapping = nil
	s.parsedRows = nil
	s.progress = 0
	s.result = nil
	s.lastErr = nil
}

// SelectTarget switches the import target, which tears the session down.
func (s *Session) SelectTarget(target ImportTypeConfig) error {
	if s.stage == StageImporting {
		return &StageError{Op: "switch target", Stage: s.stage}
	}
	s.target = target
	s.Reset()
	return nil
}

// Upload parses file bytes and, on success, auto-maps the columns and moves
// to mapping. Any failure leaves the session in collecting and is returned
// as a *ParseError.
func (s *Session) Upload(fileName string, data []byte) error {
	if s.stage != StageCollecting {
		return &StageError{Op: "upload", Stage: s.stage}
	}

	sheet, err := s.parser.Parse(fileName, data)
	if err != nil {
		var pe *ParseError
		if !errors.As(err, &pe) {
			pe = &ParseError{Kind: ParseInvalidFile, FileName: fileName, Err: err}
		}
		return s.fail(pe)
	}
	if len(sheet.Rows) == 0 {
		return s.fail(&ParseError{Kind: ParseEmptyFile, FileName: fileName})
	}

	s.fileName = fileName
	s.headers = sheet.Headers
	s.rawRows = sheet.Rows
	s.mapping = AutoMap(sheet.Headers, s.target)
	s.parsedRows = nil
	s.lastErr = nil
	s.stage = StageMapping
	return nil
}

func (s *Session) fail(pe *ParseError) error {
	observeParseFailure(pe.Kind)
	s.lastErr = pe
	return pe
}

// UpdateMapping binds one field to a header ("" unbinds). Only allowed in mapping.
func (s *Session) UpdateMapping(fieldKey, header string) error {
	if s.stage != StageMapping {
		return &StageError{Op: "update mapping", Stage: s.stage}
	}
	return s.mapping.Update(s.target, fieldKey, header)
}

// ApplyMapping replaces the mapping wholesale, ignoring keys the target
// does not define. Only allowed in mapping.
func (s *Session) ApplyMapping(m ColumnMapping) error {
	if s.stage != StageMapping {
		return &StageError{Op: "apply mapping", Stage: s.stage}
	}
	next := make(ColumnMapping, len(m))
	for field, header := range m {
		if _, ok := s.target.Field(field); ok && header != "" {
			next[field] = header
		}
	}
	s.mapping = next
	return nil
}

// Validate runs the validator over the current mapping and moves to
// previewing. It succeeds even when every row is an error.
func (s *Session) Validate() ([]ParsedRow, error) {
	if s.stage != StageMapping {
		return nil, &StageError{Op: "validate", Stage: s.stage}
	}
	s.parsedRows = Validate(s.rawRows, s.mapping, s.target)
	observeValidation(s.target.ID, CountRows(s.parsedRows))
	s.lastErr = nil
	s.stage = StagePreviewing
	return s.parsedRows, nil
}

// BackToMapping returns from previewing to mapping and drops the parsed rows.
func (s *Session) BackToMapping() error {
	if s.stage != StagePreviewing {
		return &StageError{Op: "return to mapping", Stage: s.stage}
	}
	s.parsedRows = nil
	s.stage = StageMapping
	return nil
}

// BeginImport moves previewing -> importing when at least one row is
// importable, and returns the parsed rows. Otherwise the session stays in
// previewing and ErrNoImportableRows is returned.
func (s *Session) BeginImport() ([]ParsedRow, error) {
	if s.stage != StagePreviewing {
		return nil, &StageError{Op: "start import", Stage: s.stage}
	}
	if CountRows(s.parsedRows).Importable == 0 {
		s.lastErr = ErrNoImportableRows
		return nil, ErrNoImportableRows
	}
	s.lastErr = nil
	s.progress = 0
	s.result = nil
	s.stage = StageImporting
	return s.parsedRows, nil
}

// SetProgress records import progress. Values never decrease.
func (s *Session) SetProgress(p int) {
	if s.stage != StageImporting {
		return
	}
	if p > 100 {
		p = 100
	}
	if p > s.progress {
		s.progress = p
	}
}

// Complete stores the batch result and moves importing -> complete.
func (s *Session) Complete(result ImportResult) error {
	if s.stage != StageImporting {
		return &StageError{Op: "complete import", Stage: s.stage}
	}
	if result.Cancelled == 0 && result.Submitted() > 0 {
		s.progress = 100
	}
	s.result = &result
	s.stage = StageComplete
	return nil
}

// Import runs the whole importing stage synchronously with importer.
func (s *Session) Import(ctx context.Context, importer *BatchImporter) (ImportResult, error) {
	rows, err := s.BeginImport()
	if err != nil {
		return ImportResult{}, err
	}

	prev := importer.onProgress
	importer.onProgress = func(p ImportProgress) {
		s.SetProgress(p.Percent)
		if prev != nil {
			prev(p)
		}
	}
	defer func() { importer.onProgress = prev }()

	result := importer.Run(ctx, s.target.ID, rows)
	if err := s.Complete(result); err != nil {
		return result, err
	}
	return result, nil
}

// Snapshot is a read-only view of a session for rendering.
type Snapshot struct {
	ID          string              `json:"id"`
	Target      string              `json:"target"`
	Stage       Stage               `json:"stage"`
	FileName    string              `json:"file_name,omitempty"`
	Headers     []string            `json:"headers"`
	Fields      []FieldSpec         `json:"fields"`
	Mapping     ColumnMapping       `json:"mapping"`
	Unmapped    []string            `json:"unmapped"`
	Duplicates  map[string][]string `json:"duplicates,omitempty"`
	RowCount    int                 `json:"row_count"`
	Counts      *ValidationCounts   `json:"counts,omitempty"`
	Preview     []ParsedRow         `json:"preview,omitempty"`
	Progress    int                 `json:"progress"`
	Result      *ImportResult       `json:"result,omitempty"`
	ErrorSample *ErrorSummary       `json:"error_sample,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:       s.id,
		Target:   s.target.ID,
		Stage:    s.stage,
		FileName: s.fileName,
		Headers:  s.Headers(),
		Fields:   s.target.Fields,
		Mapping:  s.mapping.Clone(),
		RowCount: len(s.rawRows),
		Progress: s.progress,
	}
	if s.mapping != nil {
		snap.Unmapped = s.mapping.Unmapped(s.target)
		if d := s.mapping.Duplicates(); len(d) > 0 {
			snap.Duplicates = d
		}
	}
	if s.parsedRows != nil {
		counts := CountRows(s.parsedRows)
		snap.Counts = &counts
		preview := s.parsedRows
		if len(preview) > PreviewRowLimit {
			preview = preview[:PreviewRowLimit]
		}
		snap.Preview = append([]ParsedRow(nil), preview...)
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
		sum := r.Summary()
		snap.ErrorSample = &sum
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	return snap
}
