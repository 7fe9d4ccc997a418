package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FieldType represents the expected data type for a target field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumeric
)

// String returns the wire name of the field type ("string" or "number").
func (t FieldType) String() string {
	switch t {
	case FieldNumeric:
		return "number"
	default:
		return "string"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FieldType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "string", "":
		*t = FieldText
	case "number":
		*t = FieldNumeric
	default:
		return fmt.Errorf("unknown field type %q", string(b))
	}
	return nil
}

// FieldSpec defines one canonical field of an import target.
type FieldSpec struct {
	Key      string    `json:"key"`      // Canonical field name: "sale_price"
	Label    string    `json:"label"`    // Template column header: "Sale Price"
	Required bool      `json:"required"` // Row is rejected when the value is empty
	Type     FieldType `json:"type"`
}

// ImportTypeConfig describes one import target.
type ImportTypeConfig struct {
	ID           string           `json:"id"`    // "contacts", "items", "accounts"
	Label        string           `json:"label"` // Display name
	Fields       []FieldSpec      `json:"fields"`
	TemplateRows []map[string]any `json:"template_rows"` // Sample canonical rows for the template
}

// Field returns the FieldSpec for a field key.
func (c ImportTypeConfig) Field(key string) (FieldSpec, bool) {
	for _, f := range c.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// RequiredFields returns the keys of all required fields in schema order.
func (c ImportTypeConfig) RequiredFields() []string {
	var keys []string
	for _, f := range c.Fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// RawRow maps a raw column header to its cell value.
// Produced once by the parser and never mutated afterwards.
type RawRow map[string]string

// Sheet is the output of the parsing collaborator: headers in file order
// and one RawRow per data row.
type Sheet struct {
	Headers []string
	Rows    []RawRow
}

// Parser turns uploaded file bytes into a Sheet.
// Implementations return *ParseError for unreadable or unsupported input and
// an empty Sheet (no error) for a readable file without data rows.
type Parser interface {
	Parse(fileName string, data []byte) (Sheet, error)
}

// Value is a coerced canonical value.
type Value struct {
	Type   FieldType
	Raw    string          // Cell text as read from the sheet
	Number decimal.Decimal // Set for FieldNumeric values
}

// TextValue returns a string value.
func TextValue(s string) Value {
	return Value{Type: FieldText, Raw: s}
}

// NumberValue returns a numeric value.
func NumberValue(raw string, n decimal.Decimal) Value {
	return Value{Type: FieldNumeric, Raw: raw, Number: n}
}

// IsEmpty reports whether the source cell was blank or whitespace.
// A numeric zero coerced from a blank cell is empty; a typed "0" is not.
func (v Value) IsEmpty() bool {
	return strings.TrimSpace(v.Raw) == ""
}

// String returns the value as text.
func (v Value) String() string {
	if v.Type == FieldNumeric {
		return v.Number.String()
	}
	return v.Raw
}

// MarshalJSON renders numbers as JSON numbers and text as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Type == FieldNumeric {
		return []byte(v.Number.String()), nil
	}
	return json.Marshal(v.Raw)
}

// CanonicalRow maps field keys to coerced values.
// Unmapped fields are absent.
type CanonicalRow map[string]Value

// Text returns the text of a field, or "" when absent.
func (r CanonicalRow) Text(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	return v.String()
}

// Number returns the numeric value of a field and whether it was present.
func (r CanonicalRow) Number(key string) (decimal.Decimal, bool) {
	v, ok := r[key]
	if !ok || v.Type != FieldNumeric {
		return decimal.Zero, false
	}
	return v.Number, true
}

// RowStatus is the classification of a parsed row.
type RowStatus string

const (
	StatusValid   RowStatus = "valid"
	StatusWarning RowStatus = "warning"
	StatusError   RowStatus = "error"
)

// ParsedRow is the validation result for one raw row.
type ParsedRow struct {
	Index    int          `json:"index"` // 0-based position in the uploaded sheet
	Data     CanonicalRow `json:"data"`
	Errors   []string     `json:"errors"`
	Warnings []string     `json:"warnings"`
	Status   RowStatus    `json:"status"`
}

// Importable reports whether the row may be submitted.
func (r ParsedRow) Importable() bool {
	return r.Status != StatusError
}

// ImportPhase indicates the current stage of a batch import.
type ImportPhase string

const (
	PhaseStarting  ImportPhase = "starting"
	PhaseImporting ImportPhase = "importing"
	PhaseComplete  ImportPhase = "complete"
	PhaseFailed    ImportPhase = "failed"
	PhaseCancelled ImportPhase = "cancelled"
)

// ImportProgress represents the current state of a batch import.
type ImportProgress struct {
	SessionID string      `json:"session_id"`
	Target    string      `json:"target"`
	Phase     ImportPhase `json:"phase"`
	Total     int         `json:"total"`
	Processed int         `json:"processed"`
	Success   int         `json:"success"`
	Failed    int         `json:"failed"`
	Percent   int         `json:"percent"`
	Error     string      `json:"error,omitempty"` // Non-empty if Phase is PhaseFailed
}

// ProgressPercent returns round(done/total*100) using integer arithmetic.
func ProgressPercent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*done + total) / (2 * total)
}

// FailedRow contains information about a row the persistence collaborator rejected.
type FailedRow struct {
	Row       int          `json:"row"`        // 1-based position among submitted rows
	SheetLine int          `json:"sheet_line"` // 1-based data row in the uploaded sheet
	Reason    string       `json:"reason"`
	Data      CanonicalRow `json:"data"`
}

// ImportResult contains the final result of a batch import.
type ImportResult struct {
	Success    int           `json:"success"`
	Failed     int           `json:"failed"`
	Cancelled  int           `json:"cancelled"`
	Errors     []string      `json:"errors"`
	FailedRows []FailedRow   `json:"failed_rows,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Submitted returns the number of rows handed to the persistence collaborator.
func (r ImportResult) Submitted() int {
	return r.Success + r.Failed
}

// Summary returns the bounded error list shown to users.
func (r ImportResult) Summary() ErrorSummary {
	return SummarizeErrors(r.Errors, DefaultErrorSampleSize)
}

// ProgressCallback is called after each submitted row.
type ProgressCallback func(ImportProgress)
