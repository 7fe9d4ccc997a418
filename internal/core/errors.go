package core

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrNoImportableRows is returned when an import is requested but every
// parsed row has status error.
var ErrNoImportableRows = errors.New("no valid rows to import")

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("import session not found")

// ErrNoImportRunning is returned when progress, cancellation or a result is
// requested for a session that never started an import.
var ErrNoImportRunning = errors.New("no import running")

// ParseErrorKind classifies why a file could not be turned into rows.
type ParseErrorKind string

const (
	ParseInvalidFile       ParseErrorKind = "invalid_file"
	ParseUnsupportedFormat ParseErrorKind = "unsupported_format"
	ParseEmptyFile         ParseErrorKind = "empty_file"
)

// ParseError blocks a session from leaving the collecting stage.
type ParseError struct {
	Kind     ParseErrorKind
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ParseEmptyFile:
		return fmt.Sprintf("empty file: %s contains no data rows", e.FileName)
	case ParseUnsupportedFormat:
		if e.Err != nil {
			return fmt.Sprintf("unsupported format: %s: %v", e.FileName, e.Err)
		}
		return fmt.Sprintf("unsupported format: %s", e.FileName)
	default:
		if e.Err != nil {
			return fmt.Sprintf("invalid file: %s: %v", e.FileName, e.Err)
		}
		return fmt.Sprintf("invalid file: %s", e.FileName)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MappingGapError: a required field has no bound column.
type MappingGapError struct {
	Field string
}

func (e *MappingGapError) Error() string {
	return "missing mapping for required field " + e.Field
}

// CoercionWarning: a numeric field held a non-numeric value and was coerced to 0.
type CoercionWarning struct {
	Field string
	Value string
}

func (e *CoercionWarning) Error() string {
	return "invalid number for " + e.Field
}

// RequiredFieldEmptyError: a required field is empty after coercion.
type RequiredFieldEmptyError struct {
	Field string
}

func (e *RequiredFieldEmptyError) Error() string {
	return "required field " + e.Field + " is empty"
}

// RowPersistenceError records one row rejected by the persistence collaborator.
// Row is the 1-based position among submitted rows.
type RowPersistenceError struct {
	Row int
	Err error
}

func (e *RowPersistenceError) Error() string {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "Import failed"
	}
	return "Row " + strconv.Itoa(e.Row) + ": " + msg
}

func (e *RowPersistenceError) Unwrap() error {
	return e.Err
}

// UnknownTargetError is returned for an import target that is not registered.
type UnknownTargetError struct {
	Target string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("unknown import target: %s", e.Target)
}

// UnknownFieldError is returned when a mapping names a field the target does not have.
type UnknownFieldError struct {
	Target string
	Field  string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q for import target %s", e.Field, e.Target)
}

// StageError is returned when an operation is not allowed in the session's current stage.
type StageError struct {
	Op    string
	Stage Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("invalid stage: cannot %s while session is %s", e.Op, e.Stage)
}
