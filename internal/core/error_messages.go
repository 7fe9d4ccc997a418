package core

// error_messages.go maps technical errors to user-facing messages.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Patterns: "file too large", "request body too large"
//	FILE002 - Invalid file: The file could not be read
//	          Patterns: "invalid file"
//	FILE004 - No file: No file was selected
//	          Patterns: "no file provided"
//	FILE005 - Empty file: The file has no data rows
//	          Patterns: "empty file"
//	FILE006 - Unsupported format: Only xlsx, csv and json are accepted
//	          Patterns: "unsupported format"
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Missing mapping: A required field has no column
//	         Patterns: "missing mapping for required field"
//	MAP002 - Unknown field: The field does not exist on this target
//	         Patterns: "unknown field"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL002 - Invalid number: A numeric column holds text
//	         Patterns: "invalid number"
//	VAL003 - Required field: Required field is empty
//	         Patterns: "required field"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Nothing to import: Every row has errors
//	         Patterns: "no valid rows to import"
//	IMP002 - System busy: Too many imports in progress
//	         Patterns: "too many concurrent imports"
//	IMP003 - No import: No import is running for this session
//	         Patterns: "no import running"
//	IMP004 - Import timed out
//	         Patterns: "import timed out"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired: Import session not found
//	         Patterns: "import session not found"
//	SES002 - Wrong step: The action is not available at this step
//	         Patterns: "invalid stage"
//
// # Target Errors (TGT001-TGT099)
//
//	TGT001 - Unknown target: The import type is not configured
//	         Patterns: "unknown import target"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key          Patterns: "duplicate key"
//	DB002 - Unique constraint      Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key            Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused     Patterns: "connection refused"
//	DB005 - Connection reset       Patterns: "connection reset"
//	DB006 - Timeout                Patterns: "timeout"
//	DB007 - Deadlock               Patterns: "deadlock"
//	DB008 - Missing value          Patterns: "violates not-null"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled     Patterns: "context canceled"
//	REQ002 - Request timeout       Patterns: "context deadline exceeded"
//	REQ003 - Bad request           Patterns: "invalid request"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited         Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are listed
// before general ones ("missing mapping for required field" before
// "required field").

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file has no data rows",
			Action:  "Add rows below the header row and upload again",
			Code:    "FILE005",
		},
	},
	{
		pattern: "unsupported format",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Upload an .xlsx, .csv or .json file",
			Code:    "FILE006",
		},
	},
	{
		pattern: "invalid file",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check the file is not corrupted, or download the template and start from it",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a spreadsheet to upload",
			Code:    "FILE004",
		},
	},

	// =========================================================================
	// Mapping and Validation Errors
	// =========================================================================
	{
		pattern: "missing mapping for required field",
		msg: UserMessage{
			Message: "A required field is not mapped to any column",
			Action:  "Choose a column for every required field",
			Code:    "MAP001",
		},
	},
	{
		pattern: "unknown field",
		msg: UserMessage{
			Message: "The field does not exist for this import type",
			Action:  "Pick one of the listed fields",
			Code:    "MAP002",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Use plain numbers such as 1250.50; the value was imported as 0",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Fill in all required columns",
			Code:    "VAL003",
		},
	},

	// =========================================================================
	// Import and Session Errors
	// =========================================================================
	{
		pattern: "no valid rows to import",
		msg: UserMessage{
			Message: "There are no valid rows to import",
			Action:  "Fix the row errors or adjust the column mapping",
			Code:    "IMP001",
		},
	},
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "Too many imports in progress",
			Action:  "Please wait a moment and try again",
			Code:    "IMP002",
		},
	},
	{
		pattern: "no import running",
		msg: UserMessage{
			Message: "No import is running for this session",
			Action:  "Start the import first",
			Code:    "IMP003",
		},
	},
	{
		pattern: "import timed out",
		msg: UserMessage{
			Message: "The import took too long and was stopped",
			Action:  "Import the remaining rows in a smaller file",
			Code:    "IMP004",
		},
	},
	{
		pattern: "import session not found",
		msg: UserMessage{
			Message: "Import session not found",
			Action:  "The session may have expired. Please start a new import",
			Code:    "SES001",
		},
	},
	{
		pattern: "invalid stage",
		msg: UserMessage{
			Message: "This action is not available at the current step",
			Action:  "Refresh the import and continue from the current step",
			Code:    "SES002",
		},
	},
	{
		pattern: "unknown import target",
		msg: UserMessage{
			Message: "This import type is not configured",
			Action:  "Choose contacts, items or accounts",
			Code:    "TGT001",
		},
	},

	// =========================================================================
	// Database Errors
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Download failed rows to review duplicates",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Import parent records first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Import parent records first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates not-null",
		msg: UserMessage{
			Message: "A value the database requires is missing",
			Action:  "Fill in the missing column and try again",
			Code:    "DB008",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Request Errors
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request was not understood",
			Action:  "Check the request body and try again",
			Code:    "REQ003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first matching pattern, or ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
