package web

// errors.go provides unified error response handling for the web layer.
//
// Every error leaves the server as JSON: the technical error is logged with
// the request ID, the client gets the core.MapError message, action and code.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	"github.com/edrees2022/log-and-ledger-sub006/internal/logging"
	"github.com/edrees2022/log-and-ledger-sub006/internal/store"
)

var (
	errRateLimited    = errors.New("rate limit exceeded")
	errNoFile         = errors.New("no file provided")
	errInvalidRequest = errors.New("invalid request")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// respondError logs err and writes the user-facing error with a status
// derived from its type.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	uerr := userError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", uerr.User.Code,
	)

	if errors.Is(err, core.ErrTooManyImports) {
		w.Header().Set("Retry-After", "30")
	}
	writeJSONStatus(w, status, toErrorResponse(uerr))
}

// writeError writes a mapped error without request logging.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSONStatus(w, status, toErrorResponse(userError(err)))
}

// userError maps err to the message shown to the client. A malformed request
// maps to REQ003 whatever the decoder reported, unless the body was too large.
func userError(err error) *core.UserError {
	var tooLarge *http.MaxBytesError
	if errors.Is(err, errInvalidRequest) && !errors.As(err, &tooLarge) {
		return &core.UserError{Technical: err, User: core.MapError(errInvalidRequest)}
	}
	return core.NewUserError(err)
}

// errInvalidRequestf formats a bad request error.
func errInvalidRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errInvalidRequest}, args...)...)
}

func toErrorResponse(uerr *core.UserError) ErrorResponse {
	resp := ErrorResponse{
		Error:   uerr.Error(),
		Message: uerr.User.Message,
		Action:  uerr.User.Action,
		Code:    uerr.User.Code,
	}
	var verr *store.ValidationError
	if errors.As(uerr, &verr) {
		resp.Details = verr.Problems
	}
	return resp
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var (
		stageErr   *core.StageError
		parseErr   *core.ParseError
		targetErr  *core.UnknownTargetError
		fieldErr   *core.UnknownFieldError
		validErr   *store.ValidationError
		dbErr      *store.DBError
		maxBytesEr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &maxBytesEr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, store.ErrMappingNotFound),
		errors.As(err, &targetErr):
		return http.StatusNotFound
	case errors.As(err, &stageErr),
		errors.Is(err, core.ErrNoImportRunning):
		return http.StatusConflict
	case errors.As(err, &parseErr),
		errors.Is(err, core.ErrNoImportableRows):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fieldErr),
		errors.As(err, &validErr),
		errors.Is(err, errNoFile),
		errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &dbErr) && dbErr.Code == "23505":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
