package web

// Shared request helpers used across handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
	"github.com/go-playground/validator/v10"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxBodyBytes    = 1 << 20
)

var validate = newValidator()

// newValidator reports request fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON request body into dst and validates it.
// Every failure wraps errInvalidRequest.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidRequest, err)
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		problems := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", errInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

// parseIntParam parses a non-negative integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// parseStatus reads the optional row status filter.
func parseStatus(r *http.Request) (core.RowStatus, error) {
	status := core.RowStatus(strings.ToLower(r.URL.Query().Get("status")))
	switch status {
	case "", core.StatusValid, core.StatusWarning, core.StatusError:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown row status %q", errInvalidRequest, status)
	}
}

// splitHeaders parses a comma-separated header list from a query parameter.
func splitHeaders(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	headers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			headers = append(headers, p)
		}
	}
	return headers
}

// ResultResponse is the JSON view of a finished batch.
// Errors holds at most core.DefaultErrorSampleSize messages; More reads "+N more".
type ResultResponse struct {
	Success    int      `json:"success"`
	Failed     int      `json:"failed"`
	Cancelled  int      `json:"cancelled"`
	Submitted  int      `json:"submitted"`
	Errors     []string `json:"errors"`
	ErrorTotal int      `json:"error_total"`
	More       string   `json:"more,omitempty"`
	FailedRows int      `json:"failed_rows"`
	Duration   string   `json:"duration"`
}

// toResultResponse converts an ImportResult to a JSON-friendly format.
func toResultResponse(res *core.ImportResult) ResultResponse {
	sum := res.Summary()
	shown := sum.Shown
	if shown == nil {
		shown = []string{}
	}
	return ResultResponse{
		Success:    res.Success,
		Failed:     res.Failed,
		Cancelled:  res.Cancelled,
		Submitted:  res.Submitted(),
		Errors:     shown,
		ErrorTotal: sum.Total,
		More:       sum.MoreLabel(),
		FailedRows: len(res.FailedRows),
		Duration:   res.Duration.Round(time.Millisecond).String(),
	}
}
