package core

import "fmt"

// DefaultErrorSampleSize is how many import errors are surfaced before
// collapsing the rest into a "+N more" indicator.
const DefaultErrorSampleSize = 5

// ErrorSummary is a bounded view over a list of error messages.
type ErrorSummary struct {
	Shown     []string `json:"shown"`
	Remaining int      `json:"remaining"`
	Total     int      `json:"total"`
}

// MoreLabel returns "+N more" when messages were omitted, otherwise "".
func (s ErrorSummary) MoreLabel() string {
	if s.Remaining <= 0 {
		return ""
	}
	return fmt.Sprintf("+%d more", s.Remaining)
}

// SummarizeErrors keeps the first limit messages.
func SummarizeErrors(errs []string, limit int) ErrorSummary {
	if limit < 0 {
		limit = 0
	}
	shown := errs
	if len(shown) > limit {
		shown = shown[:limit]
	}
	out := make([]string, len(shown))
	copy(out, shown)
	return ErrorSummary{
		Shown:     out,
		Remaining: len(errs) - len(out),
		Total:     len(errs),
	}
}

// ValidationCounts summarises a validation pass.
type ValidationCounts struct {
	Total      int `json:"total"`
	Valid      int `json:"valid"`
	Warning    int `json:"warning"`
	Error      int `json:"error"`
	Importable int `json:"importable"`
}

// CountRows classifies parsed rows by status.
func CountRows(rows []ParsedRow) ValidationCounts {
	c := ValidationCounts{Total: len(rows)}
	for _, r := range rows {
		switch r.Status {
		case StatusValid:
			c.Valid++
		case StatusWarning:
			c.Warning++
		default:
			c.Error++
		}
	}
	c.Importable = c.Valid + c.Warning
	return c
}
