package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// historyErrorLimit caps the error messages persisted with a run.
const historyErrorLimit = 20

// ImportRun is the history record of one finished batch.
type ImportRun struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Target    string        `json:"target"`
	FileName  string        `json:"file_name"`
	Phase     ImportPhase   `json:"phase"`
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	Cancelled int           `json:"cancelled"`
	Errors    []string      `json:"errors"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
	IPAddress string        `json:"ip_address,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
}

// RunRecorder persists import history.
type RunRecorder interface {
	RecordRun(ctx context.Context, run ImportRun) error
}

// newImportRun builds the history record for a finished batch.
func newImportRun(ctx context.Context, sessionID, target, fileName string, phase ImportPhase, res ImportResult, started time.Time) ImportRun {
	ip, ua := ClientFromContext(ctx)
	errs := res.Errors
	if len(errs) > historyErrorLimit {
		errs = errs[:historyErrorLimit]
	}
	return ImportRun{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Target:    target,
		FileName:  fileName,
		Phase:     phase,
		Success:   res.Success,
		Failed:    res.Failed,
		Cancelled: res.Cancelled,
		Errors:    append([]string{}, errs...),
		Duration:  res.Duration,
		StartedAt: started,
		IPAddress: ip,
		UserAgent: ua,
	}
}
