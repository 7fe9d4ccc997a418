package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
)

// DefaultHistoryLimit bounds ListRuns when the caller passes no limit.
const DefaultHistoryLimit = 50

// RecordRun stores the history record of one finished batch.
func (s *Store) RecordRun(ctx context.Context, run core.ImportRun) error {
	errsJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO import_runs (id, session_id, company_id, target, file_name, phase,
		                         success, failed, cancelled, errors, duration_ms,
		                         ip_address, user_agent, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		run.ID, run.SessionID, s.companyID, run.Target, run.FileName, string(run.Phase),
		run.Success, run.Failed, run.Cancelled, errsJSON, run.Duration.Milliseconds(),
		toPgText(run.IPAddress), toPgText(run.UserAgent), run.StartedAt,
	)
	if err != nil {
		return dbError("record import run", err)
	}
	return nil
}

// ListRuns returns the most recent runs for target, newest first.
func (s *Store) ListRuns(ctx context.Context, target string, limit int) ([]core.ImportRun, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, target, file_name, phase, success, failed, cancelled,
		       errors, duration_ms, ip_address, user_agent, started_at
		FROM import_runs
		WHERE company_id = $1 AND target = $2
		ORDER BY started_at DESC
		LIMIT $3`,
		s.companyID, target, limit,
	)
	if err != nil {
		return nil, dbError("list import runs", err)
	}
	defer rows.Close()

	runs, err := pgx.CollectRows(rows, scanRun)
	if err != nil {
		return nil, fmt.Errorf("scan import runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.CollectableRow) (core.ImportRun, error) {
	var (
		id         pgtype.UUID
		run        core.ImportRun
		phase      string
		errsJSON   []byte
		durationMS int64
		ipAddress  pgtype.Text
		userAgent  pgtype.Text
	)

	err := row.Scan(
		&id, &run.SessionID, &run.Target, &run.FileName, &phase,
		&run.Success, &run.Failed, &run.Cancelled,
		&errsJSON, &durationMS, &ipAddress, &userAgent, &run.StartedAt,
	)
	if err != nil {
		return core.ImportRun{}, err
	}

	run.ID = uuidString(id)
	run.Phase = core.ImportPhase(phase)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if ipAddress.Valid {
		run.IPAddress = ipAddress.String
	}
	if userAgent.Valid {
		run.UserAgent = userAgent.String
	}
	if err := json.Unmarshal(errsJSON, &run.Errors); err != nil {
		return core.ImportRun{}, fmt.Errorf("unmarshal errors: %w", err)
	}
	return run, nil
}
