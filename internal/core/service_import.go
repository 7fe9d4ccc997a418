package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edrees2022/log-and-ledger-sub006/internal/logging"
)

// activeImport tracks one background batch and its progress listeners.
type activeImport struct {
	cancel context.CancelFunc
	done   chan struct{}

	listenerMu sync.Mutex
	progress   ImportProgress
	listeners  []chan ImportProgress
	result     *ImportResult
}

// notify records p and sends it to all listeners, skipping slow ones.
func (a *activeImport) notify(p ImportProgress) {
	a.listenerMu.Lock()
	defer a.listenerMu.Unlock()

	a.progress = p
	for _, ch := range a.listeners {
		select {
		case ch <- p:
		default:
		}
	}
}

// finish stores the result, sends the final update and closes all listeners.
func (a *activeImport) finish(p ImportProgress, res ImportResult) {
	a.listenerMu.Lock()
	defer a.listenerMu.Unlock()

	a.progress = p
	a.result = &res
	for _, ch := range a.listeners {
		select {
		case ch <- p:
		default:
		}
		close(ch)
	}
	a.listeners = nil
	close(a.done)
}

// StartImport moves a previewing session to importing and runs the batch in
// the background. It returns once the batch has a slot, or with
// ErrTooManyImports, ErrNoImportableRows or a *StageError.
func (s *Service) StartImport(ctx context.Context, id string) (Snapshot, error) {
	e, err := s.entry(id)
	if err != nil {
		return Snapshot{}, err
	}

	// Check the transition before waiting for a slot
	e.mu.Lock()
	if e.session.Stage() != StagePreviewing {
		err := &StageError{Op: "start import", Stage: e.session.Stage()}
		snap := e.session.Snapshot()
		e.mu.Unlock()
		return snap, err
	}
	if CountRows(e.session.parsedRows).Importable == 0 {
		_, err := e.session.BeginImport()
		snap := e.session.Snapshot()
		e.mu.Unlock()
		return snap, err
	}
	e.mu.Unlock()

	if !s.limiter.TryAcquire() {
		logging.FromContext(ctx).Info("import queued, all slots busy",
			"session_id", id, "active", s.limiter.ActiveCount())
		if err := s.limiter.Acquire(ctx); err != nil {
			return Snapshot{}, err
		}
	}

	e.mu.Lock()
	rows, err := e.session.BeginImport()
	if err != nil {
		snap := e.session.Snapshot()
		e.mu.Unlock()
		s.limiter.Release()
		return snap, err
	}
	target := e.session.Target().ID
	fileName := e.session.FileName()

	importCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	run := &activeImport{
		cancel: cancel,
		done:   make(chan struct{}),
		progress: ImportProgress{
			SessionID: id,
			Target:    target,
			Phase:     PhaseStarting,
			Total:     CountRows(rows).Importable,
		},
	}
	e.run = run
	e.touched = time.Now()
	snap := e.session.Snapshot()
	e.mu.Unlock()

	logger := logging.ForSession(ctx, id, target)
	logger.Info("import started", "rows", run.progress.Total, "file", fileName)

	go func() {
		defer s.limiter.Release()
		defer cancel()
		s.runImport(importCtx, e, run, rows, logger)
	}()

	return snap, nil
}

// runImport executes the batch and records its outcome.
func (s *Service) runImport(ctx context.Context, e *sessionEntry, run *activeImport, rows []ParsedRow, logger *slog.Logger) {
	started := time.Now()
	target := run.progress.Target
	sessionID := run.progress.SessionID

	var result ImportResult
	phase := PhaseComplete

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in import", "panic", r)
			phase = PhaseFailed
			result.Errors = append(result.Errors, fmt.Sprintf("internal error: %v", r))
		}

		e.mu.Lock()
		if e.session.Stage() == StageImporting {
			if err := e.session.Complete(result); err != nil {
				logger.Error("complete import", "error", err)
			}
		}
		fileName := e.session.FileName()
		e.mu.Unlock()

		final := run.progress
		final.Phase = phase
		final.Success = result.Success
		final.Failed = result.Failed
		if phase == PhaseFailed && len(result.Errors) > 0 {
			final.Error = result.Errors[len(result.Errors)-1]
		}

		observeBatch(target, phase, result)
		logger.Info("import finished",
			"phase", phase,
			"success", result.Success,
			"failed", result.Failed,
			"cancelled", result.Cancelled,
			"duration_ms", result.Duration.Milliseconds(),
		)

		// History is written before waiters are released
		if s.recorder != nil {
			rec := newImportRun(ctx, sessionID, target, fileName, phase, result, started)
			recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			if err := s.recorder.RecordRun(recCtx, rec); err != nil {
				logger.Warn("failed to record import run", "error", err)
			}
			cancel()
		}

		run.finish(final, result)
	}()

	importer := NewBatchImporter(s.creator,
		WithSessionID(sessionID),
		WithLogger(logger),
		WithProgress(func(p ImportProgress) {
			e.mu.Lock()
			e.session.SetProgress(p.Percent)
			e.touched = time.Now()
			e.mu.Unlock()
			run.notify(p)
		}),
	)

	run.notify(ImportProgress{SessionID: sessionID, Target: target, Phase: PhaseImporting, Total: run.progress.Total})
	result = importer.Run(ctx, target, rows)

	if result.Cancelled > 0 {
		phase = PhaseCancelled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			phase = PhaseFailed
			result.Errors = append(result.Errors, "import timed out")
		}
	}
}

// SubscribeProgress returns a channel of progress updates for the session's
// current import. The channel is closed when the import finishes.
func (s *Service) SubscribeProgress(id string) (<-chan ImportProgress, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	run := e.run
	e.mu.Unlock()
	if run == nil {
		return nil, fmt.Errorf("%w for session %s", ErrNoImportRunning, id)
	}

	ch := make(chan ImportProgress, 10)

	run.listenerMu.Lock()
	defer run.listenerMu.Unlock()

	// Send current progress immediately
	ch <- run.progress
	if run.result != nil {
		close(ch)
		return ch, nil
	}
	run.listeners = append(run.listeners, ch)
	return ch, nil
}

// CancelImport stops a running import before its next row.
func (s *Service) CancelImport(id string) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	run := e.run
	e.mu.Unlock()
	if run == nil {
		return fmt.Errorf("%w for session %s", ErrNoImportRunning, id)
	}
	run.cancel()
	return nil
}

// WaitResult blocks until the session's import finishes and returns its result.
func (s *Service) WaitResult(ctx context.Context, id string) (*ImportResult, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	run := e.run
	e.mu.Unlock()
	if run == nil {
		return nil, fmt.Errorf("%w for session %s", ErrNoImportRunning, id)
	}

	select {
	case <-run.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	run.listenerMu.Lock()
	defer run.listenerMu.Unlock()
	return run.result, nil
}

// stopImport cancels a running import and waits for it to finish.
func (s *Service) stopImport(e *sessionEntry) {
	e.mu.Lock()
	run := e.run
	e.mu.Unlock()
	if run == nil {
		return
	}
	run.cancel()
	<-run.done
}
