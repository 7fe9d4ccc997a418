package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultImportTimeout bounds a single batch import.
const DefaultImportTimeout = 30 * time.Minute

// Service hosts import sessions and runs their batches in the background.
type Service struct {
	parser   Parser
	creator  Creator
	recorder RunRecorder
	limiter  *ImportLimiter
	timeout  time.Duration

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// sessionEntry guards one Session. All session calls happen under mu.
type sessionEntry struct {
	mu      sync.Mutex
	session *Session
	touched time.Time
	run     *activeImport
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRecorder stores a history record for every finished batch.
func WithRecorder(r RunRecorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// WithLimiter sets the limiter bounding parallel imports.
func WithLimiter(l *ImportLimiter) ServiceOption {
	return func(s *Service) { s.limiter = l }
}

// WithImportTimeout bounds each batch import.
func WithImportTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService creates a Service that parses uploads with parser and persists
// rows with creator.
func NewService(parser Parser, creator Creator, opts ...ServiceOption) *Service {
	s := &Service{
		parser:   parser,
		creator:  creator,
		timeout:  DefaultImportTimeout,
		sessions: make(map[string]*sessionEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = NewImportLimiter(DefaultMaxConcurrentImports, DefaultMaxWaitTime)
	}
	return s
}

// ListTargets returns all registered import targets.
func (s *Service) ListTargets() []ImportTypeConfig {
	return All()
}

// CreateSession starts a new session for target.
func (s *Service) CreateSession(ctx context.Context, target string) (Snapshot, error) {
	cfg, err := GetConfig(target)
	if err != nil {
		return Snapshot{}, err
	}

	id := uuid.New().String()
	entry := &sessionEntry{
		session: NewSession(id, cfg, s.parser),
		touched: time.Now(),
	}

	s.mu.Lock()
	s.sessions[id] = entry
	count := len(s.sessions)
	s.mu.Unlock()

	metricsSingleton().activeSessions.Set(float64(count))
	slog.InfoContext(ctx, "import session created", "session_id", id, "target", target)
	return entry.session.Snapshot(), nil
}

// entry looks up a session.
func (s *Service) entry(id string) (*sessionEntry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

// withSession runs fn with the session locked and returns a fresh snapshot.
func (s *Service) withSession(id string, fn func(*Session) error) (Snapshot, error) {
	e, err := s.entry(id)
	if err != nil {
		return Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.touched = time.Now()
	err = fn(e.session)
	return e.session.Snapshot(), err
}

// GetSession returns a snapshot of a session.
func (s *Service) GetSession(id string) (Snapshot, error) {
	return s.withSession(id, func(*Session) error { return nil })
}

// DeleteSession cancels any running import and forgets the session.
func (s *Service) DeleteSession(id string) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	s.stopImport(e)

	s.mu.Lock()
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()

	metricsSingleton().activeSessions.Set(float64(count))
	return nil
}

// SelectTarget switches a session to another target, discarding its state.
func (s *Service) SelectTarget(id, target string) (Snapshot, error) {
	cfg, err := GetConfig(target)
	if err != nil {
		return Snapshot{}, err
	}
	e, err := s.entry(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.withSession(id, func(sess *Session) error {
		if err := sess.SelectTarget(cfg); err != nil {
			return err
		}
		e.run = nil
		return nil
	})
}

// Upload parses a file into the session.
func (s *Service) Upload(ctx context.Context, id, fileName string, data []byte) (Snapshot, error) {
	snap, err := s.withSession(id, func(sess *Session) error {
		return sess.Upload(fileName, data)
	})
	if err != nil {
		slog.WarnContext(ctx, "upload rejected", "session_id", id, "file", fileName, "error", err)
		return snap, err
	}
	slog.InfoContext(ctx, "file parsed",
		"session_id", id,
		"target", snap.Target,
		"file", fileName,
		"rows", snap.RowCount,
		"unmapped", len(snap.Unmapped),
	)
	return snap, nil
}

// UpdateMapping binds one field to a header ("" unbinds).
func (s *Service) UpdateMapping(id, field, header string) (Snapshot, error) {
	return s.withSession(id, func(sess *Session) error {
		return sess.UpdateMapping(field, header)
	})
}

// ApplyMapping replaces the session mapping, e.g. from a saved mapping.
func (s *Service) ApplyMapping(id string, m ColumnMapping) (Snapshot, error) {
	return s.withSession(id, func(sess *Session) error {
		return sess.ApplyMapping(m)
	})
}

// Suggestions returns advisory header candidates for unmapped fields.
func (s *Service) Suggestions(id string) ([]Suggestion, error) {
	var out []Suggestion
	_, err := s.withSession(id, func(sess *Session) error {
		out = SuggestColumns(sess.headers, sess.mapping, sess.target)
		return nil
	})
	return out, err
}

// Validate runs row validation and moves the session to previewing.
func (s *Service) Validate(id string) (Snapshot, error) {
	return s.withSession(id, func(sess *Session) error {
		_, err := sess.Validate()
		return err
	})
}

// BackToMapping returns a previewing session to mapping.
func (s *Service) BackToMapping(id string) (Snapshot, error) {
	return s.withSession(id, func(sess *Session) error {
		return sess.BackToMapping()
	})
}

// Rows pages through parsed rows, optionally filtered by status.
// Returns the page and the number of rows matching the filter.
func (s *Service) Rows(id string, status RowStatus, offset, limit int) ([]ParsedRow, int, error) {
	var page []ParsedRow
	var total int
	_, err := s.withSession(id, func(sess *Session) error {
		var matched []ParsedRow
		for _, r := range sess.parsedRows {
			if status == "" || r.Status == status {
				matched = append(matched, r)
			}
		}
		total = len(matched)
		if offset < 0 {
			offset = 0
		}
		if offset > total {
			offset = total
		}
		end := total
		if limit > 0 && offset+limit < total {
			end = offset + limit
		}
		page = append([]ParsedRow(nil), matched[offset:end]...)
		return nil
	})
	return page, total, err
}

// Reset returns a session to collecting, cancelling a running import first.
func (s *Service) Reset(id string) (Snapshot, error) {
	e, err := s.entry(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.stopImport(e)

	return s.withSession(id, func(sess *Session) error {
		sess.Reset()
		e.run = nil
		return nil
	})
}

// PruneIdle removes sessions untouched for longer than maxIdle that are not importing.
func (s *Service) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		idle := e.touched.Before(cutoff) && e.session.Stage() != StageImporting
		e.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	metricsSingleton().activeSessions.Set(float64(len(s.sessions)))
	return removed
}

// SessionCount returns the number of sessions held in memory.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// LimiterStatus returns the import limiter state.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
