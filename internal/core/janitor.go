package core

// janitor.go provides background cleanup of abandoned import sessions.
//
// Sessions live in memory until deleted. Browsers that walk away mid-wizard
// never delete theirs, so a long-running janitor drops sessions that have not
// been touched within the idle limit. Sessions that are importing are kept.

import (
	"context"
	"log/slog"
	"time"
)

// JanitorConfig holds configuration for the session janitor.
type JanitorConfig struct {
	MaxIdle       time.Duration // Drop sessions idle longer than this (default: 1h)
	CheckInterval time.Duration // How often to sweep (default: 5m)
}

// StartJanitor periodically prunes idle sessions until ctx is cancelled.
func (s *Service) StartJanitor(ctx context.Context, cfg JanitorConfig) {
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = time.Hour
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Minute
	}

	slog.Info("session janitor started",
		"max_idle", cfg.MaxIdle.String(),
		"check_interval", cfg.CheckInterval.String(),
	)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			if removed := s.PruneIdle(cfg.MaxIdle); removed > 0 {
				slog.Info("pruned idle sessions", "removed", removed, "remaining", s.SessionCount())
			}
		}
	}
}
