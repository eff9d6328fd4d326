// Package cleanup removes job artifacts after a retention delay. Deletion is
// best effort: nothing is persisted, so pending removals are lost on restart.
package cleanup

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cuongbtq/docforge/internal/domain"
)

// Scheduler runs deferred removals on timers detached from the request
type Scheduler struct {
	logger *slog.Logger
	remove func(path string) error

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*time.Timer
	stopped bool
}

// NewScheduler creates a Scheduler
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger:  logger,
		remove:  os.RemoveAll,
		pending: make(map[uint64]*time.Timer),
	}
}

// Schedule removes every path after delay. It never blocks and never reports
// failure to the caller.
func (s *Scheduler) Schedule(delay time.Duration, paths ...string) {
	if len(paths) == 0 {
		return
	}

	entry := domain.RetentionEntry{Paths: paths, Delay: delay}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.logger.Debug("Cleanup scheduler stopped, dropping entry", slog.Any("paths", paths))
		return
	}

	id := s.nextID
	s.nextID++
	s.pending[id] = time.AfterFunc(delay, func() {
		s.run(id, entry)
	})

	s.logger.Debug("Cleanup scheduled",
		slog.Any("paths", paths),
		slog.Duration("delay", delay),
	)
}

func (s *Scheduler) run(id uint64, entry domain.RetentionEntry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("Cleanup task panicked", slog.Any("panic", r))
		}
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	for _, path := range entry.Paths {
		if path == "" {
			continue
		}
		if err := s.remove(path); err != nil {
			s.logger.Debug("Cleanup failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.logger.Debug("Cleaned up", slog.String("path", path))
	}
}

// Pending returns the number of entries not yet run
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every pending timer. Entries scheduled afterwards are dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	s.stopped = true
}
