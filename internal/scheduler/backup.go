// Package scheduler runs periodic library backups.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openbookapp/openbook-library/internal/backup"
)

// Backuper creates and prunes backups.
type Backuper interface {
	Create(ctx context.Context) (*backup.BackupResult, error)
	Prune(ctx context.Context, keep int) (int, error)
}

// RunStatus describes the outcome of the most recent backup run.
type RunStatus struct {
	At       time.Time
	Err      error
	Path     string
	Pruned   int
	Duration time.Duration
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is a usable five-field cron expression or descriptor.
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return nil
}

// BackupScheduler creates a backup on a cron schedule and prunes old ones.
type BackupScheduler struct {
	backups  Backuper
	logger   *slog.Logger
	schedule string
	keep     int

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc

	statusMu sync.Mutex
	last     *RunStatus
}

// NewBackupScheduler creates a scheduler. An empty schedule disables it.
func NewBackupScheduler(backups Backuper, schedule string, keep int, logger *slog.Logger) *BackupScheduler {
	return &BackupScheduler{
		backups:  backups,
		logger:   logger,
		schedule: schedule,
		keep:     keep,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// Enabled reports whether a schedule is configured.
func (s *BackupScheduler) Enabled() bool {
	return s.schedule != ""
}

// Start registers the backup job and starts the cron loop.
// The scheduler stops by itself when ctx ends.
func (s *BackupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.Enabled() {
		s.logger.Info("backup scheduler disabled")
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	entryID, err := s.cron.AddFunc(s.schedule, func() {
		_ = s.RunNow(runCtx)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("schedule backup job: %w", err)
	}
	s.entryID = entryID
	s.cancelFunc = cancel

	s.cron.Start()
	s.isRunning = true

	s.logger.Info("backup scheduler started",
		"schedule", s.schedule,
		"keep", s.keep,
		"next_run", s.cron.Entry(entryID).Next)

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running backup to finish and stops the scheduler.
func (s *BackupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.cancelFunc()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron.Remove(s.entryID)

	s.isRunning = false
	s.cancelFunc = nil

	s.logger.Info("backup scheduler stopped")
}

// RunNow creates a backup and prunes old ones immediately.
func (s *BackupScheduler) RunNow(ctx context.Context) error {
	start := time.Now()
	status := &RunStatus{At: start}
	defer func() {
		status.Duration = time.Since(start)
		s.statusMu.Lock()
		s.last = status
		s.statusMu.Unlock()
	}()

	result, err := s.backups.Create(ctx)
	if err != nil {
		status.Err = err
		s.logger.Error("scheduled backup failed", "error", err)
		return err
	}
	status.Path = result.Path

	pruned, err := s.backups.Prune(ctx, s.keep)
	status.Pruned = pruned
	if err != nil {
		// The new backup exists; a failed prune only leaves extra files.
		status.Err = err
		s.logger.Warn("backup prune failed", "error", err)
		return err
	}
	return nil
}

// IsRunning returns whether the scheduler is active.
func (s *BackupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next backup will occur, or nil when not running.
func (s *BackupScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return nil
	}
	t := entry.Next
	return &t
}

// LastRun returns the status of the most recent run, or nil if none happened.
func (s *BackupScheduler) LastRun() *RunStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if s.last == nil {
		return nil
	}
	status := *s.last
	return &status
}
