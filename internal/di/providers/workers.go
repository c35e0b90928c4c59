package providers

import (
	"context"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/openbookapp/openbook-library/internal/backup"
	"github.com/openbookapp/openbook-library/internal/config"
	"github.com/openbookapp/openbook-library/internal/scheduler"
)

// BackupSchedulerHandle wraps the backup scheduler with shutdown capability.
type BackupSchedulerHandle struct {
	*scheduler.BackupScheduler
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *BackupSchedulerHandle) Shutdown() error {
	h.cancel()
	h.Stop()
	return nil
}

// ProvideBackupScheduler provides and starts the backup scheduler.
// With no schedule configured the scheduler stays idle.
func ProvideBackupScheduler(i do.Injector) (*BackupSchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	backups := do.MustInvoke[*backup.BackupService](i)
	log := do.MustInvoke[*slog.Logger](i)

	sched := scheduler.NewBackupScheduler(backups, cfg.Backup.Schedule, cfg.Backup.Keep, log)

	ctx, cancel := context.WithCancel(context.Background())
	if err := sched.Start(ctx); err != nil {
		cancel()
		return nil, err
	}

	return &BackupSchedulerHandle{
		BackupScheduler: sched,
		cancel:          cancel,
	}, nil
}
