package cli

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/openbookapp/openbook-library/internal/di/providers"
)

func newDaemonCommand(a *App) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run scheduled backups until interrupted",
		Long: `Run the backup scheduler in the foreground.

The schedule comes from --backup-schedule (or BACKUP_SCHEDULE) as a
five-field cron expression or a descriptor such as @daily. After each run
backups beyond --backup-keep are pruned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			sched, err := do.Invoke[*providers.BackupSchedulerHandle](a.injector)
			if err != nil {
				return err
			}
			if !sched.Enabled() && !runNow {
				a.logger.Warn("no backup schedule configured, nothing to do")
				return nil
			}

			if runNow {
				if err := sched.RunNow(ctx); err != nil {
					return err
				}
			}
			if !sched.Enabled() {
				return nil
			}

			if next := sched.NextRun(); next != nil {
				a.logger.Info("backup daemon running",
					"schedule", a.cfg.Backup.Schedule,
					"next_run", *next,
					"backup_dir", a.backups.Dir())
			}

			<-ctx.Done()
			a.logger.Info("backup daemon stopping")
			return nil
		},
	}

	cmd.Flags().BoolVar(&runNow, "now", false, "Create a backup immediately before waiting for the schedule")
	return cmd
}
