package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	backupimport "github.com/openbookapp/openbook-library/internal/backup/import"
)

func newBackupCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage library backups",
	}
	cmd.AddCommand(newBackupCreateCommand(a))
	cmd.AddCommand(newBackupListCommand(a))
	cmd.AddCommand(newBackupDeleteCommand(a))
	cmd.AddCommand(newBackupPruneCommand(a))
	cmd.AddCommand(newBackupRestoreCommand(a))
	return cmd
}

func newBackupCreateCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Write a backup to the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.backups.Create(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(res, func() {
				a.printf("Backup written to %s\n", res.Path)
				a.printf("  %d lists, %d books, %d list entries, %s in %s\n",
					res.Counts.Lists, res.Counts.Books, res.Counts.ListBooks,
					humanBytes(res.Size), res.Duration.Round(time.Millisecond))
			})
		},
	}
}

func newBackupListCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backups, err := a.backups.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(backups, func() {
				if len(backups) == 0 {
					a.printf("No backups in %s\n", a.backups.Dir())
					return
				}
				t := a.newTable("ID", "Created", "Size")
				t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
				for _, b := range backups {
					t.AppendRow(table.Row{b.ID, b.CreatedAt.Local().Format(time.DateTime), humanBytes(b.Size)})
				}
				t.Render()
			})
		},
	}
}

func newBackupDeleteCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <backup-id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.backups.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("Deleted backup %s\n", args[0])
			return nil
		},
	}
}

func newBackupPruneCommand(a *App) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("keep") {
				keep = a.cfg.Backup.Keep
			}
			removed, err := a.backups.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			a.printf("Removed %d backups, kept %d\n", removed, keep)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Number of backups to keep (default: backup-keep setting)")
	return cmd
}

func newBackupRestoreCommand(a *App) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "restore <backup-id|path>",
		Short: "Restore a backup into the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := backupimport.ParseMode(mode)
			if err != nil {
				return err
			}
			res, err := a.backups.Restore(cmd.Context(), args[0], m)
			if err != nil {
				return err
			}
			return a.render(res, func() {
				a.printf("Restored %s (%s): %d lists, %d books, %d list entries\n",
					res.Path, res.Mode, res.ListsImported, res.BooksImported, res.ListBooksImported)
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(backupimport.ModeMerge), "Import mode (merge|replace)")
	return cmd
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
