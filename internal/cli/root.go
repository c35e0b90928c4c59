// Package cli provides the command-line interface for the OpenBook library.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/openbookapp/openbook-library/internal/backup"
	"github.com/openbookapp/openbook-library/internal/backup/export"
	backupimport "github.com/openbookapp/openbook-library/internal/backup/import"
	"github.com/openbookapp/openbook-library/internal/config"
	"github.com/openbookapp/openbook-library/internal/di"
	"github.com/openbookapp/openbook-library/internal/service"
	"github.com/openbookapp/openbook-library/internal/validation"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// App holds the services a command runs against. It is populated lazily
// before the first command that needs the library.
type App struct {
	cfg      *config.Config
	injector *do.RootScope
	logger   *slog.Logger

	library   *service.LibraryService
	stats     *service.StatsService
	backups   *backup.BackupService
	exporter  *export.Exporter
	importer  *backupimport.Importer
	validator *validation.Validator

	out    io.Writer
	format string
}

func (a *App) open(flags *config.Flags) error {
	if a.injector != nil {
		return nil
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}

	injector := di.NewContainer(cfg)
	if err := di.Bootstrap(injector); err != nil {
		_ = injector.Shutdown()
		return err
	}

	a.cfg = cfg
	a.injector = injector
	a.logger = do.MustInvoke[*slog.Logger](injector)
	a.library = do.MustInvoke[*service.LibraryService](injector)
	a.stats = do.MustInvoke[*service.StatsService](injector)
	a.backups = do.MustInvoke[*backup.BackupService](injector)
	a.exporter = do.MustInvoke[*export.Exporter](injector)
	a.importer = do.MustInvoke[*backupimport.Importer](injector)
	a.validator = validation.New()
	return nil
}

// Close shuts down every service the App opened. It is safe to call more than once.
func (a *App) Close() {
	if a.injector == nil {
		return
	}
	if err := a.injector.Shutdown(); err != nil {
		a.logger.Error("shutdown error", "error", err)
	}
	a.injector = nil
}

// NewRootCmd creates the root command and the App its subcommands share.
// Callers must Close the App once the command has run.
func NewRootCmd() (*cobra.Command, *App) {
	a := &App{out: os.Stdout}

	rootCmd := &cobra.Command{
		Use:   "openbook",
		Short: "OpenBook - local reading list library",
		Long: `OpenBook keeps your reading lists and saved books in a local database.

Books are grouped into three fixed lists (Reading, Will Read, Read) plus any
custom lists you create. The whole library can be exported to a JSON
backup and merged back in on another device.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().StringVarP(&a.format, "output", "o", formatTable, "Output format (table|json)")
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{formatTable, formatJSON}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("store", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.DriverSQLite, config.DriverBadger}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// Skip store setup for help, version and completion commands
		switch cmd.Name() {
		case "help", "completion", "__complete", "version":
			return nil
		}
		a.out = cmd.OutOrStdout()
		if a.format != formatTable && a.format != formatJSON {
			return fmt.Errorf("unknown output format %q (want table or json)", a.format)
		}
		return a.open(flags)
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.AddCommand(newListsCommand(a))
	rootCmd.AddCommand(newListCommand(a))
	rootCmd.AddCommand(newBooksCommand(a))
	rootCmd.AddCommand(newBookCommand(a))
	rootCmd.AddCommand(newStatsCommand(a))
	rootCmd.AddCommand(newExportCommand(a))
	rootCmd.AddCommand(newImportCommand(a))
	rootCmd.AddCommand(newBackupCommand(a))
	rootCmd.AddCommand(newDaemonCommand(a))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd, a
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	rootCmd, a := NewRootCmd()
	defer a.Close()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "openbook v%s (%s)\n", Version, GitCommit)
			return err
		},
	}
}
