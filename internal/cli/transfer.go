package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/openbookapp/openbook-library/internal/backup/export"
	backupimport "github.com/openbookapp/openbook-library/internal/backup/import"
)

func newExportCommand(a *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the whole library as a JSON document",
		Long: `Export every list, book and membership as a versioned JSON document.

Without --out the document is written to openbook_library_<date>.json in
the current directory. Use --out - to write to standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.exporter.ExportJSON(cmd.Context())
			if err != nil {
				return err
			}

			if out == "-" {
				_, err := cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if out == "" {
				out = export.Filename(time.Now())
			}
			if err := atomic.WriteFile(out, bytes.NewReader(data)); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			a.printf("Exported library to %s (%d bytes)\n", out, len(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file, or - for stdout")
	return cmd
}

func newImportCommand(a *App) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a JSON library document",
		Long: `Import a document produced by export.

In merge mode (the default) existing books keep their values and only gain
what they are missing. In replace mode books, memberships and custom lists
are wiped first. Either way the import is all or nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := backupimport.ParseMode(mode)
			if err != nil {
				return err
			}

			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}

			res, err := a.importer.Import(cmd.Context(), data, m)
			if err != nil {
				return err
			}
			return a.render(res, func() {
				a.printf("Imported %d lists, %d books, %d list entries (%s)\n",
					res.ListsImported, res.BooksImported, res.ListBooksImported, m)
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(backupimport.ModeMerge), "Import mode (merge|replace)")
	_ = cmd.RegisterFlagCompletionFunc("mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(backupimport.ModeMerge), string(backupimport.ModeReplace)}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
