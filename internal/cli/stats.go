package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newStatsCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.stats.GetLibraryStats(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(stats, func() {
				t := a.newTable("Metric", "Value")
				t.AppendRows([]table.Row{
					{"Lists", stats.TotalLists},
					{"Custom lists", stats.CustomLists},
					{"Books", stats.TotalBooks},
					{"List entries", stats.TotalListBooks},
					{"Rated", stats.BooksWithRating},
					{"With notes", stats.BooksWithNotes},
					{"In progress", stats.BooksInProgress},
					{"Finished", stats.BooksFinished},
				})
				t.Render()
			})
		},
	}
}
