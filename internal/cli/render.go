package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/openbookapp/openbook-library/internal/domain"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// render writes v as JSON or, in table mode, calls table to print it.
func (a *App) render(v any, tableFn func()) error {
	if a.format == formatJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tableFn()
	return nil
}

func (a *App) newTable(header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *App) printLists(lists []domain.ListWithCount) error {
	return a.render(lists, func() {
		t := a.newTable("ID", "Name", "Type", "Icon", "Books")
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 5, Align: text.AlignRight}})
		for _, l := range lists {
			t.AppendRow(table.Row{l.ID, l.Name, l.ListType, l.Icon, l.BookCount})
		}
		t.Render()
	})
}

func (a *App) printBooks(books []*domain.SavedBook) error {
	return a.render(books, func() {
		if len(books) == 0 {
			a.printf("(no books)\n")
			return
		}
		t := a.newTable("ID", "Title", "Authors", "Rating", "Progress", "Pages")
		for _, b := range books {
			t.AppendRow(table.Row{b.ID, truncate(b.Title, 40), truncate(b.AuthorNamesFormatted(), 30), rating(b.UserRating), progressBar(b.CalculatedProgress()), pages(b)})
		}
		t.AppendFooter(table.Row{"", "", "", "", "Total", len(books)})
		t.Render()
	})
}

func (a *App) printBook(b *domain.SavedBook, lists []*domain.ReadingList) error {
	names := make([]string, 0, len(lists))
	for _, l := range lists {
		names = append(names, l.Name)
	}
	view := struct {
		*domain.SavedBook
		Lists []string `json:"lists"`
	}{b, names}

	return a.render(view, func() {
		t := table.NewWriter()
		t.SetOutputMirror(a.out)
		t.SetStyle(table.StyleLight)
		t.AppendRows([]table.Row{
			{"ID", b.ID},
			{"Work", b.WorkKey},
			{"Title", b.Title},
			{"Authors", b.AuthorNamesFormatted()},
			{"Rating", rating(b.UserRating)},
			{"Progress", progressBar(b.CalculatedProgress())},
			{"Pages", pages(b)},
			{"Started", timestamp(b.ReadingStartedAt)},
			{"Finished", timestamp(b.ReadingFinishedAt)},
			{"Lists", strings.Join(names, ", ")},
			{"Sync", string(b.SyncStatus)},
		})
		if b.HasNotes() {
			t.AppendRow(table.Row{"Notes", *b.Notes})
		}
		t.Render()
	})
}

func rating(r *int) string {
	if r == nil {
		return "-"
	}
	return strings.Repeat("★", *r) + strings.Repeat("☆", domain.MaxRating-*r)
}

func progressBar(p int) string {
	filled := p / 10
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled) + " " + strconv.Itoa(p) + "%"
}

func pages(b *domain.SavedBook) string {
	if !b.HasPageTracking() {
		return "-"
	}
	current := 0
	if b.CurrentPage != nil {
		current = *b.CurrentPage
	}
	return fmt.Sprintf("%d/%d", current, *b.TotalPages)
}

func timestamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
