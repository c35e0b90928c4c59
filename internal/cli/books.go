package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/openbookapp/openbook-library/internal/domain"
	"github.com/openbookapp/openbook-library/internal/validation"
)

func newBooksCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "Show every saved book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.library.GetAllBooks(cmd.Context())
			if err != nil {
				return err
			}
			return a.printBooks(books)
		},
	}
}

func newBookCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage saved books",
	}
	cmd.AddCommand(newBookShowCommand(a))
	cmd.AddCommand(newBookAddCommand(a))
	cmd.AddCommand(newBookRemoveCommand(a))
	cmd.AddCommand(newBookDeleteCommand(a))
	cmd.AddCommand(newBookStatusCommand(a))
	cmd.AddCommand(newBookRateCommand(a))
	cmd.AddCommand(newBookProgressCommand(a))
	cmd.AddCommand(newBookNotesCommand(a))
	cmd.AddCommand(newBookPagesCommand(a))
	cmd.AddCommand(newBookPageCommand(a))
	cmd.AddCommand(newBookStartCommand(a))
	cmd.AddCommand(newBookFinishCommand(a))
	return cmd
}

func newBookShowCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show a book and the lists it belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			book, err := a.library.GetBook(ctx, args[0])
			if err != nil {
				return err
			}
			lists, err := a.library.GetListsForBook(ctx, book.ID)
			if err != nil {
				return err
			}
			return a.printBook(book, lists)
		},
	}
}

func newBookAddCommand(a *App) *cobra.Command {
	var (
		in     domain.BookInput
		year   int
		listID string
		toggle bool
	)

	cmd := &cobra.Command{
		Use:   "add <work-key>",
		Short: "Save a book and add it to a list",
		Long: `Save a catalog work locally and add it to a list.

The book is created on first use and reused afterwards. With --toggle the
book is removed from the list instead when it is already there.`,
		Example: `  openbook book add /works/OL45804W --title "Fantastic Mr Fox" --author "Roald Dahl"
  openbook book add /works/OL45804W --title "Fantastic Mr Fox" --list system:read --toggle`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.WorkKey = args[0]
			if cmd.Flags().Changed("year") {
				in.FirstPublishYear = &year
			}
			if err := a.validator.Validate(in); err != nil {
				return err
			}

			ctx := cmd.Context()
			if toggle {
				added, err := a.library.ToggleBookInList(ctx, in, listID)
				if err != nil {
					return err
				}
				status, err := a.library.GetBookListStatus(ctx, in.WorkKey)
				if err != nil {
					return err
				}
				return a.render(status, func() {
					if added {
						a.printf("Added %q to %s\n", in.Title, listID)
					} else {
						a.printf("Removed %q from %s\n", in.Title, listID)
					}
				})
			}

			m, err := a.library.AddBookToList(ctx, in, listID)
			if err != nil {
				return err
			}
			return a.render(m, func() {
				a.printf("Added %q (%s) to %s\n", m.Book.Title, m.Book.ID, listID)
			})
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "Book title (required)")
	cmd.Flags().StringSliceVar(&in.AuthorNames, "author", nil, "Author name (repeatable)")
	cmd.Flags().StringVar(&in.CoverURL, "cover", "", "Cover image URL")
	cmd.Flags().IntVar(&year, "year", 0, "First publish year")
	cmd.Flags().StringVar(&listID, "list", domain.SystemListWillRead, "List to add the book to")
	cmd.Flags().BoolVar(&toggle, "toggle", false, "Remove the book if it is already in the list")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newBookRemoveCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book-id> <list-id>",
		Short: "Remove a book from a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.library.RemoveBookFromList(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			a.printf("Removed %s from %s\n", args[0], args[1])
			return nil
		},
	}
}

func newBookDeleteCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book and all of its list memberships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.library.DeleteBook(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("Deleted book %s\n", args[0])
			return nil
		},
	}
}

func newBookStatusCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <work-key>",
		Short: "Show which lists a catalog work is in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.library.GetBookListStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(status, func() {
				if !status.InAnyList() {
					a.printf("%s is not in any list\n", status.WorkKey)
					return
				}
				t := a.newTable("List")
				for _, id := range status.ListIDs {
					t.AppendRow([]any{id})
				}
				t.Render()
			})
		},
	}
}

// bookUpdate builds a command that parses one integer argument and applies it to a book.
func bookUpdate(a *App, use, short string, apply func(cmd *cobra.Command, bookID string, n int) (*domain.SavedBook, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid number %q", args[1])
			}
			book, err := apply(cmd, args[0], n)
			if err != nil {
				return err
			}
			return a.printBook(book, nil)
		},
	}
}

func newBookRateCommand(a *App) *cobra.Command {
	return bookUpdate(a, "rate <book-id> <0-5>", "Rate a book", func(cmd *cobra.Command, id string, n int) (*domain.SavedBook, error) {
		return a.library.SetBookRating(cmd.Context(), id, n)
	})
}

func newBookProgressCommand(a *App) *cobra.Command {
	return bookUpdate(a, "progress <book-id> <0-100>", "Set reading progress in percent", func(cmd *cobra.Command, id string, n int) (*domain.SavedBook, error) {
		return a.library.SetBookProgress(cmd.Context(), id, n)
	})
}

func newBookPageCommand(a *App) *cobra.Command {
	return bookUpdate(a, "page <book-id> <page>", "Set the current page", func(cmd *cobra.Command, id string, n int) (*domain.SavedBook, error) {
		return a.library.UpdateCurrentPage(cmd.Context(), id, n)
	})
}

func newBookNotesCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "notes <book-id> <text>",
		Short: "Replace a book's notes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.library.SetBookNotes(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.printBook(book, nil)
		},
	}
}

func newBookPagesCommand(a *App) *cobra.Command {
	var current int

	cmd := &cobra.Command{
		Use:   "pages <book-id> <total>",
		Short: "Enable page tracking for a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid page count %q", args[1])
			}
			req := validation.PagesRequest{TotalPages: total, CurrentPage: current}
			if err := a.validator.Validate(req); err != nil {
				return err
			}
			book, err := a.library.SetBookPages(cmd.Context(), args[0], req.TotalPages, req.CurrentPage)
			if err != nil {
				return err
			}
			return a.printBook(book, nil)
		},
	}

	cmd.Flags().IntVar(&current, "current", 0, "Current page")
	return cmd
}

func newBookStartCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start <book-id>",
		Short: "Mark a book as started",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.library.StartReading(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printBook(book, nil)
		},
	}
}

func newBookFinishCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "finish <book-id>",
		Short: "Finish a book and move it to Read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			book, err := a.library.FinishReading(ctx, args[0])
			if err != nil {
				return err
			}
			lists, err := a.library.GetListsForBook(ctx, book.ID)
			if err != nil {
				return err
			}
			return a.printBook(book, lists)
		},
	}
}
