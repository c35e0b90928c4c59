package cli

import (
	"github.com/spf13/cobra"

	"github.com/openbookapp/openbook-library/internal/service"
	"github.com/openbookapp/openbook-library/internal/validation"
)

func newListsCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Show every reading list with its book count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lists, err := a.library.GetListsWithCounts(cmd.Context())
			if err != nil {
				return err
			}
			return a.printLists(lists)
		},
	}
}

func newListCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Manage reading lists",
	}
	cmd.AddCommand(newListShowCommand(a))
	cmd.AddCommand(newListCreateCommand(a))
	cmd.AddCommand(newListEditCommand(a))
	cmd.AddCommand(newListDeleteCommand(a))
	return cmd
}

func newListShowCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <list-id>",
		Short: "Show the books in a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			list, err := a.library.GetList(ctx, args[0])
			if err != nil {
				return err
			}
			books, err := a.library.GetBooksInList(ctx, list.ID)
			if err != nil {
				return err
			}
			if a.format == formatTable {
				a.printf("%s %s\n", list.Icon, list.Name)
			}
			return a.printBooks(books)
		},
	}
}

func newListCreateCommand(a *App) *cobra.Command {
	var icon, color string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a custom list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := validation.CreateListRequest{
				Name:  validation.NormalizeName(args[0]),
				Icon:  icon,
				Color: color,
			}
			if err := a.validator.Validate(req); err != nil {
				return err
			}

			list, err := a.library.CreateList(cmd.Context(), req.Name, req.Icon, req.Color)
			if err != nil {
				return err
			}
			return a.render(list, func() {
				a.printf("Created list %q (%s)\n", list.Name, list.ID)
			})
		},
	}

	cmd.Flags().StringVar(&icon, "icon", "", "List icon")
	cmd.Flags().StringVar(&color, "color", "", "List color as #RRGGBB")
	return cmd
}

func newListEditCommand(a *App) *cobra.Command {
	var name, icon, color string

	cmd := &cobra.Command{
		Use:   "edit <list-id>",
		Short: "Rename or restyle a custom list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req validation.UpdateListRequest
			if cmd.Flags().Changed("name") {
				n := validation.NormalizeName(name)
				req.Name = &n
			}
			if cmd.Flags().Changed("icon") {
				req.Icon = &icon
			}
			if cmd.Flags().Changed("color") {
				req.Color = &color
			}
			if err := a.validator.Validate(req); err != nil {
				return err
			}

			list, err := a.library.UpdateList(cmd.Context(), args[0], service.ListUpdate{
				Name:  req.Name,
				Icon:  req.Icon,
				Color: req.Color,
			})
			if err != nil {
				return err
			}
			return a.render(list, func() {
				a.printf("Updated list %q (%s)\n", list.Name, list.ID)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New list name")
	cmd.Flags().StringVar(&icon, "icon", "", "New list icon")
	cmd.Flags().StringVar(&color, "color", "", "New list color as #RRGGBB")
	cmd.MarkFlagsOneRequired("name", "icon", "color")
	return cmd
}

func newListDeleteCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <list-id>",
		Short: "Delete a custom list, keeping its books",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.library.DeleteList(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("Deleted list %s\n", args[0])
			return nil
		},
	}
}
