package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

func newAuthorCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "author",
		Short: "Look up and resolve catalog authors",
	}
	cmd.AddCommand(newAuthorListCmd(opts), newAuthorShowCmd(opts), newAuthorResolveCmd(opts))
	return cmd
}

func newAuthorListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List authors by last name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				authors, err := app.Service.ListAuthors(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), authors)
			})
		},
	}
}

func newAuthorShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <author-id>",
		Short: "Show an author with their works",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIntArg(args, 0, "author")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				detail, err := app.Service.GetAuthor(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), detail)
			})
		},
	}
}

func newAuthorResolveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>...",
		Short: "Find an author by name in either order, creating it when missing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				author, res, err := app.Service.ResolveAuthor(ctx, strings.Join(args, " "))
				reportRules(cmd, res)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), author)
			})
		},
	}
}
