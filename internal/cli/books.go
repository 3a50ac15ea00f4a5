package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"bookclub/internal/core"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newBookCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the catalog and member copies",
	}
	cmd.AddCommand(
		newBookAddCmd(opts),
		newBookListCmd(opts),
		newBookShowCmd(opts),
		newBookCopyCmd(opts),
		newBookRequestCmd(opts),
		newCopyStatusCmd(opts, "withdraw", "Mark an idle copy unavailable", (*core.Service).WithdrawBook),
		newCopyStatusCmd(opts, "relist", "Make a withdrawn copy available again", (*core.Service).RelistBook),
		newBookDeleteCmd(opts),
		newBookCoverCmd(opts),
	)
	return cmd
}

func newBookAddCmd(opts *rootOptions) *cobra.Command {
	var in core.BookInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a copy to the acting member's inventory",
		Long: `Add a physical copy of a work. Authors and the work are matched
against the catalog first; new records are created only when no match exists.`,
		Example: `  bookclub --as 1 book add --title "Norwegian Wood" --authors "Murakami Haruki" --genres fiction`,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := opts.actor()
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				book, res, err := app.Service.AddBook(ctx, owner, in)
				reportRules(cmd, res)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), book)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "Title of the work (required)")
	cmd.Flags().StringVar(&in.Authors, "authors", "", "Comma separated author names, last name first (required)")
	cmd.Flags().StringVar(&in.Summary, "summary", "", "Short summary of the work")
	cmd.Flags().StringVar(&in.ISBN, "isbn", "", "ISBN-10 or ISBN-13")
	cmd.Flags().StringSliceVar(&in.Genres, "genres", nil, "Genre names")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("authors")
	return cmd
}

func newBookListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog works with their copies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				books, err := app.Service.ListAbstractBooks(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), books)
			})
		},
	}
}

func newBookShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <work-id>",
		Short: "Show a catalog work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIntArg(args, 0, "work")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				book, err := app.Service.GetAbstractBook(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), book)
			})
		},
	}
}

func newBookCopyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <copy-id>",
		Short: "Show a physical copy with its loan history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUUIDArg(args, 0, "copy")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				detail, err := app.Service.GetActualBook(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), detail)
			})
		},
	}
}

func newBookRequestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "request <copy-id>",
		Short: "Ask the owner to lend a copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requester, err := opts.actor()
			if err != nil {
				return err
			}
			id, err := parseUUIDArg(args, 0, "copy")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				t, res, err := app.Service.CreateBorrowRequest(ctx, id, requester)
				reportRules(cmd, res)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), t)
			})
		},
	}
}

type copyStatusFunc func(*core.Service, context.Context, uuid.UUID, int64) (core.ActualBook, core.Result, error)

func newCopyStatusCmd(opts *rootOptions, use, short string, fn copyStatusFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <copy-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := opts.actor()
			if err != nil {
				return err
			}
			id, err := parseUUIDArg(args, 0, "copy")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				book, res, err := fn(app.Service, ctx, id, owner)
				reportRules(cmd, res)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), book)
			})
		},
	}
}

func newBookDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <copy-id>",
		Short: "Delete a copy together with its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := opts.actor()
			if err != nil {
				return err
			}
			id, err := parseUUIDArg(args, 0, "copy")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				res, err := app.Service.DeleteActualBook(ctx, id, owner)
				reportRules(cmd, res)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
				return nil
			})
		},
	}
}

func newBookCoverCmd(opts *rootOptions) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "cover <copy-id> [image-file]",
		Short: "Attach a cover image, or print the cover URL when no file is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUUIDArg(args, 0, "copy")
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return opts.withApp(cmd, func(ctx context.Context, app *App) error {
					url, err := app.Service.CoverURL(ctx, id)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), url)
					return nil
				})
			}
			owner, err := opts.actor()
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open cover image: %w", err)
			}
			defer f.Close()
			if contentType == "" {
				contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(args[1])))
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				info, err := app.Service.AttachCover(ctx, id, owner, f, contentType)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), info)
			})
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type of the image; guessed from the extension when empty")
	return cmd
}
