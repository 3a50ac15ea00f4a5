package cli

import (
	"context"

	"bookclub/internal/export"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		list   bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the lending ledger to the blob store",
		Long: `Export writes every transaction, with its book title, parties, dates and
message count, to exports/<timestamp>.<ext> in the configured blob store.`,
		Example: `  bookclub export --format parquet
  bookclub export --list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var f export.Format
			if !list {
				var err error
				if f, err = export.ParseFormat(format); err != nil {
					return err
				}
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				if list {
					infos, err := app.Exporter.List(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), infos)
				}
				art, err := app.Exporter.Export(ctx, f)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), art)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "Output format: jsonl, csv or parquet")
	cmd.Flags().BoolVar(&list, "list", false, "List stored exports instead of writing one")
	return cmd
}
