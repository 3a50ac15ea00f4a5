package cli

import (
	"context"
	"fmt"
	"time"

	"bookclub/internal/core"
	"bookclub/pkg/domain"

	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func newTxCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Answer, edit and inspect lending transactions",
	}
	cmd.AddCommand(newTxReplyCmd(opts), newTxEditCmd(opts), newTxShowCmd(opts), newTxListCmd(opts))
	return cmd
}

func newTxReplyCmd(opts *rootOptions) *cobra.Command {
	var (
		accept  bool
		reject  bool
		message string
	)
	cmd := &cobra.Command{
		Use:   "reply <transaction-id>",
		Short: "Approve or reject a pending request as the lender",
		Example: `  bookclub --as 1 tx reply 5f0c... --accept --message "Pick it up on Friday"
  bookclub --as 1 tx reply 5f0c... --reject`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if accept == reject {
				return fmt.Errorf("exactly one of --accept or --reject is required")
			}
			lender, err := opts.actor()
			if err != nil {
				return err
			}
			id, err := parseUUIDArg(args, 0, "transaction")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				t, res, err := app.Service.ReplyToRequest(ctx, id, lender, accept, message)
				reportRules(cmd, res)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), t)
			})
		},
	}
	cmd.Flags().BoolVar(&accept, "accept", false, "Approve the request")
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject the request")
	cmd.Flags().StringVar(&message, "message", "", "Optional message to the borrower")
	return cmd
}

func newTxEditCmd(opts *rootOptions) *cobra.Command {
	var (
		state      string
		lendDate   string
		returnDate string
		message    string
	)
	cmd := &cobra.Command{
		Use:   "edit <transaction-id>",
		Short: "Set the state or dates of a transaction as the lender",
		Long: `Edit moves a transaction to any state, for example marking a loan as
returned or lost. The copy status follows the new state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := opts.actor()
			if err != nil {
				return err
			}
			id, err := parseUUIDArg(args, 0, "transaction")
			if err != nil {
				return err
			}
			edit := core.TransactionEdit{State: domain.TransactionState(state), Message: message}
			if edit.LendDate, err = parseDate(lendDate); err != nil {
				return err
			}
			if edit.ReturnDate, err = parseDate(returnDate); err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				t, res, err := app.Service.EditTransaction(ctx, id, editor, edit)
				reportRules(cmd, res)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), t)
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "New state: approved, rejected, lent, returned, extension or lost")
	cmd.Flags().StringVar(&lendDate, "lend-date", "", "Lend date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&returnDate, "return-date", "", "Return date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&message, "message", "", "Optional message to the borrower")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return t, nil
}

func newTxShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <transaction-id>",
		Short: "Show a transaction with its book, parties and messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUUIDArg(args, 0, "transaction")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				detail, err := app.Service.GetTransaction(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), detail)
			})
		},
	}
}

func newTxListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				txs, err := app.Service.ListTransactions(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), txs)
			})
		},
	}
}
