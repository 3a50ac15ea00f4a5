package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newMsgCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "msg",
		Short: "Post to and read transaction threads",
	}
	cmd.AddCommand(newMsgPostCmd(opts), newMsgListCmd(opts))
	return cmd
}

func newMsgPostCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "post <transaction-id> <text>...",
		Short: "Post a message to the other party of a transaction",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			author, err := opts.actor()
			if err != nil {
				return err
			}
			id, err := parseUUIDArg(args, 0, "transaction")
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				msg, res, err := app.Service.PostMessage(ctx, id, author, text)
				reportRules(cmd, res)
				if err != nil {
					return err
				}
				if msg == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "empty message not posted")
					return nil
				}
				return printJSON(cmd.OutOrStdout(), msg)
			})
		},
	}
}

func newMsgListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <transaction-id>",
		Short: "List the messages of a transaction, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUUIDArg(args, 0, "transaction")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				msgs, err := app.Service.ListMessages(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), msgs)
			})
		},
	}
}
