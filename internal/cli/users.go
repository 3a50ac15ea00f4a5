package cli

import (
	"context"

	"bookclub/pkg/domain"

	"github.com/spf13/cobra"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Register and inspect members",
	}
	cmd.AddCommand(newUserAddCmd(opts), newUserShowCmd(opts))
	return cmd
}

func newUserAddCmd(opts *rootOptions) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:     "add <username>",
		Short:   "Register a member",
		Example: `  bookclub user add aiko --location kh`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				user, res, err := app.Service.RegisterUser(ctx, args[0], domain.Location(location))
				reportRules(cmd, res)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), user)
			})
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "Area code (nh, nt, nk, kh, kk, kt, oo); defaults to nt")
	return cmd
}

func newUserShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id|username>",
		Short: "Show a member with their inventory and loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				id, err := parseIntArg(args, 0, "user")
				if err != nil {
					user, ferr := app.Service.FindUserByName(ctx, args[0])
					if ferr != nil {
						return ferr
					}
					id = user.ID
				}
				profile, err := app.Service.UserProfile(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), profile)
			})
		},
	}
}
