// Package cli implements the bookclub operator command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"bookclub/internal/config"
	"bookclub/internal/core"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	actingUser int64
}

// NewRootCmd builds the bookclub command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "bookclub",
		Short: "Community book lending core",
		Long: `bookclub manages a neighbourhood lending library: members list the
books they own, request copies from each other and talk on a per-loan thread.

Storage, blob and logging settings come from an optional YAML file and
BOOKCLUB_* environment variables. A .env file in the working directory is
loaded first when present.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().Int64Var(&opts.actingUser, "as", 0, "ID of the member performing the action")

	cmd.AddCommand(newUserCmd(opts))
	cmd.AddCommand(newAuthorCmd(opts))
	cmd.AddCommand(newBookCmd(opts))
	cmd.AddCommand(newTxCmd(opts))
	cmd.AddCommand(newMsgCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	return cmd
}

// withApp opens the configured application, runs fn and closes it.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) (err error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := OpenApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, app)
}

func (o *rootOptions) actor() (int64, error) {
	if o.actingUser <= 0 {
		return 0, fmt.Errorf("--as is required for this command")
	}
	return o.actingUser, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportRules prints non-blocking rule violations so operators see them.
func reportRules(cmd *cobra.Command, res core.Result) {
	for _, v := range res.Violations {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", v.Severity, v.Rule, v.Message)
	}
}

func parseUUIDArg(args []string, i int, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(args[i])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", what, args[i], err)
	}
	return id, nil
}

func parseIntArg(args []string, i int, what string) (int64, error) {
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q: %w", what, args[i], err)
	}
	return id, nil
}
