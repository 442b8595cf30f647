package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kvstore/internal/store"
)

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	*RootOptions
	Confirm string
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear <table>",
		Short: "Delete every record in a table",
		Long: `Delete every record in a table. This cannot be undone.

--confirm must be exactly CONFIRM, otherwise nothing is deleted.

Example:
  kvstore clear users --confirm CONFIRM`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts.RootOptions, func(ctx context.Context, sess *session) error {
				if err := sess.store.ClearTable(ctx, args[0], opts.Confirm); err != nil {
					return sess.out.Fail("clear failed", err)
				}
				return sess.out.Success(
					fmt.Sprintf("cleared %s", args[0]),
					map[string]string{"table": args[0]},
				)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Confirm, "confirm", "", fmt.Sprintf("safety token; must be %q", store.ConfirmClear))

	return cmd
}
