package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, sess *session) error {
				tables, err := sess.store.Tables(ctx)
				if err != nil {
					return sess.out.Fail("list tables failed", err)
				}
				return sess.out.Success(strings.Join(tables, "\n"), map[string][]string{"tables": tables})
			})
		},
	}
}
