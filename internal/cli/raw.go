package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/kvstore/internal/store"
)

// NewRawCommand creates the raw command.
func NewRawCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "raw <statement>",
		Short: "Run an engine-native statement",
		Long: `Run a statement directly against the storage engine.

The statement is sent as-is with no parameter binding; you are responsible
for its correctness and safety.

Example:
  kvstore raw "SELECT id, data FROM users ORDER BY id"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, sess *session) error {
				res, err := sess.store.ExecRaw(ctx, args[0])
				if err != nil {
					return sess.out.Fail("raw statement failed", err)
				}
				return writeRaw(sess.out, res)
			})
		},
	}
}

// writeRaw reports res through out. Only text mode renders the table.
func writeRaw(out *OutputFormatter, res *store.RawResult) error {
	if out.Format == "json" {
		return out.Success("", res)
	}
	var text strings.Builder
	if err := renderRaw(&text, res); err != nil {
		return out.Fail("raw statement failed", err)
	}
	return out.Success(strings.TrimRight(text.String(), "\n"), res)
}

// renderRaw writes res as an aligned table followed by a row count.
func renderRaw(w io.Writer, res *store.RawResult) error {
	if len(res.Columns) == 0 {
		_, err := fmt.Fprintf(w, "OK, %d rows affected\n", res.RowsAffected)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(res.Columns, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	return err
}
