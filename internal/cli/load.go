package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/kvstore/internal/store"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <table> <file>",
		Short: "Insert records from a YAML or JSON file in one transaction",
		Long: `Insert every record listed in a YAML or JSON file. All records are
inserted in a single transaction: if any insert fails (for example a
duplicate id) none of them are kept.

Example file:
  - id: u1
    name: alice
  - id: u2
    name: bob

Example:
  kvstore load users ./users.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, path := args[0], args[1]
			return withStore(cmd, opts, func(ctx context.Context, sess *session) error {
				records, err := readRecords(path)
				if err != nil {
					return sess.out.Fail("invalid input file", err)
				}
				n, err := store.InTx(ctx, sess.store, func(ctx context.Context, tx store.Tx) (int, error) {
					for i, rec := range records {
						if err := tx.Insert(ctx, table, rec); err != nil {
							return 0, fmt.Errorf("record %d: %w", i, err)
						}
					}
					return len(records), nil
				})
				if err != nil {
					return sess.out.Fail("load failed", err)
				}
				sess.logger.Info("records loaded", "table", table, "count", n, "file", path)
				return sess.out.Success(
					fmt.Sprintf("loaded %d records into %s", n, table),
					map[string]any{"table": table, "count": n},
				)
			})
		},
	}
}

// readRecords parses a list of records. JSON input is valid YAML.
func readRecords(path string) ([]store.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, store.Validationf("read %s: %v", path, err)
	}
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, store.Validationf("parse %s: %v", path, err)
	}
	records := make([]store.Record, 0, len(raw))
	for _, m := range raw {
		records = append(records, store.Record(m))
	}
	return records, nil
}
