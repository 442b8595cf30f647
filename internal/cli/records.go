package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/kvstore/internal/store"
)

// NewInsertCommand creates the insert command.
func NewInsertCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <table> <json>",
		Short: "Insert a new record",
		Long: `Insert a new record. The JSON object must contain a string "id";
inserting an id that already exists fails.

Example:
  kvstore insert users '{"id":"u1","name":"alice"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, sess *session) error {
				rec, err := parseRecord(args[1])
				if err != nil {
					return sess.out.Fail("invalid record", err)
				}
				if err := sess.store.Insert(ctx, args[0], rec); err != nil {
					return sess.out.Fail("insert failed", err)
				}
				return sess.out.Success(
					fmt.Sprintf("inserted %s/%s", args[0], rec.ID()),
					map[string]string{"table": args[0], "id": rec.ID()},
				)
			})
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <table> <json>",
		Short: "Replace the payload of an existing record",
		Long: `Replace the payload of an existing record. Updating an id that does
not exist changes nothing and is not an error.

Example:
  kvstore update users '{"id":"u1","name":"bob"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, sess *session) error {
				rec, err := parseRecord(args[1])
				if err != nil {
					return sess.out.Fail("invalid record", err)
				}
				if err := sess.store.Update(ctx, args[0], rec); err != nil {
					return sess.out.Fail("update failed", err)
				}
				return sess.out.Success(
					fmt.Sprintf("updated %s/%s", args[0], rec.ID()),
					map[string]string{"table": args[0], "id": rec.ID()},
				)
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete a record",
		Long: `Delete the record with the given id. Deleting a missing id is not an error.

Example:
  kvstore delete users u1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, sess *session) error {
				if err := sess.store.Delete(ctx, args[0], store.Record{store.IDField: args[1]}); err != nil {
					return sess.out.Fail("delete failed", err)
				}
				return sess.out.Success(
					fmt.Sprintf("deleted %s/%s", args[0], args[1]),
					map[string]string{"table": args[0], "id": args[1]},
				)
			})
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Print a record",
		Long: `Print the record stored under id, including the id field.

Example:
  kvstore get users u1
  kvstore get users u1 --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, sess *session) error {
				rec, err := sess.store.Query(ctx, args[0], args[1])
				if err != nil {
					return sess.out.Fail("get failed", err)
				}
				text, err := indentJSON(rec)
				if err != nil {
					return sess.out.Fail("get failed", err)
				}
				return sess.out.Success(text, rec)
			})
		},
	}
}

// NewExistsCommand creates the exists command.
func NewExistsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <table> <id>",
		Short: "Report whether a record exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, sess *session) error {
				ok, err := sess.store.Exists(ctx, args[0], args[1])
				if err != nil {
					return sess.out.Fail("exists failed", err)
				}
				return sess.out.Success(strconv.FormatBool(ok), map[string]bool{"exists": ok})
			})
		},
	}
}

// parseRecord decodes a JSON object given on the command line.
func parseRecord(text string) (store.Record, error) {
	obj, err := store.DecodeObject([]byte(text))
	if err != nil {
		return nil, store.Validationf("record must be a JSON object: %v", err)
	}
	rec := store.Record(obj)
	if rec == nil {
		return nil, store.Validationf("record must be a JSON object")
	}
	return rec, nil
}

// indentJSON renders v as indented JSON without a trailing newline.
func indentJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
