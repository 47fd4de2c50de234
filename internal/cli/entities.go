package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

var tableList = strings.Join(types.StandardTableNames, ", ")

func newListCmd(opts *rootOptions) *cobra.Command {
	var sortField string
	var limit int

	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List the records of a table",
		Long: "List prints the records of a table as JSON, in insertion order unless --sort\n" +
			"names a field. Prefix the field with - for descending order.\n\n" +
			"Standard tables: " + tableList + "\n\n" +
			"Example:\n" +
			"  trackerhub list tasks\n" +
			"  trackerhub list transactions --sort -amount --limit 10",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				e, err := a.client.Entities(args[0])
				if err != nil {
					return err
				}
				rows, err := e.List(cmd.Context(), sortField, limit)
				if err != nil {
					return fmt.Errorf("list %s: %w", args[0], err)
				}
				if rows == nil {
					rows = []types.Record{}
				}
				return printJSON(cmd.OutOrStdout(), rows)
			})
		},
	}
	cmd.Flags().StringVar(&sortField, "sort", "", "field to sort by (prefix with - for descending)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records (0 for all)")
	return cmd
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Get a record by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				e, err := a.client.Entities(args[0])
				if err != nil {
					return err
				}
				rec, err := e.Get(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <table> [json]",
		Short: "Create a record",
		Long: "Create stores a JSON object as a new record. The object is read from stdin\n" +
			"when the argument is omitted or is -.\n\n" +
			"Example:\n" +
			"  trackerhub create habits '{\"name\":\"Read\",\"frequency\":\"daily\"}'",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := readObject(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			return opts.withApp(func(a *app) error {
				e, err := a.client.Entities(args[0])
				if err != nil {
					return err
				}
				rec, err := e.Create(cmd.Context(), fields)
				if err != nil {
					return fmt.Errorf("create in %s: %w", args[0], err)
				}
				if !opts.jsonMode {
					fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s\n", args[0], rec.ID())
					return nil
				}
				return printJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <table> <id> [json]",
		Short: "Merge fields into a record",
		Long: "Update merges a JSON object into an existing record. Only the supplied fields\n" +
			"change; id and creation timestamps are kept.\n\n" +
			"Example:\n" +
			"  trackerhub update tasks 0192f0c4-... '{\"done\":true}'",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := readObject(cmd.InOrStdin(), args[2:])
			if err != nil {
				return err
			}
			return opts.withApp(func(a *app) error {
				e, err := a.client.Entities(args[0])
				if err != nil {
					return err
				}
				rec, err := e.Update(cmd.Context(), args[1], types.NewPatch(fields))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <id>",
		Short: "Delete a record by id",
		Long:  "Delete removes a record. Deleting an id that does not exist succeeds.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				e, err := a.client.Entities(args[0])
				if err != nil {
					return err
				}
				if err := e.Delete(cmd.Context(), args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s: %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newDeleteByCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-by <table> <field> <value>",
		Short: "Delete every record whose field equals value",
		Long: "DeleteBy removes all records whose field equals value. Numbers and booleans\n" +
			"keep their type (3, true). Quote a value to force a string ('\"3\"' matches the\n" +
			"string \"3\"). Anything else, including null, objects and arrays, is matched as\n" +
			"the raw text.\n\n" +
			"Example:\n" +
			"  trackerhub delete-by habit_logs habit_id 0192f0c4-...",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				e, err := a.client.Entities(args[0])
				if err != nil {
					return err
				}
				n, err := e.DeleteBy(cmd.Context(), args[1], types.ParseMatchValue(args[2]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d from %s\n", n, args[0])
				return nil
			})
		},
	}
}

// readObject decodes a JSON object from the first arg, or from in when
// there is no arg or the arg is "-".
func readObject(in io.Reader, args []string) (types.Record, error) {
	var data []byte
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		data = b
	} else {
		data = []byte(args[0])
	}

	var rec types.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON object: %v", errUsage, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", errUsage)
	}
	return rec, nil
}


func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}
