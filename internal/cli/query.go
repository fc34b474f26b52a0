package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/store"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <table> [id]",
		Short: "Inspect stored records",
		Long: fmt.Sprintf(`List the record ids of one entity table, or dump a single record's
fields when an id is given.

Table keys: %s.`, strings.Join(store.TableKeys(), ", ")),
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 2 {
				id = args[1]
			}
			return runQuery(rootOpts, args[0], id, cmd)
		},
	}
	return cmd
}

func runQuery(opts *RootOptions, tableKey, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	key := strings.ToUpper(tableKey)
	table, ok := store.ResolveTable(key)
	if !ok {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("unknown table %q: must be one of %s", tableKey, strings.Join(store.TableKeys(), ", ")))
	}

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()

	if id != "" {
		record, err := s.Record(ctx, key, id)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("no %s record %q", key, id))
		}
		if err != nil {
			return err
		}
		if formatter.Format == "json" {
			return formatter.Success(record)
		}
		cols := make([]string, 0, len(record))
		for col := range record {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			fmt.Fprintf(formatter.Writer, "%-22s %s\n", col, record[col])
		}
		return nil
	}

	rows, err := s.Query(ctx, fmt.Sprintf("SELECT id FROM %s ORDER BY id", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var rid string
		if err := rows.Scan(&rid); err != nil {
			return err
		}
		ids = append(ids, rid)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"table": key, "ids": ids})
	}
	for _, rid := range ids {
		fmt.Fprintln(formatter.Writer, rid)
	}
	return nil
}
