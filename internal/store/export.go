package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
)

// ExportCSV writes one entity table as CSV, header row first. The table key
// must be one of the external keys accepted by ResolveTable. NULL columns
// export as empty strings.
func (c *queries) ExportCSV(ctx context.Context, w io.Writer, tableKey string) error {
	table, ok := ResolveTable(tableKey)
	if !ok {
		return fmt.Errorf("unknown table key %q", tableKey)
	}

	rows, err := c.q.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY id", table))
	if err != nil {
		return fmt.Errorf("export %s: %w", tableKey, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("export %s: columns: %w", tableKey, err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("export %s: write header: %w", tableKey, err)
	}

	values := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	record := make([]string, len(cols))

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("export %s: scan: %w", tableKey, err)
		}
		for i := range values {
			record[i] = fromNull(values[i])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export %s: write row: %w", tableKey, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("export %s: %w", tableKey, err)
	}

	cw.Flush()
	return cw.Error()
}
