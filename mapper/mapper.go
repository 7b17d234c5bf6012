package mapper

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonbodner/dsquery/logger"
)

// Rows is the cursor a driver hands back for a query. *sql.Rows implements it.
type Rows interface {
	Next() bool
	Err() error
	Columns() ([]string, error)
	Scan(dest ...interface{}) error
	Close() error
}

// ScanAll drains rows into memory and always closes them. Nothing is returned alongside
// an error. A query without results yields an empty, non-nil slice.
func ScanAll(ctx context.Context, rows Rows) (out []Row, err error) {
	if rows == nil {
		return nil, errors.New("rows must be non-nil")
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			out, err = nil, cerr
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out = []Row{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, Row{cols: cols, vals: vals})
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	logger.Log(ctx, logger.TRACE, fmt.Sprintln("scanned", len(out), "rows with columns", cols))
	return out, nil
}
