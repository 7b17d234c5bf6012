/*
Package dsquery declares reusable, thread-safe query functors over database/sql.

A functor pairs a SQL template with an ordered parameter schema. Each parameter has a name,
a coercion applied to caller supplied values, and an optional default:

	ds, err := dsquery.Open(ctx, dsquery.DefaultConfig())
	q := ds.MustQuery("SELECT (%s)::real AS x", dsquery.Optional("a", dsquery.String, "42"))

	rows, err := q.Call(ctx)                                   // a = "42"
	rows, err = q.Call(ctx, 14)                                // a = "14"
	rows, err = q.CallNamed(ctx, map[string]interface{}{"a": 13})
	rows, err = q.Call(ctx, map[string]interface{}{"a": 12})   // a single map is keywords

Templates use either %s markers, bound to the parameters in schema order, or :name: markers,
which may repeat. Values are always sent as driver placeholders, never spliced into the SQL.
*/
package dsquery

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonbodner/dsquery/logger"
	"github.com/jonbodner/dsquery/mapper"
)

// QueryFunc is a functor in plain function form. See Query.Call for how vals are interpreted.
type QueryFunc func(ctx context.Context, vals ...interface{}) ([]Row, error)

// ExecFunc is the function form of Query.Exec.
type ExecFunc func(ctx context.Context, vals ...interface{}) (int64, error)

// Query is a SQL template bound to a schema and a DataSource. It is immutable and may be
// invoked from any number of goroutines.
type Query struct {
	sql      string
	compiled compiledQuery
	schema   Schema
	ds       *DataSource
}

// Invoke resolves a against the schema, runs the query and returns every row. A query
// without results returns an empty slice.
func (q *Query) Invoke(ctx context.Context, a Args) ([]Row, error) {
	ctx = logContext(ctx)
	args, err := q.bind(a)
	if err != nil {
		return nil, err
	}
	logger.Log(ctx, logger.DEBUG, fmt.Sprintln("calling", q.compiled.text, "with params", args))

	var rows []Row
	err = q.ds.run(ctx, q.compiled.text, true, func(ctx context.Context, t target) error {
		r, err := t.QueryContext(ctx, q.compiled.text, args...)
		if err != nil {
			return err
		}
		rows, err = mapper.ScanAll(ctx, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Exec resolves a against the schema, runs a statement that returns no rows and reports the
// number of rows affected.
func (q *Query) Exec(ctx context.Context, a Args) (int64, error) {
	ctx = logContext(ctx)
	args, err := q.bind(a)
	if err != nil {
		return 0, err
	}
	logger.Log(ctx, logger.DEBUG, fmt.Sprintln("executing", q.compiled.text, "with params", args))

	var count int64
	err = q.ds.run(ctx, q.compiled.text, false, func(ctx context.Context, t target) error {
		result, err := t.ExecContext(ctx, q.compiled.text, args...)
		if err != nil {
			return err
		}
		count, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Call invokes the query the way a function is called. No values means no arguments, a
// single map keyed by strings supplies keywords, a single other value is the first
// parameter, and several values are positional.
func (q *Query) Call(ctx context.Context, vals ...interface{}) ([]Row, error) {
	return q.Invoke(ctx, callArgs(vals))
}

// CallNamed invokes the query with keyword arguments.
func (q *Query) CallNamed(ctx context.Context, kw map[string]interface{}) ([]Row, error) {
	return q.Invoke(ctx, Keywords(kw))
}

// CallObject invokes the query with the fields of a struct as keyword arguments.
func (q *Query) CallObject(ctx context.Context, v interface{}) ([]Row, error) {
	a, err := Object(v)
	if err != nil {
		return nil, err
	}
	return q.Invoke(ctx, a)
}

func (q *Query) Func() QueryFunc {
	return q.Call
}

func (q *Query) ExecFunc() ExecFunc {
	return func(ctx context.Context, vals ...interface{}) (int64, error) {
		return q.Exec(ctx, callArgs(vals))
	}
}

func (q *Query) Schema() Schema {
	return q.schema
}

// SQL returns the template the query was declared with.
func (q *Query) SQL() string {
	return q.sql
}

func (q *Query) String() string {
	var defaults []string
	for _, p := range q.schema.params {
		if p.HasDefault {
			defaults = append(defaults, p.Name)
		}
	}
	return fmt.Sprintf(`Query("""%s""" x (%s) x {%s})`, q.sql,
		strings.Join(q.schema.Names(), ", "), strings.Join(defaults, ", "))
}

func (q *Query) bind(a Args) ([]interface{}, error) {
	resolved, err := Resolve(q.schema, a)
	if err != nil {
		return nil, err
	}
	return q.compiled.bind(resolved), nil
}

func callArgs(vals []interface{}) Args {
	switch len(vals) {
	case 0:
		return NoArgs()
	case 1:
		return Single(vals[0])
	default:
		return Positional(vals...)
	}
}
