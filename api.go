package dsquery

import (
	"context"
	"database/sql"

	"github.com/jonbodner/dsquery/mapper"
)

// Rows is the cursor returned by Conn.QueryContext. *sql.Rows implements it.
type Rows = mapper.Rows

// Row is one row of a query result.
type Row = mapper.Row

// Executor runs statements that modify the data store.
type Executor interface {
	// ExecContext executes a query without returning any rows.
	// The args are for any placeholder parameters in the query.
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Querier runs queries that return Rows from the data store.
type Querier interface {
	// QueryContext executes a query that returns rows, typically a SELECT.
	// The args are for any placeholder parameters in the query.
	QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error)
}

// Conn is a single driver connection. A DataSource never uses a Conn from two goroutines at once.
type Conn interface {
	Querier
	Executor
	Close() error
}

// Tx is a driver transaction.
type Tx interface {
	Querier
	Executor
	Commit() error
	Rollback() error
}

// TxBeginner is implemented by connections that can start transactions.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
}

// Dialer establishes a new Conn. A DataSource calls it once at construction and again
// whenever the current connection has been marked broken.
type Dialer func(ctx context.Context) (Conn, error)
