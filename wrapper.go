package dsquery

import (
	"context"
	"database/sql"
)

// SQLDialer returns a Dialer that pins one connection from db and checks it with a ping.
func SQLDialer(db *sql.DB) Dialer {
	return func(ctx context.Context) (Conn, error) {
		c, err := db.Conn(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.PingContext(ctx); err != nil {
			c.Close()
			return nil, err
		}
		return Wrap(c), nil
	}
}

// Wrap adapts a *sql.Conn to the Conn interface.
func Wrap(c *sql.Conn) Conn {
	return sqlConn{c}
}

type sqlConn struct {
	c *sql.Conn
}

func (w sqlConn) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return w.c.ExecContext(ctx, query, args...)
}

func (w sqlConn) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	rows, err := w.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (w sqlConn) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := w.c.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return sqlTx{tx}, nil
}

func (w sqlConn) Close() error {
	return w.c.Close()
}

type sqlTx struct {
	*sql.Tx
}

func (w sqlTx) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	rows, err := w.Tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
