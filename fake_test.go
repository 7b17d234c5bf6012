package dsquery

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// fakeConn behaves like a connection with a single server side cursor: starting a query
// replaces the cursor state, so two queries in flight at once read each other's values.
type fakeConn struct {
	delay    time.Duration
	queryErr error
	rowsErr  error

	current  atomic.Value
	active   int32
	overlaps int32
	queries  int32
	closed   int32
}

// Compile-time assertion.
var _ Conn = (*fakeConn)(nil)

type boxed struct {
	v interface{}
}

func (c *fakeConn) QueryContext(_ context.Context, _ string, args ...interface{}) (Rows, error) {
	atomic.AddInt32(&c.queries, 1)
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	if atomic.AddInt32(&c.active, 1) > 1 {
		atomic.AddInt32(&c.overlaps, 1)
	}
	var v interface{}
	if len(args) > 0 {
		v = args[0]
	}
	c.current.Store(boxed{v})
	return &fakeRows{c: c, remaining: 1}, nil
}

func (c *fakeConn) ExecContext(_ context.Context, _ string, args ...interface{}) (sql.Result, error) {
	atomic.AddInt32(&c.queries, 1)
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return fakeResult(len(args)), nil
}

func (c *fakeConn) Close() error {
	atomic.StoreInt32(&c.closed, 1)
	return nil
}

func (c *fakeConn) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

type fakeRows struct {
	c         *fakeConn
	remaining int
	closed    bool
}

func (r *fakeRows) Columns() ([]string, error) {
	return []string{"x"}, nil
}

func (r *fakeRows) Next() bool {
	//the gap between execute and fetch
	time.Sleep(r.c.delay)
	if r.remaining == 0 || r.c.rowsErr != nil {
		return false
	}
	r.remaining--
	return true
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	p, ok := dest[0].(*interface{})
	if !ok {
		return errors.New("unexpected scan destination")
	}
	*p = r.c.current.Load().(boxed).v
	return nil
}

func (r *fakeRows) Err() error {
	return r.c.rowsErr
}

func (r *fakeRows) Close() error {
	if !r.closed {
		r.closed = true
		atomic.AddInt32(&r.c.active, -1)
	}
	return nil
}

type fakeResult int64

func (fr fakeResult) LastInsertId() (int64, error) {
	return 0, nil
}

func (fr fakeResult) RowsAffected() (int64, error) {
	return int64(fr), nil
}

// fakeDialer hands out the supplied connections in order and counts the dials.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
	dials int
}

func (d *fakeDialer) dial(_ context.Context) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	if len(d.conns) == 0 {
		return nil, errors.New("no more connections")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

// txConn is a fakeConn that can begin transactions. The transaction runs on the same cursor.
type txConn struct {
	*fakeConn
	commits int32
}

func (c *txConn) BeginTx(_ context.Context, _ *sql.TxOptions) (Tx, error) {
	return fakeTx{c}, nil
}

type fakeTx struct {
	*txConn
}

func (tx fakeTx) Commit() error {
	atomic.AddInt32(&tx.commits, 1)
	return nil
}

func (tx fakeTx) Rollback() error {
	return nil
}
