package dsquery

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jonbodner/dsquery/logger"
)

type txKey struct {
	ds *DataSource
}

// txState is the transaction carried by the context handed to Transaction's fn. Its lock
// serializes statements when fn shares the context between goroutines.
type txState struct {
	mu sync.Mutex
	tx Tx
}

func (ds *DataSource) txFromContext(ctx context.Context) (*txState, bool) {
	ts, ok := ctx.Value(txKey{ds}).(*txState)
	return ts, ok
}

// Transaction runs fn inside a database transaction. The transaction commits when fn returns
// nil and rolls back when it returns an error or panics.
//
// The DataSource is locked for the whole of fn. Queries of this DataSource invoked with the
// context handed to fn run inside the transaction, one statement at a time even when fn
// shares the context between goroutines; invoking them with any other context from within fn
// deadlocks. A nested call to Transaction with that context joins the outer transaction.
func (ds *DataSource) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return ds.TransactionWithOptions(ctx, nil, fn)
}

// TransactionWithOptions is Transaction with explicit isolation and read-only settings.
func (ds *DataSource) TransactionWithOptions(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	if _, ok := ds.txFromContext(ctx); ok {
		return fn(ctx)
	}
	ctx = logContext(ctx)

	ds.mu.Lock()
	defer ds.mu.Unlock()
	conn, err := ds.connLocked(ctx)
	if err != nil {
		return err
	}
	b, ok := conn.(TxBeginner)
	if !ok {
		return ErrNoTransactions
	}
	tx, err := b.BeginTx(ctx, opts)
	if err != nil {
		if isConnectionError(err) {
			ds.markBrokenLocked(ctx, err)
			return ConnectionError{Err: err}
		}
		return ExecutionError{Query: "BEGIN", Err: err}
	}
	logger.Log(ctx, logger.DEBUG, "transaction started")

	defer func() {
		if p := recover(); p != nil {
			ds.rollback(ctx, tx)
			panic(p)
		}
	}()
	if err = fn(context.WithValue(ctx, txKey{ds}, &txState{tx: tx})); err != nil {
		ds.rollback(ctx, tx)
		return err
	}
	if err = tx.Commit(); err != nil {
		if isConnectionError(err) {
			ds.markBrokenLocked(ctx, err)
		}
		return ExecutionError{Query: "COMMIT", Err: err}
	}
	logger.Log(ctx, logger.DEBUG, "transaction committed")
	return nil
}

func (ds *DataSource) rollback(ctx context.Context, tx Tx) {
	if err := tx.Rollback(); err != nil {
		//the transaction's own error is what the caller needs to see
		logger.Log(ctx, logger.ERROR, "rollback failed", logger.Pair{Key: "error", Value: err.Error()})
		if isConnectionError(err) {
			ds.markBrokenLocked(ctx, err)
		}
		return
	}
	logger.Log(ctx, logger.DEBUG, "transaction rolled back")
}
