package dsquery

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jonbodner/dbtimer"
	"github.com/jonbodner/dsquery/adapter"
	"github.com/jonbodner/dsquery/logger"
	"github.com/jonbodner/multierr"
	"github.com/lib/pq"
)

var l = logger.OFF
var rw sync.RWMutex

// SetLogLevel sets the level used by every DataSource when the context passed in does not
// specify one with logger.WithLevel.
func SetLogLevel(ll logger.Level) {
	rw.Lock()
	l = ll
	rw.Unlock()
}

func logContext(c context.Context) context.Context {
	//if log level is set and not in the context, use it
	if _, ok := logger.LevelFromContext(c); ok {
		return c
	}
	rw.RLock()
	ll := l
	rw.RUnlock()
	if ll == logger.OFF {
		return c
	}
	return logger.WithLevel(c, ll)
}

// DataSource owns a single driver connection and mints Query functors bound to it.
//
// Statements from any number of goroutines are serialized on the connection: executing a
// statement and draining its rows happen under one lock, so a cursor is never shared.
// Argument resolution and coercion happen before the lock is taken.
//
// The connection is established eagerly by New and Open. When a statement fails because
// the connection was lost, the connection is closed, re-dialed and the statement retried
// up to Config.Retries times; the failure is returned once the retries are used up.
// Exec is only retried when the driver reports driver.ErrBadConn, so a statement is never
// applied twice.
type DataSource struct {
	dial    Dialer
	cfg     Config
	adapter adapter.ParamAdapter
	mappers []QueryMapper
	closer  io.Closer

	mu     sync.Mutex
	conn   Conn
	closed bool
}

// Option configures a DataSource.
type Option func(*DataSource)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(ds *DataSource) {
		ds.cfg = cfg
	}
}

// WithParamAdapter overrides the placeholder style derived from the configuration.
func WithParamAdapter(pa adapter.ParamAdapter) Option {
	return func(ds *DataSource) {
		ds.adapter = pa
	}
}

// WithQueryMappers registers the mappers used to resolve q:name templates.
func WithQueryMappers(mappers ...QueryMapper) Option {
	return func(ds *DataSource) {
		ds.mappers = append(ds.mappers, mappers...)
	}
}

// New creates a DataSource on top of dial and connects immediately. A failed dial is
// reported as a ConnectionError.
func New(ctx context.Context, dial Dialer, opts ...Option) (*DataSource, error) {
	if dial == nil {
		return nil, errors.New("dialer must be non-nil")
	}
	ds := &DataSource{dial: dial, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(ds)
	}
	if ds.adapter == nil {
		ds.adapter = adapter.ForName(ds.cfg.paramStyle())
	}
	ctx = logContext(ctx)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if _, err := ds.connLocked(ctx); err != nil {
		return nil, err
	}
	return ds, nil
}

// Open connects through database/sql using cfg.Driver and cfg.DSN and pins a single
// connection from the resulting pool.
func Open(ctx context.Context, cfg Config, opts ...Option) (*DataSource, error) {
	ctx = logContext(ctx)
	driverName, dsn := cfg.Driver, cfg.DSN
	if cfg.Timing {
		enableTiming()
		driverName, dsn = "timer", cfg.Driver+" "+cfg.DSN
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, ConnectionError{Err: err}
	}
	ds, err := New(ctx, SQLDialer(db), append([]Option{WithConfig(cfg)}, opts...)...)
	if err != nil {
		db.Close()
		return nil, err
	}
	ds.closer = db
	logger.Log(ctx, logger.INFO, "opened data source",
		logger.Pair{Key: "driver", Value: cfg.Driver},
		logger.Pair{Key: "paramstyle", Value: cfg.paramStyle()},
		logger.Pair{Key: "retries", Value: cfg.Retries},
		logger.Pair{Key: "timing", Value: cfg.Timing})
	return ds, nil
}

var timingOnce sync.Once

func enableTiming() {
	timingOnce.Do(func() {
		c := logger.WithLevel(context.Background(), logger.INFO)
		dbtimer.SetTimerLoggerFunc(func(ti dbtimer.TimerInfo) {
			logger.Log(c, logger.INFO, "statement timing",
				logger.Pair{Key: "method", Value: ti.Method},
				logger.Pair{Key: "query", Value: ti.Query},
				logger.Pair{Key: "args", Value: ti.Args},
				logger.Pair{Key: "err", Value: ti.Err},
				logger.Pair{Key: "micros", Value: ti.End.Sub(ti.Start).Nanoseconds() / 1000})
		})
	})
}

// Query declares a functor for the SQL template and parameters. A template of the form
// q:name is looked up in the registered QueryMappers; if no parameters are passed and the
// mapper also declares parameters for the name, those are used.
func (ds *DataSource) Query(query string, params ...Param) (*Query, error) {
	text, mapped, err := lookupQuery(query, ds.mappers)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 && mapped != "" {
		params, err = ParseParams(mapped)
		if err != nil {
			return nil, err
		}
	}
	schema, err := NewSchema(params...)
	if err != nil {
		return nil, err
	}
	cq, err := compileTemplate(text, schema, ds.adapter)
	if err != nil {
		return nil, err
	}
	return &Query{sql: text, compiled: cq, schema: schema, ds: ds}, nil
}

// MustQuery is like Query but panics on error. It is meant for package level declarations.
func (ds *DataSource) MustQuery(query string, params ...Param) *Query {
	q, err := ds.Query(query, params...)
	if err != nil {
		panic(err)
	}
	return q
}

// Close releases the connection and, for a DataSource created by Open, the underlying pool.
func (ds *DataSource) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return nil
	}
	ds.closed = true
	var out error
	if ds.conn != nil {
		out = appendErr(out, ds.conn.Close())
		ds.conn = nil
	}
	if ds.closer != nil {
		out = appendErr(out, ds.closer.Close())
	}
	return out
}

func appendErr(out, err error) error {
	if err == nil {
		return out
	}
	return multierr.Append(out, err)
}

// target is what a statement runs against: the connection or the current transaction.
type target interface {
	Querier
	Executor
}

// run executes f against the connection while holding the lock, re-dialing and retrying
// after connection failures. Inside a transaction of this DataSource, f runs against the
// transaction under the transaction's own lock, since the DataSource lock is already held for it.
//
// Statements that modify data pass idempotent as false and are only retried after
// driver.ErrBadConn, which drivers return when the statement was never sent. Any other lost
// connection is reported without a retry, because the statement may already have been applied.
func (ds *DataSource) run(ctx context.Context, query string, idempotent bool, f func(context.Context, target) error) error {
	if ts, ok := ds.txFromContext(ctx); ok {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		return ds.execute(ctx, query, ts.tx, f)
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()
	for attempt := 0; ; attempt++ {
		conn, err := ds.connLocked(ctx)
		if err != nil {
			return err
		}
		err = ds.execute(ctx, query, conn, f)
		if err == nil {
			return nil
		}
		if !isConnectionError(err) {
			return err
		}
		ds.markBrokenLocked(ctx, err)
		if attempt >= ds.cfg.Retries || (!idempotent && !errors.Is(err, driver.ErrBadConn)) {
			return ConnectionError{Err: err}
		}
		logger.Log(ctx, logger.WARN, "connection lost, reconnecting",
			logger.Pair{Key: "attempt", Value: attempt + 1},
			logger.Pair{Key: "error", Value: err.Error()})
	}
}

func (ds *DataSource) execute(ctx context.Context, query string, t target, f func(context.Context, target) error) error {
	if ds.cfg.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ds.cfg.StatementTimeout)
		defer cancel()
	}
	if err := f(ctx, t); err != nil {
		logger.Log(ctx, logger.WARN, fmt.Sprintln("statement failed:", query, err))
		return ExecutionError{Query: query, Err: err}
	}
	return nil
}

func (ds *DataSource) connLocked(ctx context.Context) (Conn, error) {
	if ds.closed {
		return nil, ErrClosed
	}
	if ds.conn != nil {
		return ds.conn, nil
	}
	conn, err := ds.dial(ctx)
	if err != nil {
		logger.Log(ctx, logger.ERROR, "cannot connect", logger.Pair{Key: "error", Value: err.Error()})
		return nil, ConnectionError{Err: err}
	}
	logger.Log(ctx, logger.DEBUG, "connected")
	ds.conn = conn
	return conn, nil
}

// markBrokenLocked drops the current connection so the next statement dials a new one.
func (ds *DataSource) markBrokenLocked(ctx context.Context, cause error) {
	if ds.conn == nil {
		return
	}
	if err := ds.conn.Close(); err != nil {
		logger.Log(ctx, logger.DEBUG, "closing broken connection", logger.Pair{Key: "error", Value: err.Error()})
	}
	ds.conn = nil
	logger.Log(ctx, logger.WARN, "connection marked broken", logger.Pair{Key: "cause", Value: cause.Error()})
}

// isConnectionError reports whether err means the connection itself is unusable.
func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		//class 08 is connection_exception; 57P01-57P03 are server shutdowns
		switch pqErr.Code {
		case "57P01", "57P02", "57P03":
			return true
		}
		return pqErr.Code.Class() == "08"
	}
	return false
}
