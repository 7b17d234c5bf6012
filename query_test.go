package dsquery

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"

	"github.com/jonbodner/go-sqlmock"
)

func newMock(t *testing.T) (*DataSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	ds, err := New(context.Background(), SQLDialer(db))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ds.Close()
		db.Close()
	})
	return ds, mock
}

func TestQueryCallingConventions(t *testing.T) {
	ds, mock := newMock(t)
	ctx := context.Background()
	q := ds.MustQuery("SELECT (%s)::real AS x", Optional("a", String, "42"))
	expr := regexp.QuoteMeta("SELECT ($1)::real AS x")

	data := []struct {
		name string
		call func() ([]Row, error)
		arg  string
		out  float64
	}{
		{"single map", func() ([]Row, error) { return q.Call(ctx, map[string]interface{}{"a": 12}) }, "12", 12},
		{"keywords", func() ([]Row, error) { return q.CallNamed(ctx, map[string]interface{}{"a": 13}) }, "13", 13},
		{"positional", func() ([]Row, error) { return q.Call(ctx, 14) }, "14", 14},
		{"default", func() ([]Row, error) { return q.Call(ctx) }, "42", 42},
		{"func form", func() ([]Row, error) { return q.Func()(ctx, 15) }, "15", 15},
	}
	for _, v := range data {
		t.Run(v.name, func(t *testing.T) {
			mock.ExpectQuery(expr).WithArgs(v.arg).WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(v.out))
			rows, err := v.call()
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != 1 {
				t.Fatalf("expected one row, got %v", rows)
			}
			if x, _ := rows[0].Get("x"); x != v.out {
				t.Errorf("expected %v, got %#v", v.out, x)
			}
		})
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestQueryIsRepeatable(t *testing.T) {
	ds, mock := newMock(t)
	ctx := context.Background()
	q := ds.MustQuery("SELECT name, age FROM person WHERE id = :id:", Required("id", Int))
	expr := regexp.QuoteMeta("SELECT name, age FROM person WHERE id = $1")
	for i := 0; i < 2; i++ {
		mock.ExpectQuery(expr).WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"name", "age"}).AddRow("fred", 20))
	}
	first, err := q.Call(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := q.Call(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected the same rows, got %v and %v", first, second)
	}
	if !reflect.DeepEqual(first[0].Columns(), []string{"name", "age"}) {
		t.Errorf("unexpected columns %v", first[0].Columns())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestQueryEmptyResult(t *testing.T) {
	ds, mock := newMock(t)
	q := ds.MustQuery("SELECT x FROM t WHERE 1 = 0")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT x FROM t WHERE 1 = 0")).WillReturnRows(sqlmock.NewRows([]string{"x"}))
	rows, err := q.Call(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("expected an empty, non-nil result, got %#v", rows)
	}
}

func TestQueryExecutionError(t *testing.T) {
	ds, mock := newMock(t)
	q := ds.MustQuery("SELECT * FROM missing")
	cause := errors.New(`relation "missing" does not exist`)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missing")).WillReturnError(cause)
	rows, err := q.Call(context.Background())
	var ee ExecutionError
	if !errors.As(err, &ee) || !errors.Is(err, cause) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	if rows != nil {
		t.Errorf("expected no rows, got %v", rows)
	}
}

func TestQueryArgumentErrorsSkipTheDatabase(t *testing.T) {
	ds, mock := newMock(t)
	ctx := context.Background()
	q := ds.MustQuery("SELECT %s", Required("a", Int))

	var me MissingParameterError
	if _, err := q.Call(ctx); !errors.As(err, &me) {
		t.Errorf("expected MissingParameterError, got %v", err)
	}
	var ce CoercionError
	if _, err := q.Call(ctx, "x"); !errors.As(err, &ce) {
		t.Errorf("expected CoercionError, got %v", err)
	}
	var te TooManyArgumentsError
	if _, err := q.Call(ctx, 1, 2); !errors.As(err, &te) {
		t.Errorf("expected TooManyArgumentsError, got %v", err)
	}
	var ue UnknownParameterError
	if _, err := q.CallNamed(ctx, map[string]interface{}{"b": 1}); !errors.As(err, &ue) {
		t.Errorf("expected UnknownParameterError, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestQueryCallObject(t *testing.T) {
	ds, mock := newMock(t)
	q := ds.MustQuery("INSERT INTO person (name, age) VALUES (:name:, :age:)", Required("name", String), Required("age", Int))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO person (name, age) VALUES ($1, $2)")).
		WithArgs("Bob", int64(30)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	a, err := Object(&person{Name: "Bob", Age: 30, Address: "ignored"})
	if err != nil {
		t.Fatal(err)
	}
	count, err := q.Exec(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1, got %d", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestQueryString(t *testing.T) {
	ds, _ := newMock(t)
	q := ds.MustQuery("SELECT :a:, :b:", Required("a", Nop), Optional("b", Nop, 1))
	expected := `Query("""SELECT :a:, :b:""" x (a, b) x {b})`
	if q.String() != expected {
		t.Errorf("expected %s, got %s", expected, q.String())
	}
	if q.SQL() != "SELECT :a:, :b:" || q.Schema().Len() != 2 {
		t.Errorf("unexpected accessors %q, %d", q.SQL(), q.Schema().Len())
	}
}

func TestQueryDeclarationErrors(t *testing.T) {
	ds, _ := newMock(t)
	var se SchemaError
	if _, err := ds.Query("SELECT %s, %s", Required("a", Nop), Required("a", Nop)); !errors.As(err, &se) {
		t.Errorf("expected SchemaError, got %v", err)
	}
	var te TemplateError
	if _, err := ds.Query("SELECT %s, :a:", Required("a", Nop)); !errors.As(err, &te) {
		t.Errorf("expected TemplateError, got %v", err)
	}
}
