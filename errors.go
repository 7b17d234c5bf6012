package dsquery

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClosed is returned by any operation on a DataSource after Close.
	ErrClosed = errors.New("data source is closed")

	// ErrNoTransactions is returned by Transaction when the underlying Conn cannot begin a transaction.
	ErrNoTransactions = errors.New("connection does not support transactions")
)

// SchemaError reports an invalid parameter schema. It is only ever returned while a schema
// or query is being declared.
type SchemaError struct {
	Duplicates []string
	Message    string
}

func (se SchemaError) Error() string {
	if len(se.Duplicates) > 0 {
		return fmt.Sprint("duplicate parameter names: ", strings.Join(se.Duplicates, ", "))
	}
	return "invalid schema: " + se.Message
}

// TooManyArgumentsError is returned when more positional values are supplied than the schema declares.
type TooManyArgumentsError struct {
	Got int
	Max int
}

func (te TooManyArgumentsError) Error() string {
	return fmt.Sprintf("too many arguments: got %d positional values, schema declares %d parameters", te.Got, te.Max)
}

// UnknownParameterError is returned when a keyword names no parameter of the schema.
type UnknownParameterError struct {
	Name string
}

func (ue UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter %q", ue.Name)
}

// MissingParameterError is returned when a parameter without a default is left unassigned.
type MissingParameterError struct {
	Name string
}

func (me MissingParameterError) Error() string {
	return fmt.Sprintf("missing value for parameter %q", me.Name)
}

// CoercionError wraps the failure of a parameter's coercion function.
type CoercionError struct {
	Name  string
	Value interface{}
	Err   error
}

func (ce CoercionError) Error() string {
	return fmt.Sprintf("cannot coerce %#v for parameter %q: %v", ce.Value, ce.Name, ce.Err)
}

func (ce CoercionError) Unwrap() error {
	return ce.Err
}

// TemplateError reports a malformed SQL template.
type TemplateError struct {
	Query   string
	Pos     int
	Message string
}

func (te TemplateError) Error() string {
	if te.Pos < 0 {
		return te.Message
	}
	return fmt.Sprintf("%s at position %d", te.Message, te.Pos)
}

// ConnectionError is returned when the underlying connection cannot be established or was lost.
type ConnectionError struct {
	Err error
}

func (ce ConnectionError) Error() string {
	return "connection failed: " + ce.Err.Error()
}

func (ce ConnectionError) Unwrap() error {
	return ce.Err
}

// ExecutionError wraps a driver failure while executing a statement or fetching its rows.
type ExecutionError struct {
	Query string
	Err   error
}

func (ee ExecutionError) Error() string {
	return fmt.Sprintf("executing %q: %v", ee.Query, ee.Err)
}

func (ee ExecutionError) Unwrap() error {
	return ee.Err
}
