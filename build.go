package dsquery

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/jonbodner/multierr"
)

/*
struct tags:
dsq - SQL template to execute, or q:name to look the template up in a QueryMapper
dsp - The parameters, as name[:coercion][=default] separated by commas, in positional order

Fields tagged with dsq must be of type *Query, QueryFunc or ExecFunc. Anonymous struct fields
are built recursively.
*/

// BuildError reports a struct field that could not be built.
type BuildError struct {
	FieldName  string
	FieldOrder int
	Err        error
}

func (be BuildError) Error() string {
	return fmt.Sprint("error in field #", be.FieldOrder, " (", be.FieldName, "): ", be.Err.Error())
}

func (be BuildError) Unwrap() error {
	return be.Err
}

var (
	queryPtrType = reflect.TypeOf((*Query)(nil))
	queryFunc    = reflect.TypeOf(QueryFunc(nil))
	execFunc     = reflect.TypeOf(ExecFunc(nil))
)

// Build populates the tagged fields of the struct dao points to with functors bound to ds.
// Every field is checked and all errors are reported together; if there are any, no field
// is populated.
func (ds *DataSource) Build(dao interface{}) error {
	daoPointerType := reflect.TypeOf(dao)
	//must be a pointer to struct
	if daoPointerType == nil || daoPointerType.Kind() != reflect.Ptr {
		return errors.New("not a pointer")
	}
	daoType := daoPointerType.Elem()
	//if not a struct, error out
	if daoType.Kind() != reflect.Struct {
		return errors.New("not a pointer to struct")
	}
	var out error
	fields := make([]reflect.Value, daoType.NumField())
	daoValue := reflect.ValueOf(dao).Elem()
	for i := 0; i < daoType.NumField(); i++ {
		curField := daoType.Field(i)

		if curField.Type.Kind() == reflect.Struct && curField.Anonymous && curField.PkgPath == "" {
			pv := reflect.New(curField.Type)
			if err := ds.Build(pv.Interface()); err != nil {
				out = multierr.Append(out, err)
			} else {
				fields[i] = pv.Elem()
			}
			continue
		}

		query, ok := curField.Tag.Lookup("dsq")
		if !ok {
			continue
		}
		fail := func(err error) {
			out = multierr.Append(out, BuildError{FieldName: curField.Name, FieldOrder: i, Err: err})
		}
		if curField.PkgPath != "" {
			fail(errors.New("field must be exported"))
			continue
		}
		switch curField.Type {
		case queryPtrType, queryFunc, execFunc:
		default:
			fail(fmt.Errorf("field must be of type *Query, QueryFunc or ExecFunc, not %v", curField.Type))
			continue
		}
		params, err := ParseParams(curField.Tag.Get("dsp"))
		if err != nil {
			fail(err)
			continue
		}
		q, err := ds.Query(query, params...)
		if err != nil {
			fail(err)
			continue
		}
		switch curField.Type {
		case queryPtrType:
			fields[i] = reflect.ValueOf(q)
		case queryFunc:
			fields[i] = reflect.ValueOf(q.Func())
		case execFunc:
			fields[i] = reflect.ValueOf(q.ExecFunc())
		}
	}
	if out != nil {
		return out
	}
	for i, v := range fields {
		if v.IsValid() {
			daoValue.Field(i).Set(v)
		}
	}
	return nil
}
