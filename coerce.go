package dsquery

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Coercion transforms a caller supplied value into the value bound to the query.
type Coercion func(v interface{}) (interface{}, error)

// Nop is the identity coercion.
func Nop(v interface{}) (interface{}, error) {
	return v, nil
}

// String renders any value as text. Byte slices are converted directly, everything else
// goes through fmt. nil stays nil.
func String(v interface{}) (interface{}, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return fmt.Sprint(v), nil
}

// Int converts integers, whole floats and numeric strings into an int64.
func Int(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot convert nil to int")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return nil, fmt.Errorf("%v is not a whole number", f)
		}
		return int64(f), nil
	case reflect.String:
		return strconv.ParseInt(strings.TrimSpace(rv.String()), 10, 64)
	}
	if b, ok := v.([]byte); ok {
		return strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	}
	return nil, fmt.Errorf("cannot convert %T to int", v)
}

// Float converts numbers and numeric strings into a float64.
func Float(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot convert nil to float")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
	}
	if b, ok := v.([]byte); ok {
		return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	}
	return nil, fmt.Errorf("cannot convert %T to float", v)
}

// Bool accepts bools and anything strconv.ParseBool understands.
func Bool(v interface{}) (interface{}, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(v)))
	}
	return nil, fmt.Errorf("cannot convert %T to bool", v)
}

// Null wraps c so that nil passes through and values c rejects become nil.
func Null(c Coercion) Coercion {
	if c == nil {
		c = Nop
	}
	return func(v interface{}) (interface{}, error) {
		if v == nil {
			return nil, nil
		}
		out, err := c(v)
		if err != nil {
			return nil, nil
		}
		return out, nil
	}
}

var coercions = map[string]Coercion{
	"":       Nop,
	"nop":    Nop,
	"string": String,
	"str":    String,
	"int":    Int,
	"float":  Float,
	"bool":   Bool,
}

// CoercionByName looks up one of the package coercions by name. A trailing ? wraps it in Null.
func CoercionByName(name string) (Coercion, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	nullable := strings.HasSuffix(name, "?")
	if nullable {
		name = strings.TrimSuffix(name, "?")
	}
	c, ok := coercions[name]
	if !ok {
		return nil, false
	}
	if nullable {
		return Null(c), true
	}
	return c, true
}
