package dsquery

import (
	"reflect"

	"github.com/jonbodner/dsquery/mapper"
)

type argKind int

const (
	noArgs argKind = iota
	positional
	keywords
	mixed
	object
)

// Args holds the arguments of one call in any of the supported calling conventions.
// Build one with Positional, Keywords, Single, Mixed, Object or NoArgs.
type Args struct {
	kind       argKind
	positional []interface{}
	keywords   map[string]interface{}
}

// NoArgs is a call without arguments; every parameter must have a default.
func NoArgs() Args {
	return Args{}
}

// Positional matches vals against the schema in declaration order.
func Positional(vals ...interface{}) Args {
	if len(vals) == 0 {
		return Args{}
	}
	return Args{kind: positional, positional: vals}
}

// Keywords assigns values by parameter name.
func Keywords(kw map[string]interface{}) Args {
	if len(kw) == 0 {
		return Args{}
	}
	return Args{kind: keywords, keywords: kw}
}

// Mixed supplies positional values first and then overrides them by name.
func Mixed(vals []interface{}, kw map[string]interface{}) Args {
	return Args{kind: mixed, positional: vals, keywords: kw}
}

// Single normalizes one argument. A map keyed by strings is treated as keywords,
// anything else as the value of the first parameter.
func Single(v interface{}) Args {
	if kw, ok := asKeywords(v); ok {
		return Keywords(kw)
	}
	return Positional(v)
}

// Object uses the exported fields of a struct, or pointer to struct, as keywords.
// Fields that name no parameter are ignored when the arguments are resolved.
func Object(v interface{}) (Args, error) {
	kw, err := mapper.Fields(v)
	if err != nil {
		return Args{}, err
	}
	return Args{kind: object, keywords: kw}, nil
}

func asKeywords(v interface{}) (map[string]interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
