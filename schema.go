package dsquery

import (
	"fmt"
	"strings"
)

// Param declares one query parameter.
type Param struct {
	Name       string
	Coerce     Coercion
	Default    interface{}
	HasDefault bool
}

// Required declares a parameter that must be supplied on every call.
func Required(name string, c Coercion) Param {
	return Param{Name: name, Coerce: c}
}

// Optional declares a parameter that falls back to def when no value is supplied.
// def is bound as is; it is never passed through c.
func Optional(name string, c Coercion, def interface{}) Param {
	return Param{Name: name, Coerce: c, Default: def, HasDefault: true}
}

// Schema is an ordered, immutable list of parameters. The order defines how positional
// arguments are matched. A Schema is safe to share between goroutines.
type Schema struct {
	params []Param
	index  map[string]int
}

// NewSchema validates the parameters and builds a Schema. Every repeated name is reported
// in a single SchemaError.
func NewSchema(params ...Param) (Schema, error) {
	s := Schema{
		params: make([]Param, len(params)),
		index:  make(map[string]int, len(params)),
	}
	var dups []string
	for i, p := range params {
		if p.Name == "" {
			return Schema{}, SchemaError{Message: fmt.Sprintf("parameter #%d has no name", i)}
		}
		if p.Coerce == nil {
			p.Coerce = Nop
		}
		if _, ok := s.index[p.Name]; ok {
			dups = append(dups, p.Name)
			continue
		}
		s.index[p.Name] = i
		s.params[i] = p
	}
	if len(dups) > 0 {
		return Schema{}, SchemaError{Duplicates: dups}
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. It is meant for package level declarations.
func MustSchema(params ...Param) Schema {
	s, err := NewSchema(params...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Schema) Len() int {
	return len(s.params)
}

// At returns the i-th parameter in declaration order.
func (s Schema) At(i int) Param {
	return s.params[i]
}

func (s Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

func (s Schema) Lookup(name string) (Param, bool) {
	i, ok := s.index[name]
	if !ok {
		return Param{}, false
	}
	return s.params[i], true
}

func (s Schema) Names() []string {
	out := make([]string, len(s.params))
	for i, p := range s.params {
		out[i] = p.Name
	}
	return out
}

// Params returns a copy of the declared parameters.
func (s Schema) Params() []Param {
	out := make([]Param, len(s.params))
	copy(out, s.params)
	return out
}

// ParseParams parses a comma separated parameter list of the form
//
//	name[:coercion][=default]
//
// where coercion is one of the names understood by CoercionByName. A textual default is run
// through the coercion here, once, so that it is stored in its final form.
func ParseParams(list string) ([]Param, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	var out []Param
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		def, hasDef := "", false
		if i := strings.Index(part, "="); i >= 0 {
			def, hasDef = part[i+1:], true
			part = strings.TrimSpace(part[:i])
		}
		name, cname := part, ""
		if i := strings.Index(part, ":"); i >= 0 {
			name, cname = strings.TrimSpace(part[:i]), part[i+1:]
		}
		if name == "" {
			return nil, SchemaError{Message: fmt.Sprintf("empty parameter name in %q", list)}
		}
		c, ok := CoercionByName(cname)
		if !ok {
			return nil, SchemaError{Message: fmt.Sprintf("unknown coercion %q for parameter %s", cname, name)}
		}
		if !hasDef {
			out = append(out, Required(name, c))
			continue
		}
		v, err := c(def)
		if err != nil {
			return nil, CoercionError{Name: name, Value: def, Err: err}
		}
		out = append(out, Optional(name, c, v))
	}
	return out, nil
}
