package dsquery

import (
	"sort"
)

// Binding is a resolved parameter value.
type Binding struct {
	Name  string
	Value interface{}
}

// Resolved holds one binding per schema parameter, in schema order.
type Resolved []Binding

// Values returns the bound values in schema order.
func (r Resolved) Values() []interface{} {
	out := make([]interface{}, len(r))
	for i, b := range r {
		out[i] = b.Value
	}
	return out
}

func (r Resolved) Get(name string) (interface{}, bool) {
	for _, b := range r {
		if b.Name == name {
			return b.Value, true
		}
	}
	return nil, false
}

type slotState int

const (
	unset slotState = iota
	supplied
	defaulted
)

type slot struct {
	state slotState
	value interface{}
}

// Resolve matches the call arguments against the schema and coerces every supplied value.
//
// Positional values fill parameters in declaration order, keywords are applied afterwards and
// win over positional values for the same parameter, and parameters left unset take their
// default. Defaults are used as declared and never coerced.
func Resolve(s Schema, a Args) (Resolved, error) {
	slots := make([]slot, s.Len())

	if len(a.positional) > len(slots) {
		return nil, TooManyArgumentsError{Got: len(a.positional), Max: len(slots)}
	}
	for i, v := range a.positional {
		slots[i] = slot{state: supplied, value: v}
	}

	if len(a.keywords) > 0 {
		names := make([]string, 0, len(a.keywords))
		for k := range a.keywords {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, name := range names {
			i, ok := s.Index(name)
			if !ok {
				//struct fields that do not name a parameter are not an error
				if a.kind == object {
					continue
				}
				return nil, UnknownParameterError{Name: name}
			}
			slots[i] = slot{state: supplied, value: a.keywords[name]}
		}
	}

	for i := range slots {
		if slots[i].state != unset {
			continue
		}
		p := s.At(i)
		if !p.HasDefault {
			return nil, MissingParameterError{Name: p.Name}
		}
		slots[i] = slot{state: defaulted, value: p.Default}
	}

	out := make(Resolved, len(slots))
	for i, sl := range slots {
		p := s.At(i)
		v := sl.value
		if sl.state == supplied {
			var err error
			v, err = p.Coerce(v)
			if err != nil {
				return nil, CoercionError{Name: p.Name, Value: sl.value, Err: err}
			}
		}
		out[i] = Binding{Name: p.Name, Value: v}
	}
	return out, nil
}
