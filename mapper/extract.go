package mapper

import (
	"errors"
	"reflect"
)

// Fields extracts the exported fields of a struct, or pointer to struct, into a map.
// A field is keyed by its dsq tag when present, otherwise by its name; a tag of - skips it.
// Fields of embedded structs are included, but a field declared on the outer struct wins.
func Fields(s interface{}) (map[string]interface{}, error) {
	sv := reflect.ValueOf(s)
	for sv.Kind() == reflect.Ptr {
		if sv.IsNil() {
			return nil, errors.New("cannot extract fields; nil pointer")
		}
		sv = sv.Elem()
	}
	if sv.Kind() != reflect.Struct {
		return nil, errors.New("cannot extract fields; only structs have fields")
	}
	out := map[string]interface{}{}
	extract(sv, out)
	return out, nil
}

func extract(sv reflect.Value, out map[string]interface{}) {
	st := sv.Type()
	var embedded []reflect.Value
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			embedded = append(embedded, sv.Field(i))
			continue
		}
		if sf.PkgPath != "" {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("dsq"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		out[name] = sv.Field(i).Interface()
	}
	for _, ev := range embedded {
		inner := map[string]interface{}{}
		extract(ev, inner)
		for k, v := range inner {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
}
