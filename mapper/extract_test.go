package mapper

import (
	"reflect"
	"testing"
)

type Inner struct {
	A int
	B string `dsq:"bee"`
}

type Outer struct {
	Inner
	A      string
	C      float64 `dsq:"-"`
	D      *int    `dsq:""`
	hidden int
}

func TestFields(t *testing.T) {
	d := 4
	o := Outer{Inner: Inner{A: 1, B: "b"}, A: "outer", C: 3, D: &d, hidden: 5}
	expected := map[string]interface{}{
		"A":   "outer",
		"bee": "b",
		"D":   &d,
	}
	for _, in := range []interface{}{o, &o} {
		out, err := Fields(in)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(out, expected) {
			t.Errorf("expected %v, got %v", expected, out)
		}
	}
}

func TestFieldsErrors(t *testing.T) {
	var o *Outer
	data := []struct {
		in  interface{}
		msg string
	}{
		{10, "cannot extract fields; only structs have fields"},
		{map[string]int{"a": 1}, "cannot extract fields; only structs have fields"},
		{o, "cannot extract fields; nil pointer"},
		{nil, "cannot extract fields; only structs have fields"},
	}
	for _, v := range data {
		_, err := Fields(v.in)
		if err == nil || err.Error() != v.msg {
			t.Errorf("%#v: expected %q, got %v", v.in, v.msg, err)
		}
	}
}
