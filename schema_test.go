package dsquery

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewSchemaDuplicates(t *testing.T) {
	_, err := NewSchema(Required("a", Nop), Required("b", Nop), Required("a", Int), Optional("b", Nop, 1))
	var se SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if !reflect.DeepEqual(se.Duplicates, []string{"a", "b"}) {
		t.Errorf("expected every duplicate to be reported, got %v", se.Duplicates)
	}
	if se.Error() != "duplicate parameter names: a, b" {
		t.Errorf("unexpected message %q", se.Error())
	}
}

func TestNewSchemaEmptyName(t *testing.T) {
	_, err := NewSchema(Required("", Nop))
	var se SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestSchemaAccessors(t *testing.T) {
	s := MustSchema(Required("id", Int), Optional("name", nil, "x"))
	if s.Len() != 2 {
		t.Fatalf("expected 2 params, got %d", s.Len())
	}
	if !reflect.DeepEqual(s.Names(), []string{"id", "name"}) {
		t.Errorf("unexpected names %v", s.Names())
	}
	if i, ok := s.Index("name"); !ok || i != 1 {
		t.Errorf("unexpected index %d, %v", i, ok)
	}
	p, ok := s.Lookup("name")
	if !ok || !p.HasDefault || p.Default != "x" || p.Coerce == nil {
		t.Errorf("unexpected param %#v", p)
	}
	if _, ok := s.Lookup("missing"); ok {
		t.Error("expected missing to be absent")
	}
	params := s.Params()
	params[0].Name = "changed"
	if s.At(0).Name != "id" {
		t.Error("Params must return a copy")
	}
}

func TestMustSchemaPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected a panic")
		}
	}()
	MustSchema(Required("a", Nop), Required("a", Nop))
}

func TestParseParams(t *testing.T) {
	params, err := ParseParams(" id:int, name = bob ,limit:int=10, flag:bool?")
	if err != nil {
		t.Fatal(err)
	}
	if len(params) != 4 {
		t.Fatalf("expected 4 params, got %d", len(params))
	}
	expected := []struct {
		name       string
		def        interface{}
		hasDefault bool
	}{
		{"id", nil, false},
		{"name", " bob", true},
		{"limit", int64(10), true},
		{"flag", nil, false},
	}
	for i, v := range expected {
		p := params[i]
		if p.Name != v.name || p.Default != v.def || p.HasDefault != v.hasDefault {
			t.Errorf("param %d: expected %v, got %#v", i, v, p)
		}
	}
	if out, _ := params[3].Coerce("maybe"); out != nil {
		t.Errorf("expected a nullable coercion, got %v", out)
	}

	if params, err := ParseParams(""); err != nil || params != nil {
		t.Errorf("expected nothing for an empty list, got %v, %v", params, err)
	}
}

func TestParseParamsErrors(t *testing.T) {
	var se SchemaError
	if _, err := ParseParams("a:date"); !errors.As(err, &se) {
		t.Errorf("expected SchemaError for an unknown coercion, got %v", err)
	}
	if _, err := ParseParams("a,,b"); !errors.As(err, &se) {
		t.Errorf("expected SchemaError for an empty name, got %v", err)
	}
	var ce CoercionError
	if _, err := ParseParams("a:int=ten"); !errors.As(err, &ce) || ce.Name != "a" {
		t.Errorf("expected CoercionError for a bad default, got %v", err)
	}
}
