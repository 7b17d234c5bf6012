package dsquery

import (
	"fmt"
	"go/scanner"
	"go/token"
	"strings"

	"github.com/jonbodner/dsquery/adapter"
)

type markerKind int

const (
	noMarkers markerKind = iota
	positionalMarkers
	namedMarkers
)

// compiledQuery is a template rewritten for the driver. order holds, for every placeholder
// in text, the index of the schema parameter whose value it binds.
type compiledQuery struct {
	text  string
	order []int
}

// bind lays out the resolved values in placeholder order.
func (cq compiledQuery) bind(r Resolved) []interface{} {
	out := make([]interface{}, len(cq.order))
	for k, i := range cq.order {
		out[k] = r[i].Value
	}
	return out
}

// compileTemplate rewrites the markers of a SQL template into driver placeholders. Everything
// else is passed through verbatim.
//
// %s binds the next parameter in schema order, :name: binds the named parameter
// %% is a literal %, \% and \: are a literal % and :, :: is a literal :: (postgres casts)
// any other \ is kept as is
// single quoted literals, including E'' literals with backslash escapes, are never scanned
func compileTemplate(query string, s Schema, pa adapter.ParamAdapter) (compiledQuery, error) {
	var out strings.Builder
	var order []int
	kind := noMarkers
	placeholder := func(i int) {
		order = append(order, i)
		out.WriteString(pa(len(order)))
	}
	setKind := func(k markerKind, pos int) error {
		if kind != noMarkers && kind != k {
			return TemplateError{Query: query, Pos: pos, Message: "cannot mix %s and :name: markers"}
		}
		kind = k
		return nil
	}

	for i := 0; i < len(query); {
		c := query[i]
		switch c {
		case '\'':
			end := literalEnd(query, i)
			out.WriteString(query[i:end])
			i = end
		case '\\':
			if i+1 < len(query) && (query[i+1] == ':' || query[i+1] == '%') {
				out.WriteByte(query[i+1])
				i += 2
				continue
			}
			out.WriteByte(c)
			i++
		case '%':
			if i+1 < len(query) && query[i+1] == 's' {
				if err := setKind(positionalMarkers, i); err != nil {
					return compiledQuery{}, err
				}
				if len(order) >= s.Len() {
					return compiledQuery{}, TemplateError{Query: query, Pos: i, Message: fmt.Sprintf("more %%s markers than the %d declared parameters", s.Len())}
				}
				placeholder(len(order))
				i += 2
				continue
			}
			out.WriteByte('%')
			if i+1 < len(query) && query[i+1] == '%' {
				i++
			}
			i++
		case ':':
			if i+1 < len(query) && query[i+1] == ':' {
				out.WriteString("::")
				i += 2
				continue
			}
			end := strings.IndexByte(query[i+1:], ':')
			if end <= 0 || !validIdentifier(query[i+1:i+1+end]) {
				out.WriteByte(':')
				i++
				continue
			}
			name := query[i+1 : i+1+end]
			paramPos, ok := s.Index(name)
			if !ok {
				return compiledQuery{}, TemplateError{Query: query, Pos: i, Message: fmt.Sprintf("query parameter %s cannot be found in the schema", name)}
			}
			if err := setKind(namedMarkers, i); err != nil {
				return compiledQuery{}, err
			}
			placeholder(paramPos)
			i += end + 2
		default:
			out.WriteByte(c)
			i++
		}
	}

	switch kind {
	case positionalMarkers, noMarkers:
		if len(order) != s.Len() {
			return compiledQuery{}, TemplateError{Query: query, Pos: -1, Message: fmt.Sprintf("template has %d markers for %d parameters", len(order), s.Len())}
		}
	}
	return compiledQuery{text: out.String(), order: order}, nil
}

// literalEnd returns the index just past the single quoted literal that starts at start, or
// the end of query if it is unterminated. In an E'' literal a backslash escapes the next byte.
// A doubled quote ends one literal and starts the next, so it is copied all the same.
func literalEnd(query string, start int) int {
	escapes := start > 0 && (query[start-1] == 'E' || query[start-1] == 'e') &&
		(start == 1 || !isIdentByte(query[start-2]))
	for i := start + 1; i < len(query); i++ {
		switch query[i] {
		case '\\':
			if escapes {
				i++
			}
		case '\'':
			return i + 1
		}
	}
	return len(query)
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// validIdentifier reports whether curVar is a single Go style identifier.
func validIdentifier(curVar string) bool {
	if strings.ContainsAny(curVar, "; \t\n") {
		return false
	}
	src := []byte(curVar)
	var s scanner.Scanner
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	s.Init(file, src, nil, scanner.Mode(0))

	idents := 0
	for {
		_, tok, _ := s.Scan()
		switch tok {
		case token.EOF:
			return idents == 1
		case token.SEMICOLON:
			//happens with auto-insert from scanner
			continue
		case token.IDENT:
			idents++
		default:
			//go keywords like type or range are fine as parameter names
			if !tok.IsKeyword() {
				return false
			}
			idents++
		}
	}
}
