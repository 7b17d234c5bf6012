package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Row is one result row. Values can be read by column name or by position, and the column
// order of the query is preserved.
type Row struct {
	cols []string
	vals []interface{}
}

// NewRow pairs column names with values. Both slices must have the same length.
func NewRow(cols []string, vals []interface{}) Row {
	if len(cols) != len(vals) {
		panic(fmt.Sprintf("mapper: %d columns but %d values", len(cols), len(vals)))
	}
	return Row{cols: cols, vals: vals}
}

func (r Row) Len() int {
	return len(r.cols)
}

func (r Row) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

func (r Row) Values() []interface{} {
	out := make([]interface{}, len(r.vals))
	copy(out, r.vals)
	return out
}

// At returns the value of the i-th column. It panics if i is out of range, like a slice index.
func (r Row) At(i int) interface{} {
	return r.vals[i]
}

// Get returns the value of the named column. When a name repeats, the first column wins.
func (r Row) Get(name string) (interface{}, bool) {
	for i, c := range r.cols {
		if c == name {
			return r.vals[i], true
		}
	}
	return nil, false
}

// Map copies the row into an unordered map.
func (r Row) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(r.cols))
	for i := len(r.cols) - 1; i >= 0; i-- {
		out[r.cols[i]] = r.vals[i]
	}
	return out
}

func (r Row) String() string {
	parts := make([]string, len(r.cols))
	for i, c := range r.cols {
		parts[i] = fmt.Sprintf("%s:%v", c, r.vals[i])
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// MarshalJSON writes the row as a JSON object with its keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var out bytes.Buffer
	out.WriteByte('{')
	for i, c := range r.cols {
		if i > 0 {
			out.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v := r.vals[i]
		//drivers hand back text as []byte, which json would base64
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out.Write(k)
		out.WriteByte(':')
		out.Write(val)
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}
