// Package table holds the result shape produced by the aggregation engine:
// a title row followed by data rows of typed scalar values.
package table

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind identifies the scalar type held by a Value.
type Kind int

const (
	KindEmpty Kind = iota
	KindString
	KindInt
	KindFloat
)

// NaNText is how undefined ratios are rendered.
const NaNText = "NaN"

// Value is one typed cell.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

// Empty returns a cell with no value, used to pad fixed-width rows.
func Empty() Value { return Value{} }

// String returns a text cell.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an integer cell.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Uint returns an integer cell from an unsigned counter.
func Uint(u uint64) Value {
	if u > math.MaxInt64 {
		return Value{kind: KindInt, i: math.MaxInt64}
	}
	return Value{kind: KindInt, i: int64(u)}
}

// Float returns a floating point cell. NaN and infinities are allowed.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Kind returns the cell type.
func (v Value) Kind() Kind { return v.kind }

// Str returns the text of a string cell.
func (v Value) Str() string { return v.s }

// Int returns the integer of an int cell.
func (v Value) Int() int64 { return v.i }

// Float returns the value of a float cell, or the int value converted.
func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// IsNaN reports whether the cell holds an undefined ratio.
func (v Value) IsNaN() bool {
	return v.kind == KindFloat && math.IsNaN(v.f)
}

// String renders the cell as text. Undefined floats render as NaNText.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		if math.IsNaN(v.f) {
			return NaNText
		}
		if math.IsInf(v.f, 0) {
			if v.f > 0 {
				return "Infinity"
			}
			return "-Infinity"
		}
		return strconv.FormatFloat(v.f, 'f', 2, 64)
	default:
		return ""
	}
}

// Interface returns a plain Go value suitable for encoders. Non-finite floats
// are returned as text since neither JSON nor most consumers accept them.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return v.String()
		}
		return v.f
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}

// Row is an ordered list of cells.
type Row []Value

// Strings renders every cell as text.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = v.String()
	}
	return out
}

// Table is a titled list of rows.
type Table struct {
	Name   string `json:"name" yaml:"name"`
	Titles Row    `json:"titles" yaml:"titles"`
	Rows   []Row  `json:"rows" yaml:"rows"`
}

// New creates an empty table.
func New(name string, titles Row) *Table {
	return &Table{
		Name:   name,
		Titles: titles,
		Rows:   make([]Row, 0),
	}
}

// AddRow appends a row. Empty rows are dropped.
func (t *Table) AddRow(row Row) {
	if len(row) == 0 {
		return
	}
	t.Rows = append(t.Rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
