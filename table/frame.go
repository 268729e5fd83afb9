// Package table is the columnar record set that provider data is reshaped into
// before rendering. A Frame is the payload of the table artifact kind.
package table

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// Frame ordered columns plus row-major cells
// Cells hold float64, string, bool or nil
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New creates an empty frame with the given columns
func New(columns ...string) *Frame {
	f := &Frame{columns: append([]string(nil), columns...)}
	f.reindex()
	return f
}

// FromRows builds a frame and checks every row width
func FromRows(columns []string, rows [][]any) (*Frame, error) {
	f := New(columns...)
	for _, r := range rows {
		if err := f.Append(r...); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// FromRecords builds a frame from map records, keeping the given column order
// Missing fields become nil
func FromRecords(columns []string, records []map[string]any) *Frame {
	f := New(columns...)
	for _, rec := range records {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = normalize(rec[c])
		}
		f.rows = append(f.rows, row)
	}
	return f
}

// ErrorFrame one-row frame carrying a user-visible message
func ErrorFrame(msg string) *Frame {
	f := New("error")
	f.rows = append(f.rows, []any{msg})
	return f
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.columns))
	for i, c := range f.columns {
		f.index[c] = i
	}
}

// Append adds one row
func (f *Frame) Append(values ...any) error {
	if len(values) != len(f.columns) {
		return fmt.Errorf("row has %d values, frame has %d columns", len(values), len(f.columns))
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = normalize(v)
	}
	f.rows = append(f.rows, row)
	return nil
}

// normalize numbers to float64 so a frame survives a JSON round trip unchanged
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		if x, err := n.Float64(); err == nil {
			return x
		}
		return n.String()
	default:
		return v
	}
}

// Columns returns a copy of the column names
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// HasColumn reports whether the column exists
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Len number of rows
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.rows)
}

// Width number of columns
func (f *Frame) Width() int {
	if f == nil {
		return 0
	}
	return len(f.columns)
}

// IsEmpty true for nil, zero-row or zero-column frames
func (f *Frame) IsEmpty() bool {
	return f.Len() == 0 || f.Width() == 0
}

// Row returns a view of row i
func (f *Frame) Row(i int) Row {
	return Row{f: f, i: i}
}

// Value returns the cell at (row, column)
func (f *Frame) Value(i int, col string) (any, bool) {
	j, ok := f.index[col]
	if !ok || i < 0 || i >= len(f.rows) {
		return nil, false
	}
	return f.rows[i][j], true
}

// Float returns the cell as a number; numeric strings are parsed
func (f *Frame) Float(i int, col string) (float64, bool) {
	v, ok := f.Value(i, col)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		x, err := strconv.ParseFloat(n, 64)
		return x, err == nil
	default:
		return 0, false
	}
}

// Select keeps the named columns in the given order
func (f *Frame) Select(cols ...string) (*Frame, error) {
	idx := make([]int, len(cols))
	for k, c := range cols {
		j, ok := f.index[c]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		idx[k] = j
	}
	out := New(cols...)
	for _, r := range f.rows {
		row := make([]any, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// Drop removes columns; unknown names are ignored
func (f *Frame) Drop(cols ...string) *Frame {
	drop := make(map[string]bool, len(cols))
	for _, c := range cols {
		drop[c] = true
	}
	var keep []string
	for _, c := range f.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	out, _ := f.Select(keep...)
	return out
}

// Rename renames columns in place and returns the frame
func (f *Frame) Rename(names map[string]string) *Frame {
	for i, c := range f.columns {
		if n, ok := names[c]; ok {
			f.columns[i] = n
		}
	}
	f.reindex()
	return f
}

// WithColumn appends (or replaces) a column computed per row
func (f *Frame) WithColumn(name string, fn func(Row) any) *Frame {
	j, exists := f.index[name]
	if !exists {
		f.columns = append(f.columns, name)
		f.reindex()
	}
	for i := range f.rows {
		v := normalize(fn(f.Row(i)))
		if exists {
			f.rows[i][j] = v
		} else {
			f.rows[i] = append(f.rows[i], v)
		}
	}
	return f
}

// SortBy sorts rows by a numeric column; non-numeric cells sort last
func (f *Frame) SortBy(col string, desc bool) *Frame {
	j, ok := f.index[col]
	if !ok {
		return f
	}
	sort.SliceStable(f.rows, func(a, b int) bool {
		x, okx := toFloat(f.rows[a][j])
		y, oky := toFloat(f.rows[b][j])
		if okx != oky {
			return okx
		}
		if desc {
			return x > y
		}
		return x < y
	})
	return f
}

// Filter keeps the rows for which keep returns true
func (f *Frame) Filter(keep func(Row) bool) *Frame {
	rows := f.rows[:0:0]
	for i := range f.rows {
		if keep(f.Row(i)) {
			rows = append(rows, f.rows[i])
		}
	}
	f.rows = rows
	return f
}

// Head keeps the first n rows
func (f *Frame) Head(n int) *Frame {
	if n >= 0 && n < len(f.rows) {
		f.rows = f.rows[:n]
	}
	return f
}

// Records returns rows as maps (JSON "records" orientation)
func (f *Frame) Records() []map[string]any {
	out := make([]map[string]any, 0, len(f.rows))
	for _, r := range f.rows {
		rec := make(map[string]any, len(f.columns))
		for j, c := range f.columns {
			rec[c] = r[j]
		}
		out = append(out, rec)
	}
	return out
}

type wireFrame struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

// MarshalJSON encodes in "split" orientation: {"columns":[...],"data":[[...]]}
func (f *Frame) MarshalJSON() ([]byte, error) {
	w := wireFrame{Columns: f.columns, Data: f.rows}
	if w.Columns == nil {
		w.Columns = []string{}
	}
	if w.Data == nil {
		w.Data = [][]any{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the "split" orientation
func (f *Frame) UnmarshalJSON(data []byte) error {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	for i, r := range w.Data {
		if len(r) != len(w.Columns) {
			return fmt.Errorf("row %d has %d values, frame has %d columns", i, len(r), len(w.Columns))
		}
	}
	f.columns = w.Columns
	f.rows = w.Data
	f.reindex()
	return nil
}

// Row view of one frame row
type Row struct {
	f *Frame
	i int
}

// Get returns the cell value of a column
func (r Row) Get(col string) any {
	v, _ := r.f.Value(r.i, col)
	return v
}

// Float returns the numeric value of a column, 0 when absent or non-numeric
func (r Row) Float(col string) float64 {
	v, _ := r.f.Float(r.i, col)
	return v
}

// Lookup returns the numeric value of a column and whether it is numeric
func (r Row) Lookup(col string) (float64, bool) {
	return r.f.Float(r.i, col)
}

// Index row position in the frame
func (r Row) Index() int {
	return r.i
}

// String returns the cell formatted as text
func (r Row) String(col string) string {
	switch v := r.Get(col).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
