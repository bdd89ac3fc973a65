// Package frame implements the ordered, column-labelled record set passed
// between the ingestion, normalization, filter, and reporting stages.
package frame

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is how date cells are rendered in CSV output.
const DateLayout = "2006-01-02"

// Frame is an ordered sequence of rows under an ordered set of column labels.
// A cell is nil, string, float64, or time.Time. Frames handed to a downstream
// stage are never mutated by it; each stage builds a new Frame, possibly
// sharing row slices with its input.
type Frame struct {
	cols  []string
	index map[string]int
	rows  [][]any
}

// New creates an empty frame with the given columns, in order.
func New(cols ...string) *Frame {
	f := &Frame{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		f.addColumn(c)
	}
	return f
}

// Columns returns a copy of the column labels in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	return len(f.rows)
}

// HasColumn reports whether the frame has a column with the exact label.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

func (f *Frame) addColumn(name string) int {
	if idx, ok := f.index[name]; ok {
		return idx
	}
	idx := len(f.cols)
	f.cols = append(f.cols, name)
	f.index[name] = idx
	for i, row := range f.rows {
		f.rows[i] = append(row, nil)
	}
	return idx
}

// AppendRow appends one row. Short rows are padded with nil; cells beyond the
// current column count are dropped.
func (f *Frame) AppendRow(cells []any) {
	row := make([]any, len(f.cols))
	copy(row, cells)
	f.rows = append(f.rows, row)
}

// Append concatenates other onto f row-wise. Columns unseen by f are added at
// the end in other's order; cells for columns absent from a side are nil.
func (f *Frame) Append(other *Frame) {
	idx := make([]int, len(other.cols))
	for i, c := range other.cols {
		idx[i] = f.addColumn(c)
	}
	for _, src := range other.rows {
		row := make([]any, len(f.cols))
		for i, v := range src {
			row[idx[i]] = v
		}
		f.rows = append(f.rows, row)
	}
}

// Value returns the cell at row i, or nil when the column does not exist.
func (f *Frame) Value(i int, col string) any {
	idx, ok := f.index[col]
	if !ok {
		return nil
	}
	return f.rows[i][idx]
}

// Set overwrites the cell at row i, creating the column if needed.
func (f *Frame) Set(i int, col string, v any) {
	idx, ok := f.index[col]
	if !ok {
		idx = f.addColumn(col)
	}
	f.rows[i][idx] = v
}

// String returns the cell at row i as a string, with ok=false for nil cells,
// missing columns, and non-string cells.
func (f *Frame) String(i int, col string) (string, bool) {
	s, ok := f.Value(i, col).(string)
	return s, ok
}

// Float returns the cell at row i as a float64, with ok=false for nil cells,
// missing columns, and non-numeric cells.
func (f *Frame) Float(i int, col string) (float64, bool) {
	v, ok := f.Value(i, col).(float64)
	return v, ok
}

// Time returns the cell at row i as a time.Time, with ok=false for nil cells,
// missing columns, and non-date cells.
func (f *Frame) Time(i int, col string) (time.Time, bool) {
	t, ok := f.Value(i, col).(time.Time)
	return t, ok
}

// Filter returns a new frame holding the rows for which keep returns true,
// in their original order. Row slices are shared with f.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	out := New(f.cols...)
	for i, row := range f.rows {
		if keep(i) {
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// MapRow applies fn to every row, replacing each row with the returned slice.
// fn receives a copy it may mutate freely.
func (f *Frame) MapRow(fn func(i int, row []any) []any) *Frame {
	out := New(f.cols...)
	for i, row := range f.rows {
		cp := make([]any, len(row))
		copy(cp, row)
		out.rows = append(out.rows, fn(i, cp))
	}
	return out
}

// RenameColumns returns a new frame with every column label passed through
// rename. When two labels collide after renaming, the first column wins and
// the later one is dropped.
func (f *Frame) RenameColumns(rename func(string) string) *Frame {
	out := &Frame{index: make(map[string]int)}
	src := make([]int, 0, len(f.cols)) // source index per kept column
	for i, c := range f.cols {
		name := rename(c)
		if _, ok := out.index[name]; ok {
			continue
		}
		out.index[name] = len(out.cols)
		out.cols = append(out.cols, name)
		src = append(src, i)
	}
	for _, row := range f.rows {
		dst := make([]any, len(out.cols))
		for j, i := range src {
			dst[j] = row[i]
		}
		out.rows = append(out.rows, dst)
	}
	return out
}

// Distinct returns the distinct non-nil string values of col in
// first-observed row order.
func (f *Frame) Distinct(col string) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range f.rows {
		s, ok := f.String(i, col)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// FormatCell renders one cell for textual output: nil as the empty string,
// dates as 2006-01-02, floats in shortest round-trip form.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(DateLayout)
	default:
		return ""
	}
}

// WriteCSV writes the frame as UTF-8 comma-delimited text: header row of
// column labels, one record per row, no index column.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.cols); err != nil {
		return eris.Wrap(err, "frame: write csv header")
	}
	record := make([]string, len(f.cols))
	for _, row := range f.rows {
		for i, v := range row {
			record[i] = FormatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "frame: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "frame: flush csv")
}
