package sheet

import "fmt"

// Column is one named column of raw cell values
type Column struct {
	Name   string
	Values []any
}

// Sheet is a raw tabular sheet as read from a source file.
// Cell values are untyped: strings from text sources, numbers where the
// reader could tell.
type Sheet struct {
	Source  string // file path and sheet name, for diagnostics
	Columns []Column
}

// Rows returns the row count (the longest column)
func (s *Sheet) Rows() int {
	n := 0
	for _, c := range s.Columns {
		if len(c.Values) > n {
			n = len(c.Values)
		}
	}
	return n
}

// Names returns the column headers in order
func (s *Sheet) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Cell returns the raw value at (col, row); short columns read as nil
func (s *Sheet) Cell(col, row int) any {
	if col < 0 || col >= len(s.Columns) {
		return nil
	}
	vals := s.Columns[col].Values
	if row < 0 || row >= len(vals) {
		return nil
	}
	return vals[row]
}

// Warning is a non-fatal source read failure
type Warning struct {
	Source string
	Err    error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Source, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// FromRows builds a sheet from a header row followed by data rows.
// Blank headers are skipped along with their values.
func FromRows(source string, header []string, rows [][]string) Sheet {
	s := Sheet{Source: source}
	idx := make([]int, 0, len(header))
	for i, h := range header {
		if h == "" {
			continue
		}
		s.Columns = append(s.Columns, Column{Name: h, Values: make([]any, 0, len(rows))})
		idx = append(idx, i)
	}
	for _, row := range rows {
		for c, i := range idx {
			var v any
			if i < len(row) {
				v = row[i]
			}
			s.Columns[c].Values = append(s.Columns[c].Values, v)
		}
	}
	return s
}
