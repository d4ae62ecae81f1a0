package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/KaramelBytes/hcpdash/internal/schema"
)

// Column is a canonical column present in a table.
type Column struct {
	Name string
	Kind schema.Kind
}

// Cell holds either a text or a numeric value depending on its column kind.
type Cell struct {
	Text string
	Num  float64
}

// Row is one record; cells are positioned like the table's columns.
type Row []Cell

// Table is an immutable in-memory table restricted to canonical columns.
// Text cells are trimmed and "" means missing. Numeric cells are never missing.
type Table struct {
	cols  []Column
	index map[string]int
	rows  []Row
}

// New builds a table over the given columns and rows. Rows are taken as-is.
func New(cols []Column, rows []Row) *Table {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c.Name] = i
	}
	return &Table{cols: cols, index: idx, rows: rows}
}

// Empty returns a table with no columns and no rows.
func Empty() *Table { return New(nil, nil) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Has reports whether the named column is present. An empty name is never present.
func (t *Table) Has(name string) bool {
	if name == "" {
		return false
	}
	_, ok := t.index[name]
	return ok
}

// Kind returns the kind of the named column.
func (t *Table) Kind(name string) (schema.Kind, bool) {
	i, ok := t.index[name]
	if !ok {
		return schema.Text, false
	}
	return t.cols[i].Kind, true
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows exposes the rows for read-only iteration.
func (t *Table) Rows() []Row { return t.rows }

// Text returns the text value of column name in row i ("" when the column is absent).
func (t *Table) Text(i int, name string) string {
	j, ok := t.index[name]
	if !ok {
		return ""
	}
	c := t.rows[i][j]
	if t.cols[j].Kind == schema.Number {
		return FormatNumber(c.Num)
	}
	return c.Text
}

// Number returns the numeric value of column name in row i (0 when absent).
func (t *Table) Number(i int, name string) float64 {
	j, ok := t.index[name]
	if !ok {
		return 0
	}
	return t.rows[i][j].Num
}

// Where returns a new table holding the rows for which keep returns true.
// The receiver is never modified.
func (t *Table) Where(keep func(i int) bool) *Table {
	rows := make([]Row, 0, len(t.rows))
	for i, r := range t.rows {
		if keep(i) {
			rows = append(rows, r)
		}
	}
	return &Table{cols: t.cols, index: t.index, rows: rows}
}

// Distinct returns the sorted non-missing distinct values of a column.
func (t *Table) Distinct(name string) []string {
	if !t.Has(name) {
		return nil
	}
	seen := map[string]struct{}{}
	out := []string{}
	for i := range t.rows {
		v := t.Text(i, name)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// WriteCSV writes a header row and every row, canonical columns only.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.cols))
	for i := range t.rows {
		for j, c := range t.cols {
			rec[j] = t.Text(i, c.Name)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
