package table

// Raw is one uploaded sheet or CSV file before header resolution.
// Column names are arbitrary and rows may be ragged.
type Raw struct {
	Source  string
	Sheet   string
	Columns []string
	Rows    [][]string
}

// Label identifies the raw table in messages, e.g. "visits.xlsx [Sheet1]".
func (r Raw) Label() string {
	if r.Sheet == "" {
		return r.Source
	}
	return r.Source + " [" + r.Sheet + "]"
}

// Clone copies the column header slice. Rows are shared because resolution only renames columns.
func (r Raw) Clone() Raw {
	cols := make([]string, len(r.Columns))
	copy(cols, r.Columns)
	r.Columns = cols
	return r
}

// ColumnIndex returns the index of the first column with exactly this name.
func (r Raw) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns row i, column j, or "" for ragged rows.
func (r Raw) Cell(i, j int) string {
	if j < 0 || j >= len(r.Rows[i]) {
		return ""
	}
	return r.Rows[i][j]
}
