package normalize

import (
	"strings"

	"github.com/KaramelBytes/hcpdash/internal/schema"
	"github.com/KaramelBytes/hcpdash/internal/table"
)

// Unify concatenates resolved tables into one table restricted to the canonical columns
// that appear in at least one input, in schema order.
//
// Text cells are trimmed, numeric cells are coerced (unparseable or missing values become
// zero) and exact duplicate rows are dropped, keeping the first occurrence.
// When no canonical column survives the result is an empty table.
func Unify(resolved []table.Raw, s *schema.Schema) *table.Table {
	var cols []table.Column
	for _, f := range s.Fields {
		for _, r := range resolved {
			if r.ColumnIndex(f.Display) >= 0 {
				cols = append(cols, table.Column{Name: f.Display, Kind: f.Kind})
				break
			}
		}
	}
	if len(cols) == 0 {
		return table.Empty()
	}

	var rows []table.Row
	seen := map[string]struct{}{}
	var key strings.Builder
	for _, r := range resolved {
		pos := make([]int, len(cols))
		for j, c := range cols {
			pos[j] = r.ColumnIndex(c.Name)
		}
		for i := range r.Rows {
			row := make(table.Row, len(cols))
			key.Reset()
			for j, c := range cols {
				v := ""
				if pos[j] >= 0 {
					v = r.Cell(i, pos[j])
				}
				if c.Kind == schema.Number {
					row[j].Num = table.Coerce(v)
					key.WriteString(table.FormatNumber(row[j].Num))
				} else {
					row[j].Text = strings.TrimSpace(v)
					key.WriteString(row[j].Text)
				}
				key.WriteByte(0x1f)
			}
			k := key.String()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			rows = append(rows, row)
		}
	}
	return table.New(cols, rows)
}
