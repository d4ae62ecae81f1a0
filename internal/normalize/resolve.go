package normalize

import (
	"strings"

	"github.com/KaramelBytes/hcpdash/internal/schema"
	"github.com/KaramelBytes/hcpdash/internal/table"
)

// shadowSuffix marks a column that already carried a canonical name but lost it to an
// explicit manual mapping for the same field.
const shadowSuffix = " (unmapped)"

// HeaderKey is the form used for synonym matching: lowercase and trimmed.
func HeaderKey(col string) string {
	return strings.ToLower(strings.TrimSpace(col))
}

// Resolve returns a copy of raw with source columns renamed to canonical display names.
//
// Explicit manual choices are applied first, in field order. Fields left on auto are then
// matched against their synonym lists unless the canonical name is already present.
// Columns that were not matched keep their source names.
func Resolve(raw table.Raw, s *schema.Schema, m schema.Mapping) table.Raw {
	out := raw.Clone()

	for _, f := range s.Fields {
		c := m.Get(f.Key)
		if c.None || c.Column == "" || c.Column == f.Display {
			continue
		}
		src := out.ColumnIndex(c.Column)
		if src < 0 {
			continue
		}
		if prev := out.ColumnIndex(f.Display); prev >= 0 {
			out.Columns[prev] = f.Display + shadowSuffix
		}
		out.Columns[src] = f.Display
	}

	canonical := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		canonical[f.Display] = struct{}{}
	}

	for _, f := range s.Fields {
		if out.ColumnIndex(f.Display) >= 0 {
			continue
		}
		if !m.Get(f.Key).Auto() {
			continue
		}
		lookup := lowerIndex(out.Columns, canonical)
		for _, syn := range f.Synonyms {
			if idx, ok := lookup[syn]; ok {
				out.Columns[idx] = f.Display
				break
			}
		}
	}
	return out
}

// lowerIndex maps each unclaimed column's header key to its first position.
func lowerIndex(cols []string, claimed map[string]struct{}) map[string]int {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, ok := claimed[c]; ok {
			continue
		}
		k := HeaderKey(c)
		if _, dup := idx[k]; !dup {
			idx[k] = i
		}
	}
	return idx
}
