package normalize

import (
	"sort"

	"github.com/KaramelBytes/hcpdash/internal/schema"
	"github.com/KaramelBytes/hcpdash/internal/table"
)

// Normalize resolves every raw table against s and m and unifies the result.
// It returns ErrNoUsableData together with the (empty) table when nothing usable survives.
func Normalize(raws []table.Raw, s *schema.Schema, m schema.Mapping) (*table.Table, error) {
	resolved := make([]table.Raw, len(raws))
	for i, r := range raws {
		resolved[i] = Resolve(r, s, m)
	}
	t := Unify(resolved, s)
	if t.Len() == 0 {
		return t, ErrNoUsableData
	}
	return t, nil
}

// Validate checks that every required column of s is present in t.
// found is reported back to the user alongside the missing names.
func Validate(t *table.Table, s *schema.Schema, found []string) error {
	var missing []string
	for _, name := range s.Required {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingColumnsError{Missing: missing, Available: found}
}

// ColumnUniverse returns the sorted distinct source column names across raw tables.
// These are the choices offered for manual mapping.
func ColumnUniverse(raws []table.Raw) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range raws {
		for _, c := range r.Columns {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
