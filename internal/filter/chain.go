package filter

import (
	"strings"

	"github.com/KaramelBytes/hcpdash/internal/schema"
	"github.com/KaramelBytes/hcpdash/internal/table"
)

// Stage is one drill-down step bound to a column by role.
type Stage struct {
	Name  string
	Label string
	Role  schema.Role
	// Search enables free-text narrowing of the option list.
	Search bool
	// Codes enables the comma-separated exact-match list, applied to the table first.
	Codes bool
}

// DefaultChain is the dashboard's drill-down order. Stages whose role the schema lacks
// are reported as absent by Apply.
func DefaultChain() []Stage {
	return []Stage{
		{Name: "visn", Label: "VISN", Role: schema.RoleVISN},
		{Name: "facility", Label: "Facility", Role: schema.RoleFacility},
		{Name: "state", Label: "State", Role: schema.RoleState},
		{Name: "city", Label: "City", Role: schema.RoleCity},
		{Name: "specialty", Label: "Provider Specialty", Role: schema.RoleSpecialty, Search: true},
		{Name: "diagnosis", Label: "Diagnosis (ICD-10)", Role: schema.RoleDiagnosis, Search: true, Codes: true},
		{Name: "provider", Label: "Provider Name", Role: schema.RoleProvider},
	}
}

// Selection is the user's state for one stage. The zero value selects every available
// option, which leaves the table unchanged.
type Selection struct {
	// Explicit switches from "everything" to exactly Values. An explicit empty list
	// selects nothing.
	Explicit bool     `json:"explicit"`
	Values   []string `json:"values,omitempty"`
	Search   string   `json:"search,omitempty"`
	Codes    string   `json:"codes,omitempty"`
}

// StageState reports what a stage offered and selected.
type StageState struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Column   string   `json:"column,omitempty"`
	Present  bool     `json:"present"`
	Options  []string `json:"options"`
	Selected []string `json:"selected"`
	RowsIn   int      `json:"rows_in"`
	RowsOut  int      `json:"rows_out"`
}

// Apply runs the stages in order. Each stage sees only rows that survived the stages
// before it, so later selections never change earlier option lists.
func Apply(t *table.Table, s *schema.Schema, stages []Stage, sel map[string]Selection) (*table.Table, []StageState) {
	states := make([]StageState, 0, len(stages))
	for _, st := range stages {
		var state StageState
		t, state = applyStage(t, s.Column(st.Role), st, sel[st.Name])
		states = append(states, state)
	}
	return t, states
}

func applyStage(t *table.Table, col string, st Stage, sel Selection) (*table.Table, StageState) {
	state := StageState{Name: st.Name, Label: st.Label, Column: col, RowsIn: t.Len(),
		Options: []string{}, Selected: []string{}}
	if !t.Has(col) {
		state.RowsOut = t.Len()
		return t, state
	}
	state.Present = true

	if st.Codes {
		if codes := ParseCodes(sel.Codes); len(codes) > 0 {
			t = t.Where(func(i int) bool {
				_, ok := codes[t.Text(i, col)]
				return ok
			})
		}
	}

	all := t.Distinct(col)
	options := all
	if st.Search && strings.TrimSpace(sel.Search) != "" {
		options = MatchOptions(all, sel.Search)
	}
	state.Options = options

	selected := options
	if sel.Explicit {
		selected = intersect(sel.Values, options)
	}
	state.Selected = selected

	if len(selected) < len(all) {
		keep := make(map[string]struct{}, len(selected))
		for _, v := range selected {
			keep[v] = struct{}{}
		}
		t = t.Where(func(i int) bool {
			_, ok := keep[t.Text(i, col)]
			return ok
		})
	}
	state.RowsOut = t.Len()
	return t, state
}

// MatchOptions keeps the options containing query, case-insensitively.
func MatchOptions(options []string, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []string{}
	for _, o := range options {
		if strings.Contains(strings.ToLower(o), q) {
			out = append(out, o)
		}
	}
	return out
}

// ParseCodes splits a comma-separated exact-match list. Blank entries are ignored.
func ParseCodes(list string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, c := range strings.Split(list, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			out[c] = struct{}{}
		}
	}
	return out
}

// intersect keeps the values that are currently offered, in option order.
func intersect(values, options []string) []string {
	want := make(map[string]struct{}, len(values))
	for _, v := range values {
		want[v] = struct{}{}
	}
	out := []string{}
	for _, o := range options {
		if _, ok := want[o]; ok {
			out = append(out, o)
		}
	}
	return out
}
