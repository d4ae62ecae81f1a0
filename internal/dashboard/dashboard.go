package dashboard

import (
	"github.com/rs/zerolog/log"

	"github.com/KaramelBytes/hcpdash/internal/filter"
	"github.com/KaramelBytes/hcpdash/internal/normalize"
	"github.com/KaramelBytes/hcpdash/internal/report"
	"github.com/KaramelBytes/hcpdash/internal/schema"
	"github.com/KaramelBytes/hcpdash/internal/table"
)

// WarnEmptyAfterFilter is reported when the filters remove every row.
const WarnEmptyAfterFilter = "No rows match the current filters; relax a filter to see results."

// Params is everything a dashboard run depends on besides the uploaded tables.
// A nil Range keeps every provider; TopN <= 0 uses report.DefaultTopN.
type Params struct {
	Schema     *schema.Schema
	Mapping    schema.Mapping
	Selections map[string]filter.Selection
	Range      *filter.Range
	TopN       int
}

// View is the result of one run.
type View struct {
	Schema  string   `json:"schema"`
	Columns []string `json:"columns"`
	Sheets  int      `json:"sheets"`
	// UnifiedRows counts rows after normalization, before any filter.
	UnifiedRows int                 `json:"unified_rows"`
	Unified     *table.Table        `json:"-"`
	Filtered    *table.Table        `json:"-"`
	Stages      []filter.StageState `json:"stages"`
	Slider      filter.SliderResult `json:"slider"`
	Report      report.Dashboard    `json:"dashboard"`
	Warnings    []string            `json:"warnings,omitempty"`
	Mapping     map[string]string   `json:"mapping"`
}

// Run resolves, unifies, validates, filters and aggregates raws. It is a pure function
// of its inputs and is meant to be called again on every interaction.
//
// Errors are normalize.ErrNoUsableData and *normalize.MissingColumnsError; empty
// results after filtering are a warning, not an error.
func Run(raws []table.Raw, p Params) (*View, error) {
	s := p.Schema
	if s == nil {
		s = schema.Normalized
	}
	universe := normalize.ColumnUniverse(raws)

	unified, err := normalize.Normalize(raws, s, p.Mapping)
	if len(s.Required) > 0 {
		if verr := normalize.Validate(unified, s, universe); verr != nil {
			return nil, verr
		}
	}
	if err != nil {
		return nil, err
	}

	filtered, stages := filter.Apply(unified, s, filter.DefaultChain(), p.Selections)
	for _, st := range stages {
		log.Debug().Str("stage", st.Name).Bool("present", st.Present).
			Int("rows_in", st.RowsIn).Int("rows_out", st.RowsOut).Msg("filter stage")
	}
	slider := filter.Slider(filtered, s, p.Range)
	filtered = slider.Table

	v := &View{
		Schema:      s.Name,
		Columns:     universe,
		Sheets:      len(raws),
		UnifiedRows: unified.Len(),
		Unified:     unified,
		Filtered:    filtered,
		Stages:      stages,
		Slider:      slider,
		Report:      report.Build(filtered, s, p.TopN),
		Mapping:     p.Mapping.Strings(s),
	}
	if filtered.Len() == 0 {
		v.Warnings = append(v.Warnings, WarnEmptyAfterFilter)
	}
	log.Debug().Int("unified_rows", unified.Len()).Int("filtered_rows", filtered.Len()).
		Bool("slider", slider.Offered).Msg("dashboard run")
	return v, nil
}
