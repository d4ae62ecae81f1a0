package filter

import (
	"sort"

	"github.com/KaramelBytes/hcpdash/internal/schema"
	"github.com/KaramelBytes/hcpdash/internal/table"
)

// ProviderTotal is a provider's summed unique-patient count.
type ProviderTotal struct {
	Provider string  `json:"provider"`
	Total    float64 `json:"total"`
}

// Range is an inclusive bound on provider totals. A nil bound defaults to the observed
// minimum or maximum.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Between returns a range with both bounds set.
func Between(lo, hi float64) *Range {
	return &Range{Min: &lo, Max: &hi}
}

// SliderResult describes the slider offered for a table and the rows it kept.
type SliderResult struct {
	Offered bool    `json:"offered"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Lo      float64 `json:"lo"`
	Hi      float64 `json:"hi"`
	// Providers are sorted by total descending, then name.
	Providers []ProviderTotal `json:"providers,omitempty"`
	Table     *table.Table    `json:"-"`
}

// Summarize sums unique patients per provider. Rows without a provider are skipped.
// It returns nil when either column is absent.
func Summarize(t *table.Table, s *schema.Schema) []ProviderTotal {
	prov, metric := s.Column(schema.RoleProvider), s.Column(schema.RoleUniquePatients)
	if !t.Has(prov) || !t.Has(metric) {
		return nil
	}
	sums := map[string]float64{}
	for i := 0; i < t.Len(); i++ {
		p := t.Text(i, prov)
		if p == "" {
			continue
		}
		sums[p] += t.Number(i, metric)
	}
	out := make([]ProviderTotal, 0, len(sums))
	for p, v := range sums {
		out = append(out, ProviderTotal{Provider: p, Total: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Provider < out[j].Provider
	})
	return out
}

// Slider keeps the rows of providers whose total lies within want. A nil want selects
// the observed [min, max] and leaves the table unchanged. A requested range is clamped
// into the observed bounds. Without the provider or unique-patient column, or without
// rows, no slider is offered and the table passes through. An inverted range is swapped.
func Slider(t *table.Table, s *schema.Schema, want *Range) SliderResult {
	totals := Summarize(t, s)
	if len(totals) == 0 {
		return SliderResult{Table: t}
	}
	lo, hi := totals[len(totals)-1].Total, totals[0].Total
	res := SliderResult{Offered: true, Min: lo, Max: hi, Lo: lo, Hi: hi, Providers: totals, Table: t}
	if want == nil {
		return res
	}
	if want.Min != nil {
		res.Lo = clamp(*want.Min, lo, hi)
	}
	if want.Max != nil {
		res.Hi = clamp(*want.Max, lo, hi)
	}
	if res.Lo > res.Hi {
		res.Lo, res.Hi = res.Hi, res.Lo
	}
	if res.Lo <= lo && res.Hi >= hi {
		return res
	}

	keep := map[string]struct{}{}
	for _, pt := range totals {
		if pt.Total >= res.Lo && pt.Total <= res.Hi {
			keep[pt.Provider] = struct{}{}
		}
	}
	prov := s.Column(schema.RoleProvider)
	res.Table = t.Where(func(i int) bool {
		_, ok := keep[t.Text(i, prov)]
		return ok
	})
	return res
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
