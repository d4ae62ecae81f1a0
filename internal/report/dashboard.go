package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/hcpdash/internal/schema"
	"github.com/KaramelBytes/hcpdash/internal/table"
)

// KPI is a headline number.
type KPI struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Chart is one chart-ready series. When its columns are absent the series is empty
// and Notice explains which columns were missing.
type Chart struct {
	ID     string  `json:"id"`
	Tab    string  `json:"tab"`
	Title  string  `json:"title"`
	Group  string  `json:"group"`
	Metric string  `json:"metric"`
	Series []Group `json:"series"`
	Notice string  `json:"notice,omitempty"`
}

// Dashboard is the aggregated view of a filtered table.
type Dashboard struct {
	Rows   int     `json:"rows"`
	KPIs   []KPI   `json:"kpis"`
	Charts []Chart `json:"charts"`
}

type chartSpec struct {
	id, tab, title string
	group          schema.Role
	metric         schema.Role
	ranked         bool
}

var charts = []chartSpec{
	{"visn", "By VISN & Facility", "Encounters / Volume by VISN", schema.RoleVISN, schema.RoleVolume, false},
	{"facilities", "By VISN & Facility", "Top Facilities by Encounters / Volume", schema.RoleFacility, schema.RoleVolume, true},
	{"icd10", "By Diagnosis (ICD-10) & CPT", "Top ICD-10 Codes by Encounters", schema.RoleDiagnosis, schema.RoleVolume, true},
	{"cpt", "By Diagnosis (ICD-10) & CPT", "Top CPT Codes by Volume", schema.RoleProcedure, schema.RoleVolume, true},
	{"specialties", "By Provider & Specialty", "Encounters / Volume by Provider Specialty", schema.RoleSpecialty, schema.RoleVolume, true},
	{"providers", "By Provider & Specialty", "Top Providers by Encounters / Volume", schema.RoleProvider, schema.RoleVolume, true},
	{"unique_patients", "By Provider & Specialty", "Top Providers by Unique Patients", schema.RoleProvider, schema.RoleUniquePatients, true},
}

// Build computes KPIs and charts for t. Ranked charts keep the topN largest groups;
// topN <= 0 uses DefaultTopN. Charts whose roles the schema does not define are omitted.
func Build(t *table.Table, s *schema.Schema, topN int) Dashboard {
	if topN <= 0 {
		topN = DefaultTopN
	}
	vol := s.Column(schema.RoleVolume)
	d := Dashboard{Rows: t.Len(), KPIs: []KPI{
		{Label: "Total Encounters / Volume", Value: Sum(t, vol)},
		{Label: "Distinct Providers", Value: float64(DistinctCount(t, s.Column(schema.RoleProvider)))},
		{Label: "Distinct Facilities", Value: float64(DistinctCount(t, s.Column(schema.RoleFacility)))},
		{Label: "Distinct ICD-10 Codes", Value: float64(DistinctCount(t, s.Column(schema.RoleDiagnosis)))},
	}}
	if up := s.Column(schema.RoleUniquePatients); up != "" {
		d.KPIs = append(d.KPIs, KPI{Label: "Total Unique Patients", Value: Sum(t, up)})
	}

	for _, cs := range charts {
		group, metric := s.Column(cs.group), s.Column(cs.metric)
		if group == "" || metric == "" {
			continue
		}
		c := Chart{ID: cs.id, Tab: cs.tab, Title: cs.title, Group: group, Metric: metric, Series: []Group{}}
		n := 0
		if cs.ranked {
			n = topN
		}
		series, err := GroupSum(t, group, metric, n)
		if err != nil {
			c.Notice = fmt.Sprintf("%s or %s column not found.", group, metric)
		} else {
			c.Series = series
		}
		d.Charts = append(d.Charts, c)
	}
	return d
}

// KPI returns the value of the named KPI.
func (d Dashboard) KPI(label string) (float64, bool) {
	for _, k := range d.KPIs {
		if k.Label == label {
			return k.Value, true
		}
	}
	return 0, false
}

// Chart returns the chart with the given id.
func (d Dashboard) Chart(id string) (Chart, bool) {
	for _, c := range d.Charts {
		if c.ID == id {
			return c, true
		}
	}
	return Chart{}, false
}

// Markdown renders the dashboard as a sectioned plain-text report.
func (d Dashboard) Markdown() string {
	var b strings.Builder
	b.WriteString("[OVERVIEW]\n")
	b.WriteString(fmt.Sprintf("Rows: %d\n", d.Rows))
	for _, k := range d.KPIs {
		b.WriteString(fmt.Sprintf("- %s: %s\n", k.Label, formatCount(k.Value)))
	}
	tab := ""
	for _, c := range d.Charts {
		if c.Tab != tab {
			tab = c.Tab
			b.WriteString(fmt.Sprintf("\n[%s]\n", strings.ToUpper(tab)))
		}
		b.WriteString(fmt.Sprintf("\n%s\n", c.Title))
		if c.Notice != "" {
			b.WriteString("  (" + c.Notice + ")\n")
			continue
		}
		if len(c.Series) == 0 {
			b.WriteString("  (no rows)\n")
			continue
		}
		b.WriteString(fmt.Sprintf("| %s | %s |\n| --- | ---: |\n", c.Group, c.Metric))
		for _, g := range c.Series {
			b.WriteString(fmt.Sprintf("| %s | %s |\n", safeVal(g.Key), formatCount(g.Value)))
		}
	}
	return b.String()
}

var printer = message.NewPrinter(language.English)

// formatCount renders whole numbers with thousands separators and keeps fractions.
func formatCount(v float64) string {
	if v != math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return printer.Sprintf("%d", int64(v))
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
