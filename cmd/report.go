package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/hcpdash/internal/dashboard"
	"github.com/KaramelBytes/hcpdash/internal/filter"
	"github.com/KaramelBytes/hcpdash/internal/utils"
)

var (
	repFlags  pipelineFlags
	repStages []string
	repSearch []string
	repCodes  string
	repMin    float64
	repMax    float64
	repTopN   int
	repJSON   bool
	repOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report <files...>",
	Short: "Filter and aggregate Excel/CSV files into a dashboard summary",
	Long: `Runs the dashboard pipeline over local files: header resolution, unification,
the drill-down filters (visn, facility, state, city, specialty, diagnosis, provider),
the per-provider unique-patient range and the aggregations.`,
	Example: `  hcpdash report exports/*.xlsx --schema provider --stage facility=Boston --codes C50.911,C50.912
  hcpdash report providers.xlsx --schema provider --search diagnosis=breast --min 5 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := repFlags.resolveSchema()
		if err != nil {
			return err
		}
		m, err := repFlags.mapping(s)
		if err != nil {
			return err
		}
		sel, err := parseSelections(repStages, repSearch, repCodes)
		if err != nil {
			return err
		}
		var rng *filter.Range
		if cmd.Flags().Changed("min") || cmd.Flags().Changed("max") {
			rng = &filter.Range{}
			if cmd.Flags().Changed("min") {
				rng.Min = &repMin
			}
			if cmd.Flags().Changed("max") {
				rng.Max = &repMax
			}
		}
		topN := repTopN
		if topN <= 0 {
			if c, err := currentConfig(); err == nil {
				topN = c.TopN
			}
		}

		raws, err := readInputs(args, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		v, err := dashboard.Run(raws, dashboard.Params{
			Schema: s, Mapping: m, Selections: sel, Range: rng, TopN: topN,
		})
		if err != nil {
			return err
		}

		var out []byte
		if repJSON {
			if out, err = utils.PrettyJSON(v); err != nil {
				return err
			}
			out = append(out, '\n')
		} else {
			out = []byte(renderReport(v))
		}
		if err := writeOutput(repOutput, out, cmd.OutOrStdout()); err != nil {
			return err
		}
		if repOutput != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote report to %s\n", repOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	repFlags.register(reportCmd)
	reportCmd.Flags().StringArrayVar(&repStages, "stage", nil, "restrict a stage: name=value1,value2 (repeatable; name= selects nothing)")
	reportCmd.Flags().StringArrayVar(&repSearch, "search", nil, "narrow a stage's options by substring: name=text (specialty, diagnosis)")
	reportCmd.Flags().StringVar(&repCodes, "codes", "", "comma-separated exact diagnosis codes")
	reportCmd.Flags().Float64Var(&repMin, "min", 0, "minimum provider unique-patient total")
	reportCmd.Flags().Float64Var(&repMax, "max", 0, "maximum provider unique-patient total")
	reportCmd.Flags().IntVar(&repTopN, "top-n", 0, "bars per ranked chart (default from config)")
	reportCmd.Flags().BoolVar(&repJSON, "json", false, "print the view as JSON")
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "write the report to this path instead of stdout")
}

// parseSelections turns --stage, --search and --codes into per-stage selections.
func parseSelections(stages, searches []string, codes string) (map[string]filter.Selection, error) {
	known := map[string]filter.Stage{}
	for _, st := range filter.DefaultChain() {
		known[st.Name] = st
	}
	sel := map[string]filter.Selection{}
	for _, kv := range stages {
		name, vals, ok := strings.Cut(kv, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if _, exists := known[name]; !ok || !exists {
			return nil, fmt.Errorf("invalid --stage %q (want name=value[,value]; names: %s)", kv, stageNames())
		}
		s := sel[name]
		s.Explicit = true
		for _, v := range strings.Split(vals, ",") {
			if v = strings.TrimSpace(v); v != "" {
				s.Values = append(s.Values, v)
			}
		}
		sel[name] = s
	}
	for _, kv := range searches {
		name, text, ok := strings.Cut(kv, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if st, exists := known[name]; !ok || !exists || !st.Search {
			return nil, fmt.Errorf("invalid --search %q (searchable stages: specialty, diagnosis)", kv)
		}
		s := sel[name]
		s.Search = text
		sel[name] = s
	}
	if strings.TrimSpace(codes) != "" {
		s := sel["diagnosis"]
		s.Codes = codes
		sel["diagnosis"] = s
	}
	return sel, nil
}

func stageNames() string {
	var names []string
	for _, st := range filter.DefaultChain() {
		names = append(names, st.Name)
	}
	return strings.Join(names, ", ")
}

// renderReport prints filters, the slider state and the dashboard.
func renderReport(v *dashboard.View) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Loaded and normalized %d rows from %d sheet(s)\n\n", v.UnifiedRows, v.Sheets))
	b.WriteString("[FILTERS]\n")
	for _, st := range v.Stages {
		if !st.Present {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: %d of %d option(s) selected (rows %d → %d)\n",
			st.Label, len(st.Selected), len(st.Options), st.RowsIn, st.RowsOut))
	}
	if v.Slider.Offered {
		b.WriteString(fmt.Sprintf("- Provider unique patients: %g–%g of %g–%g (%d provider(s))\n",
			v.Slider.Lo, v.Slider.Hi, v.Slider.Min, v.Slider.Max, len(v.Slider.Providers)))
	}
	b.WriteString("\n")
	b.WriteString(v.Report.Markdown())
	if len(v.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range v.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}
