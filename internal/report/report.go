package report

import (
	"errors"
	"fmt"
	"sort"

	"github.com/KaramelBytes/hcpdash/internal/table"
)

// ErrColumnAbsent is returned when an aggregation needs a column the table lacks.
var ErrColumnAbsent = errors.New("column not present")

// DefaultTopN is the truncation used by every ranked chart.
const DefaultTopN = 25

// Group is one aggregated bar: a group key and its summed metric.
type Group struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// GroupSum sums metric per distinct value of group, sorted by value descending with
// ties broken by key. Rows with a missing group value are skipped. topN <= 0 keeps
// every group.
func GroupSum(t *table.Table, group, metric string, topN int) ([]Group, error) {
	var missing []string
	for _, c := range []string{group, metric} {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrColumnAbsent, missing)
	}

	sums := map[string]float64{}
	for i := 0; i < t.Len(); i++ {
		k := t.Text(i, group)
		if k == "" {
			continue
		}
		sums[k] += t.Number(i, metric)
	}
	out := make([]Group, 0, len(sums))
	for k, v := range sums {
		out = append(out, Group{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value == out[j].Value {
			return out[i].Key < out[j].Key
		}
		return out[i].Value > out[j].Value
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// DistinctCount is the number of distinct non-missing values of col (0 when absent).
func DistinctCount(t *table.Table, col string) int {
	return len(t.Distinct(col))
}

// Sum totals a numeric column (0 when absent).
func Sum(t *table.Table, col string) float64 {
	if !t.Has(col) {
		return 0
	}
	var total float64
	for i := 0; i < t.Len(); i++ {
		total += t.Number(i, col)
	}
	return total
}
