package spatial

import (
	"github.com/sells-group/neighborhood-cli/internal/model"
)

// Join left-joins statistics rows onto features by identifier. Every
// variable is set on every returned feature: numeric values as float64,
// other non-empty values as their string, and nil when no row matched or
// the cell is blank or an ACS sentinel.
// Input features are not modified. The second result is the number of
// features that found a row.
func Join(features []model.Feature, rows []model.StatisticRow, variables []string) ([]model.Feature, int) {
	byID := make(map[string]model.StatisticRow, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	out := make([]model.Feature, 0, len(features))
	matched := 0
	for _, f := range features {
		c := f.Clone()
		row, ok := byID[f.ID]
		if ok {
			matched++
		}
		for _, v := range variables {
			c.Attributes[v] = joinValue(row, ok, v)
		}
		out = append(out, c)
	}
	return out, matched
}

func joinValue(row model.StatisticRow, ok bool, variable string) any {
	if !ok {
		return nil
	}
	raw, present := row.Values[variable]
	if !present || raw == "" || model.IsSentinel(raw) {
		return nil
	}
	if n, isNum := model.ParseNumeric(raw); isNum {
		return n
	}
	return raw
}
