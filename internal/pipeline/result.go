package pipeline

import (
	"github.com/sells-group/neighborhood-cli/internal/model"
	"github.com/sells-group/neighborhood-cli/internal/render"
)

// MapInput builds the renderer input for a completed run. label is the
// human-readable name of the selected variable, if any.
func (r *Result) MapInput(label string) render.MapInput {
	in := render.MapInput{
		Address:       r.Address,
		Level:         r.Level,
		Features:      r.Features,
		Buffer:        r.Buffer,
		Variable:      r.Variable,
		VariableLabel: label,
	}
	if r.Coordinate != nil {
		in.Coordinate = *r.Coordinate
	}
	if r.Location != nil {
		in.Location = *r.Location
	}
	return in
}

// Values returns the numeric values of the selected variable across the
// clipped features.
func (r *Result) Values() []float64 {
	if r.Variable == "" {
		return nil
	}
	return render.Values(r.Features, r.Variable)
}

// RowValues returns the numeric values of the selected variable across all
// statistics rows, for runs that stop before clipping.
func (r *Result) RowValues() []float64 {
	if r.Variable == "" {
		return nil
	}
	var out []float64
	for _, row := range r.Rows {
		if v, ok := row.Numeric(r.Variable); ok {
			out = append(out, v)
		}
	}
	return out
}

// Summary describes the selected variable across the clipped features.
func (r *Result) Summary() (render.Summary, bool) {
	vals := r.Values()
	if len(vals) == 0 {
		return render.Summary{}, false
	}
	return render.Summarize(vals), true
}

// Failed returns the first failed stage, if any.
func (r *Result) Failed() (model.StageResult, bool) {
	for _, s := range r.Stages {
		if s.Status == model.StageStatusFailed {
			return s, true
		}
	}
	return model.StageResult{}, false
}
