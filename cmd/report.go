package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/neighborhood-cli/internal/census"
	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/interpret"
	"github.com/sells-group/neighborhood-cli/internal/model"
	"github.com/sells-group/neighborhood-cli/internal/pipeline"
	"github.com/sells-group/neighborhood-cli/internal/render"
)

// reportFailure prints the user-facing message for a pipeline failure, plus
// the raw model text when interpretation went wrong.
func reportFailure(w io.Writer, err error) {
	var se *pipeline.StageError
	if errors.As(err, &se) {
		fmt.Fprintln(w, se.Message())
	}
	fmt.Fprintf(w, "  %v\n", err)
	if raw := failure.RawOf(err); raw != "" {
		fmt.Fprintln(w, "Raw response:")
		fmt.Fprintln(w, raw)
	}
}

// printLocation echoes the geocoding results.
func printLocation(w io.Writer, res *pipeline.Result) {
	if res.Coordinate != nil {
		fmt.Fprintf(w, "Coordinates for %s:\n", res.Address)
		fmt.Fprintf(w, "Latitude: %f\n", res.Coordinate.Latitude)
		fmt.Fprintf(w, "Longitude: %f\n", res.Coordinate.Longitude)
	}
	if res.Location != nil {
		fmt.Fprintf(w, "County: %s\n", res.Location.County)
		fmt.Fprintf(w, "State: %s\n", res.Location.State)
	}
}

// printQuery prints the interpreted Census API parameters.
func printQuery(w io.Writer, q *model.StructuredQuery) {
	fmt.Fprintln(w, "Census API Parameters:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	show := func(s *string) string {
		if s == nil {
			return "null"
		}
		return *s
	}
	fmt.Fprintf(tw, "  dataset\t%s\n", show(q.Dataset))
	fmt.Fprintf(tw, "  year\t%s\n", show(q.Year))
	fmt.Fprintf(tw, "  variables\t%s\n", strings.Join(q.Variables, ", "))
	fmt.Fprintf(tw, "  for\t%s\n", show(q.GeographyLevel))
	fmt.Fprintf(tw, "  state\t%s\n", show(q.StateFIPS))
	fmt.Fprintf(tw, "  county\t%s\n", show(q.CountyFIPS))
	_ = tw.Flush()
}

// printRows prints statistics rows as an aligned table.
func printRows(w io.Writer, rows []model.StatisticRow, variables []string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "GEOID\tNAME\t%s\n", strings.Join(variables, "\t"))
	for _, r := range rows {
		vals := make([]string, 0, len(variables))
		for _, v := range variables {
			vals = append(vals, r.Values[v])
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Values["NAME"], strings.Join(vals, "\t"))
	}
	_ = tw.Flush()
}

// writeMap renders the run's map to path.
func writeMap(path string, res *pipeline.Result, table census.VariableTable) error {
	return writeFile(path, func(w io.Writer) error {
		return render.Map(w, res.MapInput(table.Label(res.Variable)))
	})
}

// writeHistogram renders the selected variable's histogram to path.
func writeHistogram(path string, variable string, values []float64, bins int) error {
	return writeFile(path, func(w io.Writer) error {
		return render.Histogram(w, variable, values, bins)
	})
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

// interpretationRaw returns the raw model text of a run, if any.
func interpretationRaw(in *interpret.Interpretation) string {
	if in == nil {
		return ""
	}
	return in.Raw
}
