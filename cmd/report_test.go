package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/model"
	"github.com/sells-group/neighborhood-cli/internal/pipeline"
)

func TestReportFailure_StageError(t *testing.T) {
	// A pipeline with no interpreter fails its first statistics stage.
	_, err := pipeline.New(pipeline.Deps{}).Statistics(context.Background(), "income", "", model.Location{County: "Harris", State: "TX"})
	require.Error(t, err)

	var buf bytes.Buffer
	reportFailure(&buf, err)
	assert.Contains(t, buf.String(), "Failed to interpret the census request.")
	assert.Contains(t, buf.String(), "no interpreter configured")
}

func TestReportFailure_Raw(t *testing.T) {
	var buf bytes.Buffer
	reportFailure(&buf, failure.Newf(failure.KindInterpretation, "interpret", "no JSON").WithRaw("I am unsure."))
	assert.Contains(t, buf.String(), "Raw response:\nI am unsure.")
}

func TestPrintLocation(t *testing.T) {
	var buf bytes.Buffer
	printLocation(&buf, &pipeline.Result{
		Address:    "1600 Pennsylvania Ave NW",
		Coordinate: &model.Coordinate{Latitude: 38.8977, Longitude: -77.0365},
		Location:   &model.Location{County: "District of Columbia", State: "District of Columbia"},
	})

	out := buf.String()
	assert.Contains(t, out, "Coordinates for 1600 Pennsylvania Ave NW:")
	assert.Contains(t, out, "Latitude: 38.897700")
	assert.Contains(t, out, "County: District of Columbia")
}

func TestPrintQuery(t *testing.T) {
	var buf bytes.Buffer
	printQuery(&buf, &model.StructuredQuery{
		Dataset:   model.Str("acs/acs5"),
		Variables: []string{"B19013_001E", "B01003_001E"},
		StateFIPS: model.Str("48"),
	})

	out := buf.String()
	assert.Contains(t, out, "Census API Parameters:")
	assert.Contains(t, out, "acs/acs5")
	assert.Contains(t, out, "B19013_001E, B01003_001E")
	assert.Contains(t, out, "null")
}

func TestPrintRows(t *testing.T) {
	var buf bytes.Buffer
	printRows(&buf, []model.StatisticRow{
		{ID: "48201100000", Values: map[string]string{"NAME": "Tract 1000", "B01003_001E": "4200"}},
	}, []string{"B01003_001E"})

	out := buf.String()
	assert.Contains(t, out, "GEOID")
	assert.Contains(t, out, "48201100000")
	assert.Contains(t, out, "Tract 1000")
	assert.Contains(t, out, "4200")
}

func TestWriteMapAndHistogram(t *testing.T) {
	dir := t.TempDir()
	res := dcResult(t)

	mapPath := filepath.Join(dir, "map.html")
	require.NoError(t, writeMap(mapPath, res, nil))
	data, err := os.ReadFile(mapPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "leaflet")

	histPath := filepath.Join(dir, "histogram.html")
	require.NoError(t, writeHistogram(histPath, res.Variable, res.Values(), 20))
	data, err = os.ReadFile(histPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Distribution of B19013_001E")
}

func TestWriteFile_BadPath(t *testing.T) {
	err := writeMap(filepath.Join(t.TempDir(), "missing", "map.html"), dcResult(t), nil)
	assert.Error(t, err)
}
