package render

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/neighborhood-cli/internal/model"
	"github.com/sells-group/neighborhood-cli/internal/spatial"
)

var dc = model.Coordinate{Latitude: 38.8977, Longitude: -77.0365}

func squareFeature(id string, lon, lat float64, attrs map[string]any) model.Feature {
	const h = 0.002
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{lon - h, lat - h}, {lon - h, lat + h}, {lon + h, lat + h}, {lon + h, lat - h}, {lon - h, lat - h},
	}})
	if attrs == nil {
		attrs = map[string]any{}
	}
	return model.Feature{ID: id, Geometry: poly, Attributes: attrs}
}

func testBuffer(t *testing.T) *spatial.Buffer {
	t.Helper()
	b, err := spatial.NewBuffer(dc, 5)
	require.NoError(t, err)
	return b
}

func TestMap_Choropleth(t *testing.T) {
	in := MapInput{
		Address:    "1600 Pennsylvania Ave NW, Washington, DC",
		Coordinate: dc,
		Location:   model.Location{County: "District of Columbia", State: "District of Columbia"},
		Level:      model.LevelBlockGroup,
		Buffer:     testBuffer(t),
		Features: []model.Feature{
			squareFeature("110010001001", -77.03, 38.90, map[string]any{"B19013_001E": 50000.0}),
			squareFeature("110010001002", -77.04, 38.90, map[string]any{"B19013_001E": 150000.0}),
			squareFeature("110010001003", -77.05, 38.90, map[string]any{"B19013_001E": nil}),
		},
		Variable:      "B19013_001E",
		VariableLabel: "Median household income",
	}

	var buf bytes.Buffer
	require.NoError(t, Map(&buf, in))
	out := buf.String()

	assert.Contains(t, out, "basemaps.cartocdn.com/light_all")
	assert.Contains(t, out, "L.marker([")
	assert.Contains(t, out, "38.8977")
	assert.Contains(t, out, "County: District of Columbia")
	assert.Contains(t, out, "110010001002")
	assert.Contains(t, out, "#ffffb2")
	assert.Contains(t, out, "#bd0026")
	assert.Contains(t, out, noDataColor)
	assert.Contains(t, out, "5-Mile Buffer")
	assert.Contains(t, out, "Census Data")
	assert.Contains(t, out, "Median household income (B19013_001E)")
	assert.Contains(t, out, "Block Group ID:")
	assert.Contains(t, out, "map.fitBounds([[")
	assert.Contains(t, out, "L.control.layers")
}

func TestMap_OutlineWithoutVariable(t *testing.T) {
	in := MapInput{
		Address:    "somewhere",
		Coordinate: dc,
		Location:   model.Location{County: "District of Columbia", State: "District of Columbia"},
		Level:      model.LevelTract,
		Buffer:     testBuffer(t),
		Features:   []model.Feature{squareFeature("11001000100", -77.03, 38.90, nil)},
	}

	var buf bytes.Buffer
	require.NoError(t, Map(&buf, in))
	out := buf.String()

	assert.Contains(t, out, "Census Boundaries")
	assert.Contains(t, out, "Tract ID:")
	assert.NotContains(t, out, "L.control({ position: 'bottomright' })")
}

func TestMap_EscapesAddress(t *testing.T) {
	in := MapInput{
		Address:    `<script>alert("x")</script>`,
		Coordinate: dc,
		Buffer:     testBuffer(t),
	}

	var buf bytes.Buffer
	require.NoError(t, Map(&buf, in))
	assert.NotContains(t, buf.String(), `<script>alert("x")</script>`)
}

func TestMap_TooltipAndVariableAreInert(t *testing.T) {
	in := MapInput{
		Address:    `<img src=x onerror=alert(1)>`,
		Coordinate: dc,
		Level:      model.LevelBlockGroup,
		Features: []model.Feature{
			squareFeature("110010062021", -77.0365, 38.8977, map[string]any{`<b onmouseover=x>`: 1.0}),
		},
		Buffer:   testBuffer(t),
		Variable: `<b onmouseover=x>`,
	}

	var buf bytes.Buffer
	require.NoError(t, Map(&buf, in))
	out := buf.String()

	// Leaflet inserts popup and tooltip strings as HTML, so markup must
	// arrive entity-encoded rather than merely JS-quoted.
	assert.NotContains(t, out, `\u003cimg`)
	assert.NotContains(t, out, `\u003cb onmouseover`)
	assert.Contains(t, out, `.bindTooltip("\u0026lt;img src=x onerror=alert(1)\u0026gt;")`)
}

func TestMap_RequiresBuffer(t *testing.T) {
	assert.Error(t, Map(&bytes.Buffer{}, MapInput{}))
}

func TestClassBreaks(t *testing.T) {
	features := []model.Feature{
		squareFeature("a", 0, 0, map[string]any{"v": 0.0}),
		squareFeature("b", 0, 0, map[string]any{"v": 60.0}),
		squareFeature("c", 0, 0, map[string]any{"v": "n/a"}),
	}

	breaks, ok := classBreaks(features, "v")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 10, 20, 30, 40, 50, 60}, breaks)

	assert.Equal(t, YlOrRd[0], classColor(breaks, 0))
	assert.Equal(t, YlOrRd[1], classColor(breaks, 10))
	assert.Equal(t, YlOrRd[5], classColor(breaks, 60))

	_, ok = classBreaks(features, "")
	assert.False(t, ok)
	_, ok = classBreaks(features[2:], "v")
	assert.False(t, ok)
}

func TestFeatureCollection(t *testing.T) {
	features := []model.Feature{squareFeature("a", 0, 0, map[string]any{"v": 5.0})}
	breaks, _ := classBreaks(features, "v")

	data, err := featureCollection(features, "v", breaks, true)
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
			Geometry   struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Polygon", fc.Features[0].Geometry.Type)
	assert.Equal(t, "a", fc.Features[0].Properties["GEOID"])
	assert.Equal(t, 5.0, fc.Features[0].Properties["value"])
	assert.Equal(t, YlOrRd[5], fc.Features[0].Properties["_fill"])
}

func TestBins(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	bins := Bins(values, 5)
	require.Len(t, bins, 5)

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, len(values), total)
	assert.Equal(t, 2, bins[0].Count)
	assert.Equal(t, 3, bins[4].Count)
	assert.Equal(t, 10.0, bins[4].Hi)
}

func TestBins_Constant(t *testing.T) {
	bins := Bins([]float64{7, 7, 7}, 20)
	require.Len(t, bins, 1)
	assert.Equal(t, 3, bins[0].Count)
	assert.Nil(t, Bins(nil, 20))
}

func TestHistogram(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Histogram(&buf, "B19013_001E", []float64{1, 2, 2, 3, 10}, 0))
	out := buf.String()

	assert.Contains(t, out, "Distribution of B19013_001E")
	assert.Contains(t, out, "Frequency")
	assert.True(t, strings.Contains(out, "echarts"))
}

func TestHistogram_Empty(t *testing.T) {
	assert.Error(t, Histogram(&bytes.Buffer{}, "x", nil, 20))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{5, 1, 4, 2, 3})

	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 2.0, s.Q25)
	assert.Equal(t, 3.0, s.Median)
	assert.Equal(t, 4.0, s.Q75)
	assert.Equal(t, 5.0, s.Max)
}

func TestSummarize_Interpolates(t *testing.T) {
	s := Summarize([]float64{10, 20, 30, 40})
	assert.InDelta(t, 17.5, s.Q25, 1e-12)
	assert.InDelta(t, 25.0, s.Median, 1e-12)
	assert.InDelta(t, 32.5, s.Q75, 1e-12)
}

func TestSummarize_SingleAndEmpty(t *testing.T) {
	one := Summarize([]float64{42})
	assert.Equal(t, 1, one.Count)
	assert.Equal(t, 42.0, one.Median)
	assert.True(t, math.IsNaN(one.Std))

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))

	data, err := json.Marshal(one)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"std":null`)
	assert.Contains(t, string(data), `"median":42`)
}

func TestValues(t *testing.T) {
	features := []model.Feature{
		{ID: "a", Attributes: map[string]any{"v": 1.0}},
		{ID: "b", Attributes: map[string]any{"v": nil}},
		{ID: "c", Attributes: map[string]any{"v": "-666666666"}},
		{ID: "d", Attributes: map[string]any{"v": "12.5"}},
	}
	assert.Equal(t, []float64{1, 12.5}, Values(features, "v"))
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, "B01003_001E", Summarize([]float64{1, 2, 3})))
	out := buf.String()

	assert.Contains(t, out, "B01003_001E")
	assert.Contains(t, out, "count  3")
	assert.Contains(t, out, "mean   2.000000")
	assert.Contains(t, out, "max    3.000000")
}

func TestGeoJSON(t *testing.T) {
	data, err := GeoJSON([]model.Feature{squareFeature("a", 0, 0, map[string]any{"v": 1.0})})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"GEOID":"a"`)
	assert.NotContains(t, string(data), "_fill")
}
