// Package render writes the neighborhood map, histogram and summary table.
package render

import (
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"io"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/neighborhood-cli/internal/model"
	"github.com/sells-group/neighborhood-cli/internal/spatial"
)

// YlOrRd is the six-class yellow-orange-red ramp used for choropleths.
var YlOrRd = []string{"#ffffb2", "#fed976", "#feb24c", "#fd8d3c", "#f03b20", "#bd0026"}

// noDataColor fills features without a value.
const noDataColor = "#bdbdbd"

// MapInput is everything the map page shows.
type MapInput struct {
	Address    string
	Coordinate model.Coordinate
	Location   model.Location
	Level      model.GeographyLevel
	Features   []model.Feature
	Buffer     *spatial.Buffer

	// Variable selects the choropleth column. Empty draws outlines only.
	Variable      string
	VariableLabel string
}

// LegendEntry is one class of the choropleth legend.
type LegendEntry struct {
	Color string
	Label string
}

type mapPage struct {
	Title       string
	Lat, Lon    float64
	Popup       string
	Tooltip     string
	Features    template.JS
	BufferJSON  template.JS
	BufferName  string
	LayerName   string
	Bounds      template.JS
	Choropleth  bool
	Variable    string
	LegendTitle string
	IDAlias     string
	LegendHTML  string
}

// Map writes a self-contained Leaflet page.
func Map(w io.Writer, in MapInput) error {
	if in.Buffer == nil {
		return eris.New("render: map requires a buffer")
	}

	breaks, choropleth := classBreaks(in.Features, in.Variable)
	fc, err := featureCollection(in.Features, in.Variable, breaks, choropleth)
	if err != nil {
		return err
	}

	buffer, err := geojson.Marshal(in.Buffer.Polygon)
	if err != nil {
		return eris.Wrap(err, "render: encode buffer")
	}

	b := in.Buffer.Bounds()
	bounds, err := json.Marshal([][2]float64{{b.Min(1), b.Min(0)}, {b.Max(1), b.Max(0)}})
	if err != nil {
		return eris.Wrap(err, "render: encode bounds")
	}

	page := mapPage{
		Title: in.Address,
		Lat:   in.Coordinate.Latitude,
		Lon:   in.Coordinate.Longitude,
		Popup: fmt.Sprintf("%s<br>County: %s<br>State: %s",
			html.EscapeString(in.Address), html.EscapeString(in.Location.County), html.EscapeString(in.Location.State)),
		Tooltip:    html.EscapeString(in.Address),
		Features:   template.JS(fc),
		BufferJSON: template.JS(buffer),
		BufferName: fmt.Sprintf("%g-Mile Buffer", in.Buffer.RadiusMiles),
		LayerName:  "Census Boundaries",
		Bounds:     template.JS(bounds),
		Choropleth: choropleth,
		Variable:   html.EscapeString(in.Variable),
		IDAlias:    idAlias(in.Level),
	}
	if choropleth {
		page.LayerName = "Census Data"
		page.LegendTitle = in.Variable
		if in.VariableLabel != "" && in.VariableLabel != in.Variable {
			page.LegendTitle = fmt.Sprintf("%s (%s)", in.VariableLabel, in.Variable)
		}
		page.LegendHTML = legendHTML(page.LegendTitle, legend(breaks))
	}

	if err := mapTemplate.Execute(w, page); err != nil {
		return eris.Wrap(err, "render: execute map template")
	}
	return nil
}

func idAlias(level model.GeographyLevel) string {
	if level == model.LevelTract {
		return "Tract ID:"
	}
	return "Block Group ID:"
}

// classBreaks returns the len(YlOrRd)+1 edges of six equal-interval classes,
// one per palette colour, over the numeric values of variable. It reports false when there is nothing to shade.
func classBreaks(features []model.Feature, variable string) ([]float64, bool) {
	if variable == "" {
		return nil, false
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, f := range features {
		if v, ok := model.NumericValue(f.Attributes[variable]); ok {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return nil, false
	}

	n := len(YlOrRd)
	breaks := make([]float64, n+1)
	step := (hi - lo) / float64(n)
	for i := range breaks {
		breaks[i] = lo + step*float64(i)
	}
	breaks[n] = hi
	return breaks, true
}

// classColor returns the ramp color for v.
func classColor(breaks []float64, v float64) string {
	n := len(YlOrRd)
	for i := 1; i < n; i++ {
		if v < breaks[i] {
			return YlOrRd[i-1]
		}
	}
	return YlOrRd[n-1]
}

func legend(breaks []float64) []LegendEntry {
	out := make([]LegendEntry, 0, len(YlOrRd)+1)
	for i, c := range YlOrRd {
		out = append(out, LegendEntry{
			Color: c,
			Label: fmt.Sprintf("%s to %s", formatValue(breaks[i]), formatValue(breaks[i+1])),
		})
	}
	return append(out, LegendEntry{Color: noDataColor, Label: "No data"})
}

func legendHTML(title string, entries []LegendEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h4>%s</h4>", html.EscapeString(title))
	for _, e := range entries {
		fmt.Fprintf(&b, `<i style="background:%s"></i>%s<br>`, e.Color, html.EscapeString(e.Label))
	}
	return b.String()
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// GeoJSON encodes features as a FeatureCollection with their attributes
// and GEOID as properties.
func GeoJSON(features []model.Feature) ([]byte, error) {
	return featureCollection(features, "", nil, false)
}

// featureCollection encodes features with GEOID, the selected value and
// the precomputed fill color as properties.
func featureCollection(features []model.Feature, variable string, breaks []float64, choropleth bool) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(features))}
	for _, f := range features {
		props := make(map[string]interface{}, len(f.Attributes)+3)
		for k, v := range f.Attributes {
			props[k] = v
		}
		props["GEOID"] = f.ID

		if choropleth {
			if v, ok := model.NumericValue(f.Attributes[variable]); ok {
				props["value"] = v
				props["_fill"] = classColor(breaks, v)
			} else {
				props["value"] = nil
				props["_fill"] = noDataColor
			}
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         f.ID,
			Geometry:   f.Geometry,
			Properties: props,
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "render: encode features")
	}
	return data, nil
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
html, body, #map { height: 100%; margin: 0; }
.legend { background: white; padding: 8px 10px; font: 12px Arial, sans-serif; line-height: 18px; color: #333; }
.legend i { width: 18px; height: 18px; float: left; margin-right: 8px; opacity: 0.7; }
.legend h4 { margin: 0 0 6px; font-size: 12px; }
</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.Lat}}, {{.Lon}}], 12);
L.tileLayer('https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png', {
  attribution: '&copy; OpenStreetMap contributors &copy; CARTO',
  subdomains: 'abcd',
  maxZoom: 20
}).addTo(map);

L.marker([{{.Lat}}, {{.Lon}}]).bindPopup({{.Popup}}).bindTooltip({{.Tooltip}}).addTo(map);

var features = {{.Features}};
{{if .Choropleth}}
var areas = L.geoJSON(features, {
  style: function (f) {
    return { fillColor: f.properties._fill, fillOpacity: 0.7, color: '#000', weight: 1, opacity: 0.2 };
  },
  onEachFeature: function (f, layer) {
    var v = f.properties.value;
    layer.bindTooltip({{.IDAlias}} + ' ' + f.properties.GEOID + '<br>' + {{.Variable}} + ': ' + (v === null ? 'No data' : v.toLocaleString()));
  }
}).addTo(map);

var legend = L.control({ position: 'bottomright' });
legend.onAdd = function () {
  var div = L.DomUtil.create('div', 'legend');
  div.innerHTML = {{.LegendHTML}};
  return div;
};
legend.addTo(map);
{{else}}
var areas = L.geoJSON(features, {
  style: function () {
    return { fillColor: 'blue', fillOpacity: 0.1, color: 'black', weight: 2 };
  },
  onEachFeature: function (f, layer) {
    layer.bindTooltip({{.IDAlias}} + ' ' + f.properties.GEOID);
  }
}).addTo(map);
{{end}}
var buffer = L.geoJSON({{.BufferJSON}}, {
  style: function () {
    return { fill: false, color: 'red', weight: 2 };
  }
}).addTo(map);

var overlays = {};
overlays[{{.LayerName}}] = areas;
overlays[{{.BufferName}}] = buffer;
L.control.layers(null, overlays).addTo(map);

map.fitBounds({{.Bounds}});
</script>
</body>
</html>
`))
