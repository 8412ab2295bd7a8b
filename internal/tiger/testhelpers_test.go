package tiger

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// testRecord is one polygon plus the DBF attributes of a boundary file.
type testRecord struct {
	GEOID      string
	CountyFP   string
	CountyName string
	Rings      [][]shp.Point
}

// square returns a clockwise closed ring with the given lower-left corner and size.
func square(x, y, size float64) []shp.Point {
	return []shp.Point{
		{X: x, Y: y},
		{X: x, Y: y + size},
		{X: x + size, Y: y + size},
		{X: x + size, Y: y},
		{X: x, Y: y},
	}
}

// reversed returns the ring in the opposite winding order.
func reversed(ring []shp.Point) []shp.Point {
	out := make([]shp.Point, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}

func testPolygon(rings ...[]shp.Point) *shp.Polygon {
	var parts []int32
	var pts []shp.Point
	for _, r := range rings {
		parts = append(parts, int32(len(pts)))
		pts = append(pts, r...)
	}
	return &shp.Polygon{
		Box:       shp.BBoxFromPoints(pts),
		NumParts:  int32(len(parts)),
		NumPoints: int32(len(pts)),
		Parts:     parts,
		Points:    pts,
	}
}

// writeTestShapefile writes name.shp/.shx/.dbf into dir and returns the .shp path.
func writeTestShapefile(t *testing.T, dir, name string, records []testRecord) string {
	t.Helper()
	shpPath := filepath.Join(dir, name+".shp")

	w, err := shp.Create(shpPath, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("STATEFP", 2),
		shp.StringField("COUNTYFP", 3),
		shp.StringField("GEOID", 12),
		shp.StringField("NAMELSADCO", 40),
	}))

	for _, r := range records {
		n := int(w.Write(testPolygon(r.Rings...)))
		require.NoError(t, w.WriteAttribute(n, 0, r.GEOID[:2]))
		require.NoError(t, w.WriteAttribute(n, 1, r.CountyFP))
		require.NoError(t, w.WriteAttribute(n, 2, r.GEOID))
		require.NoError(t, w.WriteAttribute(n, 3, r.CountyName))
	}
	w.Close()

	// The writer names the attribute table "<base>dbf"; readers expect "<base>.dbf".
	base := filepath.Join(dir, name)
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))

	return shpPath
}

// zipShapefile packs the shapefile set next to shpPath into zipPath.
func zipShapefile(t *testing.T, shpPath, zipPath string) {
	t.Helper()
	out, err := os.Create(zipPath)
	require.NoError(t, err)
	defer out.Close() //nolint:errcheck

	zw := zip.NewWriter(out)
	base := shpPath[:len(shpPath)-len(filepath.Ext(shpPath))]
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		src, err := os.Open(base + ext)
		require.NoError(t, err)
		fw, err := zw.Create(filepath.Base(base + ext))
		require.NoError(t, err)
		_, err = io.Copy(fw, src)
		require.NoError(t, err)
		require.NoError(t, src.Close())
	}
	require.NoError(t, zw.Close())
}

// harrisRecords is a small fixture: two Harris County block groups and one
// in neighbouring Fort Bend County.
func harrisRecords() []testRecord {
	return []testRecord{
		{GEOID: "482013101001", CountyFP: "201", CountyName: "Harris County", Rings: [][]shp.Point{square(-95.40, 29.75, 0.01)}},
		{GEOID: "482013101002", CountyFP: "201", CountyName: "Harris County", Rings: [][]shp.Point{square(-95.39, 29.75, 0.01)}},
		{GEOID: "481576701001", CountyFP: "157", CountyName: "Fort Bend County", Rings: [][]shp.Point{square(-95.70, 29.55, 0.02)}},
	}
}

// baltimoreRecords has block groups of Baltimore County (005) and of the
// independent Baltimore city (510), which share a base name.
func baltimoreRecords() []testRecord {
	return []testRecord{
		{GEOID: "240054011001", CountyFP: "005", CountyName: "Baltimore County", Rings: [][]shp.Point{square(-76.60, 39.40, 0.01)}},
		{GEOID: "240054011002", CountyFP: "005", CountyName: "Baltimore County", Rings: [][]shp.Point{square(-76.59, 39.40, 0.01)}},
		{GEOID: "245101201001", CountyFP: "510", CountyName: "Baltimore city", Rings: [][]shp.Point{square(-76.61, 39.29, 0.01)}},
	}
}
