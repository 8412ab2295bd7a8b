package spatial

import (
	"math"

	polyclip "github.com/akavel/polyclip-go"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/model"
)

// bufferSegments is the vertex count of the buffer disc.
const bufferSegments = 64

// Buffer is a disc of fixed radius around a point. The disc is kept both in
// projected meters, where clipping happens, and in EPSG:4326 for output.
type Buffer struct {
	Center      model.Coordinate
	RadiusMiles float64
	Polygon     *geom.Polygon

	proj   *Projection
	radius float64
	ring   polyclip.Contour
}

// NewBuffer builds the buffer polygon around center.
func NewBuffer(center model.Coordinate, radiusMiles float64) (*Buffer, error) {
	if err := center.Validate(); err != nil {
		return nil, failure.New(failure.KindInvalidQuery, "buffer", eris.Wrap(err, "buffer center"))
	}
	if radiusMiles <= 0 || math.IsNaN(radiusMiles) || math.IsInf(radiusMiles, 0) {
		return nil, failure.Newf(failure.KindInvalidQuery, "buffer", "radius must be > 0, got %v", radiusMiles)
	}

	b := &Buffer{
		Center:      center,
		RadiusMiles: radiusMiles,
		proj:        NewProjection(center),
		radius:      radiusMiles * MetersPerMile,
	}

	// Counter-clockwise in projected space.
	b.ring = make(polyclip.Contour, bufferSegments)
	coords := make([]geom.Coord, 0, bufferSegments+1)
	for i := 0; i < bufferSegments; i++ {
		theta := 2 * math.Pi * float64(i) / bufferSegments
		x, y := b.radius*math.Cos(theta), b.radius*math.Sin(theta)
		b.ring[i] = polyclip.Point{X: x, Y: y}
		lon, lat := b.proj.Inverse(x, y)
		coords = append(coords, geom.Coord{lon, lat})
	}
	coords = append(coords, coords[0])

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{coords})
	if err != nil {
		return nil, eris.Wrap(err, "buffer: build polygon")
	}
	b.Polygon = poly.SetSRID(4326)
	return b, nil
}

// RadiusMeters returns the buffer radius in meters.
func (b *Buffer) RadiusMeters() float64 {
	return b.radius
}

// Bounds returns the EPSG:4326 bounding box of the buffer.
func (b *Buffer) Bounds() *geom.Bounds {
	return b.Polygon.Bounds()
}

// Contains reports whether c lies within the buffer radius.
func (b *Buffer) Contains(c model.Coordinate) bool {
	x, y := b.proj.Forward(c.Longitude, c.Latitude)
	return math.Hypot(x, y) <= b.radius
}
