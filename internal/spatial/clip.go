package spatial

import (
	"math"
	"sort"

	polyclip "github.com/akavel/polyclip-go"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/neighborhood-cli/internal/model"
)

// minArea is the smallest clipped ring kept, in square meters.
const minArea = 1e-3

// Clip intersects every feature with the buffer. Features entirely outside
// are dropped; features entirely inside keep their geometry. The rest are
// intersected with the buffer disc in the projected frame, so a concave
// feature whose arms cross the edge comes back as separate parts. Output
// geometries are EPSG:4326 MultiPolygons and attributes are preserved.
func Clip(features []model.Feature, b *Buffer) []model.Feature {
	bounds := b.Bounds()
	out := make([]model.Feature, 0, len(features))

	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		if !bounds.Overlaps(geom.XY, f.Geometry.Bounds()) {
			continue
		}

		polys, ok := polygonsOf(f.Geometry)
		if !ok {
			zap.L().Debug("clip: skipping non-polygonal feature", zap.String("id", f.ID))
			continue
		}

		clipped := b.clipPolygons(polys)
		if len(clipped) == 0 {
			continue
		}

		mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(clipped)
		if err != nil {
			zap.L().Warn("clip: invalid clipped geometry", zap.String("id", f.ID), zap.Error(err))
			continue
		}

		c := f.Clone()
		c.Geometry = mp.SetSRID(4326)
		out = append(out, c)
	}
	return out
}

// polygonsOf returns the rings of a Polygon or MultiPolygon.
func polygonsOf(g geom.T) ([][][]geom.Coord, bool) {
	switch t := g.(type) {
	case *geom.Polygon:
		return [][][]geom.Coord{t.Coords()}, true
	case *geom.MultiPolygon:
		return t.Coords(), true
	default:
		return nil, false
	}
}

func (b *Buffer) clipPolygons(polys [][][]geom.Coord) [][][]geom.Coord {
	disc := polyclip.Polygon{append(polyclip.Contour(nil), b.ring...)}

	var out [][][]geom.Coord
	for _, rings := range polys {
		if len(rings) == 0 {
			continue
		}

		if b.inside(b.project(rings[0])) {
			out = append(out, rings)
			continue
		}

		subject := make(polyclip.Polygon, 0, len(rings))
		for _, r := range rings {
			if c := b.project(r); len(c) >= 3 {
				subject = append(subject, c)
			}
		}
		if len(subject) == 0 {
			continue
		}

		for _, part := range assemble(subject.Construct(polyclip.INTERSECTION, disc)) {
			out = append(out, b.unprojectRings(part))
		}
	}
	return out
}

// assemble groups the unordered contours of a boolean result into polygons.
// A contour nested inside an even number of others is a shell; an odd one
// is a hole of its innermost enclosing shell. Slivers are dropped.
func assemble(result polyclip.Polygon) [][]polyclip.Contour {
	contours := make([]polyclip.Contour, 0, len(result))
	for _, c := range result {
		if len(c) >= 3 && math.Abs(ringArea(c)) >= minArea {
			contours = append(contours, c)
		}
	}
	// Largest first, so a container always precedes what it contains.
	sort.SliceStable(contours, func(i, j int) bool {
		return math.Abs(ringArea(contours[i])) > math.Abs(ringArea(contours[j]))
	})

	parent := make([]int, len(contours))
	depth := make([]int, len(contours))
	for i := range contours {
		parent[i] = -1
		for j := i - 1; j >= 0; j-- {
			if encloses(contours[j], contours[i]) {
				parent[i] = j
				depth[i] = depth[j] + 1
				break
			}
		}
	}

	shellIndex := make(map[int]int)
	var polys [][]polyclip.Contour
	for i, c := range contours {
		if depth[i]%2 == 0 {
			shellIndex[i] = len(polys)
			polys = append(polys, []polyclip.Contour{c})
			continue
		}
		if k, ok := shellIndex[parent[i]]; ok {
			polys[k] = append(polys[k], c)
		}
	}
	return polys
}

// encloses reports whether inner lies within outer, judged by the first
// vertex of inner that is not also a vertex of outer.
func encloses(outer, inner polyclip.Contour) bool {
	shared := make(map[polyclip.Point]bool, len(outer))
	for _, p := range outer {
		shared[p] = true
	}
	for _, p := range inner {
		if !shared[p] {
			return outer.Contains(p)
		}
	}
	return false
}

func (b *Buffer) project(ring []geom.Coord) polyclip.Contour {
	pts := make(polyclip.Contour, 0, len(ring))
	for _, c := range ring {
		x, y := b.proj.Forward(c[0], c[1])
		pts = append(pts, polyclip.Point{X: x, Y: y})
	}
	// Work with open rings.
	if n := len(pts); n > 1 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}
	return pts
}

func (b *Buffer) unprojectRings(rings []polyclip.Contour) [][]geom.Coord {
	out := make([][]geom.Coord, 0, len(rings))
	for _, r := range rings {
		coords := make([]geom.Coord, 0, len(r)+1)
		for _, p := range r {
			lon, lat := b.proj.Inverse(p.X, p.Y)
			coords = append(coords, geom.Coord{lon, lat})
		}
		coords = append(coords, coords[0])
		out = append(out, coords)
	}
	return out
}

// inside reports whether every vertex lies within the buffer polygon.
func (b *Buffer) inside(ring polyclip.Contour) bool {
	if len(ring) < 3 {
		return false
	}
	n := len(b.ring)
	for _, p := range ring {
		for i := 0; i < n; i++ {
			if !leftOf(b.ring[i], b.ring[(i+1)%n], p) {
				return false
			}
		}
	}
	return true
}

func leftOf(a, b, p polyclip.Point) bool {
	return (b.X-a.X)*(p.Y-a.Y)-(b.Y-a.Y)*(p.X-a.X) >= 0
}

// ringArea is the signed shoelace area of an open ring.
func ringArea(ring polyclip.Contour) float64 {
	if len(ring) < 3 {
		return 0
	}
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum / 2
}
