// Package spatial buffers a point, joins statistics onto boundary features,
// and clips those features to the buffer.
package spatial

import (
	"math"

	"github.com/sells-group/neighborhood-cli/internal/model"
)

const (
	// EarthRadius is the mean Earth radius in meters.
	EarthRadius = 6371008.8

	// MetersPerMile converts statute miles to meters.
	MetersPerMile = 1609.34
)

// Projection is a spherical azimuthal equidistant projection. Distances from
// the center are true; x grows east and y grows north, in meters.
type Projection struct {
	center  model.Coordinate
	lon0    float64
	sinLat0 float64
	cosLat0 float64
}

// NewProjection centers a projection on c.
func NewProjection(c model.Coordinate) *Projection {
	lat0 := radians(c.Latitude)
	return &Projection{
		center:  c,
		lon0:    radians(c.Longitude),
		sinLat0: math.Sin(lat0),
		cosLat0: math.Cos(lat0),
	}
}

// Center returns the projection center.
func (p *Projection) Center() model.Coordinate {
	return p.center
}

// Forward projects lon/lat degrees to x/y meters.
func (p *Projection) Forward(lon, lat float64) (x, y float64) {
	phi := radians(lat)
	dLon := radians(lon) - p.lon0
	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	cosDLon := math.Cos(dLon)

	cosC := clamp(p.sinLat0*sinPhi+p.cosLat0*cosPhi*cosDLon, -1, 1)
	c := math.Acos(cosC)
	k := 1.0
	if c > 1e-12 {
		k = c / math.Sin(c)
	}

	x = EarthRadius * k * cosPhi * math.Sin(dLon)
	y = EarthRadius * k * (p.cosLat0*sinPhi - p.sinLat0*cosPhi*cosDLon)
	return x, y
}

// Inverse maps x/y meters back to lon/lat degrees.
func (p *Projection) Inverse(x, y float64) (lon, lat float64) {
	rho := math.Hypot(x, y)
	if rho < 1e-9 {
		return p.center.Longitude, p.center.Latitude
	}

	c := rho / EarthRadius
	sinC, cosC := math.Sin(c), math.Cos(c)

	phi := math.Asin(clamp(cosC*p.sinLat0+y*sinC*p.cosLat0/rho, -1, 1))
	lambda := p.lon0 + math.Atan2(x*sinC, rho*p.cosLat0*cosC-y*p.sinLat0*sinC)

	return normalizeLon(degrees(lambda)), degrees(phi)
}

// Distance is the great-circle distance between two coordinates in meters.
func Distance(a, b model.Coordinate) float64 {
	lat1, lat2 := radians(a.Latitude), radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
