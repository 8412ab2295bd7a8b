// Package model holds the value types passed between pipeline stages.
package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate reports coordinates outside [-90,90] x [-180,180], or NaN.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return eris.New("coordinate is NaN")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return eris.Errorf("latitude %f out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return eris.Errorf("longitude %f out of range [-180, 180]", c.Longitude)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Location is the administrative area containing a coordinate.
type Location struct {
	County string `json:"county"`
	State  string `json:"state"`
}

// Complete reports whether both county and state are known.
func (l *Location) Complete() bool {
	return l != nil && strings.TrimSpace(l.County) != "" && strings.TrimSpace(l.State) != ""
}
