package model

import (
	"strings"

	"github.com/twpayne/go-geom"
)

// GeographyLevel is a Census small-area level in Census Data API "for" syntax.
type GeographyLevel string

const (
	LevelBlockGroup GeographyLevel = "block group"
	LevelTract      GeographyLevel = "tract"
)

// ParseGeographyLevel normalizes common spellings of a geography level.
func ParseGeographyLevel(s string) (GeographyLevel, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	switch norm {
	case "block group", "block groups", "blockgroup", "blockgroups", "bg":
		return LevelBlockGroup, true
	case "tract", "tracts", "census tract", "census tracts":
		return LevelTract, true
	default:
		return "", false
	}
}

// FileToken is the level's token in cartographic boundary file names.
func (l GeographyLevel) FileToken() string {
	switch l {
	case LevelTract:
		return "tract"
	default:
		return "bg"
	}
}

// Feature is a boundary polygon keyed by its small-area identifier (GEOID).
// Geometry is a *geom.Polygon or *geom.MultiPolygon in EPSG:4326.
type Feature struct {
	ID         string         `json:"id"`
	Geometry   geom.T         `json:"-"`
	Attributes map[string]any `json:"attributes"`
}

// Clone returns a copy of f with its own attribute map. Geometry is shared.
func (f Feature) Clone() Feature {
	attrs := make(map[string]any, len(f.Attributes))
	for k, v := range f.Attributes {
		attrs[k] = v
	}
	return Feature{ID: f.ID, Geometry: f.Geometry, Attributes: attrs}
}
