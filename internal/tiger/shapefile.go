package tiger

import (
	"os"
	"sort"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/model"
)

// Attribute names in cartographic boundary DBF files.
const (
	FieldGEOID      = "GEOID"
	FieldCountyFP   = "COUNTYFP"
	FieldCountyName = "NAMELSADCO"
)

// ReadFeatures reads a polygon shapefile (with its .dbf sidecar) into
// features keyed by GEOID. Every DBF attribute is kept as a trimmed string.
// Records without geometry or without a GEOID are skipped. A missing or
// empty .dbf, or one without a GEOID column, is a malformed failure.
func ReadFeatures(shpPath string) ([]model.Feature, error) {
	// go-shp reads attributes from the path with "shp" swapped for "dbf" and
	// silently reports no fields when that file is missing.
	dbfPath := shpPath[:len(shpPath)-3] + "dbf"
	if _, err := os.Stat(dbfPath); err != nil {
		return nil, failure.New(failure.KindMalformed, "read shapefile", eris.Wrapf(err, "attribute table for %s", shpPath))
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, failure.New(failure.KindMalformed, "read shapefile", eris.Wrapf(err, "open %s", shpPath))
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	hasGEOID := false
	for i, f := range fields {
		names[i] = strings.TrimSpace(strings.TrimRight(f.String(), "\x00"))
		hasGEOID = hasGEOID || names[i] == FieldGEOID
	}
	if !hasGEOID {
		return nil, failure.Newf(failure.KindMalformed, "read shapefile", "%s has no %s attribute", dbfPath, FieldGEOID)
	}

	var features []model.Feature
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		attrs := make(map[string]any, len(names))
		for i, name := range names {
			val := strings.TrimRight(reader.Attribute(i), "\x00")
			attrs[name] = strings.TrimSpace(val)
		}

		id, _ := attrs[FieldGEOID].(string)
		g := shapeToGeometry(shape)
		if id == "" || g == nil {
			skipped++
			continue
		}

		features = append(features, model.Feature{ID: id, Geometry: g, Attributes: attrs})
	}

	if err := reader.Err(); err != nil {
		return nil, failure.New(failure.KindMalformed, "read shapefile", eris.Wrapf(err, "read %s", shpPath))
	}

	if skipped > 0 {
		zap.L().Debug("tiger: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return features, nil
}

// FilterCounty keeps the features whose county attributes satisfy m. A bare
// county name that matches more than one county (Baltimore County and
// Baltimore city, say) is rejected rather than merged.
func FilterCounty(features []model.Feature, m *CountyMatcher) ([]model.Feature, error) {
	out := make([]model.Feature, 0, len(features))
	counties := make(map[string]string)
	for _, f := range features {
		fp, _ := f.Attributes[FieldCountyFP].(string)
		name, _ := f.Attributes[FieldCountyName].(string)
		if m.Match(fp, name) {
			out = append(out, f)
			counties[fp] = name
		}
	}

	if len(counties) > 1 {
		names := make([]string, 0, len(counties))
		for _, name := range counties {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, failure.Newf(failure.KindNotFound, "match county",
			"county name is ambiguous, matches %s", strings.Join(names, ", "))
	}
	return out, nil
}
