package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinateValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Coordinate{Latitude: 38.8977, Longitude: -77.0365}.Validate())
	assert.NoError(t, Coordinate{Latitude: -90, Longitude: 180}.Validate())
	assert.Error(t, Coordinate{Latitude: 91, Longitude: 0}.Validate())
	assert.Error(t, Coordinate{Latitude: 0, Longitude: -180.5}.Validate())
	assert.Error(t, Coordinate{Latitude: math.NaN(), Longitude: 0}.Validate())
	assert.Error(t, Coordinate{Latitude: 0, Longitude: math.NaN()}.Validate())
	assert.Error(t, Coordinate{Latitude: math.Inf(1), Longitude: 0}.Validate())
}

func TestLocationComplete(t *testing.T) {
	t.Parallel()

	var nilLoc *Location
	assert.False(t, nilLoc.Complete())
	assert.False(t, (&Location{State: "Texas"}).Complete())
	assert.False(t, (&Location{County: "  ", State: "Texas"}).Complete())
	assert.True(t, (&Location{County: "Harris County", State: "Texas"}).Complete())
}

func TestParseGeographyLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want GeographyLevel
		ok   bool
	}{
		{"block group", LevelBlockGroup, true},
		{"Block Groups", LevelBlockGroup, true},
		{"block_group", LevelBlockGroup, true},
		{"bg", LevelBlockGroup, true},
		{"tract", LevelTract, true},
		{"Census Tract", LevelTract, true},
		{"county", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseGeographyLevel(tt.in)
		assert.Equal(t, tt.ok, ok, "input=%q", tt.in)
		assert.Equal(t, tt.want, got, "input=%q", tt.in)
	}
}

func TestGeographyLevelFileToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bg", LevelBlockGroup.FileToken())
	assert.Equal(t, "tract", LevelTract.FileToken())
}

func TestStructuredQueryMissing(t *testing.T) {
	t.Parallel()

	full := &StructuredQuery{
		Dataset:        Str("acs/acs5"),
		Variables:      []string{"B01003_001E"},
		GeographyLevel: Str("block group"),
		Year:           Str("2021"),
		StateFIPS:      Str("48"),
		CountyFIPS:     Str("201"),
	}
	assert.Empty(t, full.Missing())

	partial := &StructuredQuery{Dataset: Str("acs/acs5"), Year: Str(" ")}
	assert.Equal(t, []string{"variables", "geography_level", "year", "state_fips", "county_fips"}, partial.Missing())

	var nilQuery *StructuredQuery
	assert.Len(t, nilQuery.Missing(), 6)
}

func TestStructuredQueryHasVariable(t *testing.T) {
	t.Parallel()

	q := &StructuredQuery{Variables: []string{"B01003_001E", "B19013_001E"}}
	assert.True(t, q.HasVariable("B19013_001E"))
	assert.False(t, q.HasVariable("B25001_001E"))
}

func TestStatisticRowNumeric(t *testing.T) {
	t.Parallel()

	row := StatisticRow{ID: "110010001011", Values: map[string]string{
		"B01003_001E": "1523",
		"B19013_001E": "-666666666",
		"NAME":        "Block Group 1",
		"EMPTY":       "",
	}}

	v, ok := row.Numeric("B01003_001E")
	assert.True(t, ok)
	assert.InDelta(t, 1523, v, 0.0001)

	_, ok = row.Numeric("B19013_001E")
	assert.False(t, ok, "ACS sentinel is missing data")

	_, ok = row.Numeric("NAME")
	assert.False(t, ok)

	_, ok = row.Numeric("EMPTY")
	assert.False(t, ok)

	_, ok = row.Numeric("ABSENT")
	assert.False(t, ok)
}

func TestIsSentinel(t *testing.T) {
	t.Parallel()

	assert.True(t, IsSentinel("-666666666"))
	assert.True(t, IsSentinel(" -999999999 "))
	assert.False(t, IsSentinel("0"))
	assert.False(t, IsSentinel("Block Group 1"))
	assert.False(t, IsSentinel(""))
}

func TestNumericValue(t *testing.T) {
	t.Parallel()

	v, ok := NumericValue("42.5")
	assert.True(t, ok)
	assert.InDelta(t, 42.5, v, 0.0001)

	v, ok = NumericValue(7)
	assert.True(t, ok)
	assert.InDelta(t, 7, v, 0.0001)

	_, ok = NumericValue(nil)
	assert.False(t, ok)

	_, ok = NumericValue(-999999999.0)
	assert.False(t, ok)
}

func TestFeatureClone(t *testing.T) {
	t.Parallel()

	f := Feature{ID: "1", Attributes: map[string]any{"GEOID": "1"}}
	c := f.Clone()
	c.Attributes["extra"] = 1
	_, leaked := f.Attributes["extra"]
	assert.False(t, leaked)
}
