package model

import "strings"

// StructuredQuery is a Census Data API request. Any field may be nil when it
// could not be determined; Missing reports which.
type StructuredQuery struct {
	Dataset        *string  `json:"dataset"`
	Variables      []string `json:"variables"`
	GeographyLevel *string  `json:"geography_level"`
	Year           *string  `json:"year"`
	StateFIPS      *string  `json:"state_fips"`
	CountyFIPS     *string  `json:"county_fips"`
}

// Missing returns the names of fields that are nil or blank.
func (q *StructuredQuery) Missing() []string {
	if q == nil {
		return []string{"dataset", "variables", "geography_level", "year", "state_fips", "county_fips"}
	}

	var missing []string
	check := func(name string, v *string) {
		if v == nil || strings.TrimSpace(*v) == "" {
			missing = append(missing, name)
		}
	}
	check("dataset", q.Dataset)
	if len(q.Variables) == 0 {
		missing = append(missing, "variables")
	}
	check("geography_level", q.GeographyLevel)
	check("year", q.Year)
	check("state_fips", q.StateFIPS)
	check("county_fips", q.CountyFIPS)
	return missing
}

// HasVariable reports whether code is one of the requested variables.
func (q *StructuredQuery) HasVariable(code string) bool {
	if q == nil {
		return false
	}
	for _, v := range q.Variables {
		if v == code {
			return true
		}
	}
	return false
}

// Str returns a pointer to s. Convenience for building queries.
func Str(s string) *string {
	return &s
}

// Deref returns *s or "" when s is nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
