package tiger

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/neighborhood-cli/internal/failure"
)

// State identifies a state or state-equivalent by name, USPS code and FIPS code.
type State struct {
	Name string
	Abbr string
	FIPS string
}

var states = []State{
	{"Alabama", "AL", "01"},
	{"Alaska", "AK", "02"},
	{"Arizona", "AZ", "04"},
	{"Arkansas", "AR", "05"},
	{"California", "CA", "06"},
	{"Colorado", "CO", "08"},
	{"Connecticut", "CT", "09"},
	{"Delaware", "DE", "10"},
	{"District of Columbia", "DC", "11"},
	{"Florida", "FL", "12"},
	{"Georgia", "GA", "13"},
	{"Hawaii", "HI", "15"},
	{"Idaho", "ID", "16"},
	{"Illinois", "IL", "17"},
	{"Indiana", "IN", "18"},
	{"Iowa", "IA", "19"},
	{"Kansas", "KS", "20"},
	{"Kentucky", "KY", "21"},
	{"Louisiana", "LA", "22"},
	{"Maine", "ME", "23"},
	{"Maryland", "MD", "24"},
	{"Massachusetts", "MA", "25"},
	{"Michigan", "MI", "26"},
	{"Minnesota", "MN", "27"},
	{"Mississippi", "MS", "28"},
	{"Missouri", "MO", "29"},
	{"Montana", "MT", "30"},
	{"Nebraska", "NE", "31"},
	{"Nevada", "NV", "32"},
	{"New Hampshire", "NH", "33"},
	{"New Jersey", "NJ", "34"},
	{"New Mexico", "NM", "35"},
	{"New York", "NY", "36"},
	{"North Carolina", "NC", "37"},
	{"North Dakota", "ND", "38"},
	{"Ohio", "OH", "39"},
	{"Oklahoma", "OK", "40"},
	{"Oregon", "OR", "41"},
	{"Pennsylvania", "PA", "42"},
	{"Rhode Island", "RI", "44"},
	{"South Carolina", "SC", "45"},
	{"South Dakota", "SD", "46"},
	{"Tennessee", "TN", "47"},
	{"Texas", "TX", "48"},
	{"Utah", "UT", "49"},
	{"Vermont", "VT", "50"},
	{"Virginia", "VA", "51"},
	{"Washington", "WA", "53"},
	{"West Virginia", "WV", "54"},
	{"Wisconsin", "WI", "55"},
	{"Wyoming", "WY", "56"},
	{"Puerto Rico", "PR", "72"},
}

// ResolveState looks up a state by full name, USPS abbreviation, or two-digit
// FIPS code. Matching ignores case, accents and surrounding whitespace.
func ResolveState(s string) (State, error) {
	key := foldName(s)
	if key == "" {
		return State{}, failure.Newf(failure.KindNotFound, "resolve state", "empty state")
	}
	if len(key) == 1 && isDigits(key) {
		key = "0" + key
	}
	for _, st := range states {
		if key == foldName(st.Name) || key == foldName(st.Abbr) || key == st.FIPS {
			return st, nil
		}
	}
	return State{}, failure.Newf(failure.KindNotFound, "resolve state", "unknown state %q", s)
}

// countySuffixes are the legal/statistical area descriptions Census appends to
// county-equivalent names (NAMELSAD). Longest first.
var countySuffixes = []string{
	" city and borough",
	" census area",
	" municipality",
	" borough",
	" county",
	" parish",
	" city",
}

// stripCountySuffix removes one trailing county-equivalent description.
func stripCountySuffix(folded string) string {
	for _, suf := range countySuffixes {
		if trimmed, ok := strings.CutSuffix(folded, suf); ok && trimmed != "" {
			return trimmed
		}
	}
	return folded
}

// CountyMatcher decides whether a boundary record belongs to a requested county.
type CountyMatcher struct {
	fips     string // three-digit county FIPS, when the request was numeric
	name     string // folded name as requested
	base     string // folded name without suffix
	suffixed bool   // request named its description ("County", "city", ...)
}

// NewCountyMatcher builds a matcher for county, which may be a name
// ("Harris County", "harris", "Doña Ana"), a three-digit county FIPS, or a
// five-digit state+county FIPS for the given state.
func NewCountyMatcher(county string, st State) (*CountyMatcher, error) {
	c := strings.TrimSpace(county)
	if c == "" {
		return nil, failure.Newf(failure.KindNotFound, "match county", "empty county")
	}
	if isDigits(c) {
		switch len(c) {
		case 1, 2, 3:
			return &CountyMatcher{fips: strings.Repeat("0", 3-len(c)) + c}, nil
		case 5:
			if c[:2] != st.FIPS {
				return nil, failure.Newf(failure.KindNotFound, "match county", "county %s is not in %s", c, st.Name)
			}
			return &CountyMatcher{fips: c[2:]}, nil
		default:
			return nil, failure.Newf(failure.KindNotFound, "match county", "invalid county FIPS %q", c)
		}
	}
	name := foldName(c)
	base := stripCountySuffix(name)
	return &CountyMatcher{name: name, base: base, suffixed: base != name}, nil
}

// Match reports whether a record with the given COUNTYFP and NAMELSADCO
// (county name with description) belongs to the requested county. A request
// that names its description must match NAMELSADCO exactly, so "Baltimore
// County" never matches "Baltimore city". A bare name matches on the base.
func (m *CountyMatcher) Match(countyFP, countyName string) bool {
	if m.fips != "" {
		return strings.TrimSpace(countyFP) == m.fips
	}
	folded := foldName(countyName)
	if folded == "" {
		return false
	}
	if folded == m.name {
		return true
	}
	return !m.suffixed && stripCountySuffix(folded) == m.base
}

// foldName lowercases, strips diacritics, and collapses whitespace.
func foldName(s string) string {
	// Transformer chains carry state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)
	return strings.Join(strings.Fields(folded), " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
