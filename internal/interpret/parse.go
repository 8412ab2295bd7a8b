package interpret

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/model"
)

// ExtractJSONSpan returns the text from the first '{' to the last '}'. When
// there is no such span the failure carries text unchanged.
func ExtractJSONSpan(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", failure.Newf(failure.KindInterpretation, "interpret", "no JSON object in model output").WithRaw(text)
	}
	return text[start : end+1], nil
}

// answer is the JSON shape the model is asked to produce. Fields stay raw so
// each can be checked for null, "null", strings and numbers separately.
type answer struct {
	StateFIPS  json.RawMessage `json:"state_fips"`
	CountyFIPS json.RawMessage `json:"county_fips"`
	Variables  json.RawMessage `json:"variables"`
	Geography  json.RawMessage `json:"geography"`
	Year       json.RawMessage `json:"year"`
	Dataset    json.RawMessage `json:"dataset"`
}

// ParseQuery decodes a JSON span into a StructuredQuery. Every field is
// optional and nullable. The literal string "null" counts as null, and year
// and FIPS codes may be JSON numbers. Anything else that does not fit the
// shape is an interpretation failure carrying span.
func ParseQuery(span string) (*model.StructuredQuery, error) {
	fail := func(err error) error {
		return failure.New(failure.KindInterpretation, "interpret", err).WithRaw(span)
	}

	var a answer
	if err := json.Unmarshal([]byte(span), &a); err != nil {
		return nil, fail(eris.Wrap(err, "decode model JSON"))
	}

	var (
		q   model.StructuredQuery
		err error
	)
	if q.StateFIPS, err = fipsField(a.StateFIPS, "state_fips", 2); err != nil {
		return nil, fail(err)
	}
	if q.CountyFIPS, err = fipsField(a.CountyFIPS, "county_fips", 3); err != nil {
		return nil, fail(err)
	}
	if q.Year, err = scalarField(a.Year, "year", true); err != nil {
		return nil, fail(err)
	}
	if q.Dataset, err = scalarField(a.Dataset, "dataset", false); err != nil {
		return nil, fail(err)
	}
	if q.Variables, err = variablesField(a.Variables); err != nil {
		return nil, fail(err)
	}
	if q.GeographyLevel, err = geographyField(a.Geography); err != nil {
		return nil, fail(err)
	}
	return &q, nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// scalarField decodes a nullable string (or number, when allowed).
func scalarField(raw json.RawMessage, name string, allowNumber bool) (*string, error) {
	if isNull(raw) {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "null") {
			return nil, nil
		}
		return &s, nil
	}

	if allowNumber {
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&n); err == nil {
			if _, err := n.Int64(); err == nil {
				s := n.String()
				return &s, nil
			}
		}
	}

	return nil, eris.Errorf("%s: unexpected value %s", name, strings.TrimSpace(string(raw)))
}

// fipsField decodes a FIPS code, left-padding numeric answers to width.
func fipsField(raw json.RawMessage, name string, width int) (*string, error) {
	s, err := scalarField(raw, name, true)
	if err != nil || s == nil {
		return s, err
	}
	v := *s
	if len(v) < width && isDigits(v) {
		v = strings.Repeat("0", width-len(v)) + v
	}
	return &v, nil
}

func variablesField(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(strings.TrimSpace(s), "null") || strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return nil, eris.Errorf("variables: expected a list, got string %q", s)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, eris.Errorf("variables: unexpected value %s", strings.TrimSpace(string(raw)))
	}

	var out []string
	for i, item := range items {
		var v string
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, eris.Errorf("variables[%d]: expected a string, got %s", i, strings.TrimSpace(string(item)))
		}
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, "null") {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func geographyField(raw json.RawMessage) (*string, error) {
	if isNull(raw) {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil && strings.EqualFold(strings.TrimSpace(s), "null") {
		return nil, nil
	}

	var g struct {
		For json.RawMessage `json:"for"`
	}
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, eris.Errorf("geography: expected an object, got %s", strings.TrimSpace(string(raw)))
	}
	level, err := scalarField(g.For, "geography.for", false)
	if err != nil || level == nil {
		return level, err
	}
	v := strings.TrimSpace(strings.TrimSuffix(*level, ":*"))
	return &v, nil
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

// String renders a query for logs and the CLI.
func String(q *model.StructuredQuery) string {
	if q == nil {
		return "<nil>"
	}
	show := func(s *string) string {
		if s == nil {
			return "null"
		}
		return *s
	}
	return fmt.Sprintf("dataset=%s year=%s for=%s state=%s county=%s variables=%v",
		show(q.Dataset), show(q.Year), show(q.GeographyLevel), show(q.StateFIPS), show(q.CountyFIPS), q.Variables)
}
