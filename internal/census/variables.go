// Package census loads the Census variable reference table and fetches
// statistics from the Census Data API.
package census

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/fetcher"
)

// Variable is one row of the reference table.
type Variable struct {
	Name    string `yaml:"name" json:"name"`
	Label   string `yaml:"label" json:"label"`
	Concept string `yaml:"concept,omitempty" json:"concept,omitempty"`
}

// VariableTable is the read-only list of variables offered to the interpreter.
type VariableTable []Variable

// Lookup returns the variable with the given code.
func (t VariableTable) Lookup(code string) (Variable, bool) {
	for _, v := range t {
		if strings.EqualFold(v.Name, code) {
			return v, true
		}
	}
	return Variable{}, false
}

// Label returns the label for code, or code itself when unknown.
func (t VariableTable) Label(code string) string {
	if v, ok := t.Lookup(code); ok && v.Label != "" {
		return v.Label
	}
	return code
}

// Format renders the table as aligned text columns for prompts and the CLI.
func (t VariableTable) Format() string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	hasConcept := false
	for _, v := range t {
		if v.Concept != "" {
			hasConcept = true
			break
		}
	}
	if hasConcept {
		_, _ = tw.Write([]byte("name\tlabel\tconcept\n"))
	} else {
		_, _ = tw.Write([]byte("name\tlabel\n"))
	}
	for _, v := range t {
		row := v.Name + "\t" + v.Label
		if hasConcept {
			row += "\t" + v.Concept
		}
		_, _ = tw.Write([]byte(row + "\n"))
	}
	_ = tw.Flush()
	return b.String()
}

// LoadVariables reads a reference table. The format follows the extension:
// .csv and .xlsx need a header row with a name column (name, code or
// variable) and a label column (label or description), optionally concept;
// .yaml/.yml hold a list of {name, label, concept}; .json is the Census API
// variables.json document.
func LoadVariables(path string) (VariableTable, error) {
	var (
		table VariableTable
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		table, err = loadCSV(path)
	case ".xlsx":
		table, err = loadXLSX(path)
	case ".yaml", ".yml":
		table, err = loadYAML(path)
	case ".json":
		table, err = loadJSON(path)
	default:
		return nil, failure.Newf(failure.KindConfig, "load variables", "unsupported variables file %q", path)
	}
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, failure.Newf(failure.KindConfig, "load variables", "no variables in %s", path)
	}
	return table, nil
}

func loadCSV(path string) (VariableTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, failure.New(failure.KindConfig, "load variables", eris.Wrapf(err, "open %s", path))
	}
	defer f.Close() //nolint:errcheck

	rows, err := fetcher.ReadCSV(f, fetcher.CSVOptions{TrimSpace: true, LazyQuotes: true})
	if err != nil {
		return nil, failure.New(failure.KindConfig, "load variables", eris.Wrapf(err, "read %s", path))
	}
	return fromRows(rows, path)
}

func loadXLSX(path string) (VariableTable, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, failure.New(failure.KindConfig, "load variables", eris.Wrapf(err, "read %s", path))
	}
	return fromRows(rows, path)
}

// fromRows maps a header row plus data rows onto variables.
func fromRows(rows [][]string, path string) (VariableTable, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	nameIdx, labelIdx, conceptIdx := -1, -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name", "code", "variable":
			if nameIdx < 0 {
				nameIdx = i
			}
		case "label", "description":
			if labelIdx < 0 {
				labelIdx = i
			}
		case "concept":
			conceptIdx = i
		}
	}
	if nameIdx < 0 || labelIdx < 0 {
		return nil, failure.Newf(failure.KindConfig, "load variables", "%s: header needs name and label columns, got %v", path, rows[0])
	}

	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	table := make(VariableTable, 0, len(rows)-1)
	for _, row := range rows[1:] {
		name := cell(row, nameIdx)
		if name == "" {
			continue
		}
		table = append(table, Variable{
			Name:    name,
			Label:   cell(row, labelIdx),
			Concept: cell(row, conceptIdx),
		})
	}
	return table, nil
}

func loadYAML(path string) (VariableTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.New(failure.KindConfig, "load variables", eris.Wrapf(err, "read %s", path))
	}
	var table VariableTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, failure.New(failure.KindConfig, "load variables", eris.Wrapf(err, "parse %s", path))
	}
	return table, nil
}

// apiVariables is the shape of https://api.census.gov/data/{year}/{dataset}/variables.json.
type apiVariables struct {
	Variables map[string]struct {
		Label         string `json:"label"`
		Concept       string `json:"concept"`
		PredicateOnly bool   `json:"predicateOnly"`
	} `json:"variables"`
}

func loadJSON(path string) (VariableTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.New(failure.KindConfig, "load variables", eris.Wrapf(err, "read %s", path))
	}
	var doc apiVariables
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, failure.New(failure.KindConfig, "load variables", eris.Wrapf(err, "parse %s", path))
	}

	table := make(VariableTable, 0, len(doc.Variables))
	for name, v := range doc.Variables {
		// for/in/ucgid are query predicates, not statistics.
		if v.PredicateOnly {
			continue
		}
		table = append(table, Variable{Name: name, Label: v.Label, Concept: v.Concept})
	}
	sort.Slice(table, func(i, j int) bool { return table[i].Name < table[j].Name })
	return table, nil
}
