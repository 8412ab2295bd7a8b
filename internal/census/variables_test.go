package census

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/neighborhood-cli/internal/failure"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadVariables_CSV(t *testing.T) {
	p := writeFile(t, "acs5_variables.csv", `name,label,concept
B01003_001E,Estimate!!Total,TOTAL POPULATION
B19013_001E,"Estimate!!Median household income in the past 12 months (in 2022 inflation-adjusted dollars)",MEDIAN HOUSEHOLD INCOME
,skipped,
`)

	table, err := LoadVariables(p)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "B01003_001E", table[0].Name)
	assert.Equal(t, "TOTAL POPULATION", table[0].Concept)
	assert.Contains(t, table[1].Label, "Median household income")
}

func TestLoadVariables_CSVAltHeaders(t *testing.T) {
	p := writeFile(t, "vars.csv", "Variable,Description\nB25077_001E,Median home value\n")

	table, err := LoadVariables(p)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "Median home value", table[0].Label)
	assert.Empty(t, table[0].Concept)
}

func TestLoadVariables_CSVBadHeader(t *testing.T) {
	p := writeFile(t, "vars.csv", "foo,bar\n1,2\n")

	_, err := LoadVariables(p)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindConfig))
	assert.Contains(t, err.Error(), "name and label")
}

func TestLoadVariables_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("variables")
	require.NoError(t, err)
	for _, r := range [][]string{
		{"code", "label"},
		{"B01003_001E", "Total population"},
		{"B19013_001E", "Median household income"},
	} {
		row := sheet.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	p := filepath.Join(t.TempDir(), "vars.xlsx")
	require.NoError(t, f.Save(p))

	table, err := LoadVariables(p)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "B19013_001E", table[1].Name)
	assert.Equal(t, "Median household income", table[1].Label)
}

func TestLoadVariables_YAML(t *testing.T) {
	p := writeFile(t, "vars.yaml", `
- name: B01003_001E
  label: Total population
  concept: TOTAL POPULATION
- name: B25077_001E
  label: Median home value
`)

	table, err := LoadVariables(p)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "Median home value", table.Label("B25077_001E"))
}

func TestLoadVariables_JSON(t *testing.T) {
	p := writeFile(t, "variables.json", `{
		"variables": {
			"for": {"label": "Census API FIPS 'for' clause", "predicateOnly": true},
			"B19013_001E": {"label": "Estimate!!Median household income", "concept": "MEDIAN HOUSEHOLD INCOME"},
			"B01003_001E": {"label": "Estimate!!Total", "concept": "TOTAL POPULATION"}
		}
	}`)

	table, err := LoadVariables(p)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "B01003_001E", table[0].Name, "sorted by code")
	_, ok := table.Lookup("for")
	assert.False(t, ok)
}

func TestLoadVariables_Errors(t *testing.T) {
	_, err := LoadVariables("vars.txt")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindConfig))

	_, err = LoadVariables(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	_, err = LoadVariables(writeFile(t, "empty.csv", "name,label\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no variables")

	_, err = LoadVariables(writeFile(t, "bad.json", "{"))
	require.Error(t, err)
}

func TestVariableTable_LookupAndLabel(t *testing.T) {
	table := VariableTable{{Name: "B01003_001E", Label: "Total population"}}

	v, ok := table.Lookup("b01003_001e")
	assert.True(t, ok)
	assert.Equal(t, "Total population", v.Label)
	assert.Equal(t, "UNKNOWN_001E", table.Label("UNKNOWN_001E"))
}

func TestVariableTable_Format(t *testing.T) {
	table := VariableTable{
		{Name: "B01003_001E", Label: "Total population"},
		{Name: "B19013_001E", Label: "Median household income"},
	}

	out := table.Format()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "name"))
	// Label column is aligned.
	assert.Equal(t, strings.Index(lines[1], "Total"), strings.Index(lines[2], "Median"))
	assert.NotContains(t, lines[0], "concept")

	withConcept := VariableTable{{Name: "X", Label: "Y", Concept: "Z"}}
	assert.Contains(t, withConcept.Format(), "concept")
}
