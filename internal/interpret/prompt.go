package interpret

import (
	"fmt"
	"strings"

	"github.com/sells-group/neighborhood-cli/internal/census"
	"github.com/sells-group/neighborhood-cli/internal/model"
)

const systemPrompt = "You are a comprehensive assistant that interprets census data requests, " +
	"provides FIPS codes, translates geographic information, and extracts relevant details. " +
	"Answer with a single JSON object and nothing else."

// BuildPrompt renders the user message sent to the model.
func BuildPrompt(request string, loc model.Location, table census.VariableTable) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following user request for census data: %q\n", request)
	fmt.Fprintf(&b, "The state is %s and the county is %s.\n\n", loc.State, loc.County)

	b.WriteString("1. Determine FIPS Codes:\n")
	b.WriteString("Provide the FIPS codes for the given state and county.\n\n")

	b.WriteString("2. Interpret Census Variables:\n")
	b.WriteString("Based on the user request, determine the appropriate census variable code(s).\n")
	b.WriteString("Here are the available census variables:\n")
	b.WriteString(table.Format())
	b.WriteString("\n")

	b.WriteString("3. Translate Geography:\n")
	b.WriteString("Translate the geography information into the correct format.\n")
	b.WriteString(`The "for" parameter should be the geographic unit (e.g., county, tract, block group).` + "\n\n")

	b.WriteString("4. Extract Year and Dataset:\n")
	b.WriteString("Determine the year and dataset (e.g., acs/acs5) from the user request.\n\n")

	b.WriteString("Provide the output as a JSON object with the following structure:\n")
	b.WriteString(`{
    "state_fips": "XX",
    "county_fips": "YYY",
    "variables": ["variable codes"],
    "geography": {
        "for": "geographic unit"
    },
    "year": "YYYY",
    "dataset": "dataset name"
}
`)
	b.WriteString("where XX is the 2-digit state FIPS code and YYY is the 3-digit county FIPS code.\n\n")
	b.WriteString("If any information is not provided or cannot be determined, use null for that field.\n")

	return b.String()
}
