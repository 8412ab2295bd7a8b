package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/neighborhood-cli/internal/model"
	"github.com/sells-group/neighborhood-cli/internal/render"
)

var (
	interpretState    string
	interpretCounty   string
	interpretRequest  string
	interpretVariable string
	interpretShowRaw  bool
)

var interpretCmd = &cobra.Command{
	Use:   "interpret",
	Short: "Interpret a census request and fetch the statistics",
	Long:  "Turns a free-text request into Census API parameters for a state and county, fetches the table and prints it.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline("interpret")
		if err != nil {
			return err
		}

		loc := model.Location{State: interpretState, County: interpretCounty}
		stdout := cmd.OutOrStdout()

		res, err := env.Pipeline.Statistics(cmd.Context(), interpretRequest, interpretVariable, loc)
		if interpretShowRaw {
			fmt.Fprintln(stdout, "Raw response:")
			fmt.Fprintln(stdout, interpretationRaw(res.Interpretation))
		}
		if res.Query != nil {
			printQuery(stdout, res.Query)
		}
		if err != nil {
			reportFailure(cmd.ErrOrStderr(), err)
			return err
		}

		fmt.Fprintln(stdout, "\nFetched Census Data:")
		printRows(stdout, res.Rows, res.Query.Variables)

		if values := res.RowValues(); len(values) > 0 {
			fmt.Fprintln(stdout, "\nSummary Statistics:")
			return render.WriteSummary(stdout, env.Table.Label(res.Variable), render.Summarize(values))
		}
		return nil
	},
}

func init() {
	interpretCmd.Flags().StringVar(&interpretState, "state", "", "state name, abbreviation or FIPS code (required)")
	interpretCmd.Flags().StringVar(&interpretCounty, "county", "", "county name or FIPS code (required)")
	interpretCmd.Flags().StringVar(&interpretRequest, "request", "", "free-text census data request (required)")
	interpretCmd.Flags().StringVar(&interpretVariable, "variable", "", "variable to summarize when the request names several")
	interpretCmd.Flags().BoolVar(&interpretShowRaw, "show-raw", false, "print the raw model response")
	_ = interpretCmd.MarkFlagRequired("state")
	_ = interpretCmd.MarkFlagRequired("county")
	_ = interpretCmd.MarkFlagRequired("request")
	rootCmd.AddCommand(interpretCmd)
}
