package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/neighborhood-cli/internal/census"
)

var variablesFile string

var variablesCmd = &cobra.Command{
	Use:   "variables",
	Short: "List the census variables offered to the interpreter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if variablesFile != "" {
			cfg.Census.VariablesFile = variablesFile
		}
		if err := cfg.Validate("variables"); err != nil {
			return err
		}

		table, err := census.LoadVariables(cfg.Census.VariablesFile)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), table.Format())
		return nil
	},
}

func init() {
	variablesCmd.Flags().StringVar(&variablesFile, "file", "", "variable table (.csv, .xlsx, .yaml, .json); default from config")
	rootCmd.AddCommand(variablesCmd)
}
