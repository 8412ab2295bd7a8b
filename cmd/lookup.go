package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/neighborhood-cli/internal/pipeline"
)

var (
	lookupRadius float64
	lookupLevel  string
	lookupOut    string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <address>",
	Short: "Map the census boundaries around an address",
	Long:  "Geocodes the address, finds its county, and writes a map of the block groups (or tracts) within the radius.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline("lookup")
		if err != nil {
			return err
		}

		level, err := resolveLevel(lookupLevel)
		if err != nil {
			return err
		}
		radius := lookupRadius
		if radius <= 0 {
			radius = cfg.Pipeline.LookupRadiusMiles
		}
		out := lookupOut
		if out == "" {
			out = cfg.Render.MapFile
		}

		res, err := env.Pipeline.Run(cmd.Context(), pipeline.Request{
			Address:     strings.Join(args, " "),
			RadiusMiles: radius,
			Level:       level,
		})
		stdout := cmd.OutOrStdout()
		printLocation(stdout, res)
		if err != nil {
			reportFailure(cmd.ErrOrStderr(), err)
			return err
		}

		fmt.Fprintf(stdout, "Created buffer and clipped %s data (%d features).\n", level, len(res.Features))
		if err := writeMap(out, res, env.Table); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Map saved as '%s'\n", out)
		return nil
	},
}

func init() {
	lookupCmd.Flags().Float64Var(&lookupRadius, "radius", 0, "buffer radius in miles (default from config, 3)")
	lookupCmd.Flags().StringVar(&lookupLevel, "level", "", `geography level: "block group" or "tract" (default from config)`)
	lookupCmd.Flags().StringVar(&lookupOut, "out", "", "map output file (default from config)")
	rootCmd.AddCommand(lookupCmd)
}
