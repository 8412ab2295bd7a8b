package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/neighborhood-cli/internal/pipeline"
	"github.com/sells-group/neighborhood-cli/internal/render"
)

var (
	demoRequest      string
	demoVariable     string
	demoRadius       float64
	demoLevel        string
	demoOut          string
	demoHistogramOut string
)

var demographicsCmd = &cobra.Command{
	Use:   "demographics <address>",
	Short: "Map a census statistic around an address",
	Long: "Runs the full pipeline: geocode, boundaries, interpret the free-text request into a Census query, " +
		"fetch statistics, join and clip them to the radius, then write a choropleth map, a histogram and a summary.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline("demographics")
		if err != nil {
			return err
		}

		level, err := resolveLevel(demoLevel)
		if err != nil {
			return err
		}
		radius := demoRadius
		if radius <= 0 {
			radius = cfg.Pipeline.DemographicsRadiusMiles
		}
		mapOut := demoOut
		if mapOut == "" {
			mapOut = cfg.Render.MapFile
		}
		histOut := demoHistogramOut
		if histOut == "" {
			histOut = cfg.Render.HistogramFile
		}

		stdout := cmd.OutOrStdout()
		res, err := env.Pipeline.Run(cmd.Context(), pipeline.Request{
			Address:     strings.Join(args, " "),
			Query:       demoRequest,
			Variable:    demoVariable,
			RadiusMiles: radius,
			Level:       level,
		})
		printLocation(stdout, res)
		if res != nil && res.Query != nil {
			printQuery(stdout, res.Query)
		}
		if err != nil {
			reportFailure(cmd.ErrOrStderr(), err)
			return err
		}

		if err := writeMap(mapOut, res, env.Table); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Map saved as '%s'\n", mapOut)

		values := res.Values()
		if len(values) == 0 {
			zap.L().Warn("no numeric values inside the buffer", zap.String("variable", res.Variable))
			fmt.Fprintf(stdout, "No numeric values for %s inside the buffer.\n", res.Variable)
			return nil
		}

		if err := writeHistogram(histOut, res.Variable, values, cfg.Render.HistogramBins); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Histogram saved as '%s'\n", histOut)

		fmt.Fprintln(stdout, "\nSummary Statistics:")
		return render.WriteSummary(stdout, env.Table.Label(res.Variable), render.Summarize(values))
	},
}

func init() {
	demographicsCmd.Flags().StringVar(&demoRequest, "request", "", "free-text census data request (required)")
	demographicsCmd.Flags().StringVar(&demoVariable, "variable", "", "variable to map when the request names several")
	demographicsCmd.Flags().Float64Var(&demoRadius, "radius", 0, "buffer radius in miles (default from config, 5)")
	demographicsCmd.Flags().StringVar(&demoLevel, "level", "", `geography level: "block group" or "tract" (default from config)`)
	demographicsCmd.Flags().StringVar(&demoOut, "out", "", "map output file (default from config)")
	demographicsCmd.Flags().StringVar(&demoHistogramOut, "histogram-out", "", "histogram output file (default from config)")
	_ = demographicsCmd.MarkFlagRequired("request")
	rootCmd.AddCommand(demographicsCmd)
}
