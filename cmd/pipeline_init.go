package main

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/neighborhood-cli/internal/census"
	"github.com/sells-group/neighborhood-cli/internal/fetcher"
	"github.com/sells-group/neighborhood-cli/internal/interpret"
	"github.com/sells-group/neighborhood-cli/internal/model"
	"github.com/sells-group/neighborhood-cli/internal/pipeline"
	"github.com/sells-group/neighborhood-cli/internal/tiger"
	anthropicpkg "github.com/sells-group/neighborhood-cli/pkg/anthropic"
	"github.com/sells-group/neighborhood-cli/pkg/geocode"
)

// pipelineEnv holds the initialized pipeline and the variable reference
// table needed by the lookup/demographics/interpret/serve commands.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Table    census.VariableTable
}

// initPipeline validates config for mode and builds every stage client.
// The variable table and interpreter are only set up for modes that need
// them.
func initPipeline(mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSecs) * time.Second
	httpClient := &http.Client{Timeout: timeout}

	f := fetcher.New(
		fetcher.HTTPOptions{UserAgent: cfg.HTTP.UserAgent, Timeout: timeout, Client: httpClient},
		fetcher.FTPOptions{Timeout: timeout},
	)

	deps := pipeline.Deps{
		Geocoder: geocode.NewMapbox(cfg.Mapbox.Token,
			geocode.WithHTTPClient(httpClient),
			geocode.WithBaseURL(cfg.Mapbox.BaseURL),
		),
		Reverse: geocode.NewNominatim(
			geocode.WithHTTPClient(httpClient),
			geocode.WithBaseURL(cfg.Nominatim.BaseURL),
			geocode.WithUserAgent(cfg.Nominatim.UserAgent),
			geocode.WithEmail(cfg.Nominatim.Email),
		),
		Boundaries: tiger.NewFetcher(f, tiger.Options{
			BaseURL:    cfg.Tiger.BaseURL,
			Year:       cfg.Tiger.Year,
			Resolution: cfg.Tiger.Resolution,
			TempDir:    cfg.Tiger.TempDir,
		}),
		Statistics: census.NewClient(f, cfg.Census.BaseURL, cfg.Census.Key),
	}

	env := &pipelineEnv{}
	if mode != "lookup" {
		table, err := census.LoadVariables(cfg.Census.VariablesFile)
		if err != nil {
			return nil, eris.Wrap(err, "load variable table")
		}
		env.Table = table

		aiClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		deps.Interpreter = interpret.New(aiClient, table, interpret.Options{
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
		})
	}

	env.Pipeline = pipeline.New(deps)

	zap.L().Debug("pipeline initialized",
		zap.String("mode", mode),
		zap.Int("variables", len(env.Table)),
		zap.Duration("http_timeout", timeout),
	)
	return env, nil
}

// resolveLevel picks the geography level from a flag value, falling back to
// config.
func resolveLevel(flagValue string) (model.GeographyLevel, error) {
	raw := flagValue
	if raw == "" {
		raw = cfg.Pipeline.Level
	}
	level, ok := model.ParseGeographyLevel(raw)
	if !ok {
		return "", eris.Errorf("unknown geography level %q (want \"block group\" or \"tract\")", raw)
	}
	return level, nil
}
