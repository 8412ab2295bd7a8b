// Package pipeline runs the neighborhood stages in order: geocode, reverse
// geocode, boundaries, interpret, statistics, then join and clip. Each stage
// depends on the one before it; the first failure stops the run.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/interpret"
	"github.com/sells-group/neighborhood-cli/internal/model"
	"github.com/sells-group/neighborhood-cli/internal/spatial"
	"github.com/sells-group/neighborhood-cli/pkg/geocode"
)

// Stage names.
const (
	StageGeocode    = "geocode"
	StageReverse    = "reverse_geocode"
	StageBoundaries = "boundaries"
	StageInterpret  = "interpret"
	StageStatistics = "statistics"
	StageJoinClip   = "join_clip"
)

// BoundaryFetcher returns the small-area polygons of one county.
type BoundaryFetcher interface {
	FetchBoundaries(ctx context.Context, state, county string, level model.GeographyLevel) ([]model.Feature, error)
}

// Interpreter turns a free-text request into a structured query.
type Interpreter interface {
	Interpret(ctx context.Context, request string, loc model.Location) (*interpret.Interpretation, error)
}

// StatisticsFetcher executes a structured query.
type StatisticsFetcher interface {
	FetchStatistics(ctx context.Context, q *model.StructuredQuery) ([]model.StatisticRow, error)
}

// Deps are the stage implementations. Interpreter and Statistics may be nil
// when only lookups are run.
type Deps struct {
	Geocoder    geocode.Geocoder
	Reverse     geocode.ReverseGeocoder
	Boundaries  BoundaryFetcher
	Interpreter Interpreter
	Statistics  StatisticsFetcher
}

// Pipeline orchestrates the stages for one request at a time. It holds no
// per-request state and may be shared.
type Pipeline struct {
	deps Deps
}

// New creates a Pipeline.
func New(deps Deps) *Pipeline {
	return &Pipeline{deps: deps}
}

// Request is one neighborhood run. An empty Query skips interpretation and
// statistics and produces an outline map.
type Request struct {
	Address     string
	Query       string
	Variable    string
	RadiusMiles float64
	Level       model.GeographyLevel
}

// Result carries everything the stages produced, including partial output
// when a stage failed.
type Result struct {
	RunID          string                    `json:"run_id"`
	Address        string                    `json:"address"`
	Coordinate     *model.Coordinate         `json:"coordinate,omitempty"`
	Location       *model.Location           `json:"location,omitempty"`
	Level          model.GeographyLevel      `json:"level,omitempty"`
	Interpretation *interpret.Interpretation `json:"-"`
	Query          *model.StructuredQuery    `json:"query,omitempty"`
	Variable       string                    `json:"variable,omitempty"`
	Rows           []model.StatisticRow      `json:"-"`
	Matched        int                       `json:"matched"`
	Buffer         *spatial.Buffer           `json:"-"`
	Features       []model.Feature           `json:"-"`
	Stages         []model.StageResult       `json:"stages"`
}

// Run executes the pipeline. On failure the returned error is a *StageError
// and the Result holds whatever earlier stages produced.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{
		RunID:   uuid.NewString(),
		Address: strings.TrimSpace(req.Address),
		Level:   req.Level,
	}
	if res.Level == "" {
		res.Level = model.LevelBlockGroup
	}
	log := zap.L().With(zap.String("run_id", res.RunID), zap.String("address", res.Address))
	log.Info("pipeline: starting run", zap.Float64("radius_miles", req.RadiusMiles), zap.String("level", string(res.Level)))

	t := &tracker{log: log, res: res}

	// Stage 1: address -> coordinate.
	if err := t.run(ctx, StageGeocode, msgGeocode, func(ctx context.Context) error {
		if res.Address == "" {
			return failure.Newf(failure.KindNotFound, "geocode", "empty address")
		}
		coord, err := p.deps.Geocoder.Geocode(ctx, res.Address)
		if err != nil {
			return err
		}
		if coord == nil {
			return failure.Newf(failure.KindNotFound, "geocode", "no results for %q", res.Address)
		}
		res.Coordinate = coord
		return nil
	}); err != nil {
		return res, err
	}

	// Stage 2: coordinate -> county and state.
	if err := t.run(ctx, StageReverse, msgReverse, func(ctx context.Context) error {
		loc, err := p.deps.Reverse.ReverseGeocode(ctx, *res.Coordinate)
		if err != nil {
			return err
		}
		if !loc.Complete() {
			return failure.Newf(failure.KindNotFound, "reverse_geocode", "no county and state for %s", res.Coordinate)
		}
		res.Location = loc
		return nil
	}); err != nil {
		return res, err
	}

	// Stage 3: county boundaries.
	var features []model.Feature
	if err := t.run(ctx, StageBoundaries, boundaryMessage(res.Level), func(ctx context.Context) error {
		fs, err := p.deps.Boundaries.FetchBoundaries(ctx, res.Location.State, res.Location.County, res.Level)
		if err != nil {
			return err
		}
		if len(fs) == 0 {
			return failure.Newf(failure.KindNotFound, "boundaries", "no %s boundaries for %s, %s", res.Level, res.Location.County, res.Location.State)
		}
		features = fs
		return nil
	}); err != nil {
		return res, err
	}

	// Stages 4 and 5 only run for a statistics request.
	if strings.TrimSpace(req.Query) == "" {
		t.skip(StageInterpret)
		t.skip(StageStatistics)
	} else if err := p.statistics(ctx, t, req.Query, req.Variable, *res.Location); err != nil {
		return res, err
	}

	// Stage 6: join, buffer and clip.
	if err := t.run(ctx, StageJoinClip, msgJoinClip, func(context.Context) error {
		joined := features
		if res.Query != nil {
			if err := checkLevel(res.Query, res.Level); err != nil {
				return err
			}
			joined, res.Matched = spatial.Join(features, res.Rows, res.Query.Variables)
			if res.Matched == 0 {
				return failure.Newf(failure.KindJoinMismatch, "join",
					"none of %d statistics rows matched %d boundaries", len(res.Rows), len(features))
			}
		}

		buf, err := spatial.NewBuffer(*res.Coordinate, req.RadiusMiles)
		if err != nil {
			return err
		}
		res.Buffer = buf

		res.Features = spatial.Clip(joined, buf)
		if len(res.Features) == 0 {
			return failure.Newf(failure.KindNotFound, "clip", "no boundaries within %g miles", req.RadiusMiles)
		}
		return nil
	}); err != nil {
		return res, err
	}

	log.Info("pipeline: run complete",
		zap.Int("features", len(res.Features)),
		zap.Int("matched", res.Matched),
		zap.String("variable", res.Variable),
	)
	return res, nil
}

// Statistics runs only the interpretation and statistics stages for a known
// location.
func (p *Pipeline) Statistics(ctx context.Context, request, variable string, loc model.Location) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Location: &loc}
	log := zap.L().With(zap.String("run_id", res.RunID))
	log.Info("pipeline: starting statistics run", zap.String("county", loc.County), zap.String("state", loc.State))

	t := &tracker{log: log, res: res}
	if err := p.statistics(ctx, t, request, variable, loc); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Pipeline) statistics(ctx context.Context, t *tracker, request, variable string, loc model.Location) error {
	res := t.res

	// Stage 4: request -> structured query.
	if err := t.run(ctx, StageInterpret, msgInterpret, func(ctx context.Context) error {
		if p.deps.Interpreter == nil {
			return failure.Newf(failure.KindConfig, "interpret", "no interpreter configured")
		}
		in, err := p.deps.Interpreter.Interpret(ctx, request, loc)
		if err != nil {
			return err
		}
		res.Interpretation = in
		res.Query = in.Query
		return nil
	}); err != nil {
		return err
	}

	// Stage 5: structured query -> statistics rows.
	return t.run(ctx, StageStatistics, msgStatistics, func(ctx context.Context) error {
		if p.deps.Statistics == nil {
			return failure.Newf(failure.KindConfig, "statistics", "no statistics client configured")
		}
		v, err := SelectVariable(res.Query, variable)
		if err != nil {
			return err
		}
		res.Variable = v

		rows, err := p.deps.Statistics.FetchStatistics(ctx, res.Query)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return failure.Newf(failure.KindNotFound, "statistics", "no statistics rows")
		}
		res.Rows = rows
		return nil
	})
}

// SelectVariable picks the variable to map and summarize. An explicit choice
// must be one of the requested variables; otherwise a single requested
// variable is used. Several requested variables with no choice is an error
// listing them.
func SelectVariable(q *model.StructuredQuery, explicit string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	if q == nil || len(q.Variables) == 0 {
		if explicit != "" {
			return "", failure.Newf(failure.KindInvalidQuery, "select_variable", "variable %s is not in the query (no variables requested)", explicit)
		}
		return "", failure.Newf(failure.KindInvalidQuery, "select_variable", "query is missing variables")
	}

	if explicit != "" {
		if !q.HasVariable(explicit) {
			return "", failure.Newf(failure.KindInvalidQuery, "select_variable",
				"variable %s is not in the query (choices: %s)", explicit, strings.Join(q.Variables, ", "))
		}
		return explicit, nil
	}

	if len(q.Variables) == 1 {
		return q.Variables[0], nil
	}
	return "", failure.Newf(failure.KindInvalidQuery, "select_variable",
		"several variables requested, choose one of: %s", strings.Join(q.Variables, ", "))
}

// checkLevel rejects a query whose geography differs from the boundaries.
func checkLevel(q *model.StructuredQuery, level model.GeographyLevel) error {
	raw := model.Deref(q.GeographyLevel)
	got, ok := model.ParseGeographyLevel(raw)
	if !ok || got != level {
		return failure.Newf(failure.KindJoinMismatch, "join",
			"query geography %q does not match boundary level %q", raw, level)
	}
	return nil
}

// tracker records stage results and converts failures into StageErrors.
type tracker struct {
	log *zap.Logger
	res *Result
}

func (t *tracker) run(ctx context.Context, name, message string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start).Milliseconds()

	sr := model.StageResult{Name: name, Duration: duration, Status: model.StageStatusComplete}
	if err != nil {
		sr.Status = model.StageStatusFailed
		sr.Error = err.Error()
		t.log.Error("pipeline: stage failed",
			zap.String("stage", name),
			zap.String("kind", string(failure.KindOf(err))),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
	} else {
		t.log.Info("pipeline: stage complete",
			zap.String("stage", name),
			zap.Int64("duration_ms", duration),
		)
	}
	t.res.Stages = append(t.res.Stages, sr)

	if err != nil {
		return &StageError{Stage: name, message: message, Err: err}
	}
	return nil
}

func (t *tracker) skip(name string) {
	t.res.Stages = append(t.res.Stages, model.StageResult{Name: name, Status: model.StageStatusSkipped})
}

// User-facing stage failure messages.
const (
	msgGeocode    = "Geocoding failed or no results found."
	msgReverse    = "Couldn't retrieve county and state information."
	msgInterpret  = "Failed to interpret the census request."
	msgStatistics = "Failed to fetch census data."
	msgJoinClip   = "Failed to join and clip census boundaries."
)

func boundaryMessage(level model.GeographyLevel) string {
	return fmt.Sprintf("Failed to retrieve %s data.", level)
}

// StageError is the failure of one stage.
type StageError struct {
	Stage   string
	message string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Message is the user-facing description of the failure.
func (e *StageError) Message() string {
	return e.message
}

// Kind is the failure kind of the underlying error.
func (e *StageError) Kind() failure.Kind {
	return failure.KindOf(e.Err)
}
