package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/neighborhood-cli/internal/census"
	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/model"
	"github.com/sells-group/neighborhood-cli/internal/pipeline"
	"github.com/sells-group/neighborhood-cli/internal/render"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the neighborhood map over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline("serve")
		if err != nil {
			return err
		}

		level, err := resolveLevel("")
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		s := &server{
			runner: env.Pipeline,
			table:  env.Table,
			radius: cfg.Pipeline.DemographicsRadiusMiles,
			level:  level,
			bins:   cfg.Render.HistogramBins,
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(s, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// neighborhoodRunner runs one pipeline request.
type neighborhoodRunner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// server answers map, histogram and JSON requests. Each request runs the
// pipeline from scratch.
type server struct {
	runner neighborhoodRunner
	table  census.VariableTable
	radius float64
	level  model.GeographyLevel
	bins   int
}

// buildRouter mounts the routes behind request ID, recovery and CORS
// middleware.
func buildRouter(s *server, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", s.handleForm)
	r.Get("/map", s.handleMap)
	r.Get("/histogram", s.handleHistogram)
	r.Post("/api/v1/neighborhood", s.handleNeighborhood)
	return r
}

// neighborhoodRequest is the JSON body of POST /api/v1/neighborhood.
type neighborhoodRequest struct {
	Address     string  `json:"address"`
	Request     string  `json:"request"`
	Variable    string  `json:"variable"`
	RadiusMiles float64 `json:"radius_miles"`
	Level       string  `json:"level"`
}

// neighborhoodResponse is the JSON answer.
type neighborhoodResponse struct {
	*pipeline.Result
	VariableLabel string          `json:"variable_label,omitempty"`
	Summary       *render.Summary `json:"summary,omitempty"`
	Features      json.RawMessage `json:"features"`
}

func (s *server) request(in neighborhoodRequest) (pipeline.Request, error) {
	req := pipeline.Request{
		Address:     strings.TrimSpace(in.Address),
		Query:       strings.TrimSpace(in.Request),
		Variable:    strings.TrimSpace(in.Variable),
		RadiusMiles: in.RadiusMiles,
		Level:       s.level,
	}
	if req.Address == "" {
		return req, failure.Newf(failure.KindInvalidQuery, "request", "address is required")
	}
	if req.RadiusMiles <= 0 {
		req.RadiusMiles = s.radius
	}
	if in.Level != "" {
		level, ok := model.ParseGeographyLevel(in.Level)
		if !ok {
			return req, failure.Newf(failure.KindInvalidQuery, "request", "unknown geography level %q", in.Level)
		}
		req.Level = level
	}
	return req, nil
}

func (s *server) requestFromQuery(r *http.Request) (pipeline.Request, error) {
	q := r.URL.Query()
	in := neighborhoodRequest{
		Address:  q.Get("address"),
		Request:  q.Get("request"),
		Variable: q.Get("variable"),
		Level:    q.Get("level"),
	}
	if raw := q.Get("radius"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return pipeline.Request{}, failure.Newf(failure.KindInvalidQuery, "request", "invalid radius %q", raw)
		}
		in.RadiusMiles = v
	}
	return s.request(in)
}

func (s *server) handleNeighborhood(w http.ResponseWriter, r *http.Request) {
	var in neighborhoodRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req, err := s.request(in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.runner.Run(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	features, err := render.GeoJSON(res.Features)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := neighborhoodResponse{Result: res, Features: features}
	if res.Variable != "" {
		resp.VariableLabel = s.table.Label(res.Variable)
	}
	if sum, ok := res.Summary(); ok {
		resp.Summary = &sum
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleMap(w http.ResponseWriter, r *http.Request) {
	req, err := s.requestFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.runner.Run(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.Map(w, res.MapInput(s.table.Label(res.Variable))); err != nil {
		zap.L().Error("render map", zap.String("run_id", res.RunID), zap.Error(err))
	}
}

func (s *server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	req, err := s.requestFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Query == "" {
		writeError(w, r, failure.Newf(failure.KindInvalidQuery, "request", "request is required for a histogram"))
		return
	}
	res, err := s.runner.Run(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	values := res.Values()
	if len(values) == 0 {
		writeError(w, r, failure.Newf(failure.KindNotFound, "histogram", "no numeric values for %s inside the buffer", res.Variable))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.Histogram(w, res.Variable, values, s.bins); err != nil {
		zap.L().Error("render histogram", zap.String("run_id", res.RunID), zap.Error(err))
	}
}

func (s *server) handleForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := formTemplate.Execute(w, s.radius); err != nil {
		zap.L().Error("render form", zap.Error(err))
	}
}

// statusFor maps a failure kind to an HTTP status code.
func statusFor(err error) int {
	switch failure.KindOf(err) {
	case failure.KindNotFound:
		return http.StatusNotFound
	case failure.KindInterpretation, failure.KindInvalidQuery, failure.KindJoinMismatch:
		return http.StatusUnprocessableEntity
	case failure.KindTimeout:
		return http.StatusGatewayTimeout
	case failure.KindService, failure.KindNetwork, failure.KindMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := map[string]string{
		"error": err.Error(),
		"kind":  string(failure.KindOf(err)),
	}
	var se *pipeline.StageError
	if errors.As(err, &se) {
		body["stage"] = se.Stage
		body["message"] = se.Message()
	}
	if raw := failure.RawOf(err); raw != "" {
		body["raw"] = raw
	}

	zap.L().Warn("request failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Census Data Map</title>
<style>
body { font-family: Arial, sans-serif; margin: 2em; max-width: 40em; }
label { display: block; margin-top: 1em; }
input { width: 100%; padding: 0.4em; }
button { margin-top: 1.5em; padding: 0.5em 1.5em; }
</style>
</head>
<body>
<h1>Census Data Map</h1>
<p>Enter an address and the census data you want to see. The map shows block groups within {{.}} miles.</p>
<form action="/map" method="get">
<label>Address <input name="address" required placeholder="1600 Pennsylvania Ave NW, Washington, DC"></label>
<label>Census data request <input name="request" placeholder="median household income"></label>
<label>Variable (when the request names several) <input name="variable"></label>
<button type="submit">Map</button>
</form>
</body>
</html>
`))
