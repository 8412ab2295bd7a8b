// Package geocode resolves free-text addresses to coordinates (Mapbox) and
// coordinates to the county and state that contain them (Nominatim).
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/model"
)

// Geocoder resolves an address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*model.Coordinate, error)
}

// ReverseGeocoder resolves a coordinate to its administrative location.
// A nil location with a nil error means the service had no county or state.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, coord model.Coordinate) (*model.Location, error)
}

// Option configures a geocoding client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	email      string
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithBaseURL overrides the service base URL.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithEmail sets the contact address Nominatim asks heavy users to provide.
func WithEmail(email string) Option {
	return func(o *options) {
		o.email = email
	}
}

func newOptions(baseURL string, opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		userAgent:  "neighborhood-cli/1.0",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// getJSON performs a single GET and decodes a 200 response into out.
func (o options) getJSON(ctx context.Context, op, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return failure.New(failure.KindNetwork, op, eris.Wrap(err, "build request"))
	}
	req.Header.Set("User-Agent", o.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return failure.Classify(op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure.Classify(op, err)
	}

	if resp.StatusCode != http.StatusOK {
		zap.L().Debug("geocode: non-200 response",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 200)),
		)
		return failure.Status(op, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return failure.New(failure.KindMalformed, op, eris.Wrap(err, "decode response")).WithRaw(truncate(string(body), 500))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
