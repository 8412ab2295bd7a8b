package geocode

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/model"
)

const mapboxBaseURL = "https://api.mapbox.com"

// mapboxResponse is the subset of the Mapbox Geocoding v5 response we read.
type mapboxResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"` // [lon, lat]
	} `json:"features"`
}

// Mapbox geocodes addresses with the Mapbox Geocoding v5 API.
type Mapbox struct {
	token string
	opts  options
}

var _ Geocoder = (*Mapbox)(nil)

// NewMapbox creates a Mapbox geocoder using the given access token.
func NewMapbox(token string, opts ...Option) *Mapbox {
	return &Mapbox{token: token, opts: newOptions(mapboxBaseURL, opts)}
}

func (m *Mapbox) requestURL(address string) string {
	params := url.Values{
		"access_token": {m.token},
		"limit":        {"1"},
	}
	return strings.TrimRight(m.opts.baseURL, "/") +
		"/geocoding/v5/mapbox.places/" + url.PathEscape(address) + ".json?" + params.Encode()
}

// Geocode returns the coordinate of the best match for address. No match is a
// not_found failure.
func (m *Mapbox) Geocode(ctx context.Context, address string) (*model.Coordinate, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, failure.Newf(failure.KindNotFound, "geocode", "empty address")
	}

	var resp mapboxResponse
	if err := m.opts.getJSON(ctx, "geocode", m.requestURL(address), &resp); err != nil {
		return nil, err
	}

	if len(resp.Features) == 0 {
		return nil, failure.Newf(failure.KindNotFound, "geocode", "no results for %q", address)
	}

	best := resp.Features[0]
	if len(best.Center) < 2 {
		return nil, failure.Newf(failure.KindMalformed, "geocode", "feature center has %d values", len(best.Center))
	}

	coord := &model.Coordinate{Latitude: best.Center[1], Longitude: best.Center[0]}
	if err := coord.Validate(); err != nil {
		return nil, failure.New(failure.KindMalformed, "geocode", err)
	}

	zap.L().Debug("geocode: matched",
		zap.String("address", address),
		zap.String("place_name", best.PlaceName),
		zap.Float64("lat", coord.Latitude),
		zap.Float64("lon", coord.Longitude),
	)
	return coord, nil
}
