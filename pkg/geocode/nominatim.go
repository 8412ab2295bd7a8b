package geocode

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/neighborhood-cli/internal/model"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org"

// nominatimResponse is the subset of the jsonv2 reverse response we read.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		County string `json:"county"`
		State  string `json:"state"`
	} `json:"address"`
}

// Nominatim reverse-geocodes coordinates with the OpenStreetMap Nominatim API.
type Nominatim struct {
	opts options
}

var _ ReverseGeocoder = (*Nominatim)(nil)

// NewNominatim creates a Nominatim reverse geocoder. Nominatim's usage policy
// requires an identifying User-Agent; set one with WithUserAgent.
func NewNominatim(opts ...Option) *Nominatim {
	return &Nominatim{opts: newOptions(nominatimBaseURL, opts)}
}

func (n *Nominatim) requestURL(coord model.Coordinate) string {
	params := url.Values{
		"format":         {"jsonv2"},
		"lat":            {strconv.FormatFloat(coord.Latitude, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(coord.Longitude, 'f', -1, 64)},
		"addressdetails": {"1"},
	}
	if n.opts.email != "" {
		params.Set("email", n.opts.email)
	}
	return strings.TrimRight(n.opts.baseURL, "/") + "/reverse?" + params.Encode()
}

// ReverseGeocode returns the county and state containing coord. When the
// response lacks either one the result is (nil, nil).
func (n *Nominatim) ReverseGeocode(ctx context.Context, coord model.Coordinate) (*model.Location, error) {
	var resp nominatimResponse
	if err := n.opts.getJSON(ctx, "reverse geocode", n.requestURL(coord), &resp); err != nil {
		return nil, err
	}

	loc := &model.Location{
		County: strings.TrimSpace(resp.Address.County),
		State:  strings.TrimSpace(resp.Address.State),
	}
	if !loc.Complete() {
		zap.L().Debug("reverse geocode: county or state missing",
			zap.String("coord", coord.String()),
			zap.String("error", resp.Error),
			zap.String("display_name", resp.DisplayName),
		)
		return nil, nil
	}
	return loc, nil
}
