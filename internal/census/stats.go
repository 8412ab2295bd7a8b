package census

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/fetcher"
	"github.com/sells-group/neighborhood-cli/internal/model"
)

// DefaultBaseURL is the Census Data API root.
const DefaultBaseURL = "https://api.census.gov/data"

// geoColumns are the geography columns that make up a GEOID, in order.
var geoColumns = []string{"state", "county", "tract", "block group"}

// Client fetches statistics tables from the Census Data API.
type Client struct {
	fetcher fetcher.Fetcher
	baseURL string
	key     string
}

// NewClient creates a statistics client. key may be empty; the API allows a
// small number of unauthenticated requests.
func NewClient(f fetcher.Fetcher, baseURL, key string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{fetcher: f, baseURL: strings.TrimRight(baseURL, "/"), key: key}
}

// forClause renders a geography level in Census "for" syntax with a wildcard.
func forClause(level string) string {
	level = strings.TrimSpace(level)
	if strings.Contains(level, ":") {
		return level
	}
	if l, ok := model.ParseGeographyLevel(level); ok {
		level = string(l)
	}
	return level + ":*"
}

// RequestURL builds the API URL for q. Missing query fields are an
// invalid_query failure.
func (c *Client) RequestURL(q *model.StructuredQuery) (string, error) {
	if missing := q.Missing(); len(missing) > 0 {
		return "", failure.Newf(failure.KindInvalidQuery, "census", "query is missing %s", strings.Join(missing, ", "))
	}

	params := url.Values{}
	params.Set("get", "NAME,"+strings.Join(q.Variables, ","))
	params.Set("for", forClause(*q.GeographyLevel))
	params.Set("in", "state:"+strings.TrimSpace(*q.StateFIPS)+" county:"+strings.TrimSpace(*q.CountyFIPS))
	if c.key != "" {
		params.Set("key", c.key)
	}

	dataset := strings.Trim(strings.TrimSpace(*q.Dataset), "/")
	return c.baseURL + "/" + strings.TrimSpace(*q.Year) + "/" + dataset + "?" + params.Encode(), nil
}

// FetchStatistics runs q against the Census Data API and returns one row per
// small area, keyed by the GEOID built from the geography columns.
func (c *Client) FetchStatistics(ctx context.Context, q *model.StructuredQuery) ([]model.StatisticRow, error) {
	reqURL, err := c.RequestURL(q)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("component", "census.stats"),
		zap.String("dataset", model.Deref(q.Dataset)),
		zap.String("year", model.Deref(q.Year)),
		zap.Strings("variables", q.Variables),
	)

	body, err := c.fetcher.Download(ctx, reqURL)
	if err != nil {
		var fe *failure.Error
		if errors.As(err, &fe) && fe.StatusCode == http.StatusNoContent {
			// The API answers 204 when the geography has no rows.
			return nil, failure.Newf(failure.KindNotFound, "census", "no statistics for query")
		}
		log.Warn("census: request failed", zap.Error(err))
		return nil, eris.Wrap(err, "census: fetch statistics")
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, failure.Classify("census", eris.Wrap(err, "read response"))
	}

	rows, err := ParseResponse(data)
	if err != nil {
		log.Warn("census: unusable response", zap.Error(err))
		return nil, err
	}
	log.Info("census: fetched statistics", zap.Int("rows", len(rows)))
	return rows, nil
}

// ParseResponse decodes a Census Data API array-of-arrays response. The first
// row is the header.
func ParseResponse(data []byte) ([]model.StatisticRow, error) {
	var raw [][]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, failure.New(failure.KindMalformed, "census", eris.Wrap(err, "decode response")).WithRaw(snippet(data))
	}
	if len(raw) == 0 {
		return nil, failure.Newf(failure.KindMalformed, "census", "response has no header row").WithRaw(snippet(data))
	}

	header := make([]string, len(raw[0]))
	colIdx := make(map[string]int, len(header))
	for i, h := range raw[0] {
		if h == nil {
			return nil, failure.Newf(failure.KindMalformed, "census", "null header cell %d", i).WithRaw(snippet(data))
		}
		header[i] = *h
		colIdx[*h] = i
	}

	var idCols []int
	for _, g := range geoColumns {
		if i, ok := colIdx[g]; ok {
			idCols = append(idCols, i)
		}
	}
	if len(idCols) == 0 {
		return nil, failure.Newf(failure.KindMalformed, "census", "response has no geography columns: %v", header).WithRaw(snippet(data))
	}

	if len(raw) == 1 {
		return nil, failure.Newf(failure.KindNotFound, "census", "no statistics rows")
	}

	isGeo := make(map[int]bool, len(idCols))
	for _, i := range idCols {
		isGeo[i] = true
	}

	rows := make([]model.StatisticRow, 0, len(raw)-1)
	for _, rec := range raw[1:] {
		if len(rec) != len(header) {
			return nil, failure.Newf(failure.KindMalformed, "census", "row has %d cells, header has %d", len(rec), len(header))
		}
		var id strings.Builder
		for _, i := range idCols {
			if rec[i] != nil {
				id.WriteString(*rec[i])
			}
		}
		values := make(map[string]string, len(header)-len(idCols))
		for i, h := range header {
			if isGeo[i] {
				continue
			}
			if rec[i] != nil {
				values[h] = *rec[i]
			} else {
				values[h] = ""
			}
		}
		rows = append(rows, model.StatisticRow{ID: id.String(), Values: values})
	}
	return rows, nil
}

func snippet(data []byte) string {
	const n = 500
	if len(data) > n {
		return string(data[:n])
	}
	return string(data)
}
