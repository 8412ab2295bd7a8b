// Package tiger fetches Census cartographic boundary shapefiles for one
// county and converts them to go-geom features.
package tiger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/fetcher"
	"github.com/sells-group/neighborhood-cli/internal/model"
)

// DefaultBaseURL is the root of the Census geography download tree.
const DefaultBaseURL = "https://www2.census.gov/geo/tiger"

// Options configures a boundary Fetcher.
type Options struct {
	BaseURL    string // http(s) or ftp root containing GENZ{year}/
	Year       int
	Resolution string // "500k", "5m" or "20m"
	TempDir    string // parent for per-request download directories; "" uses os.TempDir
}

// Fetcher downloads and filters cartographic boundary files.
type Fetcher struct {
	fetcher fetcher.Fetcher
	opts    Options
}

// NewFetcher creates a boundary Fetcher.
func NewFetcher(f fetcher.Fetcher, opts Options) *Fetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Year == 0 {
		opts.Year = 2022
	}
	if opts.Resolution == "" {
		opts.Resolution = "500k"
	}
	return &Fetcher{fetcher: f, opts: opts}
}

// Year returns the boundary vintage.
func (f *Fetcher) Year() int {
	return f.opts.Year
}

// FileName returns the archive name for a state and level, e.g.
// cb_2022_48_bg_500k.zip.
func (f *Fetcher) FileName(stateFIPS string, level model.GeographyLevel) string {
	return fmt.Sprintf("cb_%d_%s_%s_%s.zip", f.opts.Year, stateFIPS, level.FileToken(), f.opts.Resolution)
}

// URL returns the download URL for a state and level.
func (f *Fetcher) URL(stateFIPS string, level model.GeographyLevel) string {
	return strings.TrimRight(f.opts.BaseURL, "/") +
		fmt.Sprintf("/GENZ%d/shp/", f.opts.Year) + f.FileName(stateFIPS, level)
}

// FetchBoundaries downloads the state file for level and returns the features
// in the given county. The download directory is removed before returning.
func (f *Fetcher) FetchBoundaries(ctx context.Context, state, county string, level model.GeographyLevel) ([]model.Feature, error) {
	st, err := ResolveState(state)
	if err != nil {
		return nil, err
	}
	matcher, err := NewCountyMatcher(county, st)
	if err != nil {
		return nil, err
	}

	url := f.URL(st.FIPS, level)
	log := zap.L().With(
		zap.String("component", "tiger.boundary"),
		zap.String("state", st.Abbr),
		zap.String("county", county),
		zap.String("url", url),
	)

	dir, err := os.MkdirTemp(f.opts.TempDir, "neighborhood-cb-*")
	if err != nil {
		return nil, eris.Wrap(err, "tiger: create temp dir")
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warn("tiger: remove temp dir", zap.String("dir", dir), zap.Error(rmErr))
		}
	}()

	start := time.Now()
	zipPath := filepath.Join(dir, f.FileName(st.FIPS, level))
	n, err := f.fetcher.DownloadToFile(ctx, url, zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "tiger: download boundaries")
	}
	log.Info("tiger: downloaded boundary file",
		zap.Int64("bytes", n),
		zap.Duration("elapsed", time.Since(start)),
	)

	extracted, err := fetcher.ExtractZIP(zipPath, filepath.Join(dir, "shp"))
	if err != nil {
		return nil, eris.Wrap(err, "tiger: extract boundaries")
	}
	shpPath, ok := fetcher.FindByExt(extracted, ".shp")
	if !ok {
		return nil, failure.Newf(failure.KindMalformed, "tiger", "no .shp file in %s", filepath.Base(zipPath))
	}

	all, err := ReadFeatures(shpPath)
	if err != nil {
		return nil, err
	}

	features, err := FilterCounty(all, matcher)
	if err != nil {
		return nil, err
	}
	log.Info("tiger: filtered boundaries",
		zap.Int("state_features", len(all)),
		zap.Int("county_features", len(features)),
	)
	if len(features) == 0 {
		return nil, failure.Newf(failure.KindNotFound, "tiger", "no %s boundaries for county %q in %s", level, county, st.Name)
	}
	return features, nil
}
