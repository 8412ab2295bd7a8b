// Package fetcher downloads remote files over HTTP or FTP and reads the
// archive and tabular formats the boundary and reference loaders consume.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/sells-group/neighborhood-cli/internal/failure"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// SchemeFetcher dispatches to the HTTP or FTP fetcher based on the URL scheme.
type SchemeFetcher struct {
	HTTP *HTTPFetcher
	FTP  *FTPFetcher
}

// New returns a SchemeFetcher wired with both transports.
func New(httpOpts HTTPOptions, ftpOpts FTPOptions) *SchemeFetcher {
	return &SchemeFetcher{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
	}
}

func (s *SchemeFetcher) pick(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, failure.New(failure.KindNetwork, "fetch", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return s.HTTP, nil
	case "ftp":
		return s.FTP, nil
	default:
		return nil, failure.Newf(failure.KindNetwork, "fetch", "unsupported scheme %q", u.Scheme)
	}
}

// Download implements Fetcher.
func (s *SchemeFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := s.pick(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

// DownloadToFile implements Fetcher.
func (s *SchemeFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	f, err := s.pick(rawURL)
	if err != nil {
		return 0, err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}

// writeBody copies body to a new file at path.
func writeBody(body io.Reader, path string) (int64, error) {
	file, err := createFile(path)
	if err != nil {
		return 0, err
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, failure.Classify("write file", err)
	}
	return n, nil
}
