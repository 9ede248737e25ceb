package remotezip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RangeFetcher is the single network primitive of the extraction pipeline:
// byte-range GETs and a length probe against a URL.
type RangeFetcher interface {
	// FetchRange returns the bytes [start, end] (inclusive both ends).
	FetchRange(ctx context.Context, url string, start, end int64) ([]byte, error)
	// ProbeLength returns the total content length of the resource.
	ProbeLength(ctx context.Context, url string) (int64, error)
}

// HTTPRangeFetcher implements RangeFetcher over plain HTTP. It performs no
// retries and no caching; a non-2xx response is a hard failure for the call.
type HTTPRangeFetcher struct {
	client *http.Client
}

// NewHTTPRangeFetcherParams configures an HTTPRangeFetcher.
type NewHTTPRangeFetcherParams struct {
	Timeout time.Duration
}

func NewHTTPRangeFetcher(params NewHTTPRangeFetcherParams) *HTTPRangeFetcher {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRangeFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPRangeFetcher) FetchRange(ctx context.Context, url string, start, end int64) ([]byte, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid byte range %d-%d", start, end)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create range request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("range fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("range fetch returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read range body: %w", err)
	}
	return body, nil
}

func (f *HTTPRangeFetcher) ProbeLength(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create probe request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("length probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("length probe returned status %d for %s", resp.StatusCode, url)
	}
	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("length probe returned no content length for %s", url)
	}
	return resp.ContentLength, nil
}
