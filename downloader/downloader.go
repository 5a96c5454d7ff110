// Package downloader fetches remote resources with optional caching.
// The planner uses it for the GTFS zip, the Overpass trail query and
// Hebcal candle-lighting times, each with its own cache TTL.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type GetOptions struct {
	MaxSize  int
	Timeout  time.Duration
	Cache    bool
	CacheTTL time.Duration
}

// A thing capable of downloading a resource, optionally with caching.
// PostForm covers APIs like Overpass that take the query in a form
// body.
type Downloader interface {
	Get(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error)
	PostForm(ctx context.Context, url string, form url.Values, options GetOptions) ([]byte, error)
}

// cacheKey identifies a request in the caches. Form requests to the
// same URL with different bodies must not collide.
func cacheKey(rawURL string, form url.Values) string {
	if len(form) == 0 {
		return rawURL
	}
	return rawURL + "#" + form.Encode()
}

// Gets a resource. Doesn't cache. Provided as convenience for
// implementing custom Downloaders.
func HTTPGet(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range headers {
		req.Header.Add(k, v)
	}

	return doRequest(req, options)
}

// Posts a form and returns the response body. Doesn't cache.
func HTTPPostForm(ctx context.Context, url string, form url.Values, options GetOptions) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return doRequest(req, options)
}

func doRequest(req *http.Request, options GetOptions) ([]byte, error) {
	client := &http.Client{
		Timeout: options.Timeout,
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if options.MaxSize > 0 {
		reader = io.LimitReader(resp.Body, int64(options.MaxSize))
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return body, nil
}
