// Package fetch retrieves operator feeds over HTTP. The schedule zip
// and the realtime protobufs all come through the same Downloader so
// tests can substitute canned responses. Operator APIs authenticate
// with a token query parameter, appended here via WithToken.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Size ceilings per feed kind. A schedule zip for a large operator
// runs tens of megabytes; a realtime protobuf snapshot should never
// come close to its limit.
const (
	StaticMaxSize   = 64 << 20
	RealtimeMaxSize = 8 << 20
)

type GetOptions struct {
	MaxSize  int
	Timeout  time.Duration
	Cache    bool
	CacheTTL time.Duration
}

// A thing capable of downloading a feed, optionally with caching.
type Downloader interface {
	Get(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error)
}

// UpstreamError reports a non-200 response from an operator API.
// Callers treat it as fatal for that fetch only; previously stored
// data stays in place.
type UpstreamError struct {
	URL        string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("fetching %s: upstream status %d", e.URL, e.StatusCode)
}

// WithToken appends the operator access token as the acl:consumerKey
// query parameter the operator APIs authenticate with. An empty token
// or an unparseable URL passes through untouched.
func WithToken(feedURL string, token string) string {
	if token == "" {
		return feedURL
	}
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	q := u.Query()
	q.Set("acl:consumerKey", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// HTTPGet fetches one feed. Doesn't cache. Provided as convenience
// for implementing custom Downloaders.
func HTTPGet(ctx context.Context, feedURL string, headers map[string]string, options GetOptions) ([]byte, error) {
	client := &http.Client{
		Timeout: options.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range headers {
		req.Header.Add(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{URL: feedURL, StatusCode: resp.StatusCode}
	}

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
