package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"profreach-engine/internal/webutil"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// FetchResult mirrors what gets persisted to a SourcePage: a failed fetch is
// a recorded outcome, not an error.
type FetchResult struct {
	SourceURL string
	RawHTML   string
	Failed    bool
	ErrorMsg  string
}

type Fetcher struct {
	client  *http.Client
	limiter *webutil.HostLimiter
}

func NewFetcher(timeout time.Duration, limiter *webutil.HostLimiter) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// Fetch downloads the page, retrying transient failures a couple of times.
// The result always carries the URL that was asked for; callers persist
// whatever happened.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) FetchResult {
	res := FetchResult{SourceURL: rawURL}

	if !webutil.IsSafeURL(rawURL) {
		res.Failed = true
		res.ErrorMsg = "url rejected (unsafe or unresolvable)"
		return res
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				res.Failed = true
				res.ErrorMsg = ctx.Err().Error()
				return res
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			res.Failed = true
			res.ErrorMsg = err.Error()
			return res
		}

		html, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			res.RawHTML = html
			return res
		}
		lastErr = err
	}

	res.Failed = true
	res.ErrorMsg = lastErr.Error()
	return res
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %s", resp.Status)
	}

	const maxBody = 4 << 20 // 4MB is plenty for a faculty page
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
