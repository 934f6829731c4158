package search

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"profreach-engine/internal/webutil"
	"profreach-engine/pkg/domain"
)

const ddgEndpoint = "https://html.duckduckgo.com/html/"

// Client scrapes DuckDuckGo's HTML endpoint. Provider failures degrade to an
// empty result list; search is never fatal.
type Client struct {
	MaxResults int
	Limiter    *webutil.HostLimiter

	httpClient *http.Client
}

func NewClient(maxResults int, limiter *webutil.HostLimiter) *Client {
	return &Client{
		MaxResults: maxResults,
		Limiter:    limiter,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Search(ctx context.Context, query string) []domain.SearchCandidate {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchCandidate{}
	}

	results, err := c.search(ctx, query)
	if err != nil {
		log.Printf("[search] provider error query=%q err=%v", query, err)
		return []domain.SearchCandidate{}
	}
	return results
}

func (c *Client) search(ctx context.Context, query string) ([]domain.SearchCandidate, error) {
	if err := c.Limiter.Wait(ctx, ddgEndpoint); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ddgEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	max := c.MaxResults
	if max <= 0 {
		max = 5
	}

	out := []domain.SearchCandidate{}
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find(".result__a")
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		cand := domain.SearchCandidate{
			Title:   strings.TrimSpace(link.Text()),
			Link:    decodeRedirect(href),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		}
		if cand.Title == "" || cand.Link == "" {
			return true
		}
		out = append(out, cand)
		return len(out) < max
	})

	return out, nil
}

// decodeRedirect unwraps DuckDuckGo's /l/?uddg=… redirect links.
func decodeRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
		return target
	}
	if u.Scheme == "" {
		u.Scheme = "https"
		if u.Host == "" {
			u.Host = "duckduckgo.com"
		}
		return u.String()
	}
	return href
}
