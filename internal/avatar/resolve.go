package avatar

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"profreach-engine/internal/llm"
	"profreach-engine/internal/store"
	"profreach-engine/internal/webutil"
)

// Service resolves a professor's website into a verified profile photo URL.
// An absent photo is a normal outcome, never an error.
type Service struct {
	DB      *sql.DB
	LLM     *llm.Client
	Limiter *webutil.HostLimiter

	client *http.Client
}

func NewService(db *sql.DB, llmClient *llm.Client, limiter *webutil.HostLimiter) *Service {
	return &Service{
		DB:      db,
		LLM:     llmClient,
		Limiter: limiter,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve scrapes image candidates from websiteURL, verifies the top ones
// with the vision model, and returns the best match ("" when none). name, when
// known, steers the vision check toward that person's headshot. Results are
// cached per website so repeated dialog openings don't re-run the model.
func (s *Service) Resolve(ctx context.Context, websiteURL, name string) (string, error) {
	if cached, ok, err := store.CachedAvatar(ctx, s.DB, websiteURL); err == nil && ok {
		log.Printf("[avatar] cache hit for %s", websiteURL)
		return cached, nil
	}

	if !webutil.IsSafeURL(websiteURL) {
		return "", nil
	}

	html, err := s.fetchPage(ctx, websiteURL)
	if err != nil {
		log.Printf("[avatar] page fetch failed url=%s err=%v", websiteURL, err)
		_ = store.CacheAvatar(ctx, s.DB, websiteURL, "")
		return "", nil
	}

	candidates := CandidatesFromHTML(html, websiteURL)
	log.Printf("[avatar] %d candidates for %s", len(candidates), websiteURL)
	if len(candidates) == 0 {
		_ = store.CacheAvatar(ctx, s.DB, websiteURL, "")
		return "", nil
	}

	best := s.verify(ctx, candidates, name)
	_ = store.CacheAvatar(ctx, s.DB, websiteURL, best)
	return best, nil
}

// verify downloads and vision-checks candidates in parallel, then picks the
// best-ranked one that passed. Without a vision model the top-scored
// candidate wins outright.
func (s *Service) verify(ctx context.Context, candidates []string, name string) string {
	if !s.LLM.Enabled() {
		return candidates[0]
	}

	passed := make([]bool, len(candidates))
	var mu sync.Mutex

	var g errgroup.Group
	for i, u := range candidates {
		i, u := i, u
		g.Go(func() error {
			img, err := s.download(ctx, u)
			if err != nil {
				log.Printf("[avatar] download failed url=%s err=%v", u, err)
				return nil
			}
			verdict, err := s.LLM.VerifyAvatar(ctx, img, name)
			if err != nil {
				log.Printf("[avatar] vision check failed url=%s err=%v", u, err)
				return nil
			}
			if verdict.Valid() {
				mu.Lock()
				passed[i] = true
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := range candidates {
		if passed[i] {
			return candidates[i]
		}
	}
	return ""
}

func (s *Service) fetchPage(ctx context.Context, rawURL string) (string, error) {
	b, err := s.get(ctx, rawURL, 2<<20)
	return string(b), err
}

func (s *Service) download(ctx context.Context, rawURL string) ([]byte, error) {
	if !webutil.IsSafeURL(rawURL) {
		return nil, fmt.Errorf("unsafe url")
	}
	const maxImage = 5 << 20
	return s.get(ctx, rawURL, maxImage)
}

func (s *Service) get(ctx context.Context, rawURL string, maxBytes int64) ([]byte, error) {
	if err := s.Limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %s", resp.Status)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > maxBytes {
		return nil, fmt.Errorf("body too large")
	}
	return b, nil
}
