package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"profreach-engine/pkg/domain"
)

const parseSystem = "You extract professor info from search results. Output a JSON object with keys name, affiliation, role, confidence."

// ParseSearchResult asks the model to resolve one search result into a
// professor profile. Returns an error when the model is unavailable or the
// output is unusable; callers fall back to rule-based parsing.
func (c *Client) ParseSearchResult(ctx context.Context, query string, cand domain.SearchCandidate) (*domain.ParseResult, error) {
	prompt := fmt.Sprintf(`Query: %q

Result: Title=%q, Snippet=%q, Link=%q

Extract the professor's info. Return a JSON object with keys:
"name" (string), "affiliation" (string or null), "role" (string or null), "confidence" (0.0-1.0).
If the title is generic like "GitHub Pages" or "Home", infer the name from the query.`,
		query, cand.Title, cand.Snippet, cand.Link)

	text, err := c.Chat(ctx, parseSystem, prompt, true)
	if err != nil {
		return nil, err
	}

	var out domain.ParseResult
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	if out.Name == "" {
		return nil, fmt.Errorf("model returned no name")
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}
	return &out, nil
}
