package search

import (
	"regexp"
	"strings"

	"profreach-engine/pkg/domain"
)

// Rule-based parsing of a single search result into a professor draft.
// Used as the fallback when the language model is unavailable or fails;
// its confidence is fixed low so callers keep their heuristic fields.

const fallbackConfidence = 0.3

var genericTitles = map[string]bool{
	"github pages": true,
	"home":         true,
	"home page":    true,
	"homepage":     true,
	"welcome":      true,
	"profile":      true,
	"bio":          true,
	"about":        true,
}

var titleSeparators = []string{" - ", " | ", " – ", " — ", " : ", " at "}

// Only capitalized words count toward the institution name.
var reAffiliation = regexp.MustCompile(`\b((?:[A-Z][A-Za-z&\.\-']*\s+){0,4}(?:University|Institute|College|Polytechnic|Laborator(?:y|ies)|ETH|MIT)(?:\s+of\s+[A-Z][A-Za-z\-']+(?:\s+[A-Z][A-Za-z\-']+)?)?)`)

// ParseResultFallback derives name and affiliation from the raw result text.
func ParseResultFallback(query string, cand domain.SearchCandidate) domain.ParseResult {
	name := strings.TrimSpace(cand.Title)

	if genericTitles[strings.ToLower(name)] {
		name = titleCase(query)
	} else {
		for _, sep := range titleSeparators {
			if idx := strings.Index(cand.Title, sep); idx >= 0 {
				potential := strings.TrimSpace(cand.Title[:idx])
				if potential != "" && len(strings.Fields(potential)) <= 4 {
					name = potential
					break
				}
			}
		}
	}

	return domain.ParseResult{
		Name:        name,
		Affiliation: ExtractAffiliation(cand.Title, cand.Snippet),
		Confidence:  fallbackConfidence,
	}
}

// ExtractAffiliation looks for an institution name in the title, then the
// snippet. Returns "" when nothing convincing appears.
func ExtractAffiliation(title, snippet string) string {
	for _, text := range []string{title, snippet} {
		m := reAffiliation.FindString(text)
		m = strings.TrimSpace(m)
		if m != "" && len(m) >= 3 {
			return m
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
