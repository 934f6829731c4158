package card

import (
	"regexp"
	"strings"

	"profreach-engine/pkg/domain"
)

var (
	reInterests  = regexp.MustCompile(`(?i)(research\s+)?(interests|areas|focus)\s*[:\-\x{2013}\x{2014}]?\s*(.*)`)
	rePubsHeader = regexp.MustCompile(`(?i)selected\s+publications|recent\s+publications|publications`)
	reYear       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

var hiringPhrases = []string{
	"prospective students",
	"i am looking for",
	"we are looking for",
	"openings",
	"open positions",
	"join my lab",
	"join our lab",
	"join the lab",
	"hiring",
	"recruiting",
	"phd positions",
	"positions available",
}

// Extract pulls structured card data out of raw page text with plain
// heuristics. It is the fallback when no language model is reachable, and
// good enough on conventional faculty pages.
func Extract(text string) domain.CardData {
	card := domain.CardData{
		ResearchInterests:    []string{},
		HiringSignals:        []string{},
		SelectedPublications: []string{},
	}
	if text == "" {
		return card
	}

	lines := strings.Split(text, "\n")

	// Research interests: first header line wins; items split on , or ;
	for _, line := range lines {
		m := reInterests.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		content := strings.TrimSpace(m[3])
		if content == "" {
			continue
		}
		for _, item := range regexp.MustCompile(`[,;]`).Split(content, -1) {
			if item = strings.TrimSpace(item); item != "" {
				card.ResearchInterests = append(card.ResearchInterests, item)
			}
		}
		break
	}
	if len(card.ResearchInterests) > 5 {
		card.ResearchInterests = card.ResearchInterests[:5]
	}

	// Hiring signals: lines that sound like an open call
	lowerSeen := map[string]bool{}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || len(trimmed) > 300 {
			continue
		}
		lower := strings.ToLower(trimmed)
		for _, phrase := range hiringPhrases {
			if strings.Contains(lower, phrase) && !lowerSeen[lower] {
				lowerSeen[lower] = true
				card.HiringSignals = append(card.HiringSignals, trimmed)
				break
			}
		}
		if len(card.HiringSignals) >= 3 {
			break
		}
	}

	// Publications: citation-looking lines after a publications header
	pubIdx := -1
	for i, line := range lines {
		if rePubsHeader.MatchString(line) {
			pubIdx = i
			break
		}
	}
	if pubIdx != -1 {
		end := pubIdx + 50
		if end > len(lines) {
			end = len(lines)
		}
		for _, line := range lines[pubIdx+1 : end] {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if reYear.MatchString(line) && len(line) > 50 {
				card.SelectedPublications = append(card.SelectedPublications, line)
				if len(card.SelectedPublications) >= 3 {
					break
				}
			}
		}
	}

	// Summary: first substantial paragraph near the top
	limit := 20
	if limit > len(lines) {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		if line = strings.TrimSpace(line); len(line) > 100 {
			if len(line) > 300 {
				line = line[:300] + "..."
			}
			card.Summary = line
			break
		}
	}

	return card
}
