package card

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"profreach-engine/internal/llm"
	"profreach-engine/internal/store"
	"profreach-engine/pkg/domain"
)

// ErrNoSourceText is returned when card generation is attempted before any
// page text has been ingested. Handlers surface it as a client error, never
// as an empty card.
var ErrNoSourceText = errors.New("no source text available; ingest a URL first")

type Service struct {
	DB  *sql.DB
	LLM *llm.Client
}

const cardSystem = "You summarize a professor's research page. Output a JSON object with keys summary (string), research_interests (array of strings, max 5), hiring_signals (array of strings), selected_publications (array of strings, max 3)."

// Generate builds a new research card from the latest ingested text and
// appends it; earlier card versions are never modified.
func (s *Service) Generate(ctx context.Context, professorID int64) (domain.ProfessorCard, error) {
	text, err := store.LatestSourceText(ctx, s.DB, professorID)
	if err != nil {
		return domain.ProfessorCard{}, err
	}
	if text == "" {
		return domain.ProfessorCard{}, ErrNoSourceText
	}

	data := s.extract(ctx, text)

	cardJSON, err := json.Marshal(data)
	if err != nil {
		return domain.ProfessorCard{}, err
	}

	return store.InsertCard(ctx, s.DB, professorID, RenderMarkdown(data), string(cardJSON))
}

func (s *Service) extract(ctx context.Context, text string) domain.CardData {
	if s.LLM.Enabled() {
		if data, err := s.extractLLM(ctx, text); err == nil {
			return data
		} else {
			log.Printf("[card] llm extraction failed, using heuristics: %v", err)
		}
	}
	return Extract(text)
}

func (s *Service) extractLLM(ctx context.Context, text string) (domain.CardData, error) {
	// cap prompt size; faculty pages can drag in entire publication lists
	const maxChars = 12000
	if len(text) > maxChars {
		text = text[:maxChars]
	}

	out, err := s.LLM.Chat(ctx, cardSystem, text, true)
	if err != nil {
		return domain.CardData{}, err
	}

	var data domain.CardData
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		return domain.CardData{}, fmt.Errorf("parse card output: %w", err)
	}
	if data.Summary == "" && len(data.ResearchInterests) == 0 {
		return domain.CardData{}, errors.New("model returned an empty card")
	}
	if len(data.ResearchInterests) > 5 {
		data.ResearchInterests = data.ResearchInterests[:5]
	}
	if data.ResearchInterests == nil {
		data.ResearchInterests = []string{}
	}
	if data.HiringSignals == nil {
		data.HiringSignals = []string{}
	}
	return data, nil
}

// RenderMarkdown produces the human-readable side of a card.
func RenderMarkdown(d domain.CardData) string {
	var b strings.Builder

	b.WriteString("## Summary\n")
	if d.Summary != "" {
		b.WriteString(d.Summary)
	} else {
		b.WriteString("_No summary extracted._")
	}
	b.WriteString("\n\n## Interests\n")
	if len(d.ResearchInterests) == 0 {
		b.WriteString("_None extracted._\n")
	}
	for _, i := range d.ResearchInterests {
		fmt.Fprintf(&b, "- %s\n", i)
	}

	if len(d.HiringSignals) > 0 {
		b.WriteString("\n## Hiring Signals\n")
		for _, h := range d.HiringSignals {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	if len(d.SelectedPublications) > 0 {
		b.WriteString("\n## Selected Publications\n")
		for _, p := range d.SelectedPublications {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
