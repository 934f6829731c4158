package emaildraft

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

// ErrNoName is returned when the professor record has no name to address the
// email to. Handlers surface it as a client error.
var ErrNoName = errors.New("professor has no name")

type Service struct {
	DB  *sql.DB
	LLM *llm.Client
}

// Generate builds a new outreach draft for the professor and appends it to
// the draft history. Options are normalized first, so the template defaults
// to the professor's target role. When the LLM is reachable the deterministic
// draft is rewritten by it; otherwise the template fill is returned as is.
func (s *Service) Generate(ctx context.Context, userID, professorID int64, opts domain.DraftOptions) (domain.EmailDraft, error) {
	prof, err := store.GetProfessor(ctx, s.DB, userID, professorID)
	if err != nil {
		return domain.EmailDraft{}, err
	}
	if strings.TrimSpace(prof.Name) == "" {
		return domain.EmailDraft{}, ErrNoName
	}
	opts = opts.Normalize(prof.TargetRole)

	var card *domain.CardData
	if latest := prof.LatestCard(); latest != nil {
		d := latest.Data()
		card = &d
	}

	subject, body := Render(prof, card, opts)

	if s.LLM.Enabled() {
		if ps, pb, err := s.polish(ctx, prof, card, opts, subject, body); err == nil {
			subject, body = ps, pb
		} else {
			log.Printf("[emaildraft] llm polish failed, using template: %v", err)
		}
	}

	return store.InsertDraft(ctx, s.DB, domain.EmailDraft{
		ProfessorID: professorID,
		Template:    opts.Template,
		Tone:        opts.Tone,
		Length:      opts.Length,
		Subject:     subject,
		Body:        body,
	})
}

// Render fills the deterministic template for the given options. It never
// fails; missing card data degrades to generic placeholders.
func Render(prof *domain.Professor, card *domain.CardData, opts domain.DraftOptions) (subject, body string) {
	tpl, ok := templates[opts.Template]
	if !ok {
		tpl = templates[string(domain.RoleSummerIntern)]
	}
	tone, ok := tones[opts.Tone]
	if !ok {
		tone = tones[domain.ToneFormal]
	}

	repl := newReplacer(prof, card)

	subject = repl.Replace(tpl.subject)

	paras := append([]string{}, tpl.core...)
	switch opts.Length {
	case domain.LengthShort:
		// core only
	case domain.LengthLong:
		paras = append(paras, tpl.extras...)
	default:
		if len(tpl.extras) > 0 {
			paras = append(paras, tpl.extras[0])
		}
	}

	var b strings.Builder
	b.WriteString(repl.Replace(tone.opening))
	for _, p := range paras {
		b.WriteString("\n\n")
		b.WriteString(repl.Replace(p))
	}
	b.WriteString("\n\n")
	b.WriteString(tpl.close)
	b.WriteString("\n\n")
	b.WriteString(repl.Replace(tone.signoff))
	return subject, b.String()
}

func newReplacer(prof *domain.Professor, card *domain.CardData) *strings.Replacer {
	i1, i2 := "your research area", "your recent publications"
	if card != nil {
		if len(card.ResearchInterests) > 0 {
			i1 = card.ResearchInterests[0]
		}
		if len(card.ResearchInterests) > 1 {
			i2 = card.ResearchInterests[1]
		} else {
			i2 = i1
		}
	}
	aff := prof.Affiliation
	if aff == "" {
		aff = "your institution"
	}
	return strings.NewReplacer(
		"{name}", prof.Name,
		"{lastname}", lastName(prof.Name),
		"{affiliation}", aff,
		"{interest_1}", i1,
		"{interest_2}", i2,
	)
}

func lastName(full string) string {
	fields := strings.Fields(strings.TrimSpace(full))
	if len(fields) == 0 {
		return full
	}
	return fields[len(fields)-1]
}

const polishSystem = `You rewrite academic outreach emails. Keep every bracketed placeholder like [My Name] exactly as written. Keep the same intent and recipient. Return only a JSON object: {"subject": "...", "body": "..."}.`

func (s *Service) polish(ctx context.Context, prof *domain.Professor, card *domain.CardData, opts domain.DraftOptions, subject, body string) (string, string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rewrite this outreach email to Professor %s", prof.Name)
	if prof.Affiliation != "" {
		fmt.Fprintf(&sb, " (%s)", prof.Affiliation)
	}
	fmt.Fprintf(&sb, ".\nTone: %s. Length: %s.\n", opts.Tone, opts.Length)
	if card != nil && len(card.ResearchInterests) > 0 {
		fmt.Fprintf(&sb, "Their research interests: %s.\n", strings.Join(card.ResearchInterests, ", "))
	}
	if ci := strings.TrimSpace(opts.CustomInstructions); ci != "" {
		fmt.Fprintf(&sb, "Extra instructions from the sender: %s\n", ci)
	}
	fmt.Fprintf(&sb, "\nSubject: %s\n\n%s", subject, body)

	raw, err := s.LLM.ChatCreative(ctx, polishSystem, sb.String())
	if err != nil {
		return "", "", err
	}
	// creative sampling sometimes wraps the object in prose or fences
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		raw = raw[i : j+1]
	}
	var out struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", "", fmt.Errorf("decode polish response: %w", err)
	}
	if strings.TrimSpace(out.Subject) == "" || strings.TrimSpace(out.Body) == "" {
		return "", "", errors.New("polish response missing subject or body")
	}
	return out.Subject, out.Body, nil
}
