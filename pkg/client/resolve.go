package client

import (
	"context"
	"log"
	"strings"
	"sync"

	"profreach-engine/pkg/domain"
)

// Phase is the candidate resolution pipeline's explicit state. Only the
// pipeline's own transitions mutate it.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseSearching      Phase = "searching"
	PhaseResultsShown   Phase = "resultsShown"
	PhaseParsing        Phase = "parsing"
	PhaseAvatarScanning Phase = "avatarScanning"
	PhaseManualReview   Phase = "manualReview"
)

// parseConfidenceGate is the hard tie-break between the AI parse and the
// heuristic seed: at or below it the seed stands.
const parseConfidenceGate = 0.5

// Draft is the professor-to-be under review. Fields are seeded
// heuristically at selection and refined by the parse and avatar steps.
type Draft struct {
	Name        string
	Affiliation string
	WebsiteURL  string
	AvatarURL   string
	TargetRole  domain.TargetRole
	Confidence  float64
}

// Resolver drives one candidate search-and-resolve flow: search, pick a
// result, AI-parse it, scan for an avatar, review, submit. One selection at
// a time; attempts while a parse is in flight return ErrResolveBusy.
type Resolver struct {
	api   *Client
	store *RecordStore

	mu         sync.Mutex
	phase      Phase
	query      string
	results    []domain.SearchCandidate
	draft      Draft
	generation int
}

func NewResolver(api *Client, store *RecordStore) *Resolver {
	return &Resolver{api: api, store: store, phase: PhaseIdle}
}

func (r *Resolver) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Resolver) Results() []domain.SearchCandidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results
}

func (r *Resolver) Draft() Draft {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft
}

// Search runs the query and replaces any prior results. An empty result set
// drops straight to manual review so the user can type the fields in.
func (r *Resolver) Search(ctx context.Context, query string) ([]domain.SearchCandidate, error) {
	r.mu.Lock()
	if r.phase == PhaseParsing {
		r.mu.Unlock()
		return nil, ErrResolveBusy
	}
	r.phase = PhaseSearching
	r.query = query
	r.generation++
	r.mu.Unlock()

	results, err := r.api.SearchProfessors(ctx, query)
	if err != nil {
		r.mu.Lock()
		r.phase = PhaseIdle
		r.mu.Unlock()
		return nil, err
	}

	r.mu.Lock()
	r.results = results
	if len(results) == 0 {
		r.draft = Draft{Name: query}
		r.phase = PhaseManualReview
	} else {
		r.phase = PhaseResultsShown
	}
	r.mu.Unlock()
	return results, nil
}

// Select resolves one search result into the draft. The heuristic seed is
// applied synchronously; the AI parse then overrides it only when its
// confidence clears the gate. The avatar scan is detached: Select returns
// without it, and a stale scan's result is discarded.
func (r *Resolver) Select(ctx context.Context, cand domain.SearchCandidate) error {
	r.mu.Lock()
	if r.phase == PhaseParsing {
		r.mu.Unlock()
		return ErrResolveBusy
	}
	r.phase = PhaseParsing
	query := r.query
	r.draft = seedDraft(query, cand)
	// Each selection is its own generation so a prior selection's detached
	// avatar scan can no longer touch this draft.
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	parsed, err := r.api.ParseSearchResult(ctx, query, cand)

	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		return nil
	}
	if err == nil && parsed.Confidence > parseConfidenceGate {
		if parsed.Name != "" {
			r.draft.Name = parsed.Name
		}
		if parsed.Affiliation != "" {
			r.draft.Affiliation = parsed.Affiliation
		}
		r.draft.Confidence = parsed.Confidence
	} else if err != nil {
		log.Printf("[resolve] parse failed, keeping heuristic seed: %v", err)
	}

	website := r.draft.WebsiteURL
	name := r.draft.Name
	r.phase = PhaseAvatarScanning
	r.mu.Unlock()

	if website != "" {
		go r.scanAvatar(website, name, gen)
	} else {
		r.mu.Lock()
		if r.generation == gen {
			r.phase = PhaseManualReview
		}
		r.mu.Unlock()
	}
	return nil
}

// scanAvatar runs detached from Select. Its result is applied only while the
// pipeline generation that launched it is still current.
func (r *Resolver) scanAvatar(website, name string, gen int) {
	avatarURL, err := r.api.ExtractAvatar(context.Background(), website, name)
	if err != nil {
		log.Printf("[resolve] avatar scan failed: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return
	}
	if avatarURL != "" {
		r.draft.AvatarURL = avatarURL
	}
	if r.phase == PhaseAvatarScanning {
		r.phase = PhaseManualReview
	}
}

// Edit applies manual corrections to the draft during review.
func (r *Resolver) Edit(fn func(*Draft)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.draft)
}

// Submit creates the professor from the draft and auto-triggers ingestion of
// the website. It never waits for an in-flight avatar scan; a scan finishing
// after Submit is discarded.
func (r *Resolver) Submit(ctx context.Context) (*domain.Professor, error) {
	r.mu.Lock()
	if r.phase == PhaseParsing {
		r.mu.Unlock()
		return nil, ErrResolveBusy
	}
	draft := r.draft
	r.mu.Unlock()

	prof, err := r.store.CreateProfessor(ctx, CreateProfessorRequest{
		Name:        strings.TrimSpace(draft.Name),
		Affiliation: strings.TrimSpace(draft.Affiliation),
		WebsiteURL:  strings.TrimSpace(draft.WebsiteURL),
		AvatarURL:   strings.TrimSpace(draft.AvatarURL),
		TargetRole:  string(draft.TargetRole),
	})
	if err != nil {
		return nil, err
	}

	if draft.WebsiteURL != "" {
		if _, err := r.store.Ingest(ctx, prof.ID, draft.WebsiteURL); err != nil {
			log.Printf("[resolve] auto-ingest failed prof=%d: %v", prof.ID, err)
		} else {
			prof, _ = r.store.Get(ctx, prof.ID)
		}
	}

	r.Reset()
	return prof, nil
}

// Reset abandons the flow; any detached avatar scan still running becomes
// stale and its result is dropped.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.phase = PhaseIdle
	r.query = ""
	r.results = nil
	r.draft = Draft{}
}

// seedDraft fills the draft from the raw search result, synchronously, so
// the review form is never empty while the parse runs.
func seedDraft(query string, cand domain.SearchCandidate) Draft {
	d := Draft{
		WebsiteURL: cand.Link,
		Name:       strings.TrimSpace(cand.Title),
	}
	if d.Name == "" {
		d.Name = query
	}
	// "Name - University" style titles: keep the left side as the name and
	// try the right side as the affiliation.
	for _, sep := range []string{" - ", " | ", " – ", ": "} {
		if i := strings.Index(d.Name, sep); i > 0 {
			right := strings.TrimSpace(d.Name[i+len(sep):])
			d.Name = strings.TrimSpace(d.Name[:i])
			if d.Affiliation == "" {
				d.Affiliation = right
			}
			break
		}
	}
	return d
}
