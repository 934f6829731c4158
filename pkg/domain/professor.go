package domain

import (
	"encoding/json"
	"time"
)

// TargetRole is the position the user is pursuing with a professor.
// It is set at creation (or by explicit edit) and never inferred afterwards.
type TargetRole string

const (
	RoleSummerIntern TargetRole = "summer_intern"
	RolePhD          TargetRole = "phd"
	RolePostdoc      TargetRole = "postdoc"
	RoleRA           TargetRole = "ra"
)

func (r TargetRole) Valid() bool {
	switch r {
	case RoleSummerIntern, RolePhD, RolePostdoc, RoleRA:
		return true
	}
	return false
}

// Status is the outreach funnel stage. Any stage is reachable from any other
// by explicit user action; Offer and Rejection are terminal only in the sense
// that followup is never recommended for them.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusSent      Status = "Sent"
	StatusReplied   Status = "Replied"
	StatusMeeting   Status = "Meeting"
	StatusOffer     Status = "Offer"
	StatusRejection Status = "Rejection"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusReplied, StatusMeeting, StatusOffer, StatusRejection:
		return true
	}
	return false
}

// Terminal reports whether the funnel ends at this stage.
func (s Status) Terminal() bool {
	return s == StatusOffer || s == StatusRejection
}

type Professor struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Affiliation string     `json:"affiliation"`
	WebsiteURL  string     `json:"website_url"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	TargetRole  TargetRole `json:"target_role"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	PipelineStatus *PipelineStatus `json:"pipeline_status,omitempty"`

	// SourcePages is newest-first: index 0 is the latest fetch.
	SourcePages []SourcePage `json:"source_pages"`
	// ProfessorCards and EmailDrafts are append-only, oldest-first:
	// the last element is the authoritative latest.
	ProfessorCards []ProfessorCard `json:"professor_cards"`
	EmailDrafts    []EmailDraft    `json:"email_drafts"`
}

// LatestCard returns the last appended card, or nil if none exist.
func (p *Professor) LatestCard() *ProfessorCard {
	if len(p.ProfessorCards) == 0 {
		return nil
	}
	return &p.ProfessorCards[len(p.ProfessorCards)-1]
}

// LatestSourcePage returns the most recent fetch, or nil if none exist.
func (p *Professor) LatestSourcePage() *SourcePage {
	if len(p.SourcePages) == 0 {
		return nil
	}
	return &p.SourcePages[0]
}

// HasSourceText reports whether any fetched page carries extractable text.
// Card generation requires this.
func (p *Professor) HasSourceText() bool {
	for i := range p.SourcePages {
		if p.SourcePages[i].FetchStatus == FetchSuccess && p.SourcePages[i].RawText != "" {
			return true
		}
	}
	return false
}

type PipelineStatus struct {
	ID                  int64      `json:"id"`
	ProfessorID         int64      `json:"professor_id"`
	Status              Status     `json:"status"`
	LastTouchAt         *time.Time `json:"last_touch_at,omitempty"`
	NextActionAt        *time.Time `json:"next_action_at,omitempty"`
	FollowupRecommended bool       `json:"followup_recommended"`
	Notes               string     `json:"notes,omitempty"`
}

const (
	FetchSuccess = "success"
	FetchFailed  = "failed"
)

type SourcePage struct {
	ID          int64     `json:"id"`
	ProfessorID int64     `json:"professor_id"`
	SourceURL   string    `json:"source_url"`
	FetchStatus string    `json:"fetch_status"`
	RawText     string    `json:"raw_text,omitempty"`
	ErrorMsg    string    `json:"error_msg,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

type ProfessorCard struct {
	ID          int64     `json:"id"`
	ProfessorID int64     `json:"professor_id"`
	Version     int       `json:"version"`
	CardMD      string    `json:"card_md"`
	CardJSON    string    `json:"card_json"`
	GeneratedAt time.Time `json:"generated_at"`
}

// CardData is the structured payload serialized into ProfessorCard.CardJSON.
type CardData struct {
	Summary              string   `json:"summary"`
	ResearchInterests    []string `json:"research_interests"`
	HiringSignals        []string `json:"hiring_signals"`
	SelectedPublications []string `json:"selected_publications,omitempty"`
}

// Data decodes CardJSON; a malformed payload yields the zero value.
func (c *ProfessorCard) Data() CardData {
	var d CardData
	_ = json.Unmarshal([]byte(c.CardJSON), &d)
	return d
}

type EmailDraft struct {
	ID          int64     `json:"id"`
	ProfessorID int64     `json:"professor_id"`
	Template    string    `json:"type"`
	Tone        string    `json:"tone"`
	Length      string    `json:"length"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// SearchCandidate is an unresolved search result. It lives only inside the
// candidate resolution pipeline and is never persisted.
type SearchCandidate struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`

	// Filled by the AI parse step when it runs.
	Name        string  `json:"name,omitempty"`
	Affiliation string  `json:"affiliation,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// ParseResult is the outcome of the AI parse of a single search result.
type ParseResult struct {
	Name        string  `json:"name,omitempty"`
	Affiliation string  `json:"affiliation,omitempty"`
	Role        string  `json:"role,omitempty"`
	Confidence  float64 `json:"confidence"`
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
