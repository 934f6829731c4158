package client

import (
	"context"
	"sync"

	"profreach-engine/pkg/domain"
)

// StepState is one enrichment step's client-side status for a professor.
type StepState struct {
	Pending bool
	Err     error
}

// enrichState tracks per-professor enrichment progress. The run mutex
// serializes ingest and card generation for the same professor: a card
// requested while an ingest is in flight waits for it rather than reading
// the pre-ingest text.
type enrichState struct {
	run sync.Mutex

	ingest StepState
	card   StepState
	email  StepState

	emailOpts  domain.DraftOptions
	optsSeeded bool
}

// Orchestrator coordinates the enrichment steps against the record store.
// Each step tracks its own pending/error state; one step failing never blocks
// the others.
type Orchestrator struct {
	store *RecordStore

	mu    sync.Mutex
	profs map[int64]*enrichState
}

func NewOrchestrator(store *RecordStore) *Orchestrator {
	return &Orchestrator{store: store, profs: make(map[int64]*enrichState)}
}

func (o *Orchestrator) state(professorID int64) *enrichState {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.profs[professorID]
	if !ok {
		st = &enrichState{}
		o.profs[professorID] = st
	}
	return st
}

// StepStates returns a snapshot of the step states for a professor.
func (o *Orchestrator) StepStates(professorID int64) (ingest, card, email StepState) {
	st := o.state(professorID)
	o.mu.Lock()
	defer o.mu.Unlock()
	return st.ingest, st.card, st.email
}

// Ingest records one more source page. Always permitted: pages append, prior
// ones are never pruned, so re-ingesting is safe at any time.
func (o *Orchestrator) Ingest(ctx context.Context, professorID int64, pageURL string) (*domain.Professor, error) {
	st := o.state(professorID)
	st.run.Lock()
	defer st.run.Unlock()

	o.setStep(&st.ingest, true, nil)
	prof, err := o.store.Ingest(ctx, professorID, pageURL)
	o.setStep(&st.ingest, false, err)
	return prof, err
}

// GenerateCard creates the next card version. The precondition is checked
// here first so a doomed request never leaves the client; the engine enforces
// it again regardless.
func (o *Orchestrator) GenerateCard(ctx context.Context, professorID int64) (*domain.Professor, error) {
	st := o.state(professorID)
	st.run.Lock()
	defer st.run.Unlock()

	prof, err := o.store.Get(ctx, professorID)
	if err != nil {
		o.setStep(&st.card, false, err)
		return nil, err
	}
	if !prof.HasSourceText() {
		o.setStep(&st.card, false, ErrNoSourceText)
		return nil, ErrNoSourceText
	}

	o.setStep(&st.card, true, nil)
	prof, err = o.store.GenerateCard(ctx, professorID)
	o.setStep(&st.card, false, err)
	return prof, err
}

// EmailOptions returns the draft options for a professor, seeding the
// defaults once per load: template from the record's target role, formal
// tone, medium length. Later edits stick until ClearState.
func (o *Orchestrator) EmailOptions(ctx context.Context, professorID int64) (domain.DraftOptions, error) {
	st := o.state(professorID)

	o.mu.Lock()
	if st.optsSeeded {
		opts := st.emailOpts
		o.mu.Unlock()
		return opts, nil
	}
	o.mu.Unlock()

	prof, err := o.store.Get(ctx, professorID)
	if err != nil {
		return domain.DraftOptions{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !st.optsSeeded {
		st.emailOpts = domain.DraftOptions{}.Normalize(prof.TargetRole)
		st.optsSeeded = true
	}
	return st.emailOpts, nil
}

// SetEmailOptions overrides the seeded options for subsequent drafts.
func (o *Orchestrator) SetEmailOptions(professorID int64, opts domain.DraftOptions) {
	st := o.state(professorID)
	o.mu.Lock()
	defer o.mu.Unlock()
	st.emailOpts = opts
	st.optsSeeded = true
}

// GenerateEmail appends a new draft using the current options.
func (o *Orchestrator) GenerateEmail(ctx context.Context, professorID int64) (*domain.Professor, error) {
	opts, err := o.EmailOptions(ctx, professorID)
	if err != nil {
		return nil, err
	}

	st := o.state(professorID)
	o.setStep(&st.email, true, nil)
	prof, err := o.store.GenerateEmail(ctx, professorID, opts)
	o.setStep(&st.email, false, err)
	return prof, err
}

// UpdateStatus moves the professor through the funnel. Transitions are
// unrestricted; the engine derives the followup flag.
func (o *Orchestrator) UpdateStatus(ctx context.Context, professorID int64, status domain.Status) (*domain.Professor, error) {
	return o.store.UpdateStatus(ctx, professorID, status)
}

// Delete removes the professor and all orchestration state for it.
func (o *Orchestrator) Delete(ctx context.Context, professorID int64) error {
	if err := o.store.DeleteProfessor(ctx, professorID); err != nil {
		return err
	}
	o.ClearState(professorID)
	return nil
}

// ClearState forgets per-professor step state and seeded options, as on a
// fresh load.
func (o *Orchestrator) ClearState(professorID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.profs, professorID)
}

func (o *Orchestrator) setStep(s *StepState, pending bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s.Pending = pending
	s.Err = err
}
