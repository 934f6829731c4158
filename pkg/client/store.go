package client

import (
	"context"
	"sync"

	"profreach-engine/pkg/domain"
)

// RecordStore caches professor records by id plus the list view, with
// explicit invalidation. There is no optimistic merging: a mutation
// invalidates the affected entries and refetches them before the caller
// observes completion, so the cache only ever holds server-confirmed state.
// When refetches race, the last completed one wins.
type RecordStore struct {
	api *Client

	mu        sync.Mutex
	byID      map[int64]*domain.Professor
	list      []domain.Professor
	listValid bool
}

func NewRecordStore(api *Client) *RecordStore {
	return &RecordStore{
		api:  api,
		byID: make(map[int64]*domain.Professor),
	}
}

// Get returns the cached record, refetching when the entry is absent or
// invalidated.
func (s *RecordStore) Get(ctx context.Context, id int64) (*domain.Professor, error) {
	s.mu.Lock()
	if p, ok := s.byID[id]; ok {
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()
	return s.refetch(ctx, id)
}

// List returns the cached list view, refetching when invalidated.
func (s *RecordStore) List(ctx context.Context) ([]domain.Professor, error) {
	s.mu.Lock()
	if s.listValid {
		out := s.list
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	profs, err := s.api.ListProfessors(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.list = profs
	s.listValid = true
	s.mu.Unlock()
	return profs, nil
}

// Invalidate drops the cached record and the list view.
func (s *RecordStore) Invalidate(id int64) {
	s.mu.Lock()
	delete(s.byID, id)
	s.listValid = false
	s.mu.Unlock()
}

// InvalidateAll drops every cached entry.
func (s *RecordStore) InvalidateAll() {
	s.mu.Lock()
	s.byID = make(map[int64]*domain.Professor)
	s.listValid = false
	s.mu.Unlock()
}

func (s *RecordStore) refetch(ctx context.Context, id int64) (*domain.Professor, error) {
	p, err := s.api.GetProfessor(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.byID[id] = p
	s.mu.Unlock()
	return p, nil
}

// --- mutations: invalidate, then refetch before returning ---

func (s *RecordStore) CreateProfessor(ctx context.Context, req CreateProfessorRequest) (*domain.Professor, error) {
	created, err := s.api.CreateProfessor(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Invalidate(created.ID)
	return s.refetch(ctx, created.ID)
}

func (s *RecordStore) PatchProfessor(ctx context.Context, id int64, req PatchProfessorRequest) (*domain.Professor, error) {
	if _, err := s.api.PatchProfessor(ctx, id, req); err != nil {
		return nil, err
	}
	s.Invalidate(id)
	return s.refetch(ctx, id)
}

// DeleteProfessor removes the record; the id becomes a not-found everywhere,
// it is never resurrected from cache.
func (s *RecordStore) DeleteProfessor(ctx context.Context, id int64) error {
	if err := s.api.DeleteProfessor(ctx, id); err != nil {
		return err
	}
	s.Invalidate(id)
	return nil
}

func (s *RecordStore) UpdateStatus(ctx context.Context, id int64, status domain.Status) (*domain.Professor, error) {
	if _, err := s.api.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.Invalidate(id)
	return s.refetch(ctx, id)
}

func (s *RecordStore) Ingest(ctx context.Context, id int64, pageURL string) (*domain.Professor, error) {
	if _, err := s.api.Ingest(ctx, id, pageURL); err != nil {
		return nil, err
	}
	s.Invalidate(id)
	return s.refetch(ctx, id)
}

func (s *RecordStore) GenerateCard(ctx context.Context, id int64) (*domain.Professor, error) {
	if _, err := s.api.GenerateCard(ctx, id); err != nil {
		return nil, err
	}
	s.Invalidate(id)
	return s.refetch(ctx, id)
}

func (s *RecordStore) GenerateEmail(ctx context.Context, id int64, opts domain.DraftOptions) (*domain.Professor, error) {
	if _, err := s.api.GenerateEmail(ctx, id, opts); err != nil {
		return nil, err
	}
	s.Invalidate(id)
	return s.refetch(ctx, id)
}
