package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"profreach-engine/pkg/domain"
)

// fakeEngine is an in-memory stand-in for the engine API, just enough
// surface for the record store, resolver, and orchestrator.
type fakeEngine struct {
	mu     sync.Mutex
	nextID int64
	profs  map[int64]*domain.Professor

	getCount  map[int64]int
	listCount int
	ingested  []string

	searchResults []domain.SearchCandidate
	parseResult   domain.ParseResult
	parseStarted  chan struct{} // closed-once signal, nil to skip
	parseRelease  chan struct{} // blocks the parse handler when non-nil
	avatarURL     string
	avatarRelease chan struct{} // blocks the avatar handler when non-nil
	ingestStarted chan struct{} // closed-once signal, nil to skip
	ingestRelease chan struct{} // blocks the ingest handler when non-nil
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		profs:    make(map[int64]*domain.Professor),
		getCount: make(map[int64]int),
	}
}

func (f *fakeEngine) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeEngine) addProfessor(p domain.Professor) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	if p.PipelineStatus == nil {
		p.PipelineStatus = &domain.PipelineStatus{ProfessorID: p.ID, Status: domain.StatusDraft}
	}
	f.profs[p.ID] = &p
	return p.ID
}

func writeFakeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	//nolint:errcheck
	json.NewEncoder(w).Encode(v)
}

func fakeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}

func (f *fakeEngine) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/professors/" && r.Method == http.MethodGet:
		f.mu.Lock()
		f.listCount++
		out := []domain.Professor{}
		for _, p := range f.profs {
			out = append(out, *p)
		}
		f.mu.Unlock()
		writeFakeJSON(w, out)

	case r.URL.Path == "/professors/" && r.Method == http.MethodPost:
		var req CreateProfessorRequest
		//nolint:errcheck
		json.NewDecoder(r.Body).Decode(&req)
		id := f.addProfessor(domain.Professor{
			Name:        req.Name,
			Affiliation: req.Affiliation,
			WebsiteURL:  req.WebsiteURL,
			AvatarURL:   req.AvatarURL,
			TargetRole:  domain.TargetRole(req.TargetRole),
		})
		f.mu.Lock()
		p := *f.profs[id]
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		writeFakeJSON(w, p)

	case strings.HasPrefix(r.URL.Path, "/professors/"):
		f.handleProfessor(w, r)

	case r.URL.Path == "/ingest":
		var req struct {
			ProfessorID int64  `json:"professor_id"`
			URL         string `json:"url"`
		}
		//nolint:errcheck
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		started, release := f.ingestStarted, f.ingestRelease
		f.ingestStarted = nil
		f.mu.Unlock()
		if started != nil {
			close(started)
		}
		if release != nil {
			<-release
		}
		f.mu.Lock()
		f.ingested = append(f.ingested, req.URL)
		page := domain.SourcePage{
			ProfessorID: req.ProfessorID,
			SourceURL:   req.URL,
			FetchStatus: domain.FetchSuccess,
			RawText:     "fetched text",
			FetchedAt:   time.Now().UTC(),
		}
		if p, ok := f.profs[req.ProfessorID]; ok {
			p.SourcePages = append([]domain.SourcePage{page}, p.SourcePages...)
		}
		f.mu.Unlock()
		writeFakeJSON(w, page)

	case r.URL.Path == "/search_professors":
		f.mu.Lock()
		results := f.searchResults
		f.mu.Unlock()
		if results == nil {
			results = []domain.SearchCandidate{}
		}
		writeFakeJSON(w, results)

	case r.URL.Path == "/parse_search_result":
		f.mu.Lock()
		started, release, result := f.parseStarted, f.parseRelease, f.parseResult
		f.mu.Unlock()
		if started != nil {
			close(started)
			f.mu.Lock()
			f.parseStarted = nil
			f.mu.Unlock()
		}
		if release != nil {
			<-release
		}
		writeFakeJSON(w, result)

	case r.URL.Path == "/extract_avatar":
		f.mu.Lock()
		release, avatarURL := f.avatarRelease, f.avatarURL
		f.mu.Unlock()
		if release != nil {
			<-release
		}
		if avatarURL == "" {
			writeFakeJSON(w, map[string]any{"avatar_url": nil})
			return
		}
		writeFakeJSON(w, map[string]string{"avatar_url": avatarURL})

	default:
		fakeError(w, http.StatusNotFound, "not_found", "no such route")
	}
}

func (f *fakeEngine) handleProfessor(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/professors/")
	parts := strings.SplitN(rest, "/", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		fakeError(w, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	f.mu.Lock()
	p, ok := f.profs[id]
	f.mu.Unlock()
	if !ok {
		fakeError(w, http.StatusNotFound, "not_found", "professor not found")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			f.mu.Lock()
			f.getCount[id]++
			out := *p
			f.mu.Unlock()
			writeFakeJSON(w, out)
		case http.MethodDelete:
			f.mu.Lock()
			delete(f.profs, id)
			f.mu.Unlock()
			writeFakeJSON(w, map[string]any{"ok": true, "id": id})
		case http.MethodPatch:
			var req PatchProfessorRequest
			//nolint:errcheck
			json.NewDecoder(r.Body).Decode(&req)
			f.mu.Lock()
			if req.TargetRole != nil {
				p.TargetRole = domain.TargetRole(*req.TargetRole)
			}
			if req.AvatarURL != nil {
				p.AvatarURL = *req.AvatarURL
			}
			out := *p
			f.mu.Unlock()
			writeFakeJSON(w, out)
		}
	case "status":
		var req struct {
			Status string `json:"status"`
		}
		//nolint:errcheck
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		p.PipelineStatus.Status = domain.Status(req.Status)
		out := *p.PipelineStatus
		f.mu.Unlock()
		writeFakeJSON(w, out)
	case "generate-card":
		f.mu.Lock()
		card := domain.ProfessorCard{
			ProfessorID: id,
			Version:     len(p.ProfessorCards) + 1,
			CardJSON:    `{"summary":"fake"}`,
			GeneratedAt: time.Now().UTC(),
		}
		p.ProfessorCards = append(p.ProfessorCards, card)
		f.mu.Unlock()
		writeFakeJSON(w, card)
	case "generate-email":
		var opts domain.DraftOptions
		//nolint:errcheck
		json.NewDecoder(r.Body).Decode(&opts)
		f.mu.Lock()
		draft := domain.EmailDraft{
			ProfessorID: id,
			Template:    opts.Template,
			Tone:        opts.Tone,
			Length:      opts.Length,
			Subject:     "draft",
			CreatedAt:   time.Now().UTC(),
		}
		p.EmailDrafts = append(p.EmailDrafts, draft)
		f.mu.Unlock()
		writeFakeJSON(w, draft)
	default:
		fakeError(w, http.StatusNotFound, "not_found", "no such action")
	}
}
