package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"profreach-engine/internal/avatar"
	"profreach-engine/internal/card"
	"profreach-engine/internal/config"
	"profreach-engine/internal/emaildraft"
	"profreach-engine/internal/events"
	"profreach-engine/internal/ingest"
	"profreach-engine/internal/llm"
	"profreach-engine/internal/search"
	"profreach-engine/internal/store"
	"profreach-engine/internal/webutil"
	"profreach-engine/pkg/domain"
)

// newTestServer stands up the full engine API on a temp database with the
// language model disabled, so every enrichment path exercises the heuristics.
func newTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()

	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(db.Pool); err != nil {
		t.Fatalf("store.Migrate() error: %v", err)
	}

	cfg := config.Default()
	cfg.LLM.Enabled = false
	cfgPath := filepath.Join(dir, "config.yml")
	if err := config.SaveAtomic(cfgPath, cfg); err != nil {
		t.Fatalf("config.SaveAtomic() error: %v", err)
	}

	var cfgVal atomic.Value
	cfgVal.Store(cfg)
	var pollState atomic.Value
	pollState.Store(ReplyPollStatus{})

	llmClient := llm.New(cfg)
	limiter := webutil.NewHostLimiter(cfg.Fetch.HostReqPerSec, cfg.Fetch.HostBurst)

	deps := Deps{
		DB:             db.Pool,
		Hub:            events.NewHub(),
		CfgVal:         &cfgVal,
		ReplyPollState: &pollState,
		UserCfgPath:    cfgPath,
		LoadCfg: func() (config.Config, error) {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return config.Config{}, err
			}
			norm, _ := config.NormalizeAndValidate(loaded)
			return norm, nil
		},
		TokenTTL: time.Hour,
		Ingest: &ingest.Service{
			DB:      db.Pool,
			Fetcher: ingest.NewFetcher(2*time.Second, limiter),
		},
		Cards:  &card.Service{DB: db.Pool, LLM: llmClient},
		Drafts: &emaildraft.Service{DB: db.Pool, LLM: llmClient},
		Search: search.NewClient(cfg.Search.MaxResults, limiter),
		Avatar: avatar.NewService(db.Pool, llmClient, limiter),
		LLM:    llmClient,
		RunReplyPoll: func() (int, error) {
			return 0, nil
		},
	}

	srv := httptest.NewServer(NewMux(deps))
	t.Cleanup(srv.Close)
	return srv, db.Pool
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, resp, &env)
	return env.Error.Code
}

func registerAndLogin(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp := doJSON(t, http.MethodPost, srv.URL+"/users/", "", map[string]string{
		"email": "me@example.com", "password": "hunter22",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}

	form := url.Values{"username": {"me@example.com"}, "password": {"hunter22"}}
	resp, err := http.PostForm(srv.URL+"/token", form)
	if err != nil {
		t.Fatalf("POST /token: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token status = %d, want 200", resp.StatusCode)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decodeBody(t, resp, &tok)
	if tok.TokenType != "bearer" || tok.AccessToken == "" {
		t.Fatalf("token response = %+v", tok)
	}
	return tok.AccessToken
}

func createProfessor(t *testing.T, srv *httptest.Server, token string) domain.Professor {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/professors/", token, map[string]string{
		"name":        "Jane Doe",
		"affiliation": "Example University",
		"website_url": "https://example.edu/~jdoe",
		"target_role": "phd",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var prof domain.Professor
	decodeBody(t, resp, &prof)
	return prof
}

func TestRegisterDuplicateEmail(t *testing.T) {
	srv, _ := newTestServer(t)
	registerAndLogin(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/users/", "", map[string]string{
		"email": "me@example.com", "password": "other",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "email_taken" {
		t.Errorf("code = %q, want email_taken", code)
	}
}

func TestTokenBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t)
	registerAndLogin(t, srv)

	resp, err := http.PostForm(srv.URL+"/token", url.Values{
		"username": {"me@example.com"}, "password": {"wrong"},
	})
	if err != nil {
		t.Fatalf("POST /token: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "bad_credentials" {
		t.Errorf("code = %q, want bad_credentials", code)
	}
}

func TestListProfessors_Unauthorized(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/professors/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCreateAndGetProfessor(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	prof := createProfessor(t, srv, token)
	if prof.ID == 0 || prof.Name != "Jane Doe" {
		t.Fatalf("created professor = %+v", prof)
	}
	if prof.PipelineStatus == nil || prof.PipelineStatus.Status != domain.StatusDraft {
		t.Errorf("pipeline status = %+v, want Draft", prof.PipelineStatus)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/professors/"+itoaID(prof.ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	var got domain.Professor
	decodeBody(t, resp, &got)
	if got.ID != prof.ID || got.TargetRole != domain.RolePhD {
		t.Errorf("got = %+v", got)
	}
}

func TestCreateProfessorValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/professors/", token, map[string]string{"name": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty name status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/professors/", token, map[string]string{
		"name": "Jane Doe", "target_role": "dean",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad role status = %d, want 422", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "invalid_options" {
		t.Errorf("code = %q, want invalid_options", code)
	}
}

func TestPatchStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)
	prof := createProfessor(t, srv, token)

	resp := doJSON(t, http.MethodPatch, srv.URL+"/professors/"+itoaID(prof.ID)+"/status", token,
		map[string]string{"status": "Ghosted"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unknown status = %d, want 422", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "invalid_status" {
		t.Errorf("code = %q, want invalid_status", code)
	}

	resp = doJSON(t, http.MethodPatch, srv.URL+"/professors/"+itoaID(prof.ID)+"/status", token,
		map[string]string{"status": "Sent"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var st domain.PipelineStatus
	decodeBody(t, resp, &st)
	if st.Status != domain.StatusSent {
		t.Errorf("status = %q, want Sent", st.Status)
	}
	if st.LastTouchAt == nil {
		t.Error("moving to Sent should set last_touch_at")
	}
	if st.FollowupRecommended {
		t.Error("fresh Sent should not recommend a followup")
	}
}

func TestDeleteProfessor(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)
	prof := createProfessor(t, srv, token)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/professors/"+itoaID(prof.ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/professors/"+itoaID(prof.ID), token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, srv.URL+"/professors/"+itoaID(prof.ID), token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGenerateCard(t *testing.T) {
	srv, db := newTestServer(t)
	token := registerAndLogin(t, srv)
	prof := createProfessor(t, srv, token)

	// no source text yet
	resp := doJSON(t, http.MethodPost, srv.URL+"/professors/"+itoaID(prof.ID)+"/generate-card", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "no_source_text" {
		t.Errorf("code = %q, want no_source_text", code)
	}

	_, err := store.InsertSourcePage(context.Background(), db, domain.SourcePage{
		ProfessorID: prof.ID,
		SourceURL:   "https://example.edu/~jdoe",
		FetchStatus: domain.FetchSuccess,
		RawText:     "Research interests: distributed systems, consensus\nI am looking for PhD students.",
	})
	if err != nil {
		t.Fatalf("InsertSourcePage() error: %v", err)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/professors/"+itoaID(prof.ID)+"/generate-card", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var c domain.ProfessorCard
	decodeBody(t, resp, &c)
	if c.Version != 1 {
		t.Errorf("version = %d, want 1", c.Version)
	}
	data := c.Data()
	if len(data.ResearchInterests) == 0 {
		t.Errorf("card data = %+v, want extracted interests", data)
	}
}

func TestGenerateEmail(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)
	prof := createProfessor(t, srv, token)

	// empty body: options default from the target role
	resp := doJSON(t, http.MethodPost, srv.URL+"/professors/"+itoaID(prof.ID)+"/generate-email", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var draft domain.EmailDraft
	decodeBody(t, resp, &draft)
	if draft.Template != "phd" || draft.Tone != domain.ToneFormal || draft.Length != domain.LengthMedium {
		t.Errorf("draft options = %q/%q/%q", draft.Template, draft.Tone, draft.Length)
	}
	if !strings.Contains(draft.Body, "Dear Professor Doe,") {
		t.Errorf("draft body = %q", draft.Body)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/professors/"+itoaID(prof.ID)+"/generate-email", token,
		map[string]string{"tone": "sarcastic"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad tone status = %d, want 422", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "invalid_options" {
		t.Errorf("code = %q, want invalid_options", code)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]bool
	decodeBody(t, resp, &body)
	if !body["ok"] {
		t.Errorf("health = %v", body)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	resp := doJSON(t, http.MethodGet, srv.URL+"/config", token, nil)
	var cfg config.Config
	decodeBody(t, resp, &cfg)
	if cfg.App.Port != config.Default().App.Port {
		t.Errorf("port = %d", cfg.App.Port)
	}

	cfg.Followup.AfterDays = 10
	resp = doJSON(t, http.MethodPut, srv.URL+"/config", token, cfg)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/config", token, nil)
	decodeBody(t, resp, &cfg)
	if cfg.Followup.AfterDays != 10 {
		t.Errorf("after_days = %d, want 10 after PUT", cfg.Followup.AfterDays)
	}
}

func TestSupplementalRoutes_Unauthorized(t *testing.T) {
	srv, _ := newTestServer(t)

	checks := []struct {
		method, path string
	}{
		{http.MethodGet, "/config"},
		{http.MethodPut, "/config"},
		{http.MethodGet, "/events"},
		{http.MethodPost, "/replypoll/run"},
		{http.MethodPost, "/api/secrets/imap"},
		{http.MethodPost, "/db/checkpoint"},
	}
	for _, c := range checks {
		resp := doJSON(t, c.method, srv.URL+c.path, "", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", c.method, c.path, resp.StatusCode)
		}
	}
}

func TestParseSearchResultFlatBody(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/parse_search_result", token, map[string]string{
		"query":   "jane doe",
		"title":   "Jane Doe - Example University",
		"snippet": "Professor of robotics.",
		"link":    "https://example.edu/~jdoe",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var parsed domain.ParseResult
	decodeBody(t, resp, &parsed)
	if parsed.Name != "Jane Doe" {
		t.Errorf("name = %q, want %q", parsed.Name, "Jane Doe")
	}
	if parsed.Affiliation != "Example University" {
		t.Errorf("affiliation = %q, want %q", parsed.Affiliation, "Example University")
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/parse_search_result", token, map[string]string{
		"query": "jane doe",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty result status = %d, want 400", resp.StatusCode)
	}
}

func itoaID(id int64) string {
	return strconv.FormatInt(id, 10)
}
