package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"profreach-engine/pkg/domain"
)

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("path = %q, want /token", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostFormValue("username") != "me@example.com" {
			t.Errorf("username = %q", r.PostFormValue("username"))
		}
		//nolint:errcheck
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "tok-123", "token_type": "bearer",
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.Login(context.Background(), "me@example.com", "pw"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if c.Token() != "tok-123" {
		t.Errorf("Token() = %q, want tok-123", c.Token())
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		//nolint:errcheck
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "bad_credentials", "message": "incorrect email or password"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.Login(context.Background(), "me@example.com", "wrong")
	if err == nil {
		t.Fatal("Login() should fail")
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error type = %T, want *HTTPError", err)
	}
	if httpErr.StatusCode != 401 || httpErr.Code != "bad_credentials" {
		t.Errorf("error = %+v", httpErr)
	}
	if c.Token() != "" {
		t.Error("failed login must not install a token")
	}
}

func TestRequestsCarryBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-abc" {
			t.Errorf("Authorization = %q, want Bearer tok-abc", got)
		}
		//nolint:errcheck
		json.NewEncoder(w).Encode([]domain.Professor{})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok-abc")
	profs, err := c.ListProfessors(context.Background())
	if err != nil {
		t.Fatalf("ListProfessors() error: %v", err)
	}
	if len(profs) != 0 {
		t.Errorf("got %d professors, want 0", len(profs))
	}
}

func TestLogoutClearsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok-abc")
	if err := c.Logout(context.Background()); err == nil {
		t.Error("Logout() should surface the server error")
	}
	if c.Token() != "" {
		t.Error("token must be cleared even when the server call fails")
	}
}

func TestGetProfessor_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		//nolint:errcheck
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "not_found", "message": "professor not found"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetProfessor(context.Background(), 42)
	if err == nil {
		t.Fatal("GetProfessor() should fail")
	}
	if !IsStatus(err, http.StatusNotFound) {
		t.Errorf("IsStatus(404) = false for %v", err)
	}
}

func TestGenerateEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/professors/7/generate-email" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var opts domain.DraftOptions
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			t.Fatalf("decode options: %v", err)
		}
		if opts.Tone != domain.ToneDirect {
			t.Errorf("tone = %q, want direct", opts.Tone)
		}
		//nolint:errcheck
		json.NewEncoder(w).Encode(domain.EmailDraft{ID: 1, ProfessorID: 7, Subject: "hi"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	draft, err := c.GenerateEmail(context.Background(), 7, domain.DraftOptions{Tone: domain.ToneDirect})
	if err != nil {
		t.Fatalf("GenerateEmail() error: %v", err)
	}
	if draft.Subject != "hi" {
		t.Errorf("subject = %q", draft.Subject)
	}
}

func TestExtractAvatarNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		//nolint:errcheck
		json.NewEncoder(w).Encode(map[string]any{"avatar_url": nil})
	}))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.ExtractAvatar(context.Background(), "https://example.edu/~jdoe", "Jane Doe")
	if err != nil {
		t.Fatalf("ExtractAvatar() error: %v", err)
	}
	if got != "" {
		t.Errorf("avatar = %q, want empty for null", got)
	}
}

func TestHTTPErrorPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListProfessors(context.Background())
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error type = %T, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusBadGateway || httpErr.Message != "gateway exploded" {
		t.Errorf("error = %+v", httpErr)
	}
}
