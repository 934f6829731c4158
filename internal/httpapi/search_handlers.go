package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"profreach-engine/internal/search"
	"profreach-engine/pkg/domain"
)

type SearchHandler struct {
	Deps
}

// SearchProfessors proxies the web search. Provider failures surface as an
// empty list so the caller's flow is never interrupted.
func (h SearchHandler) SearchProfessors(w http.ResponseWriter, r *http.Request, userID int64) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		WriteError(w, r, http.StatusBadRequest, "validation_error", "query is required")
		return
	}
	writeJSON(w, h.Deps.Search.Search(r.Context(), query))
}

type parseReq struct {
	Query   string `json:"query"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// ParseSearchResult resolves one search result into professor fields, LLM
// first with the rule-based parser as fallback.
func (h SearchHandler) ParseSearchResult(w http.ResponseWriter, r *http.Request, userID int64) {
	var req parseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if req.Title == "" && req.Link == "" {
		WriteError(w, r, http.StatusBadRequest, "validation_error", "title or link is required")
		return
	}

	cand := domain.SearchCandidate{Title: req.Title, Snippet: req.Snippet, Link: req.Link}
	if h.LLM.Enabled() {
		if parsed, err := h.LLM.ParseSearchResult(r.Context(), req.Query, cand); err == nil {
			writeJSON(w, parsed)
			return
		} else {
			log.Printf("[search] llm parse failed, using fallback: %v", err)
		}
	}
	writeJSON(w, search.ParseResultFallback(req.Query, cand))
}

type extractAvatarReq struct {
	WebsiteURL string `json:"website_url"`
	Name       string `json:"name"`
}

type extractAvatarResp struct {
	AvatarURL *string `json:"avatar_url"`
}

// ExtractAvatar scans the page for a plausible profile photo. Absent photo is
// a normal outcome: 200 with a null avatar_url.
func (h SearchHandler) ExtractAvatar(w http.ResponseWriter, r *http.Request, userID int64) {
	var req extractAvatarReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if strings.TrimSpace(req.WebsiteURL) == "" {
		WriteError(w, r, http.StatusBadRequest, "validation_error", "website_url is required")
		return
	}

	url, err := h.Avatar.Resolve(r.Context(), req.WebsiteURL, req.Name)
	if err != nil {
		log.Printf("[avatar] resolve failed url=%s err=%v", req.WebsiteURL, err)
		writeJSON(w, extractAvatarResp{})
		return
	}
	if url == "" {
		writeJSON(w, extractAvatarResp{})
		return
	}
	writeJSON(w, extractAvatarResp{AvatarURL: &url})
}
