package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"profreach-engine/internal/card"
	"profreach-engine/internal/emaildraft"
	"profreach-engine/internal/events"
	"profreach-engine/internal/store"
	"profreach-engine/pkg/domain"
)

type EnrichHandler struct {
	Deps
}

type ingestReq struct {
	ProfessorID int64  `json:"professor_id"`
	URL         string `json:"url"`
}

// Ingest fetches one page and appends the SourcePage. A failed fetch is a
// recorded outcome, not an HTTP error.
func (h EnrichHandler) Ingest(w http.ResponseWriter, r *http.Request, userID int64) {
	var req ingestReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if req.ProfessorID <= 0 || strings.TrimSpace(req.URL) == "" {
		WriteError(w, r, http.StatusBadRequest, "validation_error", "professor_id and url are required")
		return
	}

	if !h.mustOwn(w, r, userID, req.ProfessorID) {
		return
	}

	page, err := h.Deps.Ingest.Run(r.Context(), req.ProfessorID, req.URL)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	h.Hub.Publish(events.ProfessorEvent(RequestIDFrom(r.Context()), events.SourcePageAdded, req.ProfessorID))
	writeJSON(w, page)
}

func (h EnrichHandler) GenerateCard(w http.ResponseWriter, r *http.Request, userID, id int64) {
	if !h.mustOwn(w, r, userID, id) {
		return
	}

	c, err := h.Cards.Generate(r.Context(), id)
	if errors.Is(err, card.ErrNoSourceText) {
		WriteError(w, r, http.StatusBadRequest, "no_source_text", "no source text available; ingest a URL first")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	h.Hub.Publish(events.ProfessorEvent(RequestIDFrom(r.Context()), events.CardGenerated, id))
	writeJSON(w, c)
}

type generateEmailReq struct {
	Template           string `json:"template"`
	Tone               string `json:"tone"`
	Length             string `json:"length"`
	CustomInstructions string `json:"custom_instructions"`
}

func (h EnrichHandler) GenerateEmail(w http.ResponseWriter, r *http.Request, userID, id int64) {
	var req generateEmailReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json body")
			return
		}
	}

	if req.Template != "" && !domain.ValidTemplate(req.Template) {
		WriteError(w, r, http.StatusUnprocessableEntity, "invalid_options", "unknown template")
		return
	}
	if req.Tone != "" && !domain.ValidTone(req.Tone) {
		WriteError(w, r, http.StatusUnprocessableEntity, "invalid_options", "unknown tone")
		return
	}
	if req.Length != "" && !domain.ValidLength(req.Length) {
		WriteError(w, r, http.StatusUnprocessableEntity, "invalid_options", "unknown length")
		return
	}

	draft, err := h.Drafts.Generate(r.Context(), userID, id, domain.DraftOptions{
		Template:           req.Template,
		Tone:               req.Tone,
		Length:             req.Length,
		CustomInstructions: req.CustomInstructions,
	})
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "professor not found")
		return
	}
	if errors.Is(err, emaildraft.ErrNoName) {
		WriteError(w, r, http.StatusBadRequest, "missing_profile", "professor has no name to address")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	h.Hub.Publish(events.ProfessorEvent(RequestIDFrom(r.Context()), events.DraftCreated, id))
	writeJSON(w, draft)
}

func (h EnrichHandler) mustOwn(w http.ResponseWriter, r *http.Request, userID, id int64) bool {
	ok, err := store.OwnsProfessor(r.Context(), h.DB, userID, id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return false
	}
	if !ok {
		WriteError(w, r, http.StatusNotFound, "not_found", "professor not found")
		return false
	}
	return true
}
