package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"profreach-engine/internal/events"
	"profreach-engine/internal/followup"
	"profreach-engine/internal/store"
	"profreach-engine/pkg/domain"
)

type ProfessorsHandler struct {
	Deps
}

func (h ProfessorsHandler) List(w http.ResponseWriter, r *http.Request, userID int64) {
	profs, err := store.ListProfessors(r.Context(), h.DB, userID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, profs)
}

type createProfessorReq struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
	WebsiteURL  string `json:"website_url"`
	AvatarURL   string `json:"avatar_url"`
	TargetRole  string `json:"target_role"`
}

func (h ProfessorsHandler) Create(w http.ResponseWriter, r *http.Request, userID int64) {
	var req createProfessorReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, r, http.StatusBadRequest, "validation_error", "name is required")
		return
	}
	if req.TargetRole != "" && !domain.TargetRole(req.TargetRole).Valid() {
		WriteError(w, r, http.StatusUnprocessableEntity, "invalid_options", "unknown target_role")
		return
	}

	id, err := store.CreateProfessor(r.Context(), h.DB, userID, store.NewProfessor{
		Name:        req.Name,
		Affiliation: req.Affiliation,
		WebsiteURL:  req.WebsiteURL,
		AvatarURL:   req.AvatarURL,
		TargetRole:  domain.TargetRole(req.TargetRole),
	})
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	prof, err := store.GetProfessor(r.Context(), h.DB, userID, id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	h.Hub.Publish(events.ProfessorEvent(RequestIDFrom(r.Context()), events.ProfessorCreated, id))
	WriteJSON(w, http.StatusCreated, prof)
}

func (h ProfessorsHandler) Get(w http.ResponseWriter, r *http.Request, userID, id int64) {
	prof, err := store.GetProfessor(r.Context(), h.DB, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "professor not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, prof)
}

type patchProfessorReq struct {
	TargetRole *string `json:"target_role"`
	AvatarURL  *string `json:"avatar_url"`
}

func (h ProfessorsHandler) Patch(w http.ResponseWriter, r *http.Request, userID, id int64) {
	var req patchProfessorReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	var patch store.ProfessorPatch
	if req.TargetRole != nil {
		role := domain.TargetRole(*req.TargetRole)
		if !role.Valid() {
			WriteError(w, r, http.StatusUnprocessableEntity, "invalid_options", "unknown target_role")
			return
		}
		patch.TargetRole = &role
	}
	patch.AvatarURL = req.AvatarURL

	if err := store.UpdateProfessor(r.Context(), h.DB, userID, id, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, r, http.StatusNotFound, "not_found", "professor not found")
			return
		}
		WriteError(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	prof, err := store.GetProfessor(r.Context(), h.DB, userID, id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, prof)
}

func (h ProfessorsHandler) Delete(w http.ResponseWriter, r *http.Request, userID, id int64) {
	if err := store.DeleteProfessor(r.Context(), h.DB, userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, r, http.StatusNotFound, "not_found", "professor not found")
			return
		}
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	h.Hub.Publish(events.ProfessorEvent(RequestIDFrom(r.Context()), events.ProfessorDeleted, id))
	writeJSON(w, map[string]any{"ok": true, "id": id})
}

type statusReq struct {
	Status string `json:"status"`
}

func (h ProfessorsHandler) PatchStatus(w http.ResponseWriter, r *http.Request, userID, id int64) {
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	status := domain.Status(req.Status)
	if !status.Valid() {
		WriteError(w, r, http.StatusUnprocessableEntity, "invalid_status", "unknown status value")
		return
	}

	ok, err := store.OwnsProfessor(r.Context(), h.DB, userID, id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if !ok {
		WriteError(w, r, http.StatusNotFound, "not_found", "professor not found")
		return
	}

	st, err := store.UpdateStatus(r.Context(), h.DB, id, status)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	// re-derive immediately so the client never sees a stale flag
	cfg := h.currentConfig()
	want := followup.Recommended(*st, cfg.Followup.AfterDays, time.Now().UTC())
	if want != st.FollowupRecommended {
		if err := store.SetFollowup(r.Context(), h.DB, id, want); err == nil {
			st.FollowupRecommended = want
		}
	}

	h.Hub.Publish(events.ProfessorEvent(RequestIDFrom(r.Context()), events.StatusChanged, id))
	writeJSON(w, st)
}
