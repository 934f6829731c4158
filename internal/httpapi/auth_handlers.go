package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"profreach-engine/internal/auth"
	"profreach-engine/internal/store"
)

type AuthHandler struct {
	Deps
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		WriteError(w, r, http.StatusBadRequest, "validation_error", "email and password are required")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	u, err := store.CreateUser(r.Context(), h.DB, req.Email, hashed)
	if errors.Is(err, store.ErrEmailTaken) {
		WriteError(w, r, http.StatusBadRequest, "email_taken", "email already registered")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, u)
}

// Token issues a bearer token from form-encoded credentials, the shape
// password-grant clients send.
func (h AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_form", "invalid form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		WriteError(w, r, http.StatusBadRequest, "validation_error", "username and password are required")
		return
	}

	token, err := auth.Login(r.Context(), h.DB, username, password, h.TokenTTL)
	if errors.Is(err, auth.ErrBadCredentials) {
		WriteError(w, r, http.StatusUnauthorized, "bad_credentials", "incorrect email or password")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		WriteError(w, r, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if err := auth.Logout(r.Context(), h.DB, token); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "Bearer ") {
		return strings.TrimSpace(hdr[7:])
	}
	return ""
}

// authed resolves the bearer token to a user id before calling h.
func (d Deps) authed(h func(w http.ResponseWriter, r *http.Request, userID int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			WriteError(w, r, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		userID, err := auth.UserFromToken(r.Context(), d.DB, token)
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, r, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		if err != nil {
			WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		h(w, r, userID)
	}
}

// tokenGuard requires a valid bearer token for handlers that don't act on
// behalf of a particular user.
func (d Deps) tokenGuard(h http.HandlerFunc) http.HandlerFunc {
	return d.authed(func(w http.ResponseWriter, r *http.Request, _ int64) {
		h(w, r)
	})
}
