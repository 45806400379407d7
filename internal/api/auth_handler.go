package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sportsbro/sportsbro/internal/auth"
	"github.com/sportsbro/sportsbro/internal/user"
)

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	store  user.Store
	tokens *auth.TokenService

	onLogin   func()
	onFailure func(reason string)
}

func newAuthHandler(store user.Store, tokens *auth.TokenService) *authHandler {
	return &authHandler{store: store, tokens: tokens}
}

// Login handles POST /api/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "email and password are required")
		return
	}

	u, err := h.store.GetByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		writeServiceError(w, r, err)
		return
	}
	if u == nil || !user.CheckPassword(u, req.Password) {
		if h.onFailure != nil {
			h.onFailure("bad_credentials")
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	token, expiresAt, err := h.tokens.Issue(&auth.User{ID: u.ID, Email: u.Email, Name: u.Name, Photo: u.Photo})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if h.onLogin != nil {
		h.onLogin()
	}

	writeData(w, http.StatusOK, "Logged in", map[string]any{
		"token":     token,
		"expiresAt": expiresAt,
		"user":      user.ToProfile(u),
	})
}

// Me handles GET /api/auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	writeData(w, http.StatusOK, "Current user", map[string]string{
		"id":    u.ID,
		"email": u.Email,
		"name":  u.Name,
		"photo": u.Photo,
	})
}
