package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sportsbro/sportsbro/internal/auth"
	"github.com/sportsbro/sportsbro/internal/team"
)

// teamsHandler groups team-related HTTP handlers.
type teamsHandler struct {
	service   *team.Service
	projector *team.Projector
}

func newTeamsHandler(service *team.Service, projector *team.Projector) *teamsHandler {
	return &teamsHandler{service: service, projector: projector}
}

// ListTeams handles GET /api/teams.
func (h *teamsHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := team.Filter{
		Sport:      strings.TrimSpace(q.Get("sport")),
		City:       strings.TrimSpace(q.Get("city")),
		State:      strings.TrimSpace(q.Get("state")),
		District:   strings.TrimSpace(q.Get("district")),
		SkillLevel: strings.TrimSpace(q.Get("skillLevel")),
		Search:     strings.TrimSpace(q.Get("search")),
		MemberID:   strings.TrimSpace(q.Get("member")),
	}

	teams, err := h.service.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	views, err := h.projector.ProjectAll(r.Context(), teams)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Teams retrieved", views)
}

// GetTeam handles GET /api/teams/{id}.
func (h *teamsHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Team retrieved", h.view(r.Context(), t))
}

// CreateTeam handles POST /api/teams.
func (h *teamsHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	var in team.CreateTeamInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.service.Create(r.Context(), u.ID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "team.create", "team", t.ID, "name", t.Name)
	writeData(w, http.StatusCreated, "Team created", h.view(r.Context(), t))
}

// UpdateTeam handles PUT /api/teams/{id}.
func (h *teamsHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var in team.UpdateTeamInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.service.Update(r.Context(), id, u.ID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "team.update", "team", id)
	writeData(w, http.StatusOK, "Team updated", h.view(r.Context(), t))
}

// DeleteTeam handles DELETE /api/teams/{id}.
func (h *teamsHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id, u.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "team.delete", "team", id)
	writeData(w, http.StatusOK, "Team deleted", map[string]string{"id": id})
}

// selfAction is a membership operation performed by the acting user on their
// own behalf.
type selfAction func(ctx context.Context, teamID, userID string) (*team.Team, error)

// targetAction is an owner-only operation on another user.
type targetAction func(ctx context.Context, teamID, ownerID, targetID string) (*team.Team, error)

// self adapts a selfAction to an http.HandlerFunc.
func (h *teamsHandler) self(action, message string, fn selfAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.UserFromContext(r.Context())
		id := chi.URLParam(r, "id")

		t, err := fn(r.Context(), id, u.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		auditLog(r, action, "team", id)
		writeData(w, http.StatusOK, message, h.view(r.Context(), t))
	}
}

// target adapts a targetAction to an http.HandlerFunc.
func (h *teamsHandler) target(action, message string, fn targetAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.UserFromContext(r.Context())
		id := chi.URLParam(r, "id")
		targetID := chi.URLParam(r, "userId")

		t, err := fn(r.Context(), id, u.ID, targetID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		auditLog(r, action, "team", id, "target_user_id", targetID)
		writeData(w, http.StatusOK, message, h.view(r.Context(), t))
	}
}

// view projects t for a response. The write has already happened, so a
// failed profile lookup degrades to bare ids instead of failing the request.
func (h *teamsHandler) view(ctx context.Context, t *team.Team) *team.View {
	v, err := h.projector.Project(ctx, t)
	if err == nil {
		return v
	}
	slog.Warn("resolving team profiles", "team_id", t.ID, "error", err)
	v, _ = team.NewProjector(nil).Project(ctx, t)
	return v
}
