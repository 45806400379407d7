package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sportsbro/sportsbro/internal/auth"
	"github.com/sportsbro/sportsbro/internal/metrics"
	"github.com/sportsbro/sportsbro/internal/ratelimit"
	"github.com/sportsbro/sportsbro/internal/team"
	"github.com/sportsbro/sportsbro/internal/user"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Teams     *team.Service
	Projector *team.Projector
	Users     user.Store
	Tokens    *auth.TokenService

	// Limiter, if set, rate limits mutating team routes per user.
	Limiter *ratelimit.Limiter
	// Metrics, if set, instruments requests and serves /metrics.
	Metrics *metrics.Metrics
	// HealthCheck, if set, is consulted by /health.
	HealthCheck func(ctx context.Context) error

	AllowedOrigins []string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	authn := auth.NewAuthenticator(deps.Tokens, user.NewAuthAdapter(deps.Users))
	authHandlers := newAuthHandler(deps.Users, deps.Tokens)
	limit := func(next http.Handler) http.Handler { return next }
	if deps.Metrics != nil {
		authn.OnFailure = deps.Metrics.IncAuthFailure
		authHandlers.onFailure = deps.Metrics.IncAuthFailure
		authHandlers.onLogin = deps.Metrics.IncAuthSuccess
	}
	if deps.Limiter != nil {
		var onReject func(string)
		if deps.Metrics != nil {
			onReject = deps.Metrics.IncRateLimitRejection
		}
		limit = ratelimit.Middleware(deps.Limiter, "team_write", onReject)
	}

	teams := newTeamsHandler(deps.Teams, deps.Projector)

	r.Get("/health", healthHandler(deps.HealthCheck))

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}))
		r.Get("/metrics/summary", deps.Metrics.Handler())
	}

	r.Route("/api", func(ar chi.Router) {
		ar.Post("/auth/login", authHandlers.Login)
		ar.With(authn.RequireUser).Get("/auth/me", authHandlers.Me)

		// Public reads.
		ar.Get("/teams", teams.ListTeams)
		ar.Get("/teams/{id}", teams.GetTeam)

		// Authenticated, rate-limited writes.
		ar.Group(func(wr chi.Router) {
			wr.Use(authn.RequireUser)
			wr.Use(limit)

			wr.Post("/teams", teams.CreateTeam)
			wr.Put("/teams/{id}", teams.UpdateTeam)
			wr.Delete("/teams/{id}", teams.DeleteTeam)

			wr.Post("/teams/{id}/request", teams.self("team.join_request", "Join request sent", deps.Teams.RequestToJoin))
			wr.Post("/teams/{id}/cancel-request", teams.self("team.join_request_cancel", "Join request cancelled", deps.Teams.CancelJoinRequest))
			wr.Post("/teams/{id}/join", teams.self("team.join", "Joined team", deps.Teams.JoinDirectly))
			wr.Post("/teams/{id}/leave", teams.self("team.leave", "Left team", deps.Teams.Leave))

			wr.Post("/teams/{id}/accept/{userId}", teams.target("team.join_request_accept", "Join request accepted", deps.Teams.AcceptJoinRequest))
			wr.Post("/teams/{id}/reject/{userId}", teams.target("team.join_request_reject", "Join request rejected", deps.Teams.RejectJoinRequest))
			wr.Post("/teams/{id}/remove/{userId}", teams.target("team.member_remove", "Member removed", deps.Teams.RemoveMember))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route_not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		if err := check(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"database": "unreachable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"database": "connected",
		})
	}
}
