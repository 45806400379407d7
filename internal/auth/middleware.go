package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey int

const userContextKey contextKey = iota

// ContextWithUser returns a new context carrying the given user.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the user from the context, or nil if not present.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey).(*User)
	return user
}

// Authenticator turns bearer tokens into users.
type Authenticator struct {
	tokens *TokenService
	users  UserLookup

	// OnFailure, if set, is called with a short reason for every rejected
	// request.
	OnFailure func(reason string)
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *TokenService, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// RequireUser rejects requests without a valid bearer token for an existing
// user. On success the user is injected into the request context.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			a.fail(w, "missing_token", "missing or malformed authorization header")
			return
		}

		claims, err := a.tokens.Verify(token)
		if err != nil {
			a.fail(w, "invalid_token", "invalid or expired token")
			return
		}

		user, err := a.users.LookupUser(r.Context(), claims.Subject)
		if errors.Is(err, ErrUnknownUser) || (err == nil && user == nil) {
			a.fail(w, "unknown_user", "user no longer exists")
			return
		}
		if err != nil {
			slog.Error("user lookup failed", "subject", claims.Subject, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) fail(w http.ResponseWriter, reason, message string) {
	if a.OnFailure != nil {
		a.OnFailure(reason)
	}
	writeUnauthorized(w, message)
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type errorResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code string `json:"code"`
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, "unauthorized", message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Message: message,
		Error:   errorBody{Code: code},
	})
}
