package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

const testSecret = "test-secret-that-is-long-enough-123"

// --- mock lookup ---

type mockUserLookup struct {
	users map[string]*User
}

func (m *mockUserLookup) LookupUser(ctx context.Context, id string) (*User, error) {
	if id == "broken" {
		return nil, errors.New("connection refused")
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUnknownUser
	}
	return u, nil
}

func newTestTokens(clock clockwork.Clock) *TokenService {
	return NewTokenService(testSecret, "sportsbro", time.Hour, clock)
}

// --- TokenService tests ---

func TestIssueAndVerify(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	tokens := newTestTokens(clock)

	token, exp, err := tokens.Issue(&User{ID: "u1", Email: "asha@example.com"})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if !exp.Equal(clock.Now().Add(time.Hour)) {
		t.Errorf("expected expiry one hour out, got %v", exp)
	}

	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.Subject != "u1" {
		t.Errorf("expected subject u1, got %q", claims.Subject)
	}
	if claims.Email != "asha@example.com" {
		t.Errorf("expected email claim, got %q", claims.Email)
	}
	if claims.ID == "" {
		t.Error("expected a token id")
	}
}

func TestVerify_Expired(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	tokens := newTestTokens(clock)

	token, _, err := tokens.Issue(&User{ID: "u1"})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	clock.Advance(2 * time.Hour)
	if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_Rejects(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tokens := newTestTokens(clock)

	otherSecret, _, _ := NewTokenService("another-secret-of-decent-length!", "sportsbro", time.Hour, clock).
		Issue(&User{ID: "u1"})
	otherIssuer, _, _ := NewTokenService(testSecret, "someone-else", time.Hour, clock).
		Issue(&User{ID: "u1"})

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "sportsbro"},
	}).SignedString([]byte(testSecret))

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "sportsbro",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	wrongAlg, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "sportsbro",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	tests := map[string]string{
		"garbage":      "not-a-jwt",
		"other secret": otherSecret,
		"other issuer": otherIssuer,
		"no expiry":    noExpiry,
		"no subject":   noSubject,
		"wrong alg":    wrongAlg,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

// --- Context helpers tests ---

func TestUserContext_RoundTrip(t *testing.T) {
	user := &User{ID: "u1", Name: "Asha"}
	ctx := ContextWithUser(context.Background(), user)
	got := UserFromContext(ctx)
	if got == nil {
		t.Fatal("expected user from context, got nil")
	}
	if got.ID != user.ID {
		t.Errorf("expected ID %q, got %q", user.ID, got.ID)
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	if got := UserFromContext(context.Background()); got != nil {
		t.Errorf("expected nil from empty context, got %+v", got)
	}
}

// --- RequireUser tests ---

func TestRequireUser(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tokens := newTestTokens(clock)
	lookup := &mockUserLookup{users: map[string]*User{
		"u1": {ID: "u1", Name: "Asha", Email: "asha@example.com"},
	}}

	valid, _, _ := tokens.Issue(&User{ID: "u1"})
	deleted, _, _ := tokens.Issue(&User{ID: "gone"})
	unreachable, _, _ := tokens.Issue(&User{ID: "broken"})

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || user.ID != "u1" {
			t.Errorf("expected u1 in context inside handler, got %+v", user)
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantReason string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, ""},
		{"invalid token", "Bearer abc.def.ghi", http.StatusUnauthorized, "invalid_token"},
		{"unknown user", "Bearer " + deleted, http.StatusUnauthorized, "unknown_user"},
		{"lookup failure", "Bearer " + unreachable, http.StatusInternalServerError, ""},
		{"missing header", "", http.StatusUnauthorized, "missing_token"},
		{"malformed header no bearer", "Token " + valid, http.StatusUnauthorized, "missing_token"},
		{"bearer only no token", "Bearer", http.StatusUnauthorized, "missing_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reason string
			a := NewAuthenticator(tokens, lookup)
			a.OnFailure = func(r string) { reason = r }

			req := httptest.NewRequest(http.MethodPost, "/api/teams", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			a.RequireUser(okHandler).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if reason != tt.wantReason {
				t.Errorf("expected failure reason %q, got %q", tt.wantReason, reason)
			}
			if tt.wantStatus != http.StatusOK {
				wantCode := "unauthorized"
				if tt.wantStatus == http.StatusInternalServerError {
					wantCode = "internal_error"
				}
				assertJSONError(t, rr, wantCode)
			}
		})
	}
}

// assertJSONError checks that the response body is a failed envelope.
func assertJSONError(t *testing.T, rr *httptest.ResponseRecorder, wantCode string) {
	t.Helper()

	ct := rr.Header().Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Error.Code != wantCode {
		t.Errorf("expected error code %q, got %q", wantCode, resp.Error.Code)
	}
	if resp.Message == "" {
		t.Error("expected non-empty message")
	}
}
