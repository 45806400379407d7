package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/sportsbro/sportsbro/internal/auth"
)

// AuthAdapter adapts a user Store to the auth.UserLookup interface.
type AuthAdapter struct {
	store Store
}

// NewAuthAdapter creates a new AuthAdapter wrapping the given user store.
func NewAuthAdapter(store Store) *AuthAdapter {
	return &AuthAdapter{store: store}
}

// LookupUser returns the auth view of the user with the given id.
func (a *AuthAdapter) LookupUser(ctx context.Context, id string) (*auth.User, error) {
	u, err := a.store.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", auth.ErrUnknownUser, err)
	}
	if err != nil {
		return nil, err
	}
	return &auth.User{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Photo: u.Photo,
	}, nil
}
