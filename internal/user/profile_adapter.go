package user

import (
	"context"
	"errors"

	"github.com/sportsbro/sportsbro/internal/team"
)

// ProfileAdapter exposes a user Store to the team package, both for profile
// projection and for target-user existence checks.
type ProfileAdapter struct {
	store Store
}

// NewProfileAdapter creates a ProfileAdapter.
func NewProfileAdapter(store Store) *ProfileAdapter {
	return &ProfileAdapter{store: store}
}

// Profiles implements team.ProfileLookup.
func (a *ProfileAdapter) Profiles(ctx context.Context, ids []string) (map[string]team.Profile, error) {
	users, err := a.store.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]team.Profile, len(users))
	for _, u := range users {
		out[u.ID] = ToProfile(u)
	}
	return out, nil
}

// Exists implements team.UserChecker.
func (a *ProfileAdapter) Exists(ctx context.Context, id string) (bool, error) {
	_, err := a.store.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ToProfile projects a user to its public profile.
func ToProfile(u *User) team.Profile {
	return team.Profile{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Photo: u.Photo,
	}
}
