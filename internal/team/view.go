package team

import (
	"context"
	"fmt"
	"time"
)

// Profile is the lightweight public projection of a user.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Photo string `json:"photo,omitempty"`
}

// ProfileLookup resolves user ids to profiles. Ids it does not know are
// simply absent from the returned map.
type ProfileLookup interface {
	Profiles(ctx context.Context, ids []string) (map[string]Profile, error)
}

// View is a team with its user references resolved to profiles. It is what
// the API returns.
type View struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Sport          string     `json:"sport"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	District       string     `json:"district,omitempty"`
	SkillLevel     SkillLevel `json:"skillLevel"`
	Description    string     `json:"description"`
	ContactDetails string     `json:"contactDetails"`
	ImageURL       string     `json:"imageUrl,omitempty"`
	MaxSize        int        `json:"maxSize"`
	Members        []Profile  `json:"members"`
	JoinRequests   []Profile  `json:"joinRequests"`
	CreatedBy      Profile    `json:"createdBy"`
	IsPublic       bool       `json:"isPublic"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Projector builds Views. A nil lookup projects every id to a bare Profile.
type Projector struct {
	lookup ProfileLookup
}

// NewProjector creates a Projector over the given lookup.
func NewProjector(lookup ProfileLookup) *Projector {
	return &Projector{lookup: lookup}
}

// Project resolves a single team.
func (p *Projector) Project(ctx context.Context, t *Team) (*View, error) {
	views, err := p.ProjectAll(ctx, []*Team{t})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ProjectAll resolves many teams with one profile lookup.
func (p *Projector) ProjectAll(ctx context.Context, teams []*Team) ([]*View, error) {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, t := range teams {
		add(t.CreatedBy)
		for _, id := range t.Members {
			add(id)
		}
		for _, id := range t.JoinRequests {
			add(id)
		}
	}

	profiles := map[string]Profile{}
	if p.lookup != nil && len(ids) > 0 {
		var err error
		profiles, err = p.lookup.Profiles(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("resolving profiles: %w", err)
		}
	}

	resolve := func(id string) Profile {
		if pr, ok := profiles[id]; ok {
			pr.ID = id
			return pr
		}
		return Profile{ID: id}
	}

	views := make([]*View, 0, len(teams))
	for _, t := range teams {
		v := &View{
			ID:             t.ID,
			Name:           t.Name,
			Sport:          t.Sport,
			City:           t.City,
			State:          t.State,
			District:       t.District,
			SkillLevel:     t.SkillLevel,
			Description:    t.Description,
			ContactDetails: t.ContactDetails,
			ImageURL:       t.ImageURL,
			MaxSize:        t.MaxSize,
			Members:        make([]Profile, 0, len(t.Members)),
			JoinRequests:   make([]Profile, 0, len(t.JoinRequests)),
			CreatedBy:      resolve(t.CreatedBy),
			IsPublic:       t.IsPublic,
			CreatedAt:      t.CreatedAt,
			UpdatedAt:      t.UpdatedAt,
		}
		for _, id := range t.Members {
			v.Members = append(v.Members, resolve(id))
		}
		for _, id := range t.JoinRequests {
			v.JoinRequests = append(v.JoinRequests, resolve(id))
		}
		views = append(views, v)
	}
	return views, nil
}
