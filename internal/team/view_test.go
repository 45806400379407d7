package team

import (
	"context"
	"errors"
	"testing"
)

type mapLookup struct {
	profiles map[string]Profile
	calls    int
	err      error
}

func (m *mapLookup) Profiles(_ context.Context, ids []string) (map[string]Profile, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]Profile)
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func TestProjectorResolvesProfiles(t *testing.T) {
	lookup := &mapLookup{profiles: map[string]Profile{
		u1: {Name: "Asha", Email: "asha@example.com", Photo: "https://img.example.com/a.png"},
		u2: {Name: "Ravi", Email: "ravi@example.com"},
	}}
	p := NewProjector(lookup)

	tm := &Team{
		ID:           "team-1",
		Name:         "Sunday Strikers",
		MaxSize:      4,
		CreatedBy:    u1,
		Members:      []string{u1, u2},
		JoinRequests: []string{u3},
		IsPublic:     true,
	}

	v, err := p.Project(context.Background(), tm)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if v.CreatedBy.ID != u1 || v.CreatedBy.Name != "Asha" {
		t.Errorf("unexpected owner profile: %+v", v.CreatedBy)
	}
	if len(v.Members) != 2 || v.Members[1].Email != "ravi@example.com" {
		t.Errorf("unexpected members: %+v", v.Members)
	}
	if len(v.JoinRequests) != 1 || v.JoinRequests[0] != (Profile{ID: u3}) {
		t.Errorf("expected unknown requester to project to id only, got %+v", v.JoinRequests)
	}
	if v.Name != tm.Name || v.MaxSize != 4 || !v.IsPublic {
		t.Errorf("attributes not copied: %+v", v)
	}
}

func TestProjectAllSingleLookup(t *testing.T) {
	lookup := &mapLookup{profiles: map[string]Profile{}}
	p := NewProjector(lookup)
	teams := []*Team{
		{ID: "a", CreatedBy: u1, Members: []string{u1}},
		{ID: "b", CreatedBy: u2, Members: []string{u2, u1}},
	}

	views, err := p.ProjectAll(context.Background(), teams)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if lookup.calls != 1 {
		t.Errorf("expected one lookup, got %d", lookup.calls)
	}
	if views[1].Members[0].ID != u2 {
		t.Errorf("expected member order kept, got %+v", views[1].Members)
	}
}

func TestProjectorEmptyLists(t *testing.T) {
	v, err := NewProjector(nil).Project(context.Background(), &Team{ID: "a", CreatedBy: u1})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if v.Members == nil || v.JoinRequests == nil {
		t.Error("expected non-nil lists so they encode as []")
	}
}

func TestProjectorLookupError(t *testing.T) {
	p := NewProjector(&mapLookup{err: errors.New("db down")})
	if _, err := p.Project(context.Background(), &Team{ID: "a", CreatedBy: u1}); err == nil {
		t.Fatal("expected error")
	}
}
