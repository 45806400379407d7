package team

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// SkillLevel is the advertised playing level of a team.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "Beginner"
	SkillIntermediate SkillLevel = "Intermediate"
	SkillAdvanced     SkillLevel = "Advanced"
)

var skillLevels = []SkillLevel{SkillBeginner, SkillIntermediate, SkillAdvanced}

// ParseSkillLevel matches s case-insensitively against the known levels.
func ParseSkillLevel(s string) (SkillLevel, bool) {
	s = strings.TrimSpace(s)
	for _, l := range skillLevels {
		if strings.EqualFold(s, string(l)) {
			return l, true
		}
	}
	return "", false
}

// MinMaxSize is the smallest capacity a team may declare.
const MinMaxSize = 2

// Team is the aggregate root for a team and its membership.
type Team struct {
	ID             string     `json:"id" bson:"_id"`
	Name           string     `json:"name" bson:"name"`
	Sport          string     `json:"sport" bson:"sport"`
	City           string     `json:"city" bson:"city"`
	State          string     `json:"state" bson:"state"`
	District       string     `json:"district,omitempty" bson:"district,omitempty"`
	SkillLevel     SkillLevel `json:"skillLevel" bson:"skill_level"`
	Description    string     `json:"description" bson:"description"`
	ContactDetails string     `json:"contactDetails" bson:"contact_details"`
	ImageURL       string     `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	MaxSize        int        `json:"maxSize" bson:"max_size"`
	Members        []string   `json:"members" bson:"members"`
	JoinRequests   []string   `json:"joinRequests" bson:"join_requests"`
	CreatedBy      string     `json:"createdBy" bson:"created_by"`
	IsPublic       bool       `json:"isPublic" bson:"is_public"`
	Version        int64      `json:"-" bson:"version"`
	CreatedAt      time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" bson:"updated_at"`
}

// Clone returns a deep copy so callers can mutate it without touching the
// original slices.
func (t *Team) Clone() *Team {
	c := *t
	c.Members = slices.Clone(t.Members)
	c.JoinRequests = slices.Clone(t.JoinRequests)
	if c.Members == nil {
		c.Members = []string{}
	}
	if c.JoinRequests == nil {
		c.JoinRequests = []string{}
	}
	return &c
}

// IsOwner reports whether userID created the team.
func (t *Team) IsOwner(userID string) bool {
	return t.CreatedBy == userID
}

// IsMember reports whether userID is in the member list.
func (t *Team) IsMember(userID string) bool {
	return slices.Contains(t.Members, userID)
}

// HasRequested reports whether userID has a pending join request.
func (t *Team) HasRequested(userID string) bool {
	return slices.Contains(t.JoinRequests, userID)
}

// IsFull reports whether the team has reached capacity.
func (t *Team) IsFull() bool {
	return len(t.Members) >= t.MaxSize
}

// without returns ids with every occurrence of id removed.
func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// CreateTeamInput holds the attributes supplied when creating a team.
type CreateTeamInput struct {
	Name           string `json:"name"`
	Sport          string `json:"sport"`
	City           string `json:"city"`
	State          string `json:"state"`
	District       string `json:"district"`
	SkillLevel     string `json:"skillLevel"`
	Description    string `json:"description"`
	ContactDetails string `json:"contactDetails"`
	ImageURL       string `json:"imageUrl"`
	MaxSize        int    `json:"maxSize"`
	IsPublic       *bool  `json:"isPublic"`
}

// Field is a patch value that remembers whether its key was present in the
// request. A present key replaces the stored value, including an explicit
// null or empty string; an absent key leaves it unchanged.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Value returns a Field holding v.
func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a Field holding an explicit null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON is only invoked when the key is present, which is what makes
// absence observable.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// UpdateTeamInput is a partial update of a team's descriptive attributes.
// Membership fields and the owner cannot be changed through it.
type UpdateTeamInput struct {
	Name           Field[string] `json:"name"`
	Sport          Field[string] `json:"sport"`
	City           Field[string] `json:"city"`
	State          Field[string] `json:"state"`
	District       Field[string] `json:"district"`
	SkillLevel     Field[string] `json:"skillLevel"`
	Description    Field[string] `json:"description"`
	ContactDetails Field[string] `json:"contactDetails"`
	ImageURL       Field[string] `json:"imageUrl"`
	MaxSize        Field[int]    `json:"maxSize"`
	IsPublic       Field[bool]   `json:"isPublic"`
}

// Filter narrows a team listing. Empty fields are ignored.
type Filter struct {
	Sport      string
	City       string
	State      string
	District   string
	SkillLevel string
	// Search matches name or description, case-insensitively.
	Search string
	// MemberID restricts the listing to teams the user belongs to.
	MemberID string
}

// Matches applies the filter to a single team in memory.
func (f Filter) Matches(t *Team) bool {
	if !equalFoldIfSet(f.Sport, t.Sport) ||
		!equalFoldIfSet(f.City, t.City) ||
		!equalFoldIfSet(f.State, t.State) ||
		!equalFoldIfSet(f.District, t.District) ||
		!equalFoldIfSet(f.SkillLevel, string(t.SkillLevel)) {
		return false
	}
	if f.MemberID != "" && !t.IsMember(f.MemberID) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(t.Name), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

func equalFoldIfSet(want, got string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, got)
}
