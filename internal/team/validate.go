package team

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	maxNameLen        = 100
	maxShortFieldLen  = 100
	maxDescriptionLen = 2000
	maxContactLen     = 500
	maxImageURLLen    = 2048
)

var textPolicy = bluemonday.StrictPolicy()

// maxCleanPasses bounds how many entity layers cleanText peels off.
const maxCleanPasses = 8

// cleanText strips any markup from user-supplied text and trims it. Entities
// are decoded and the result sanitized again until it stops changing, so
// escaped tags cannot come back to life after decoding.
func cleanText(s string) string {
	for i := 0; i < maxCleanPasses; i++ {
		next := html.UnescapeString(textPolicy.Sanitize(s))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	// Still decoding after the cap: keep the escaped form, which holds no tags.
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

func requiredText(field, value string, maxLen int) (string, error) {
	v := cleanText(value)
	if v == "" {
		return "", invalid(field, "is required")
	}
	if len(v) > maxLen {
		return "", invalid(field, "is too long")
	}
	return v, nil
}

func optionalText(field, value string, maxLen int) (string, error) {
	v := cleanText(value)
	if len(v) > maxLen {
		return "", invalid(field, "is too long")
	}
	return v, nil
}

func validateImageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if len(raw) > maxImageURLLen {
		return "", invalid("imageUrl", "is too long")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", invalid("imageUrl", "must be an http or https URL")
	}
	return raw, nil
}

func validateSkillLevel(raw string) (SkillLevel, error) {
	if strings.TrimSpace(raw) == "" {
		return "", invalid("skillLevel", "is required")
	}
	l, ok := ParseSkillLevel(raw)
	if !ok {
		return "", invalid("skillLevel", "must be one of Beginner, Intermediate, Advanced")
	}
	return l, nil
}

// validateCreate checks and normalizes the attributes of a new team. The
// returned team has no id, owner, membership or timestamps yet.
func validateCreate(in CreateTeamInput) (*Team, error) {
	t := &Team{IsPublic: true}
	var err error

	if t.Name, err = requiredText("name", in.Name, maxNameLen); err != nil {
		return nil, err
	}
	if t.Sport, err = requiredText("sport", in.Sport, maxShortFieldLen); err != nil {
		return nil, err
	}
	if t.City, err = requiredText("city", in.City, maxShortFieldLen); err != nil {
		return nil, err
	}
	if t.State, err = requiredText("state", in.State, maxShortFieldLen); err != nil {
		return nil, err
	}
	if t.District, err = optionalText("district", in.District, maxShortFieldLen); err != nil {
		return nil, err
	}
	if t.SkillLevel, err = validateSkillLevel(in.SkillLevel); err != nil {
		return nil, err
	}
	if in.MaxSize == 0 {
		return nil, invalid("maxSize", "is required")
	}
	if in.MaxSize < MinMaxSize {
		return nil, invalid("maxSize", "must be at least 2")
	}
	t.MaxSize = in.MaxSize
	if t.Description, err = requiredText("description", in.Description, maxDescriptionLen); err != nil {
		return nil, err
	}
	if t.ContactDetails, err = requiredText("contactDetails", in.ContactDetails, maxContactLen); err != nil {
		return nil, err
	}
	if t.ImageURL, err = validateImageURL(in.ImageURL); err != nil {
		return nil, err
	}
	if in.IsPublic != nil {
		t.IsPublic = *in.IsPublic
	}
	return t, nil
}

// applyUpdate validates every present field of in against t and, only if all
// of them pass, writes them into t. Absent fields are left alone.
func applyUpdate(t *Team, in UpdateTeamInput) error {
	next := *t

	required := []struct {
		name   string
		field  Field[string]
		maxLen int
		dst    *string
	}{
		{"name", in.Name, maxNameLen, &next.Name},
		{"sport", in.Sport, maxShortFieldLen, &next.Sport},
		{"city", in.City, maxShortFieldLen, &next.City},
		{"state", in.State, maxShortFieldLen, &next.State},
		{"description", in.Description, maxDescriptionLen, &next.Description},
		{"contactDetails", in.ContactDetails, maxContactLen, &next.ContactDetails},
	}
	for _, r := range required {
		if !r.field.Set {
			continue
		}
		if r.field.Null || cleanText(r.field.Value) == "" {
			return invalid(r.name, "cannot be cleared")
		}
		v, err := requiredText(r.name, r.field.Value, r.maxLen)
		if err != nil {
			return err
		}
		*r.dst = v
	}

	if in.District.Set {
		v, err := optionalText("district", in.District.Value, maxShortFieldLen)
		if err != nil {
			return err
		}
		next.District = v
	}

	if in.ImageURL.Set {
		v, err := validateImageURL(in.ImageURL.Value)
		if err != nil {
			return err
		}
		next.ImageURL = v
	}

	if in.SkillLevel.Set {
		if in.SkillLevel.Null {
			return invalid("skillLevel", "cannot be cleared")
		}
		l, err := validateSkillLevel(in.SkillLevel.Value)
		if err != nil {
			return err
		}
		next.SkillLevel = l
	}

	if in.MaxSize.Set {
		switch {
		case in.MaxSize.Null:
			return invalid("maxSize", "cannot be cleared")
		case in.MaxSize.Value < MinMaxSize:
			return invalid("maxSize", "must be at least 2")
		case in.MaxSize.Value < len(t.Members):
			return invalid("maxSize", "cannot be less than the current number of members")
		}
		next.MaxSize = in.MaxSize.Value
	}

	if in.IsPublic.Set {
		if in.IsPublic.Null {
			return invalid("isPublic", "must be true or false")
		}
		next.IsPublic = in.IsPublic.Value
	}

	*t = next
	return nil
}
