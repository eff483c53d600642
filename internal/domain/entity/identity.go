package entity

import (
	"fmt"
	"time"
)

// Identity is the provider-owned user record as this application sees it.
// The metadata bag is untyped on the wire; ParseMetadata is the only place
// that reads it.
type Identity struct {
	ID          string
	Email       string
	ConfirmedAt *time.Time
	Metadata    IdentityMetadata
	CreatedAt   time.Time
}

// Confirmed reports whether the provider has marked the email verified
func (i *Identity) Confirmed() bool {
	return i.ConfirmedAt != nil && !i.ConfirmedAt.IsZero()
}

// IdentityMetadata is the typed view of the provider's free-form metadata
// bag. Missing fields stay zero; extra fields are dropped.
type IdentityMetadata struct {
	Name             string
	University       string
	Faculty          string
	Department       string
	Year             string
	PenName          string
	ProfileCompleted bool
}

// ParseMetadata converts the untyped metadata bag into IdentityMetadata.
// It tolerates missing and extra fields and non-string values explicitly.
func ParseMetadata(raw map[string]any) IdentityMetadata {
	md := IdentityMetadata{
		Name:       strField(raw, "name"),
		University: strField(raw, "university"),
		Faculty:    strField(raw, "faculty"),
		Department: strField(raw, "department"),
		Year:       strField(raw, "year"),
		PenName:    strField(raw, "pen_name"),
	}
	if v, ok := raw["profile_completed"]; ok {
		switch x := v.(type) {
		case bool:
			md.ProfileCompleted = x
		case string:
			md.ProfileCompleted = x == "true"
		}
	}
	return md
}

// ToMap serializes the metadata back into the provider's bag shape
func (m IdentityMetadata) ToMap() map[string]any {
	return map[string]any{
		"name":              m.Name,
		"university":        m.University,
		"faculty":           m.Faculty,
		"department":        m.Department,
		"year":              m.Year,
		"pen_name":          m.PenName,
		"profile_completed": m.ProfileCompleted,
	}
}

func strField(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
