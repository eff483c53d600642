package entity

import "time"

// Academic years accepted by onboarding. Completion rejects anything else.
var AcademicYears = []string{"1年", "2年", "3年", "4年"}

// ValidYear reports whether y is in the enumerated academic-year set
func ValidYear(y string) bool {
	for _, v := range AcademicYears {
		if v == y {
			return true
		}
	}
	return false
}

// Profile is the application-owned record keyed by the auth identity id.
// Faculty and Year stay null until onboarding; both set means complete, and
// completeness is the sole gate for protected routes.
type Profile struct {
	ID         string     `json:"id"`
	University string     `json:"university"`
	Faculty    *string    `json:"faculty"`
	Year       *string    `json:"year"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Complete reports whether both onboarding fields are set
func (p *Profile) Complete() bool {
	return p != nil && p.Faculty != nil && *p.Faculty != "" && p.Year != nil && *p.Year != ""
}
