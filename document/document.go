// Package document defines the persisted application-state record and the
// structural checks applied to untrusted bytes before they are accepted.
//
// The model is deliberately shallow: three named sections, with the profile a
// flat record and the two history sections ordered lists. Deeper per-record
// validation belongs to the form layer, not to persistence.
package document

// Document is the complete persisted application state.
//
// After Sanitize, all three sections are always present: the profile is a
// complete record and both list sections are non-nil slices.
type Document struct {
	Profile    Profile                `json:"profile"`
	Education  []EducationRecord      `json:"education"`
	Experience []WorkExperienceRecord `json:"experience"`
}

// Profile holds the flat personal-information section.
type Profile struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
}

// EducationRecord is a single entry in the education history.
type EducationRecord struct {
	School      string `json:"school"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

// WorkExperienceRecord is a single entry in the work history.
type WorkExperienceRecord struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

// Default returns the canonical default document: an empty profile and empty
// (non-nil) history sections.
func Default() Document {
	return Document{
		Profile:    Profile{},
		Education:  []EducationRecord{},
		Experience: []WorkExperienceRecord{},
	}
}

// Clone returns a deep copy of the document. Stored state and caller-held
// documents must never alias each other.
func (d Document) Clone() Document {
	out := d
	out.Education = make([]EducationRecord, len(d.Education))
	copy(out.Education, d.Education)
	out.Experience = make([]WorkExperienceRecord, len(d.Experience))
	copy(out.Experience, d.Experience)
	return out
}

// Sanitize normalizes a decoded document into a structurally complete one.
//
// The struct typing already guarantees a complete profile (absent JSON fields
// decode to the empty string), so the remaining repair is coercing nil list
// sections to empty slices. Pure and idempotent:
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(d Document) Document {
	if d.Education == nil {
		d.Education = []EducationRecord{}
	}
	if d.Experience == nil {
		d.Experience = []WorkExperienceRecord{}
	}
	return d
}
