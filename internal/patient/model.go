package patient

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	DateOfBirth        *time.Time `json:"date_of_birth,omitempty"`
	Age                *int       `json:"age,omitempty"`
	MedicalHistory     string     `json:"medical_history"`
	Allergies          []string   `json:"allergies"`
	CurrentMedications []string   `json:"current_medications"`
	CreatedAt          time.Time  `json:"created_at"`
}

func (p *Patient) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// AgeAt prefers the stored age and falls back to the date of birth.
func (p *Patient) AgeAt(now time.Time) int {
	if p.Age != nil {
		return *p.Age
	}
	if p.DateOfBirth == nil {
		return 0
	}
	dob := *p.DateOfBirth
	age := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
