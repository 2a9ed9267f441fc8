package notification

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryMedication      Category = "medication"
	CategoryMedicationAlert Category = "medication_alert"
	CategoryReport          Category = "report"
	CategoryRisk            Category = "risk"
	CategoryChat            Category = "chat"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  Category  `json:"category"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// DoctorNotification is addressed to a doctor rather than a patient.
type DoctorNotification struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  Category  `json:"category"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
