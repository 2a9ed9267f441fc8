// Package notificationtest records patient and doctor notifications for
// service tests.
package notificationtest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"medo-shield/internal/notification"
)

// Sent is one recorded notification. DoctorID is set for doctor-side ones.
type Sent struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Title     string
	Message   string
	Category  notification.Category
}

type Recorder struct {
	mu   sync.Mutex
	sent []Sent
}

func (r *Recorder) Notify(_ context.Context, patientID uuid.UUID, title, message string, category notification.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{PatientID: patientID, Title: title, Message: message, Category: category})
}

func (r *Recorder) NotifyDoctor(_ context.Context, doctorID uuid.UUID, title, message string, category notification.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{DoctorID: doctorID, Title: title, Message: message, Category: category})
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}
