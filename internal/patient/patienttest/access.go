// Package patienttest provides patient lookup stubs for handler tests.
package patienttest

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"medo-shield/internal/patient"
	"medo-shield/internal/platform/apierr"
	"medo-shield/internal/platform/auth"
)

// Access grants every caller access to the patients it holds and answers
// 404 for any other id.
type Access struct {
	Patients []*patient.Patient
}

func (a Access) VerifyAccess(_ context.Context, rawID string, _ auth.Identity) (*patient.Patient, error) {
	for _, p := range a.Patients {
		if p.ID.String() == rawID {
			return p, nil
		}
	}
	return nil, apierr.NotFound("patient_not_found", "Patient not found")
}

// Forbidden denies everything.
type Forbidden struct{}

func (Forbidden) VerifyAccess(context.Context, string, auth.Identity) (*patient.Patient, error) {
	return nil, apierr.New(http.StatusForbidden, "forbidden", nil)
}

// Repo is an in-memory patient.Repository in which every doctor is assigned
// to every patient. ActiveDoctor reports Doctor, or none when it is unset.
type Repo struct {
	Patients []*patient.Patient
	Doctor   uuid.UUID
}

func (r Repo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	for _, p := range r.Patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (r Repo) GetByUserID(_ context.Context, userID uuid.UUID) (*patient.Patient, error) {
	for _, p := range r.Patients {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (r Repo) HasActiveAssignment(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}

func (r Repo) ActiveDoctor(context.Context, uuid.UUID) (uuid.UUID, bool, error) {
	return r.Doctor, r.Doctor != uuid.Nil, nil
}
