package patient

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("patient not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	HasActiveAssignment(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
	// ActiveDoctor returns the doctor currently assigned to the patient.
	// The bool is false when there is none.
	ActiveDoctor(ctx context.Context, patientID uuid.UUID) (uuid.UUID, bool, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const selectPatient = `SELECT id, user_id, first_name, last_name, date_of_birth, age, medical_history, allergies, current_medications, created_at FROM patients`

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, selectPatient+` WHERE id = $1`, id))
}

func (r *postgresRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, selectPatient+` WHERE user_id = $1`, userID))
}

func (r *postgresRepo) scanOne(row *sql.Row) (*Patient, error) {
	var (
		p                       Patient
		dob                     sql.NullTime
		age                     sql.NullInt64
		allergiesJSON, medsJSON []byte
	)
	err := row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &dob, &age,
		&p.MedicalHistory, &allergiesJSON, &medsJSON, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if dob.Valid {
		p.DateOfBirth = &dob.Time
	}
	if age.Valid {
		a := int(age.Int64)
		p.Age = &a
	}
	if len(allergiesJSON) > 0 {
		if err := json.Unmarshal(allergiesJSON, &p.Allergies); err != nil {
			return nil, fmt.Errorf("failed to unmarshal allergies: %w", err)
		}
	}
	if len(medsJSON) > 0 {
		if err := json.Unmarshal(medsJSON, &p.CurrentMedications); err != nil {
			return nil, fmt.Errorf("failed to unmarshal current medications: %w", err)
		}
	}
	return &p, nil
}

func (r *postgresRepo) HasActiveAssignment(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM patient_doctor_assignments WHERE patient_id = $1 AND doctor_id = $2 AND is_active)`,
		patientID, doctorID).Scan(&ok)
	return ok, err
}

func (r *postgresRepo) ActiveDoctor(ctx context.Context, patientID uuid.UUID) (uuid.UUID, bool, error) {
	var doctorID uuid.UUID
	err := r.db.QueryRowContext(ctx,
		`SELECT doctor_id FROM patient_doctor_assignments WHERE patient_id = $1 AND is_active ORDER BY created_at DESC LIMIT 1`,
		patientID).Scan(&doctorID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return doctorID, true, nil
}
