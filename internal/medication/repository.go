package medication

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNoReminder = errors.New("no active reminder")

type Repository interface {
	ReminderStore
	GetActive(ctx context.Context, patientID uuid.UUID) (*Reminder, error)
	LogTaken(ctx context.Context, patientID uuid.UUID, name string, at time.Time) error
	CountTakenSince(ctx context.Context, patientID uuid.UUID, since time.Time) (int, error)
	MarkTaken(ctx context.Context, patientID uuid.UUID, at time.Time, adherence float64) error
	SaveRecommendation(ctx context.Context, rec *Recommendation) error
	ListRecommendations(ctx context.Context, patientID uuid.UUID, limit int) ([]Recommendation, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const reminderColumns = `id, patient_id, medications, is_active, adherence_rate, auto_generated, generation_source, last_taken, created_at, updated_at`

func (r *postgresRepo) UpsertActive(ctx context.Context, rem *Reminder) (*Reminder, error) {
	if err := rem.Validate(); err != nil {
		return nil, err
	}
	medsJSON, err := json.Marshal(rem.Medications)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO medication_reminders (id, patient_id, medications, is_active, adherence_rate, auto_generated, generation_source, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, 0, $4, $5, $6, $6)
		ON CONFLICT (patient_id) WHERE is_active DO UPDATE SET
			medications = EXCLUDED.medications,
			auto_generated = EXCLUDED.auto_generated,
			generation_source = EXCLUDED.generation_source,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + reminderColumns
	row := r.db.QueryRowContext(ctx, query,
		rem.ID, rem.PatientID, medsJSON, rem.AutoGenerated, rem.GenerationSource, rem.UpdatedAt)
	return scanReminder(row)
}

func (r *postgresRepo) GetActive(ctx context.Context, patientID uuid.UUID) (*Reminder, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM medication_reminders WHERE patient_id = $1 AND is_active`, patientID)
	rem, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoReminder
	}
	return rem, err
}

func scanReminder(row *sql.Row) (*Reminder, error) {
	var (
		rem       Reminder
		medsJSON  []byte
		lastTaken sql.NullTime
	)
	err := row.Scan(&rem.ID, &rem.PatientID, &medsJSON, &rem.IsActive, &rem.AdherenceRate,
		&rem.AutoGenerated, &rem.GenerationSource, &lastTaken, &rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastTaken.Valid {
		rem.LastTaken = &lastTaken.Time
	}
	if len(medsJSON) > 0 {
		if err := json.Unmarshal(medsJSON, &rem.Medications); err != nil {
			return nil, fmt.Errorf("failed to unmarshal medications: %w", err)
		}
	}
	return &rem, nil
}

func (r *postgresRepo) LogTaken(ctx context.Context, patientID uuid.UUID, name string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO medication_logs (id, patient_id, medication_name, taken_at) VALUES ($1, $2, $3, $4)`,
		uuid.New(), patientID, name, at)
	return err
}

func (r *postgresRepo) CountTakenSince(ctx context.Context, patientID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM medication_logs WHERE patient_id = $1 AND taken_at >= $2`,
		patientID, since).Scan(&n)
	return n, err
}

func (r *postgresRepo) MarkTaken(ctx context.Context, patientID uuid.UUID, at time.Time, adherence float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE medication_reminders SET last_taken = $2, updated_at = $2, adherence_rate = $3 WHERE patient_id = $1 AND is_active`,
		patientID, at, adherence)
	return err
}

func (r *postgresRepo) SaveRecommendation(ctx context.Context, rec *Recommendation) error {
	medsJSON, err := json.Marshal(rec.Medications)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO medication_recommendations (id, patient_id, symptoms, age, matched_condition, ai_analysis, source, medications, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.PatientID, rec.Symptoms, rec.Age, rec.MatchedCondition, rec.AIAnalysis,
		rec.Source, medsJSON, rec.CreatedBy, rec.CreatedAt)
	return err
}

func (r *postgresRepo) ListRecommendations(ctx context.Context, patientID uuid.UUID, limit int) ([]Recommendation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, symptoms, age, matched_condition, ai_analysis, source, medications, created_by, created_at
		FROM medication_recommendations WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Recommendation{}
	for rows.Next() {
		var (
			rec      Recommendation
			age      sql.NullInt64
			medsJSON []byte
		)
		if err := rows.Scan(&rec.ID, &rec.PatientID, &rec.Symptoms, &age, &rec.MatchedCondition,
			&rec.AIAnalysis, &rec.Source, &medsJSON, &rec.CreatedBy, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Age = int(age.Int64)
		if err := json.Unmarshal(medsJSON, &rec.Medications); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommended medications: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
