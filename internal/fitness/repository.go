package fitness

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type Repository interface {
	AddRecord(ctx context.Context, r *Record) error
	// Records returns the newest records first.
	Records(ctx context.Context, patientID uuid.UUID, limit int) ([]Record, error)
	SaveAnalysis(ctx context.Context, a *Analysis) error
	Analyses(ctx context.Context, patientID uuid.UUID, limit int) ([]Analysis, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (p *postgresRepo) AddRecord(ctx context.Context, r *Record) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO fitness_records (id, patient_id, record_date, bmi, stress_level, walking_distance, heart_rate, sleep_hours, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.PatientID, r.Date, r.BMI, r.StressLevel, r.WalkingDistance, r.HeartRate, r.SleepHours, r.Notes, r.CreatedAt)
	return err
}

func (p *postgresRepo) Records(ctx context.Context, patientID uuid.UUID, limit int) ([]Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, patient_id, record_date, bmi, stress_level, walking_distance, heart_rate, sleep_hours, notes, created_at
		FROM fitness_records WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			r                                    Record
			bmi, stress, walking, heart, sleepHr sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.PatientID, &r.Date, &bmi, &stress, &walking, &heart, &sleepHr, &r.Notes, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.BMI, r.StressLevel, r.WalkingDistance = ptr(bmi), ptr(stress), ptr(walking)
		r.HeartRate, r.SleepHours = ptr(heart), ptr(sleepHr)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *postgresRepo) SaveAnalysis(ctx context.Context, a *Analysis) error {
	result, err := json.Marshal(a.Result)
	if err != nil {
		return err
	}
	summary, err := json.Marshal(a.MetricsSummary)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO fitness_analyses (id, patient_id, data_points, analysis_result, metrics_summary, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.PatientID, a.DataPoints, result, summary, a.Source, a.CreatedAt)
	return err
}

func (p *postgresRepo) Analyses(ctx context.Context, patientID uuid.UUID, limit int) ([]Analysis, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, patient_id, data_points, analysis_result, metrics_summary, source, created_at
		FROM fitness_analyses WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		var (
			a               Analysis
			result, summary []byte
		)
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DataPoints, &result, &summary, &a.Source, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(result, &a.Result); err != nil {
			return nil, fmt.Errorf("fitness analysis %s: %w", a.ID, err)
		}
		if err := json.Unmarshal(summary, &a.MetricsSummary); err != nil {
			return nil, fmt.Errorf("fitness analysis %s summary: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func ptr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
