package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Assessment) error
	// Since returns assessments dated at or after from, oldest first.
	Since(ctx context.Context, patientID uuid.UUID, from time.Time, limit int) ([]Assessment, error)
	// Latest returns the newest assessments first.
	Latest(ctx context.Context, patientID uuid.UUID, limit int) ([]Assessment, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const columns = `id, patient_id, risk_date, disease_risk_score, disease_risk_level, risk_factors, recommendations, lab_results, wearable_metrics, next_screening_date, created_by, created_at`

func (r *postgresRepo) Create(ctx context.Context, a *Assessment) error {
	factors, err := json.Marshal(nonNil(a.RiskFactors))
	if err != nil {
		return err
	}
	recs, err := json.Marshal(nonNil(a.Recommendations))
	if err != nil {
		return err
	}
	labs, err := json.Marshal(nonNilMap(a.LabResults))
	if err != nil {
		return err
	}
	wearable, err := json.Marshal(nonNilMap(a.WearableMetrics))
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO health_risk_assessments (`+columns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.PatientID, a.RiskDate, a.DiseaseRiskScore, a.DiseaseRiskLevel,
		factors, recs, labs, wearable, a.NextScreeningDate, a.CreatedBy, a.CreatedAt)
	return err
}

func (r *postgresRepo) Since(ctx context.Context, patientID uuid.UUID, from time.Time, limit int) ([]Assessment, error) {
	return r.query(ctx,
		`SELECT `+columns+` FROM health_risk_assessments WHERE patient_id = $1 AND risk_date >= $2 ORDER BY risk_date ASC LIMIT $3`,
		patientID, from, limit)
}

func (r *postgresRepo) Latest(ctx context.Context, patientID uuid.UUID, limit int) ([]Assessment, error) {
	return r.query(ctx,
		`SELECT `+columns+` FROM health_risk_assessments WHERE patient_id = $1 ORDER BY risk_date DESC LIMIT $2`,
		patientID, limit)
}

func (r *postgresRepo) query(ctx context.Context, query string, args ...any) ([]Assessment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Assessment{}
	for rows.Next() {
		var (
			a                             Assessment
			factors, recs, labs, wearable []byte
			next                          sql.NullTime
		)
		err := rows.Scan(&a.ID, &a.PatientID, &a.RiskDate, &a.DiseaseRiskScore, &a.DiseaseRiskLevel,
			&factors, &recs, &labs, &wearable, &next, &a.CreatedBy, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		if err := unmarshalAll(
			field{factors, &a.RiskFactors},
			field{recs, &a.Recommendations},
			field{labs, &a.LabResults},
			field{wearable, &a.WearableMetrics},
		); err != nil {
			return nil, fmt.Errorf("assessment %s: %w", a.ID, err)
		}
		if next.Valid {
			t := next.Time
			a.NextScreeningDate = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type field struct {
	raw []byte
	dst any
}

func unmarshalAll(fields ...field) error {
	var errs []error
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
