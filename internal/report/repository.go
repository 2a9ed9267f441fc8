package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("report not found")

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Report, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const columns = `id, patient_id, report_type, generated_by_ai, content, key_findings, recommendations, created_by, created_at`

func (p *postgresRepo) Create(ctx context.Context, r *Report) error {
	findings, err := json.Marshal(r.KeyFindings)
	if err != nil {
		return err
	}
	recs, err := json.Marshal(r.Recommendations)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO ai_reports (`+columns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.PatientID, r.ReportType, r.GeneratedByAI, r.Content, findings, recs, r.CreatedBy, r.CreatedAt)
	return err
}

func (p *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+columns+` FROM ai_reports WHERE id = $1`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (p *postgresRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Report, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+columns+` FROM ai_reports WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*Report, error) {
	var (
		r              Report
		findings, recs []byte
	)
	if err := s.Scan(&r.ID, &r.PatientID, &r.ReportType, &r.GeneratedByAI, &r.Content, &findings, &recs, &r.CreatedBy, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(findings, &r.KeyFindings); err != nil {
		return nil, fmt.Errorf("report %s findings: %w", r.ID, err)
	}
	if err := json.Unmarshal(recs, &r.Recommendations); err != nil {
		return nil, fmt.Errorf("report %s recommendations: %w", r.ID, err)
	}
	return &r, nil
}
