package notification

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Notification, error)
	MarkAllRead(ctx context.Context, patientID uuid.UUID) (int64, error)

	CreateForDoctor(ctx context.Context, n *DoctorNotification) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]DoctorNotification, error)
	MarkAllReadForDoctor(ctx context.Context, doctorID uuid.UUID) (int64, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Create(ctx context.Context, n *Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, patient_id, title, message, category, is_read, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.PatientID, n.Title, n.Message, n.Category, n.IsRead, n.CreatedAt)
	return err
}

func (r *postgresRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, patient_id, title, message, category, is_read, created_at FROM notifications WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.PatientID, &n.Title, &n.Message, &n.Category, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *postgresRepo) MarkAllRead(ctx context.Context, patientID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE patient_id = $1 AND NOT is_read`, patientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *postgresRepo) CreateForDoctor(ctx context.Context, n *DoctorNotification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO doctor_notifications (id, doctor_id, title, message, category, is_read, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.DoctorID, n.Title, n.Message, n.Category, n.IsRead, n.CreatedAt)
	return err
}

func (r *postgresRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]DoctorNotification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, doctor_id, title, message, category, is_read, created_at FROM doctor_notifications WHERE doctor_id = $1 ORDER BY created_at DESC LIMIT $2`,
		doctorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DoctorNotification{}
	for rows.Next() {
		var n DoctorNotification
		if err := rows.Scan(&n.ID, &n.DoctorID, &n.Title, &n.Message, &n.Category, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *postgresRepo) MarkAllReadForDoctor(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE doctor_notifications SET is_read = TRUE WHERE doctor_id = $1 AND NOT is_read`, doctorID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
