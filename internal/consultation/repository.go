package consultation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type Repository interface {
	// Append stores an exchange atomically.
	Append(ctx context.Context, msgs ...Message) error
	Recent(ctx context.Context, patientID uuid.UUID, limit int) ([]Message, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Append(ctx context.Context, msgs ...Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO chatbot_messages (id, patient_id, exchange_id, role, content, suggested_specialty, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, m := range msgs {
		if _, err := tx.ExecContext(ctx, query,
			m.ID, m.PatientID, m.ExchangeID, m.Role, m.Content, m.SuggestedSpecialty, m.CreatedAt); err != nil {
			return fmt.Errorf("insert %s message: %w", m.Role, err)
		}
	}
	return tx.Commit()
}

// Recent returns the newest messages in chronological order.
func (r *postgresRepo) Recent(ctx context.Context, patientID uuid.UUID, limit int) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, exchange_id, role, content, suggested_specialty, created_at FROM (
			SELECT * FROM chatbot_messages WHERE patient_id = $1 ORDER BY created_at DESC, role DESC LIMIT $2
		) recent ORDER BY created_at ASC, role DESC`,
		patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var (
			m         Message
			specialty sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.PatientID, &m.ExchangeID, &m.Role, &m.Content, &specialty, &m.CreatedAt); err != nil {
			return nil, err
		}
		if specialty.Valid {
			s := specialty.String
			m.SuggestedSpecialty = &s
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
