package chat

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Message) error
	// Recent returns the newest messages in chronological order.
	Recent(ctx context.Context, patientID uuid.UUID, limit int) ([]Message, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Create(ctx context.Context, m *Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, patient_id, sender_id, sender_role, content, msg_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.PatientID, m.SenderID, m.SenderRole, m.Content, m.MsgType, m.CreatedAt)
	return err
}

func (r *postgresRepo) Recent(ctx context.Context, patientID uuid.UUID, limit int) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, sender_id, sender_role, content, msg_type, created_at FROM (
			SELECT * FROM chat_messages WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2
		) recent ORDER BY created_at ASC`,
		patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.PatientID, &m.SenderID, &m.SenderRole, &m.Content, &m.MsgType, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
