package chat

import (
	"time"

	"github.com/google/uuid"

	"medo-shield/internal/platform/auth"
)

const MsgTypeText = "text"

// Message is one line of the doctor-patient thread. SenderRole tells which
// side wrote it.
type Message struct {
	ID         uuid.UUID `json:"id"`
	PatientID  uuid.UUID `json:"patient_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderRole auth.Role `json:"sender_role"`
	Content    string    `json:"content"`
	MsgType    string    `json:"msg_type"`
	CreatedAt  time.Time `json:"created_at"`
}
