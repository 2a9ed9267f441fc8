package consultation

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation history sent by the client.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message is a stored chat line. A user message and the reply to it share an
// ExchangeID.
type Message struct {
	ID                 uuid.UUID `json:"id"`
	PatientID          uuid.UUID `json:"patient_id"`
	ExchangeID         uuid.UUID `json:"exchange_id"`
	Role               Role      `json:"role"`
	Content            string    `json:"content"`
	SuggestedSpecialty *string   `json:"suggested_specialty,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type Reply struct {
	PatientID          uuid.UUID `json:"patient_id"`
	UserMessage        string    `json:"user_message"`
	AssistantResponse  string    `json:"assistant_response"`
	SuggestedSpecialty *string   `json:"suggested_specialty"`
	Source             string    `json:"source"`
	Timestamp          time.Time `json:"timestamp"`
}
