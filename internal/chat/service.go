package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"medo-shield/internal/notification"
	"medo-shield/internal/patient"
	"medo-shield/internal/platform/apierr"
	"medo-shield/internal/platform/auth"
)

const (
	DefaultListLimit = 100
	maxListLimit     = 500
	maxContentChars  = 4000
	previewChars     = 100
)

var errNoDoctor = apierr.Forbidden("No doctor assigned yet")

// Assignments finds the doctor currently responsible for a patient.
type Assignments interface {
	ActiveDoctor(ctx context.Context, patientID uuid.UUID) (uuid.UUID, bool, error)
}

// Notifier reaches both sides of the thread.
type Notifier interface {
	notification.Notifier
	notification.DoctorNotifier
}

type Service interface {
	Messages(ctx context.Context, p *patient.Patient, who auth.Identity, limit int) ([]Message, error)
	Send(ctx context.Context, p *patient.Patient, who auth.Identity, content string) (*Message, error)
}

type service struct {
	repo        Repository
	assignments Assignments
	notifier    Notifier
	now         func() time.Time
}

func NewService(repo Repository, assignments Assignments, notifier Notifier) Service {
	return &service{repo: repo, assignments: assignments, notifier: notifier, now: time.Now}
}

// Messages lists the thread. A patient without an assigned doctor has no
// thread yet.
func (s *service) Messages(ctx context.Context, p *patient.Patient, who auth.Identity, limit int) ([]Message, error) {
	if who.Role == auth.RolePatient {
		if _, err := s.doctorOf(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return s.repo.Recent(ctx, p.ID, limit)
}

// Send stores a text message and notifies the other side.
func (s *service) Send(ctx context.Context, p *patient.Patient, who auth.Identity, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apierr.BadRequest("invalid_request", "content is required")
	}
	if len([]rune(content)) > maxContentChars {
		return nil, apierr.BadRequest("invalid_request", fmt.Sprintf("content is longer than %d characters", maxContentChars))
	}
	doctorID, err := s.doctorOf(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	m := &Message{
		ID:         uuid.New(),
		PatientID:  p.ID,
		SenderID:   who.UserID,
		SenderRole: who.Role,
		Content:    content,
		MsgType:    MsgTypeText,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("store chat message: %w", err)
	}

	msg := preview(content)
	if who.Role == auth.RoleDoctor {
		s.notifier.Notify(ctx, p.ID, "New message from your Doctor", msg, notification.CategoryChat)
	} else {
		s.notifier.NotifyDoctor(ctx, doctorID, "New message from your Patient", msg, notification.CategoryChat)
	}
	return m, nil
}

func (s *service) doctorOf(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	doctorID, ok, err := s.assignments.ActiveDoctor(ctx, patientID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load assignment: %w", err)
	}
	if !ok {
		return uuid.Nil, errNoDoctor
	}
	return doctorID, nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewChars {
		return s
	}
	return string(r[:previewChars]) + "…"
}
