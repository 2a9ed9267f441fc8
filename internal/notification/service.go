package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const listLimit = 50

// Notifier records in-app notifications. Delivery failures are logged and
// never fail the caller's request.
type Notifier interface {
	Notify(ctx context.Context, patientID uuid.UUID, title, message string, category Category)
}

// DoctorNotifier is the doctor-side counterpart of Notifier.
type DoctorNotifier interface {
	NotifyDoctor(ctx context.Context, doctorID uuid.UUID, title, message string, category Category)
}

type Service interface {
	Notifier
	DoctorNotifier
	List(ctx context.Context, patientID uuid.UUID) ([]Notification, error)
	MarkAllRead(ctx context.Context, patientID uuid.UUID) (int64, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]DoctorNotification, error)
	MarkAllReadForDoctor(ctx context.Context, doctorID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
	log  zerolog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log zerolog.Logger) Service {
	return &service{repo: repo, log: log, now: time.Now}
}

func (s *service) Notify(ctx context.Context, patientID uuid.UUID, title, message string, category Category) {
	n := &Notification{
		ID:        uuid.New(),
		PatientID: patientID,
		Title:     title,
		Message:   message,
		Category:  category,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.log.Warn().Err(err).
			Str("patient_id", patientID.String()).
			Str("category", string(category)).
			Msg("notification not stored")
	}
}

func (s *service) List(ctx context.Context, patientID uuid.UUID) ([]Notification, error) {
	return s.repo.ListByPatient(ctx, patientID, listLimit)
}

func (s *service) MarkAllRead(ctx context.Context, patientID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, patientID)
}

func (s *service) NotifyDoctor(ctx context.Context, doctorID uuid.UUID, title, message string, category Category) {
	n := &DoctorNotification{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Title:     title,
		Message:   message,
		Category:  category,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateForDoctor(ctx, n); err != nil {
		s.log.Warn().Err(err).
			Str("doctor_id", doctorID.String()).
			Str("category", string(category)).
			Msg("doctor notification not stored")
	}
}

func (s *service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]DoctorNotification, error) {
	return s.repo.ListByDoctor(ctx, doctorID, listLimit)
}

func (s *service) MarkAllReadForDoctor(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	return s.repo.MarkAllReadForDoctor(ctx, doctorID)
}
