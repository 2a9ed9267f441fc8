package medication

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"medo-shield/internal/notification"
	"medo-shield/internal/patient"
)

const adherenceWindow = 7 * 24 * time.Hour

// ScheduleView is the patient's active reminder laid out by time of day.
type ScheduleView struct {
	PatientID     uuid.UUID     `json:"patient_id"`
	Medications   []Medication  `json:"medications"`
	DailySchedule DailySchedule `json:"daily_schedule"`
	AdherenceRate float64       `json:"adherence_rate"`
	LastTaken     *time.Time    `json:"last_taken"`
	CreatedAt     *time.Time    `json:"created_at"`
}

type Service interface {
	SetReminder(ctx context.Context, p *patient.Patient, meds []Medication) (*Reminder, error)
	Schedule(ctx context.Context, p *patient.Patient) (*ScheduleView, error)
	RecordTaken(ctx context.Context, p *patient.Patient, name string) (time.Time, error)
	Recommend(ctx context.Context, p *patient.Patient, req RecommendRequest, by uuid.UUID) (*Recommendation, *Reminder, error)
	Alert(ctx context.Context, p *patient.Patient, name string, slot TimeSlot) error
	ListRecommendations(ctx context.Context, patientID uuid.UUID, limit int) ([]Recommendation, error)
}

type service struct {
	repo        Repository
	scheduler   *Scheduler
	recommender *Recommender
	notifier    notification.Notifier
	now         func() time.Time
}

func NewService(repo Repository, scheduler *Scheduler, recommender *Recommender, notifier notification.Notifier) Service {
	return &service{
		repo:        repo,
		scheduler:   scheduler,
		recommender: recommender,
		notifier:    notifier,
		now:         time.Now,
	}
}

func (s *service) SetReminder(ctx context.Context, p *patient.Patient, meds []Medication) (*Reminder, error) {
	rem, err := s.scheduler.Merge(ctx, p.ID, meds, SourceManual)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, p.ID, "Medication schedule updated",
		"A new medication schedule has been added. Please review your reminders.",
		notification.CategoryMedication)
	return rem, nil
}

func (s *service) Schedule(ctx context.Context, p *patient.Patient) (*ScheduleView, error) {
	view := &ScheduleView{
		PatientID:     p.ID,
		Medications:   []Medication{},
		DailySchedule: DailySchedule{},
	}
	rem, err := s.repo.GetActive(ctx, p.ID)
	if errors.Is(err, ErrNoReminder) {
		return view, nil
	}
	if err != nil {
		return nil, err
	}
	view.Medications = rem.Medications
	view.DailySchedule = BuildDailySchedule(rem.Medications)
	view.AdherenceRate = rem.AdherenceRate
	view.LastTaken = rem.LastTaken
	view.CreatedAt = &rem.CreatedAt
	return view, nil
}

// RecordTaken logs a dose and refreshes the adherence rate: doses logged in
// the last seven days over doses scheduled in that window, as a percentage.
func (s *service) RecordTaken(ctx context.Context, p *patient.Patient, name string) (time.Time, error) {
	at := s.now().UTC()
	if err := s.repo.LogTaken(ctx, p.ID, name, at); err != nil {
		return time.Time{}, fmt.Errorf("log dose: %w", err)
	}

	rem, err := s.repo.GetActive(ctx, p.ID)
	if errors.Is(err, ErrNoReminder) {
		return at, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	taken, err := s.repo.CountTakenSince(ctx, p.ID, at.Add(-adherenceWindow))
	if err != nil {
		return time.Time{}, err
	}
	if err := s.repo.MarkTaken(ctx, p.ID, at, adherence(taken, rem.DosesPerDay())); err != nil {
		return time.Time{}, fmt.Errorf("update reminder: %w", err)
	}
	return at, nil
}

func adherence(taken, perDay int) float64 {
	if perDay <= 0 {
		return 0
	}
	rate := float64(taken) / float64(perDay*7) * 100
	return math.Round(math.Min(rate, 100)*10) / 10
}

type RecommendRequest struct {
	PatientID  string   `json:"patient_id"`
	Symptoms   []string `json:"symptoms"`
	Age        *int     `json:"age"`
	Conditions []string `json:"conditions"`
}

// Recommend stores the recommendation and, when it names medications,
// merges them into the active reminder as an AI-generated schedule.
func (s *service) Recommend(ctx context.Context, p *patient.Patient, req RecommendRequest, by uuid.UUID) (*Recommendation, *Reminder, error) {
	symptoms := strings.Join(req.Symptoms, ", ")
	age := p.AgeAt(s.now())
	if req.Age != nil && *req.Age > 0 {
		age = *req.Age
	}

	rec := s.recommender.Recommend(ctx, symptoms, age, p, req.Conditions)
	rec.ID = uuid.New()
	rec.CreatedBy = by
	rec.CreatedAt = s.now().UTC()
	if err := s.repo.SaveRecommendation(ctx, &rec); err != nil {
		return nil, nil, fmt.Errorf("save recommendation: %w", err)
	}

	s.notifier.Notify(ctx, p.ID, "Medication Recommendations Available",
		fmt.Sprintf("New medication recommendations based on your symptoms: %s", truncate(symptoms, 50)),
		notification.CategoryMedication)

	if len(rec.Medications) == 0 {
		return &rec, nil, nil
	}
	rem, err := s.scheduler.Merge(ctx, p.ID, rec.Medications, SourceAI)
	if err != nil {
		return nil, nil, err
	}
	s.notifier.Notify(ctx, p.ID, "Medication Schedule Created",
		fmt.Sprintf("A personalized medication schedule has been created with %d medications. Check your reminders!", len(rem.Medications)),
		notification.CategoryMedication)
	return &rec, rem, nil
}

func (s *service) Alert(ctx context.Context, p *patient.Patient, name string, slot TimeSlot) error {
	dosage := "your prescribed dose"
	instructions := ""
	rem, err := s.repo.GetActive(ctx, p.ID)
	if err != nil && !errors.Is(err, ErrNoReminder) {
		return err
	}
	if rem != nil {
		if m, ok := rem.Find(name); ok {
			dosage = m.Dosage
			instructions = m.Instructions
		}
	}
	msg := strings.TrimSpace(fmt.Sprintf("Please take %s of %s at %s. %s", dosage, name, slot, instructions))
	s.notifier.Notify(ctx, p.ID, "Time to take "+name, msg, notification.CategoryMedicationAlert)
	return nil
}

func (s *service) ListRecommendations(ctx context.Context, patientID uuid.UUID, limit int) ([]Recommendation, error) {
	return s.repo.ListRecommendations(ctx, patientID, limit)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
