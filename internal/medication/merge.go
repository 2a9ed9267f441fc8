package medication

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medo-shield/internal/platform/apierr"
	"medo-shield/internal/platform/lock"
	"medo-shield/internal/platform/postgres"
)

// ErrScheduleContention is returned when the active reminder could not be
// written after the retry budget.
var ErrScheduleContention = apierr.New(http.StatusServiceUnavailable, "schedule_contention",
	errors.New("medication schedule is being updated, retry later"))

// ReminderStore persists the single active reminder per patient.
type ReminderStore interface {
	// UpsertActive inserts r as the active reminder or, if one exists,
	// replaces its medications, auto_generated, generation_source and
	// updated_at. It returns the stored row.
	UpsertActive(ctx context.Context, r *Reminder) (*Reminder, error)
}

type Scheduler struct {
	store    ReminderStore
	locker   lock.Locker
	log      zerolog.Logger
	now      func() time.Time
	maxTries uint
	newBack  func() backoff.BackOff
}

func NewScheduler(store ReminderStore, locker lock.Locker, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		locker:   locker,
		log:      log,
		now:      time.Now,
		maxTries: 3,
		newBack: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			return b
		},
	}
}

// Merge expands meds into time slots and writes them as the patient's
// active reminder. Calling it twice with the same input leaves one active
// reminder with the same medications.
func (s *Scheduler) Merge(ctx context.Context, patientID uuid.UUID, meds []Medication, source string) (*Reminder, error) {
	expanded := make([]Medication, 0, len(meds))
	for _, m := range meds {
		expanded = append(expanded, normalize(m))
	}

	now := s.now().UTC()
	candidate := &Reminder{
		ID:               uuid.New(),
		PatientID:        patientID,
		Medications:      expanded,
		IsActive:         true,
		AutoGenerated:    source != SourceManual,
		GenerationSource: source,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := candidate.Validate(); err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_request", err)
	}

	unlock, err := s.locker.Lock(ctx, "reminder:"+patientID.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrScheduleContention, err)
	}
	defer unlock()

	attempt := 0
	stored, err := backoff.Retry(ctx, func() (*Reminder, error) {
		attempt++
		r, err := s.store.UpsertActive(ctx, candidate)
		if err == nil {
			return r, nil
		}
		if postgres.IsTransient(err) {
			s.log.Warn().Err(err).Int("attempt", attempt).
				Str("patient_id", patientID.String()).
				Msg("reminder upsert conflict, retrying")
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}, backoff.WithBackOff(s.newBack()), backoff.WithMaxTries(s.maxTries))
	if err != nil {
		if postgres.IsTransient(err) {
			return nil, fmt.Errorf("%w: %v", ErrScheduleContention, err)
		}
		return nil, fmt.Errorf("upsert reminder: %w", err)
	}
	return stored, nil
}
