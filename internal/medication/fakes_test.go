package medication

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"medo-shield/internal/notification"
)

// memRepo mimics the partial unique index: one active reminder per patient,
// updated in place.
type memRepo struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]*Reminder
	logs      []time.Time
	recs      []Recommendation
	upserts   int
	failNext  []error
}

func newMemRepo() *memRepo {
	return &memRepo{reminders: map[uuid.UUID]*Reminder{}}
}

func (m *memRepo) UpsertActive(_ context.Context, r *Reminder) (*Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if len(m.failNext) > 0 {
		err := m.failNext[0]
		m.failNext = m.failNext[1:]
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if cur, ok := m.reminders[r.PatientID]; ok {
		cur.Medications = r.Medications
		cur.AutoGenerated = r.AutoGenerated
		cur.GenerationSource = r.GenerationSource
		cur.UpdatedAt = r.UpdatedAt
		out := *cur
		return &out, nil
	}
	stored := *r
	stored.IsActive = true
	stored.AdherenceRate = 0
	m.reminders[r.PatientID] = &stored
	out := stored
	return &out, nil
}

func (m *memRepo) GetActive(_ context.Context, patientID uuid.UUID) (*Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[patientID]
	if !ok {
		return nil, ErrNoReminder
	}
	out := *r
	return &out, nil
}

func (m *memRepo) LogTaken(_ context.Context, _ uuid.UUID, _ string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, at)
	return nil
}

func (m *memRepo) CountTakenSince(_ context.Context, _ uuid.UUID, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, at := range m.logs {
		if !at.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) MarkTaken(_ context.Context, patientID uuid.UUID, at time.Time, adherence float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reminders[patientID]; ok {
		r.LastTaken = &at
		r.UpdatedAt = at
		r.AdherenceRate = adherence
	}
	return nil
}

func (m *memRepo) SaveRecommendation(_ context.Context, rec *Recommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, *rec)
	return nil
}

func (m *memRepo) ListRecommendations(_ context.Context, _ uuid.UUID, limit int) ([]Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.recs) > limit {
		return m.recs[:limit], nil
	}
	return m.recs, nil
}

type sent struct {
	Title    string
	Message  string
	Category notification.Category
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) Notify(_ context.Context, _ uuid.UUID, title, message string, category notification.Category) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{title, message, category})
}

type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) Generate(context.Context, string) (string, error) {
	return g.text, g.err
}
