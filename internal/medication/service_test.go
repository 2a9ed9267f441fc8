package medication

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medo-shield/internal/agent"
	"medo-shield/internal/fallback"
	"medo-shield/internal/notification"
	"medo-shield/internal/patient"
)

func newTestService(repo *memRepo, gen agent.Generator) (*service, *recordingNotifier) {
	n := &recordingNotifier{}
	svc := NewService(repo, newTestScheduler(repo), NewRecommender(gen, fallback.Get(), zerolog.Nop()), n).(*service)
	return svc, n
}

func TestRecommendMergesSchedule(t *testing.T) {
	repo := newMemRepo()
	svc, n := newTestService(repo, stubGenerator{err: agent.ErrUnavailable})
	p := &patient.Patient{ID: uuid.New()}
	by := uuid.New()

	rec, rem, err := svc.Recommend(context.Background(), p, RecommendRequest{Symptoms: []string{"headache"}}, by)

	require.NoError(t, err)
	require.NotNil(t, rem)
	assert.Equal(t, by, rec.CreatedBy)
	assert.Equal(t, SourceAI, rem.GenerationSource)
	assert.True(t, rem.AutoGenerated)
	assert.Len(t, repo.recs, 1)
	require.Len(t, n.sent, 2)
	assert.Equal(t, "Medication Schedule Created", n.sent[1].Title)
}

func TestRecommendWithoutMedicationsSkipsMerge(t *testing.T) {
	repo := newMemRepo()
	svc, n := newTestService(repo, stubGenerator{err: agent.ErrUnavailable})

	_, rem, err := svc.Recommend(context.Background(), &patient.Patient{ID: uuid.New()}, RecommendRequest{Symptoms: []string{"feeling blue"}}, uuid.New())

	require.NoError(t, err)
	assert.Nil(t, rem)
	assert.Empty(t, repo.reminders)
	assert.Len(t, n.sent, 1)
}

func TestSetReminderThenSchedule(t *testing.T) {
	repo := newMemRepo()
	svc, n := newTestService(repo, stubGenerator{})
	p := &patient.Patient{ID: uuid.New()}

	empty, err := svc.Schedule(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, empty.Medications)

	_, err = svc.SetReminder(context.Background(), p, []Medication{
		{Name: "Metformin", Frequency: "twice daily"},
		{Name: "Vitamin D", Frequency: "once daily"},
	})
	require.NoError(t, err)
	assert.Equal(t, notification.CategoryMedication, n.sent[0].Category)

	view, err := svc.Schedule(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Metformin", "Vitamin D"}, view.DailySchedule["09:00"])
	assert.Equal(t, []string{"Metformin"}, view.DailySchedule["21:00"])
	assert.NotNil(t, view.CreatedAt)
}

func TestRecordTakenUpdatesAdherence(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo, stubGenerator{})
	p := &patient.Patient{ID: uuid.New()}
	now := time.Date(2026, 5, 10, 9, 5, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.SetReminder(context.Background(), p, []Medication{{Name: "Metformin", Frequency: "twice daily"}})
	require.NoError(t, err)

	at, err := svc.RecordTaken(context.Background(), p, "Metformin")
	require.NoError(t, err)
	assert.Equal(t, now, at)

	rem, err := repo.GetActive(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, rem.LastTaken)
	assert.Equal(t, now, *rem.LastTaken)
	assert.Equal(t, 7.1, rem.AdherenceRate)
}

func TestAdherence(t *testing.T) {
	assert.Equal(t, 0.0, adherence(3, 0))
	assert.Equal(t, 50.0, adherence(7, 2))
	assert.Equal(t, 100.0, adherence(30, 2))
}

func TestAlertUsesReminderDetails(t *testing.T) {
	repo := newMemRepo()
	svc, n := newTestService(repo, stubGenerator{})
	p := &patient.Patient{ID: uuid.New()}
	_, err := svc.SetReminder(context.Background(), p, []Medication{{Name: "Metformin", Dosage: "500 mg", Frequency: "twice daily"}})
	require.NoError(t, err)

	require.NoError(t, svc.Alert(context.Background(), p, "metformin", "21:00"))
	require.NoError(t, svc.Alert(context.Background(), p, "Unknown", "09:00"))

	require.Len(t, n.sent, 3)
	assert.Equal(t, "Please take 500 mg of metformin at 21:00. Take 500 mg twice daily", n.sent[1].Message)
	assert.Equal(t, "Please take your prescribed dose of Unknown at 09:00.", n.sent[2].Message)
	assert.Equal(t, notification.CategoryMedicationAlert, n.sent[2].Category)
}
