package medication

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medo-shield/internal/agent"
	"medo-shield/internal/fallback"
	"medo-shield/internal/patient"
)

const medsReply = `MATCHED_CONDITION: Tension headache
AI_ANALYSIS: Likely stress related. Hydrate and rest.
MEDICATIONS_JSON: [
  {"name": "Paracetamol", "dosage": "500 mg", "frequency": "every 6 hours", "max_daily": "4 g", "confidence": 0.8},
  {"name": "Aspirin", "dosage": "300 mg", "frequency": "twice daily", "confidence": 70},
  {"dosage": "nameless"},
  "junk"
]`

func TestRecommendFromModel(t *testing.T) {
	r := NewRecommender(stubGenerator{text: medsReply}, fallback.Get(), zerolog.Nop())
	p := &patient.Patient{ID: uuid.New(), Allergies: []string{"aspirin"}}

	rec := r.Recommend(context.Background(), "headache", 30, p, nil)

	assert.Equal(t, RecommendationSourceAI, rec.Source)
	assert.Equal(t, "Tension headache", rec.MatchedCondition)
	assert.Equal(t, "Likely stress related. Hydrate and rest.", rec.AIAnalysis)
	require.Len(t, rec.Medications, 1)
	assert.Equal(t, "Paracetamol", rec.Medications[0].Name)
	assert.Equal(t, []TimeSlot{"00:00", "06:00", "12:00", "18:00"}, rec.Medications[0].TimeSlots)
}

func TestRecommendFallsBackToRules(t *testing.T) {
	payloads := fallback.Get()
	r := NewRecommender(stubGenerator{err: agent.ErrUnavailable}, payloads, zerolog.Nop())
	p := &patient.Patient{ID: uuid.New()}

	rec := r.Recommend(context.Background(), "fever, chills", 40, p, nil)

	assert.Equal(t, RecommendationSourceRules, rec.Source)
	assert.Equal(t, "Fever", rec.MatchedCondition)
	require.Len(t, rec.Medications, 1)
	assert.Equal(t, "Paracetamol", rec.Medications[0].Name)
	assert.Len(t, rec.Medications[0].TimeSlots, 5)
}

func TestRecommendRulesFilterByAge(t *testing.T) {
	r := NewRecommender(stubGenerator{err: agent.ErrUnavailable}, fallback.Get(), zerolog.Nop())
	p := &patient.Patient{ID: uuid.New()}

	child := r.Recommend(context.Background(), "diarrhea", 8, p, nil)
	adult := r.Recommend(context.Background(), "diarrhea", 30, p, nil)

	assert.Len(t, child.Medications, 1)
	assert.Len(t, adult.Medications, 2)
}

func TestRecommendUnmatchedSymptoms(t *testing.T) {
	r := NewRecommender(stubGenerator{text: "I cannot help with that."}, fallback.Get(), zerolog.Nop())

	rec := r.Recommend(context.Background(), "feeling blue", 30, &patient.Patient{ID: uuid.New()}, nil)

	assert.Equal(t, RecommendationSourceRules, rec.Source)
	assert.Equal(t, fallback.Get().Medication.UnmatchedCondition, rec.MatchedCondition)
	assert.NotNil(t, rec.Medications)
	assert.Empty(t, rec.Medications)
}
