package consultation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medo-shield/internal/agent"
	"medo-shield/internal/assessment"
	"medo-shield/internal/fallback"
	"medo-shield/internal/interpret"
	"medo-shield/internal/patient"
	"medo-shield/internal/patient/patienttest"
	"medo-shield/internal/platform/auth"
)

type memRepo struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (m *memRepo) Append(_ context.Context, msgs ...Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *memRepo) Recent(_ context.Context, _ uuid.UUID, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.msgs) > limit {
		return m.msgs[len(m.msgs)-limit:], nil
	}
	return m.msgs, nil
}

type stubGenerator struct {
	text   string
	err    error
	prompt string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.text, g.err
}

type risks []assessment.Assessment

func (r risks) Latest(context.Context, uuid.UUID, int) ([]assessment.Assessment, error) {
	return r, nil
}

func newTestService(repo Repository, gen agent.Generator, latest risks) *service {
	return &service{
		repo:     repo,
		gen:      gen,
		risks:    latest,
		payloads: fallback.Get(),
		log:      zerolog.Nop(),
		now:      func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) },
	}
}

func TestReplySplitsSpecialtyTag(t *testing.T) {
	repo := &memRepo{}
	gen := &stubGenerator{text: "Chest tightness on exertion should be checked soon.\n[SUGGESTED_SPECIALTY: Cardiologist]"}
	p := &patient.Patient{ID: uuid.New(), FirstName: "Ana", MedicalHistory: "hypertension"}
	svc := newTestService(repo, gen, nil)

	reply, err := svc.Reply(context.Background(), p, "  my chest feels tight  ", []Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "Hello, what happened?"},
		{Role: "user", Content: "   "},
	})

	require.NoError(t, err)
	assert.Equal(t, "Chest tightness on exertion should be checked soon.", reply.AssistantResponse)
	require.NotNil(t, reply.SuggestedSpecialty)
	assert.Equal(t, "Cardiologist", *reply.SuggestedSpecialty)
	assert.Equal(t, SourceAI, reply.Source)
	assert.Equal(t, "my chest feels tight", reply.UserMessage)

	assert.Contains(t, gen.prompt, "Previous conversation:\nUser: hi\nAssistant: Hello, what happened?\n\nLatest user message: my chest feels tight")
	assert.Contains(t, gen.prompt, "Latest risk: None")

	require.Len(t, repo.msgs, 2)
	assert.Equal(t, RoleUser, repo.msgs[0].Role)
	assert.Equal(t, RoleAssistant, repo.msgs[1].Role)
	assert.Equal(t, repo.msgs[0].ExchangeID, repo.msgs[1].ExchangeID)
	assert.Equal(t, reply.AssistantResponse, repo.msgs[1].Content)
}

func TestReplyWithoutTag(t *testing.T) {
	svc := newTestService(&memRepo{}, &stubGenerator{text: "Drink water. [SUGGESTED_SPECIALTY: Cardiologist] and rest."}, nil)

	reply, err := svc.Reply(context.Background(), &patient.Patient{ID: uuid.New()}, "thirsty", nil)

	require.NoError(t, err)
	assert.Nil(t, reply.SuggestedSpecialty)
	assert.Equal(t, "Drink water. [SUGGESTED_SPECIALTY: Cardiologist] and rest.", reply.AssistantResponse)
}

func TestReplyFallback(t *testing.T) {
	payloads := fallback.Get()
	low := risks{{DiseaseRiskLevel: interpret.RiskLow}}
	high := risks{{DiseaseRiskLevel: interpret.RiskHigh}}
	p := &patient.Patient{ID: uuid.New()}

	tests := []struct {
		name    string
		message string
		latest  risks
		want    string
	}{
		{"keyword", "How much exercise do I need?", nil, payloads.ChatReply("exercise", fallback.ChatContext{})},
		{"default", "hello there", nil, payloads.Chatbot.DefaultReply},
		{"low risk", "tips for prevention", low, payloads.ChatReply("prevention", fallback.ChatContext{LowRisk: true})},
		{"high risk", "tips for prevention", high, payloads.ChatReply("prevention", fallback.ChatContext{LowRisk: false})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&memRepo{}, &stubGenerator{err: agent.ErrUnavailable}, tt.latest)

			reply, err := svc.Reply(context.Background(), p, tt.message, nil)

			require.NoError(t, err)
			assert.Equal(t, SourceFallback, reply.Source)
			assert.Equal(t, strings.TrimSpace(tt.want), reply.AssistantResponse)
			assert.Nil(t, reply.SuggestedSpecialty)
		})
	}
}

func TestReplyValidation(t *testing.T) {
	svc := newTestService(&memRepo{}, &stubGenerator{text: "ok"}, nil)
	p := &patient.Patient{ID: uuid.New()}

	_, err := svc.Reply(context.Background(), p, "   ", nil)
	assert.Error(t, err)
	_, err = svc.Reply(context.Background(), p, strings.Repeat("a", maxMessageChars+1), nil)
	assert.Error(t, err)
}

func TestReplyStoreFailure(t *testing.T) {
	svc := newTestService(&memRepo{err: errors.New("conn reset")}, &stubGenerator{text: "ok"}, nil)

	_, err := svc.Reply(context.Background(), &patient.Patient{ID: uuid.New()}, "hi", nil)

	assert.Error(t, err)
}

func TestChatPromptKeepsLastTurns(t *testing.T) {
	var history []Turn
	for i := 0; i < historyTurns+5; i++ {
		history = append(history, Turn{Role: "user", Content: "turn-" + string(rune('a'+i))})
	}

	prompt := chatPrompt(&patient.Patient{}, nil, "now", history)

	assert.NotContains(t, prompt, "turn-a\n")
	assert.Contains(t, prompt, "turn-f\n")
	assert.Contains(t, prompt, "General Practitioner")
}

func TestHandlerMessage(t *testing.T) {
	p := &patient.Patient{ID: uuid.New()}
	repo := &memRepo{}
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(
		newTestService(repo, &stubGenerator{text: "Rest well. [SUGGESTED_SPECIALTY: Neurologist]"}, nil),
		patienttest.Access{Patients: []*patient.Patient{p}},
		"not medical advice",
	))

	req := httptest.NewRequest(http.MethodPost, "/chatbot/message?patient_id="+p.ID.String(),
		strings.NewReader(`{"message":"headache","conversation_history":[{"role":"user","content":"hi"}]}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: uuid.New(), Role: auth.RolePatient}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Rest well.", body["assistant_response"])
	assert.Equal(t, "Neurologist", body["suggested_specialty"])
	assert.Equal(t, "not medical advice", body["disclaimer"])

	req = httptest.NewRequest(http.MethodGet, "/chatbot/history/"+p.ID.String(), nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: uuid.New(), Role: auth.RoleDoctor}))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":2`)
}
