package fitness

import (
	"context"
	"encoding/json"
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
	"medo-shield/internal/fallback"
	"medo-shield/internal/patient"
	"medo-shield/internal/patient/patienttest"
	"medo-shield/internal/platform/auth"
)

type memRepo struct {
	mu       sync.Mutex
	records  []Record
	analyses []Analysis
}

func (m *memRepo) AddRecord(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *r)
	return nil
}

func (m *memRepo) Records(_ context.Context, _ uuid.UUID, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Record{}
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *memRepo) SaveAnalysis(_ context.Context, a *Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses = append(m.analyses, *a)
	return nil
}

func (m *memRepo) Analyses(_ context.Context, _ uuid.UUID, limit int) ([]Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.analyses) > limit {
		return m.analyses[:limit], nil
	}
	return m.analyses, nil
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

func newTestService(repo Repository, gen agent.Generator) *service {
	return &service{
		repo:     repo,
		gen:      gen,
		payloads: fallback.Get(),
		log:      zerolog.Nop(),
		now:      func() time.Time { return time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC) },
	}
}

func f(v float64) *float64 { return &v }

func week() []Metrics {
	return []Metrics{
		{Date: "2025-06-30", BMI: f(26.1), StressLevel: f(6), SleepHours: f(6.5), WalkingDistance: f(4.2)},
		{Date: "2025-06-29", BMI: f(26.3), StressLevel: f(5), SleepHours: f(7), WalkingDistance: f(5)},
		{BMI: f(26.4), SleepHours: f(7.25)},
	}
}

func TestMetricsAcceptsBothKeyStyles(t *testing.T) {
	var days []Metrics
	err := json.Unmarshal([]byte(`[
		{"date":"2025-06-01","bmi":24.5,"stressLevel":"4","sleepHours":7,"walkingDistance":5.5,"heartRate":62},
		{"bmi":"n/a","stress_level":3,"sleep_hours":8,"walking_distance":6,"heart_rate":70,"notes":"rest day"}
	]`), &days)

	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, 24.5, *days[0].BMI)
	assert.Equal(t, 4.0, *days[0].StressLevel)
	assert.Equal(t, 62.0, *days[0].HeartRate)
	assert.Nil(t, days[1].BMI)
	assert.Equal(t, 3.0, *days[1].StressLevel)
	assert.Equal(t, "rest day", days[1].Notes)
}

func TestSummarize(t *testing.T) {
	s := Summarize(week())

	assert.Equal(t, Summary{BMIAvg: 26.3, StressAvg: 3.7, SleepAvg: 6.9, WalkingAvg: 3.1}, s)
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestAnalyzeWithAI(t *testing.T) {
	repo := &memRepo{}
	gen := &stubGenerator{text: "```json\n" + `{"summary":"Trends are improving.","overallStatus":"Improving","recommendations":[{"category":"Sleep","status":"✅ Good","message":"Keep 7h"}],"actionPlan":["walk"],"weeklyGoals":{"sleep":"7h"}}` + "\n```"}
	svc := newTestService(repo, gen)

	a, err := svc.Analyze(context.Background(), &patient.Patient{ID: uuid.New()}, week())

	require.NoError(t, err)
	assert.Equal(t, SourceAI, a.Source)
	assert.Equal(t, "Trends are improving.", a.Result.Summary)
	assert.Equal(t, "Improving", a.Result.OverallStatus)
	require.Len(t, a.Result.Recommendations, 1)
	assert.Equal(t, "Keep 7h", a.Result.Recommendations[0].Message)
	assert.Equal(t, 3, a.DataPoints)
	assert.Contains(t, gen.prompt, "Day 1 (2025-06-30): BMI 26.1, Stress 6/10, Sleep 6.5h, Walking 4.2 km")
	assert.Contains(t, gen.prompt, "Day 3 (N/A): BMI 26.4, Stress N/A/10")
	assert.Len(t, repo.analyses, 1)
}

func TestAnalyzeFallback(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"unavailable", &stubGenerator{err: agent.ErrUnavailable}},
		{"no json", &stubGenerator{text: "You are doing great!"}},
		{"json without summary", &stubGenerator{text: `{"overallStatus":"Stable"}`}},
		{"wrong shape", &stubGenerator{text: `{"summary":"ok","actionPlan":"walk more"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&memRepo{}, tt.gen)

			a, err := svc.Analyze(context.Background(), &patient.Patient{ID: uuid.New()}, week())

			require.NoError(t, err)
			assert.Equal(t, SourceFallback, a.Source)
			want := fallback.Get().RenderFitness(fallback.FitnessData{BMI: "26.1", Stress: "6", Sleep: "6.5", Walking: "4.2"})
			assert.Equal(t, want, a.Result)
			assert.Equal(t, "Your Health Summary", a.Result.Summary)
		})
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	svc := newTestService(&memRepo{}, &stubGenerator{text: "{}"})

	_, err := svc.Analyze(context.Background(), &patient.Patient{ID: uuid.New()}, week()[:2])

	assert.ErrorIs(t, err, errInsufficientData)
}

func TestAnalyzeUsesStoredRecords(t *testing.T) {
	repo := &memRepo{}
	svc := newTestService(repo, &stubGenerator{err: agent.ErrUnavailable})
	p := &patient.Patient{ID: uuid.New()}
	for _, m := range week() {
		_, err := svc.AddRecord(context.Background(), p, m)
		require.NoError(t, err)
	}

	a, err := svc.Analyze(context.Background(), p, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, a.DataPoints)
	assert.Contains(t, a.Result.WeeklyGoals["bmi"], "Current: 26.4")
}

func TestHandler(t *testing.T) {
	p := &patient.Patient{ID: uuid.New()}
	repo := &memRepo{}
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(newTestService(repo, &stubGenerator{err: agent.ErrUnavailable}), patienttest.Access{Patients: []*patient.Patient{p}}))

	do := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: uuid.New(), Role: auth.RolePatient}))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/fitness/records/"+p.ID.String(), `{"date":"2025-06-30","bmi":25,"stressLevel":4,"sleepHours":7,"walkingDistance":6}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"stress_level":4`)

	w = do(http.MethodPost, "/fitness/analyze", `{"patientId":"`+p.ID.String()+`","records":[{"bmi":25}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient_data")

	w = do(http.MethodPost, "/fitness/analyze", `{"patientId":"`+p.ID.String()+`","records":[{"bmi":25},{"bmi":26},{"bmi":27}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Your Health Summary", body["summary"])
	assert.Equal(t, "fallback", body["source"])
	assert.NotEmpty(t, body["analysisId"])

	w = do(http.MethodGet, "/fitness-records/"+p.ID.String()+"?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bmi":25`)
}
