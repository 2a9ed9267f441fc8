package fitness

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medo-shield/internal/agent"
	"medo-shield/internal/fallback"
	"medo-shield/internal/interpret"
	"medo-shield/internal/patient"
	"medo-shield/internal/platform/apierr"
)

const (
	MinDataPoints      = 3
	promptDays         = 14
	DefaultRecordLimit = 100
	maxRecordLimit     = 500

	SourceAI       = "ai"
	SourceFallback = "fallback"
)

var errInsufficientData = apierr.New(http.StatusUnprocessableEntity, "insufficient_data",
	fmt.Errorf("need at least %d days of fitness data for analysis", MinDataPoints))

type Service interface {
	AddRecord(ctx context.Context, p *patient.Patient, m Metrics) (*Record, error)
	Records(ctx context.Context, patientID uuid.UUID, limit int) ([]Record, error)
	// Analyze builds a lifestyle roadmap from days, newest first. With no
	// days it uses the patient's stored records.
	Analyze(ctx context.Context, p *patient.Patient, days []Metrics) (*Analysis, error)
	Analyses(ctx context.Context, patientID uuid.UUID, limit int) ([]Analysis, error)
}

type service struct {
	repo     Repository
	gen      agent.Generator
	payloads *fallback.Payloads
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, gen agent.Generator, payloads *fallback.Payloads, log zerolog.Logger) Service {
	return &service{repo: repo, gen: gen, payloads: payloads, log: log, now: time.Now}
}

func (s *service) AddRecord(ctx context.Context, p *patient.Patient, m Metrics) (*Record, error) {
	r := &Record{
		ID:              uuid.New(),
		PatientID:       p.ID,
		Date:            m.Date,
		BMI:             m.BMI,
		StressLevel:     m.StressLevel,
		WalkingDistance: m.WalkingDistance,
		HeartRate:       m.HeartRate,
		SleepHours:      m.SleepHours,
		Notes:           m.Notes,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.AddRecord(ctx, r); err != nil {
		return nil, fmt.Errorf("save fitness record: %w", err)
	}
	return r, nil
}

func (s *service) Records(ctx context.Context, patientID uuid.UUID, limit int) ([]Record, error) {
	return s.repo.Records(ctx, patientID, limit)
}

func (s *service) Analyses(ctx context.Context, patientID uuid.UUID, limit int) ([]Analysis, error) {
	return s.repo.Analyses(ctx, patientID, limit)
}

func (s *service) Analyze(ctx context.Context, p *patient.Patient, days []Metrics) (*Analysis, error) {
	if len(days) == 0 {
		stored, err := s.repo.Records(ctx, p.ID, promptDays)
		if err != nil {
			return nil, fmt.Errorf("load fitness records: %w", err)
		}
		for i := range stored {
			days = append(days, stored[i].Metrics())
		}
	}
	if len(days) < MinDataPoints {
		return nil, errInsufficientData
	}

	summary := Summarize(days)
	a := &Analysis{
		ID:             uuid.New(),
		PatientID:      p.ID,
		DataPoints:     len(days),
		MetricsSummary: summary,
		Source:         SourceAI,
		CreatedAt:      s.now().UTC(),
	}

	reply, err := s.gen.Generate(ctx, roadmapPrompt(days, summary))
	var ok bool
	if err == nil {
		a.Result, ok = decodeRoadmap(reply)
	}
	if !ok {
		s.log.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("ai unavailable, using fallback")
		latest := days[0]
		a.Source = SourceFallback
		a.Result = s.payloads.RenderFitness(fallback.FitnessData{
			BMI:     format(latest.BMI),
			Stress:  format(latest.StressLevel),
			Sleep:   format(latest.SleepHours),
			Walking: format(latest.WalkingDistance),
		})
	}

	if err := s.repo.SaveAnalysis(ctx, a); err != nil {
		return nil, fmt.Errorf("save fitness analysis: %w", err)
	}
	return a, nil
}

// decodeRoadmap accepts a reply only if it holds a JSON object with a
// summary that fits the roadmap shape.
func decodeRoadmap(reply string) (fallback.FitnessAnalysis, bool) {
	var out fallback.FitnessAnalysis
	obj, ok := interpret.DecodeObject(reply)
	if !ok || interpret.StringField(obj, "summary") == "" {
		return out, false
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, false
	}
	return out, true
}

func roadmapPrompt(days []Metrics, avg Summary) string {
	var dayLog strings.Builder
	for i, d := range days {
		if i == promptDays {
			break
		}
		date := d.Date
		if date == "" {
			date = "N/A"
		}
		fmt.Fprintf(&dayLog, "Day %d (%s): BMI %s, Stress %s/10, Sleep %sh, Walking %s km\n",
			i+1, date, format(d.BMI), format(d.StressLevel), format(d.SleepHours), format(d.WalkingDistance))
	}
	latest := days[0]
	return fmt.Sprintf(`You are a health coach. Based on the patient's fitness log below, create a clear lifestyle roadmap.

FITNESS LOG (last %d days):
%s
CURRENT/AVERAGE: BMI %s (avg %.1f), Stress %s/10 (avg %.1f), Sleep %sh (avg %.1f), Walking %s km (avg %.1f).

Reply with ONLY a valid JSON object (no markdown, no extra text) with these exact keys:
- "summary": one short sentence overall status
- "overallStatus": one of "Improving", "Stable", "Declining"
- "recommendations": array of objects with "category", "status", "message"
- "actionPlan": array of 5 strings (concrete steps for this week and next)
- "weeklyGoals": object with keys "bmi", "stress", "sleep", "walking" (each a short target string)

Be specific and encouraging.`,
		len(days), dayLog.String(),
		format(latest.BMI), avg.BMIAvg,
		format(latest.StressLevel), avg.StressAvg,
		format(latest.SleepHours), avg.SleepAvg,
		format(latest.WalkingDistance), avg.WalkingAvg)
}
