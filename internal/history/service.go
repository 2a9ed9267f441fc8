// Package history merges a patient's reports, recommendations, assessments
// and fitness analyses into one newest-first timeline.
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"medo-shield/internal/assessment"
	"medo-shield/internal/fitness"
	"medo-shield/internal/medication"
	"medo-shield/internal/report"
)

const (
	DefaultLimit   = 50
	descriptionMax = 200
)

type EntryType string

const (
	TypeReport         EntryType = "ai_report"
	TypeRecommendation EntryType = "medication_recommendation"
	TypeAssessment     EntryType = "risk_assessment"
	TypeFitness        EntryType = "fitness_analysis"
)

type Entry struct {
	ID          uuid.UUID `json:"id"`
	Type        EntryType `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Data        any       `json:"data"`
	HasPDF      bool      `json:"has_pdf"`
}

type Counts struct {
	AIReports                 int `json:"ai_reports"`
	MedicationRecommendations int `json:"medication_recommendations"`
	RiskAssessments           int `json:"risk_assessments"`
	FitnessAnalyses           int `json:"fitness_analyses"`
}

type History struct {
	PatientID    uuid.UUID `json:"patient_id"`
	TotalEntries int       `json:"total_entries"`
	History      []Entry   `json:"history"`
	Summary      Counts    `json:"summary"`
}

type (
	Reports interface {
		List(ctx context.Context, patientID uuid.UUID, limit int) ([]report.Report, error)
	}
	Recommendations interface {
		ListRecommendations(ctx context.Context, patientID uuid.UUID, limit int) ([]medication.Recommendation, error)
	}
	Assessments interface {
		Latest(ctx context.Context, patientID uuid.UUID, limit int) ([]assessment.Assessment, error)
	}
	FitnessAnalyses interface {
		Analyses(ctx context.Context, patientID uuid.UUID, limit int) ([]fitness.Analysis, error)
	}
)

type Service struct {
	reports     Reports
	recs        Recommendations
	assessments Assessments
	fitness     FitnessAnalyses
}

func NewService(reports Reports, recs Recommendations, assessments Assessments, fit FitnessAnalyses) *Service {
	return &Service{reports: reports, recs: recs, assessments: assessments, fitness: fit}
}

// Get loads up to limit items from each source in parallel. The first
// failing source cancels the rest.
func (s *Service) Get(ctx context.Context, patientID uuid.UUID, limit int) (*History, error) {
	var (
		reports     []report.Report
		recs        []medication.Recommendation
		assessments []assessment.Assessment
		analyses    []fitness.Analysis
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		reports, err = s.reports.List(ctx, patientID, limit)
		return wrap("reports", err)
	})
	g.Go(func() (err error) {
		recs, err = s.recs.ListRecommendations(ctx, patientID, limit)
		return wrap("recommendations", err)
	})
	g.Go(func() (err error) {
		assessments, err = s.assessments.Latest(ctx, patientID, limit)
		return wrap("assessments", err)
	})
	g.Go(func() (err error) {
		analyses, err = s.fitness.Analyses(ctx, patientID, limit)
		return wrap("fitness analyses", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(reports)+len(recs)+len(assessments)+len(analyses))
	for _, r := range reports {
		entries = append(entries, Entry{
			ID:          r.ID,
			Type:        TypeReport,
			Title:       r.ReportType,
			Description: clip(r.Content),
			CreatedAt:   r.CreatedAt,
			Data: map[string]any{
				"report_type":     r.ReportType,
				"key_findings":    r.KeyFindings,
				"recommendations": r.Recommendations,
				"content":         r.Content,
			},
			HasPDF: true,
		})
	}
	for _, r := range recs {
		entries = append(entries, Entry{
			ID:          r.ID,
			Type:        TypeRecommendation,
			Title:       "Medication Recommendation",
			Description: "Based on symptoms: " + r.Symptoms,
			CreatedAt:   r.CreatedAt,
			Data: map[string]any{
				"symptoms":          r.Symptoms,
				"age":               r.Age,
				"matched_condition": r.MatchedCondition,
				"medications":       r.Medications,
				"ai_analysis":       r.AIAnalysis,
			},
		})
	}
	for _, a := range assessments {
		entries = append(entries, Entry{
			ID:          a.ID,
			Type:        TypeAssessment,
			Title:       "Health Risk Assessment",
			Description: fmt.Sprintf("Risk Level: %s", a.DiseaseRiskLevel),
			CreatedAt:   a.RiskDate,
			Data: map[string]any{
				"disease_risk_level": a.DiseaseRiskLevel,
				"disease_risk_score": a.DiseaseRiskScore,
				"risk_factors":       a.RiskFactors,
				"recommendations":    a.Recommendations,
			},
		})
	}
	for _, a := range analyses {
		entries = append(entries, Entry{
			ID:          a.ID,
			Type:        TypeFitness,
			Title:       "Fitness Analysis",
			Description: clip(a.Result.Summary),
			CreatedAt:   a.CreatedAt,
			Data: map[string]any{
				"data_points":     a.DataPoints,
				"metrics_summary": a.MetricsSummary,
				"overall_status":  a.Result.OverallStatus,
				"source":          a.Source,
			},
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	return &History{
		PatientID:    patientID,
		TotalEntries: len(entries),
		History:      entries,
		Summary: Counts{
			AIReports:                 len(reports),
			MedicationRecommendations: len(recs),
			RiskAssessments:           len(assessments),
			FitnessAnalyses:           len(analyses),
		},
	}, nil
}

func wrap(source string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", source, err)
	}
	return nil
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= descriptionMax {
		return s
	}
	return string(r[:descriptionMax]) + "..."
}
