package assessment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"medo-shield/internal/interpret"
	"medo-shield/internal/notification"
	"medo-shield/internal/patient"
	"medo-shield/internal/platform/apierr"
)

const (
	DefaultTimelineDays = 90
	timelineLimit       = 100
)

type CreateRequest struct {
	PatientID         string         `json:"patient_id"`
	RiskDate          *time.Time     `json:"risk_date"`
	DiseaseRiskScore  float64        `json:"disease_risk_score"`
	DiseaseRiskLevel  string         `json:"disease_risk_level"`
	RiskFactors       []string       `json:"risk_factors"`
	Recommendations   []string       `json:"recommendations"`
	LabResults        map[string]any `json:"lab_results"`
	WearableMetrics   map[string]any `json:"wearable_metrics"`
	NextScreeningDate *time.Time     `json:"next_screening_date"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Timeline struct {
	PatientID        uuid.UUID    `json:"patient_id"`
	Timeline         []Assessment `json:"timeline"`
	Total            int          `json:"total"`
	RiskTrend        Trend        `json:"risk_trend"`
	LatestAssessment *Assessment  `json:"latest_assessment"`
	DateRange        DateRange    `json:"date_range"`
}

type Service interface {
	Create(ctx context.Context, p *patient.Patient, req CreateRequest, by uuid.UUID) (*Assessment, error)
	Timeline(ctx context.Context, p *patient.Patient, days int) (*Timeline, error)
	Latest(ctx context.Context, patientID uuid.UUID, limit int) ([]Assessment, error)
}

type service struct {
	repo     Repository
	notifier notification.Notifier
	now      func() time.Time
}

func NewService(repo Repository, notifier notification.Notifier) Service {
	return &service{repo: repo, notifier: notifier, now: time.Now}
}

func (s *service) Create(ctx context.Context, p *patient.Patient, req CreateRequest, by uuid.UUID) (*Assessment, error) {
	level := interpret.RiskLevel(strings.TrimSpace(req.DiseaseRiskLevel))
	if !level.Valid() {
		return nil, apierr.BadRequest("invalid_request", "disease_risk_level must be one of Low, Normal, Medium, High, Critical")
	}
	if req.DiseaseRiskScore < 0 || req.DiseaseRiskScore > 100 {
		return nil, apierr.BadRequest("invalid_request", "disease_risk_score must be between 0 and 100")
	}

	now := s.now().UTC()
	a := &Assessment{
		ID:                uuid.New(),
		PatientID:         p.ID,
		RiskDate:          now,
		DiseaseRiskScore:  req.DiseaseRiskScore,
		DiseaseRiskLevel:  level,
		RiskFactors:       nonNil(req.RiskFactors),
		Recommendations:   nonNil(req.Recommendations),
		LabResults:        nonNilMap(req.LabResults),
		WearableMetrics:   nonNilMap(req.WearableMetrics),
		NextScreeningDate: req.NextScreeningDate,
		CreatedBy:         by,
		CreatedAt:         now,
	}
	if req.RiskDate != nil {
		a.RiskDate = req.RiskDate.UTC()
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}

	if level == interpret.RiskHigh || level == interpret.RiskCritical {
		s.notifier.Notify(ctx, p.ID, "Risk assessment needs attention",
			fmt.Sprintf("Your latest assessment shows %s risk. Please follow up with your doctor.", level),
			notification.CategoryRisk)
	}
	return a, nil
}

func (s *service) Timeline(ctx context.Context, p *patient.Patient, days int) (*Timeline, error) {
	if days <= 0 {
		return nil, apierr.New(http.StatusBadRequest, "invalid_request", fmt.Errorf("days must be positive"))
	}
	end := s.now().UTC()
	start := end.AddDate(0, 0, -days)

	items, err := s.repo.Since(ctx, p.ID, start, timelineLimit)
	if err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	out := &Timeline{
		PatientID: p.ID,
		Timeline:  items,
		Total:     len(items),
		RiskTrend: TrendOf(items),
		DateRange: DateRange{Start: start, End: end},
	}
	if len(items) > 0 {
		latest := items[len(items)-1]
		out.LatestAssessment = &latest
	}
	return out, nil
}

func (s *service) Latest(ctx context.Context, patientID uuid.UUID, limit int) ([]Assessment, error) {
	return s.repo.Latest(ctx, patientID, limit)
}
