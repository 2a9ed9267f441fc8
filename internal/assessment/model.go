package assessment

import (
	"time"

	"github.com/google/uuid"

	"medo-shield/internal/interpret"
)

type Assessment struct {
	ID                uuid.UUID           `json:"id"`
	PatientID         uuid.UUID           `json:"patient_id"`
	RiskDate          time.Time           `json:"risk_date"`
	DiseaseRiskScore  float64             `json:"disease_risk_score"`
	DiseaseRiskLevel  interpret.RiskLevel `json:"disease_risk_level"`
	RiskFactors       []string            `json:"risk_factors"`
	Recommendations   []string            `json:"recommendations"`
	LabResults        map[string]any      `json:"lab_results"`
	WearableMetrics   map[string]any      `json:"wearable_metrics"`
	NextScreeningDate *time.Time          `json:"next_screening_date,omitempty"`
	CreatedBy         uuid.UUID           `json:"created_by"`
	CreatedAt         time.Time           `json:"created_at"`
}

type Trend string

const (
	TrendStable     Trend = "stable"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// trendDelta is how far the latest score must move from the previous one
// before the trend leaves stable.
const trendDelta = 5

// TrendOf compares the last two assessments of an oldest-first timeline.
func TrendOf(timeline []Assessment) Trend {
	if len(timeline) < 2 {
		return TrendStable
	}
	latest := timeline[len(timeline)-1].DiseaseRiskScore
	previous := timeline[len(timeline)-2].DiseaseRiskScore
	switch {
	case latest > previous+trendDelta:
		return TrendIncreasing
	case latest < previous-trendDelta:
		return TrendDecreasing
	}
	return TrendStable
}
