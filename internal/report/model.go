package report

import (
	"time"

	"github.com/google/uuid"
)

const DefaultReportType = "Monthly Summary"

type Report struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	ReportType      string    `json:"report_type"`
	GeneratedByAI   string    `json:"generated_by_ai"`
	Content         string    `json:"content"`
	KeyFindings     []string  `json:"key_findings"`
	Recommendations []string  `json:"recommendations"`
	CreatedBy       uuid.UUID `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// Summary is the list view of a report.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	ReportType  string    `json:"report_type"`
	CreatedAt   time.Time `json:"created_at"`
	KeyFindings []string  `json:"key_findings"`
}

func (r *Report) Summary() Summary {
	findings := r.KeyFindings
	if len(findings) > 3 {
		findings = findings[:3]
	}
	return Summary{ID: r.ID, ReportType: r.ReportType, CreatedAt: r.CreatedAt, KeyFindings: findings}
}
