package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medo-shield/internal/agent"
	"medo-shield/internal/assessment"
	"medo-shield/internal/fallback"
	"medo-shield/internal/interpret"
	"medo-shield/internal/notification"
	"medo-shield/internal/patient"
	"medo-shield/internal/platform/apierr"
)

const (
	assessmentWindow = 5
	factorsPerReport = 3
	maxListed        = 5
	DefaultListLimit = 10
	maxListLimit     = 100

	generatorAI       = "Gemini"
	generatorTemplate = "Template"
)

var (
	errNotFound  = apierr.New(http.StatusNotFound, "report_not_found", ErrNotFound)
	errInvalidID = apierr.BadRequest("invalid_id", "Invalid report id")
)

// RiskSource gives the newest assessments first.
type RiskSource interface {
	Latest(ctx context.Context, patientID uuid.UUID, limit int) ([]assessment.Assessment, error)
}

// DoctorChannel delivers the doctor's copy of a report.
type DoctorChannel interface {
	Enabled() bool
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, data []byte, fileName, caption string) error
}

type Service interface {
	Generate(ctx context.Context, p *patient.Patient, reportType string, by uuid.UUID) (*Report, error)
	Get(ctx context.Context, rawID string) (*Report, error)
	List(ctx context.Context, patientID uuid.UUID, limit int) ([]Report, error)
	PDF(ctx context.Context, r *Report, patientName string) ([]byte, error)
}

type service struct {
	repo         Repository
	risks        RiskSource
	gen          agent.Generator
	payloads     *fallback.Payloads
	notifier     notification.Notifier
	renderer     *PDFRenderer
	doctor       DoctorChannel
	doctorChatID int64
	log          zerolog.Logger
	now          func() time.Time
}

type Deps struct {
	Repo         Repository
	Risks        RiskSource
	Generator    agent.Generator
	Payloads     *fallback.Payloads
	Notifier     notification.Notifier
	Renderer     *PDFRenderer
	Doctor       DoctorChannel
	DoctorChatID int64
	Log          zerolog.Logger
}

func NewService(d Deps) Service {
	return &service{
		repo:         d.Repo,
		risks:        d.Risks,
		gen:          d.Generator,
		payloads:     d.Payloads,
		notifier:     d.Notifier,
		renderer:     d.Renderer,
		doctor:       d.Doctor,
		doctorChatID: d.DoctorChatID,
		log:          d.Log,
		now:          time.Now,
	}
}

func (s *service) Generate(ctx context.Context, p *patient.Patient, reportType string, by uuid.UUID) (*Report, error) {
	reportType = strings.TrimSpace(reportType)
	if reportType == "" {
		reportType = DefaultReportType
	}
	recent, err := s.risks.Latest(ctx, p.ID, assessmentWindow)
	if err != nil {
		return nil, fmt.Errorf("load assessments: %w", err)
	}
	findings, recs := summarize(recent, s.payloads.Report.DefaultRecommendations)
	now := s.now().UTC()

	rep := &Report{
		ID:              uuid.New(),
		PatientID:       p.ID,
		ReportType:      reportType,
		GeneratedByAI:   generatorAI,
		KeyFindings:     findings,
		Recommendations: recs,
		CreatedBy:       by,
		CreatedAt:       now,
	}
	text, err := s.gen.Generate(ctx, reportPrompt(reportType, p.FullName(), recent))
	if err != nil {
		s.log.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("ai unavailable, using fallback")
		rep.GeneratedByAI = generatorTemplate
		text = s.payloads.RenderReport(fallback.ReportData{
			ReportType:      reportType,
			PatientName:     p.FullName(),
			Generated:       now.Format("January 02, 2006"),
			KeyFindings:     head(findings, maxListed),
			Recommendations: head(recs, maxListed),
		})
	}
	rep.Content = strings.TrimSpace(text)

	if err := s.repo.Create(ctx, rep); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	s.notifier.Notify(ctx, p.ID, "New AI report generated",
		fmt.Sprintf("A new %s report is available for review.", reportType),
		notification.CategoryReport)
	s.sendDoctorCopy(ctx, rep, p.FullName())
	return rep, nil
}

// sendDoctorCopy is best effort; the report is already stored.
func (s *service) sendDoctorCopy(ctx context.Context, rep *Report, patientName string) {
	if s.doctor == nil || !s.doctor.Enabled() || s.doctorChatID == 0 {
		return
	}
	caption := fmt.Sprintf("%s for %s", rep.ReportType, patientName)
	data, err := s.renderer.Render(rep, patientName)
	if err != nil {
		// no PDF, send the text instead
		s.log.Warn().Err(err).Str("report_id", rep.ID.String()).Msg("doctor copy not rendered")
		err = s.doctor.SendMessage(ctx, s.doctorChatID, caption+"\n\n"+rep.Content)
	} else {
		err = s.doctor.SendDocument(ctx, s.doctorChatID, data, fileName(rep), caption)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("report_id", rep.ID.String()).Msg("doctor copy not sent")
		return
	}
	s.log.Info().Str("report_id", rep.ID.String()).Msg("doctor copy sent")
}

func (s *service) Get(ctx context.Context, rawID string) (*Report, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errInvalidID
	}
	rep, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, errNotFound
	}
	return rep, err
}

func (s *service) List(ctx context.Context, patientID uuid.UUID, limit int) ([]Report, error) {
	return s.repo.ListByPatient(ctx, patientID, limit)
}

func (s *service) PDF(_ context.Context, r *Report, patientName string) ([]byte, error) {
	data, err := s.renderer.Render(r, patientName)
	if errors.Is(err, ErrNoFont) {
		return nil, apierr.New(http.StatusServiceUnavailable, "pdf_unavailable", err)
	}
	return data, err
}

// summarize derives findings and recommendations from the newest assessment.
func summarize(recent []assessment.Assessment, defaults []string) (findings, recs []string) {
	findings, recs = []string{}, []string{}
	if len(recent) > 0 {
		latest := recent[0]
		switch latest.DiseaseRiskLevel {
		case interpret.RiskCritical:
			findings = append(findings, "Critical risk level detected - immediate intervention recommended")
			recs = append(recs, "Schedule urgent appointment with specialist")
		case interpret.RiskHigh:
			findings = append(findings, "High disease risk indicated")
			recs = append(recs, "Schedule follow-up appointment within 1-2 weeks")
		}
		findings = append(findings, head(latest.RiskFactors, factorsPerReport)...)
		recs = append(recs, head(latest.Recommendations, factorsPerReport)...)
	}
	if len(recs) == 0 {
		recs = append(recs, defaults...)
	}
	return findings, recs
}

func reportPrompt(reportType, patientName string, recent []assessment.Assessment) string {
	data, err := json.Marshal(recent)
	if err != nil {
		data = []byte("[]")
	}
	return fmt.Sprintf("You are a clinical report assistant. Create a concise, patient-friendly report. "+
		"Do not diagnose. Use sections: Summary, Key Findings, Recommendations, Next Steps. "+
		"Report type: %s. Patient: %s. Assessments: %s.", reportType, patientName, data)
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func fileName(r *Report) string {
	return fmt.Sprintf("report_%s.pdf", r.ID)
}
