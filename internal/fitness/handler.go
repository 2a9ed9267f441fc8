package fitness

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"medo-shield/internal/patient"
	"medo-shield/internal/platform/apierr"
	"medo-shield/internal/platform/auth"
)

type Handler struct {
	svc    Service
	access patient.Access
}

func NewHandler(svc Service, access patient.Access) *Handler {
	return &Handler{svc: svc, access: access}
}

func (h *Handler) AddRecord(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	var m Metrics
	if err := apierr.Decode(r, &m); err != nil {
		apierr.Write(w, err)
		return
	}
	rec, err := h.svc.AddRecord(r.Context(), p, m)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "record": rec})
}

func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	limit, err := apierr.QueryLimit(r, DefaultRecordLimit, maxRecordLimit)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	recs, err := h.svc.Records(r.Context(), p.ID, limit)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "records": recs})
}

type AnalyzeRequest struct {
	PatientID string    `json:"patientId"`
	Records   []Metrics `json:"records"`
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), req.PatientID, who)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	a, err := h.svc.Analyze(r.Context(), p, req.Records)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	res := a.Result
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"analysisId":      a.ID,
		"summary":         res.Summary,
		"overallStatus":   res.OverallStatus,
		"recommendations": res.Recommendations,
		"actionPlan":      res.ActionPlan,
		"weeklyGoals":     res.WeeklyGoals,
		"metricsSummary":  a.MetricsSummary,
		"source":          a.Source,
	})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRoles(auth.RolePatient, auth.RoleDoctor))
		r.Post("/fitness/records/{patientID}", h.AddRecord)
		r.Get("/fitness-records/{patientID}", h.Records)
		r.Post("/fitness/analyze", h.Analyze)
	})
}
