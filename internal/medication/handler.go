package medication

import (
	"net/http"
	"strings"

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

type SetReminderRequest struct {
	PatientID   string       `json:"patient_id"`
	Medications []Medication `json:"medications"`
}

func (h *Handler) SetReminder(w http.ResponseWriter, r *http.Request) {
	var req SetReminderRequest
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
	if len(req.Medications) == 0 {
		apierr.Write(w, apierr.BadRequest("invalid_request", "At least one medication is required"))
		return
	}

	rem, err := h.svc.SetReminder(r.Context(), p, req.Medications)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"id":       rem.ID,
		"reminder": rem,
		"message":  "Medication reminders set successfully",
	})
}

func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	view, err := h.svc.Schedule(r.Context(), p)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) RecordTaken(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("medication_name"))
	if name == "" {
		apierr.Write(w, apierr.BadRequest("invalid_request", "medication_name is required"))
		return
	}

	at, err := h.svc.RecordTaken(r.Context(), p, name)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"message":  "Medication recorded successfully",
		"taken_at": at,
	})
}

func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
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
	if len(req.Symptoms) == 0 {
		apierr.Write(w, apierr.BadRequest("invalid_request", "At least one symptom is required"))
		return
	}

	rec, rem, err := h.svc.Recommend(r.Context(), p, req, who.UserID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"patient_id":        p.ID,
		"success":           true,
		"recommendation_id": rec.ID,
		"matched_condition": rec.MatchedCondition,
		"ai_analysis":       rec.AIAnalysis,
		"medications":       rec.Medications,
		"source":            rec.Source,
		"schedule":          rem,
	})
}

func (h *Handler) Alert(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("medication_name"))
	slot := TimeSlot(strings.TrimSpace(q.Get("time_slot")))
	if name == "" || !slot.Valid() {
		apierr.Write(w, apierr.BadRequest("invalid_request", "medication_name and a HH:MM time_slot are required"))
		return
	}

	if err := h.svc.Alert(r.Context(), p, name, slot); err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"patient_id": p.ID,
		"medication": name,
		"time_slot":  slot,
		"message":    "Alert sent successfully",
	})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	both := auth.RequireRoles(auth.RolePatient, auth.RoleDoctor)
	r.With(both).Post("/medication/reminder", h.SetReminder)
	r.With(both).Get("/medication/schedule/{patientID}", h.Schedule)
	r.With(auth.RequireRoles(auth.RolePatient)).Post("/medication/record-taken/{patientID}", h.RecordTaken)
	r.With(both).Post("/medication/recommendations", h.Recommend)
	r.With(both).Post("/medication/alert/{patientID}", h.Alert)
}
