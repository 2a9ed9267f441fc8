package assessment

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"medo-shield/internal/patient"
	"medo-shield/internal/platform/apierr"
	"medo-shield/internal/platform/auth"
)

type Handler struct {
	svc      Service
	access   patient.Access
	patients patient.Repository
}

func NewHandler(svc Service, access patient.Access, patients patient.Repository) *Handler {
	return &Handler{svc: svc, access: access, patients: patients}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}
	p, err := patient.Exists(r.Context(), h.patients, req.PatientID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	who, _ := auth.FromContext(r.Context())

	a, err := h.svc.Create(r.Context(), p, req, who.UserID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"id":      a.ID,
		"message": "Risk assessment created successfully",
	})
}

func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	days := DefaultTimelineDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil {
			apierr.Write(w, apierr.BadRequest("invalid_request", "days must be an integer"))
			return
		}
	}

	tl, err := h.svc.Timeline(r.Context(), p, days)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, tl)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.With(auth.RequireRoles(auth.RoleDoctor)).Post("/risk-assessment", h.Create)
	r.With(auth.RequireRoles(auth.RolePatient, auth.RoleDoctor)).Get("/risk-timeline/{patientID}", h.Timeline)
}
