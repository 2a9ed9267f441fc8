package notification

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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	items, err := h.svc.List(r.Context(), p.ID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"patient_id":    p.ID,
		"notifications": items,
		"total":         len(items),
	})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	n, err := h.svc.MarkAllRead(r.Context(), p.ID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Notifications marked as read",
		"updated": n,
	})
}

// DoctorList shows the calling doctor's own notifications.
func (h *Handler) DoctorList(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	items, err := h.svc.ListForDoctor(r.Context(), who.UserID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"total":         len(items),
	})
}

func (h *Handler) DoctorMarkRead(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	n, err := h.svc.MarkAllReadForDoctor(r.Context(), who.UserID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Notifications marked as read",
		"updated": n,
	})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.With(auth.RequireRoles(auth.RolePatient)).Get("/notifications/{patientID}", h.List)
	r.With(auth.RequireRoles(auth.RolePatient)).Post("/notifications/{patientID}/mark-read", h.MarkRead)
	r.With(auth.RequireRoles(auth.RoleDoctor)).Get("/doctor/notifications", h.DoctorList)
	r.With(auth.RequireRoles(auth.RoleDoctor)).Post("/doctor/notifications/mark-read", h.DoctorMarkRead)
}
