package history

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"medo-shield/internal/patient"
	"medo-shield/internal/platform/apierr"
	"medo-shield/internal/platform/auth"
)

const maxLimit = 200

type Handler struct {
	svc    *Service
	access patient.Access
}

func NewHandler(svc *Service, access patient.Access) *Handler {
	return &Handler{svc: svc, access: access}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	limit, err := apierr.QueryLimit(r, DefaultLimit, maxLimit)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	hist, err := h.svc.Get(r.Context(), p.ID, limit)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, hist)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.With(auth.RequireRoles(auth.RolePatient, auth.RoleDoctor)).Get("/history/{patientID}", h.Get)
}
