package report

import (
	"net/http"
	"strconv"

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

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	q := r.URL.Query()
	p, err := h.access.VerifyAccess(r.Context(), q.Get("patient_id"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	rep, err := h.svc.Generate(r.Context(), p, q.Get("report_type"), who.UserID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, rep)
}

// load resolves the report in the URL and checks the caller may see its
// patient.
func (h *Handler) load(r *http.Request) (*Report, *patient.Patient, error) {
	rep, err := h.svc.Get(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		return nil, nil, err
	}
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), rep.PatientID.String(), who)
	if err != nil {
		return nil, nil, err
	}
	return rep, p, nil
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rep, _, err := h.load(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	rep, p, err := h.load(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	data, err := h.svc.PDF(r.Context(), rep, p.FullName())
	if err != nil {
		apierr.Write(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName(rep)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	limit, err := apierr.QueryLimit(r, DefaultListLimit, maxListLimit)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	reports, err := h.svc.List(r.Context(), p.ID, limit)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	out := make([]Summary, len(reports))
	for i := range reports {
		out[i] = reports[i].Summary()
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"patient_id": p.ID,
		"reports":    out,
		"total":      len(out),
	})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRoles(auth.RolePatient, auth.RoleDoctor))
		r.Post("/report/generate", h.Generate)
		r.Get("/report/{reportID}", h.Get)
		r.Get("/report/{reportID}/pdf", h.PDF)
		r.Get("/reports/{patientID}", h.List)
	})
}
