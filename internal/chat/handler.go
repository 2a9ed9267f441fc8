package chat

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

func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	limit, err := apierr.QueryLimit(r, DefaultListLimit, maxListLimit)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	msgs, err := h.svc.Messages(r.Context(), p, who, limit)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"patient_id": p.ID,
		"messages":   msgs,
	})
}

type SendRequest struct {
	Content string `json:"content"`
	MsgType string `json:"msg_type"`
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}
	if req.MsgType != "" && req.MsgType != MsgTypeText {
		apierr.Write(w, apierr.BadRequest("invalid_request", "only text messages are supported"))
		return
	}
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	msg, err := h.svc.Send(r.Context(), p, who, req.Content)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": msg,
	})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRoles(auth.RolePatient, auth.RoleDoctor))
		r.Get("/chat/{patientID}/messages", h.Messages)
		r.Post("/chat/{patientID}/send", h.Send)
	})
}
