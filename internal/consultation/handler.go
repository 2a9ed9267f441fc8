package consultation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"medo-shield/internal/patient"
	"medo-shield/internal/platform/apierr"
	"medo-shield/internal/platform/auth"
)

type Handler struct {
	svc        Service
	access     patient.Access
	disclaimer string
}

func NewHandler(svc Service, access patient.Access, disclaimer string) *Handler {
	return &Handler{svc: svc, access: access, disclaimer: disclaimer}
}

type MessageRequest struct {
	Message             string `json:"message"`
	ConversationHistory []Turn `json:"conversation_history"`
}

func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), r.URL.Query().Get("patient_id"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	reply, err := h.svc.Reply(r.Context(), p, req.Message, req.ConversationHistory)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, struct {
		*Reply
		Disclaimer string `json:"disclaimer"`
	}{reply, h.disclaimer})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.FromContext(r.Context())
	p, err := h.access.VerifyAccess(r.Context(), chi.URLParam(r, "patientID"), who)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	msgs, err := h.svc.History(r.Context(), p.ID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"patient_id": p.ID,
		"messages":   msgs,
		"total":      len(msgs),
	})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	both := auth.RequireRoles(auth.RolePatient, auth.RoleDoctor)
	r.With(both).Post("/chatbot/message", h.Message)
	r.With(both).Get("/chatbot/history/{patientID}", h.History)
}
