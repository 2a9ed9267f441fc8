package analysis

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"medo-shield/internal/platform/apierr"
	"medo-shield/internal/platform/auth"
)

type Handler struct {
	svc        Service
	maxUpload  int64
	disclaimer string
}

func NewHandler(svc Service, maxUploadMB int64, disclaimer string) *Handler {
	return &Handler{svc: svc, maxUpload: maxUploadMB << 20, disclaimer: disclaimer}
}

func (h *Handler) AnalyzePDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			apierr.Write(w, apierr.BadRequest("file_too_large", fmt.Sprintf("PDF too large (max %d MB).", h.maxUpload>>20)))
			return
		}
		apierr.Write(w, apierr.BadRequest("invalid_request", "Expected a multipart upload"))
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		apierr.Write(w, apierr.BadRequest("invalid_request", "Please upload a PDF file."))
		return
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(hdr.Filename), ".pdf") {
		apierr.Write(w, apierr.BadRequest("invalid_request", "Please upload a PDF file."))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		apierr.Write(w, err)
		return
	}
	if int64(len(data)) > h.maxUpload {
		apierr.Write(w, apierr.BadRequest("file_too_large", fmt.Sprintf("PDF too large (max %d MB).", h.maxUpload>>20)))
		return
	}

	res := h.svc.Analyze(r.Context(), data)
	apierr.WriteJSON(w, http.StatusOK, struct {
		Result
		Disclaimer string `json:"disclaimer"`
	}{res, h.disclaimer})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.With(auth.RequireRoles(auth.RolePatient, auth.RoleDoctor)).Post("/pdf-report/analyze", h.AnalyzePDF)
}
