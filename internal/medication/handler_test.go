package medication

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medo-shield/internal/patient"
	"medo-shield/internal/patient/patienttest"
	"medo-shield/internal/platform/auth"
)

func newTestRouter(t *testing.T, p *patient.Patient) (http.Handler, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	svc, _ := newTestService(repo, stubGenerator{})
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(svc, patienttest.Access{Patients: []*patient.Patient{p}}))
	return r, repo
}

func do(h http.Handler, method, target, body string, role auth.Role) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: uuid.New(), Role: role}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandlerSetReminderAndSchedule(t *testing.T) {
	p := &patient.Patient{ID: uuid.New()}
	h, repo := newTestRouter(t, p)

	body := `{"patient_id":"` + p.ID.String() + `","medications":[{"name":"Amoxicillin","dosage":"500 mg","frequency":"every 8 hours"}]}`
	w := do(h, http.MethodPost, "/medication/reminder", body, auth.RoleDoctor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(h, http.MethodPost, "/medication/reminder", body, auth.RoleDoctor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, repo.reminders, 1)

	w = do(h, http.MethodGet, "/medication/schedule/"+p.ID.String(), "", auth.RolePatient)
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		DailySchedule map[string][]string `json:"daily_schedule"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, map[string][]string{
		"01:00": {"Amoxicillin"},
		"09:00": {"Amoxicillin"},
		"17:00": {"Amoxicillin"},
	}, view.DailySchedule)
}

func TestHandlerValidation(t *testing.T) {
	p := &patient.Patient{ID: uuid.New()}
	h, _ := newTestRouter(t, p)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		role   auth.Role
		want   int
	}{
		{"malformed body", http.MethodPost, "/medication/reminder", `{`, auth.RolePatient, http.StatusBadRequest},
		{"no medications", http.MethodPost, "/medication/reminder", `{"patient_id":"` + p.ID.String() + `"}`, auth.RolePatient, http.StatusBadRequest},
		{"unknown patient", http.MethodGet, "/medication/schedule/" + uuid.NewString(), "", auth.RolePatient, http.StatusNotFound},
		{"record-taken needs name", http.MethodPost, "/medication/record-taken/" + p.ID.String(), "", auth.RolePatient, http.StatusBadRequest},
		{"record-taken patient only", http.MethodPost, "/medication/record-taken/" + p.ID.String() + "?medication_name=A", "", auth.RoleDoctor, http.StatusForbidden},
		{"alert bad slot", http.MethodPost, "/medication/alert/" + p.ID.String() + "?medication_name=A&time_slot=9am", "", auth.RolePatient, http.StatusBadRequest},
		{"alert ok", http.MethodPost, "/medication/alert/" + p.ID.String() + "?medication_name=A&time_slot=09:00", "", auth.RoleDoctor, http.StatusOK},
		{"recommend needs symptoms", http.MethodPost, "/medication/recommendations", `{"patient_id":"` + p.ID.String() + `","symptoms":[]}`, auth.RolePatient, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, tt.method, tt.target, tt.body, tt.role)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}
