package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medo-shield/internal/patient"
	"medo-shield/internal/patient/patienttest"
	"medo-shield/internal/platform/auth"
)

type memRepo struct {
	mu      sync.Mutex
	items   []Notification
	doctors []DoctorNotification
	fail    error
}

func (m *memRepo) Create(_ context.Context, n *Notification) error {
	if m.fail != nil {
		return m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, *n)
	return nil
}

func (m *memRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Notification{}
	for _, n := range m.items {
		if n.PatientID == patientID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) MarkAllRead(_ context.Context, patientID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.items {
		if m.items[i].PatientID == patientID && !m.items[i].IsRead {
			m.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *memRepo) CreateForDoctor(_ context.Context, n *DoctorNotification) error {
	if m.fail != nil {
		return m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doctors = append(m.doctors, *n)
	return nil
}

func (m *memRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit int) ([]DoctorNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []DoctorNotification{}
	for _, n := range m.doctors {
		if n.DoctorID == doctorID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) MarkAllReadForDoctor(_ context.Context, doctorID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.doctors {
		if m.doctors[i].DoctorID == doctorID && !m.doctors[i].IsRead {
			m.doctors[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func TestNotifyAndList(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, zerolog.Nop()).(*service)
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	svc.now = func() time.Time { calls++; return base.Add(time.Duration(calls) * time.Minute) }
	pid := uuid.New()

	for i := 0; i < 55; i++ {
		svc.Notify(context.Background(), pid, "Medication schedule updated", "msg", CategoryMedication)
	}
	svc.Notify(context.Background(), uuid.New(), "other", "msg", CategoryReport)

	items, err := svc.List(context.Background(), pid)
	require.NoError(t, err)
	assert.Len(t, items, 50)
	assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt))
}

func TestNotifySwallowsStorageErrors(t *testing.T) {
	svc := NewService(&memRepo{fail: errors.New("db down")}, zerolog.Nop())

	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), uuid.New(), "t", "m", CategoryRisk)
	})
}

func TestHandlerMarkRead(t *testing.T) {
	p := &patient.Patient{ID: uuid.New()}
	repo := &memRepo{}
	svc := NewService(repo, zerolog.Nop())
	svc.Notify(context.Background(), p.ID, "a", "b", CategoryReport)
	svc.Notify(context.Background(), p.ID, "c", "d", CategoryReport)

	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(svc, patienttest.Access{Patients: []*patient.Patient{p}}))

	req := httptest.NewRequest(http.MethodPost, "/notifications/"+p.ID.String()+"/mark-read", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: uuid.New(), Role: auth.RolePatient}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["updated"])

	req = httptest.NewRequest(http.MethodGet, "/notifications/"+p.ID.String(), nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: uuid.New(), Role: auth.RolePatient}))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Notifications []Notification `json:"notifications"`
		Total         int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	for _, n := range list.Notifications {
		assert.True(t, n.IsRead)
	}
}

func TestHandlerDoctorForbidden(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(NewService(&memRepo{}, zerolog.Nop()), patienttest.Access{}))

	req := httptest.NewRequest(http.MethodGet, "/notifications/"+uuid.NewString(), nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: uuid.New(), Role: auth.RoleDoctor}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotifyDoctor(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, zerolog.Nop())
	doctor := uuid.New()

	svc.NotifyDoctor(context.Background(), doctor, "New message from your Patient", "hi", CategoryChat)
	svc.NotifyDoctor(context.Background(), uuid.New(), "other", "x", CategoryChat)

	items, err := svc.ListForDoctor(context.Background(), doctor)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "hi", items[0].Message)
	assert.Equal(t, CategoryChat, items[0].Category)
	assert.Empty(t, repo.items)

	assert.NotPanics(t, func() {
		NewService(&memRepo{fail: errors.New("db down")}, zerolog.Nop()).
			NotifyDoctor(context.Background(), doctor, "t", "m", CategoryChat)
	})
}

func TestHandlerDoctorNotifications(t *testing.T) {
	doctor := uuid.New()
	svc := NewService(&memRepo{}, zerolog.Nop())
	svc.NotifyDoctor(context.Background(), doctor, "a", "b", CategoryChat)

	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(svc, patienttest.Access{}))
	do := func(method, path string, role auth.Role) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: doctor, Role: role}))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/doctor/notifications/mark-read", auth.RoleDoctor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Notifications marked as read","updated":1}`, w.Body.String())

	w = do(http.MethodGet, "/doctor/notifications", auth.RoleDoctor)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Notifications []DoctorNotification `json:"notifications"`
		Total         int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.True(t, list.Notifications[0].IsRead)

	assert.Equal(t, http.StatusForbidden, do(http.MethodGet, "/doctor/notifications", auth.RolePatient).Code)
}
