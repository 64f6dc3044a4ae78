package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/doctorsaathi/consult-service/internal/auth"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	doctorStatsFunc     func(ctx context.Context, email string) (*DoctorStats, error)
	allDoctorsStatsFunc func(ctx context.Context, sortBy string) ([]DoctorStats, error)
	recordConsultFunc   func(ctx context.Context, email, consultID string) (*DoctorStats, error)
}

func (m *mockService) DoctorStats(ctx context.Context, email string) (*DoctorStats, error) {
	return m.doctorStatsFunc(ctx, email)
}

func (m *mockService) TodayCount(ctx context.Context, email string) (int64, error) {
	s, err := m.doctorStatsFunc(ctx, email)
	if err != nil {
		return 0, err
	}
	return s.TodayCount, nil
}

func (m *mockService) TotalCount(ctx context.Context, email string) (int64, error) {
	s, err := m.doctorStatsFunc(ctx, email)
	if err != nil {
		return 0, err
	}
	return s.TotalCount, nil
}

func (m *mockService) AllDoctorsStats(ctx context.Context, sortBy string) ([]DoctorStats, error) {
	return m.allDoctorsStatsFunc(ctx, sortBy)
}

func (m *mockService) RecordConsult(ctx context.Context, email, consultID string) (*DoctorStats, error) {
	return m.recordConsultFunc(ctx, email, consultID)
}

func withPrincipal(req *http.Request, p *auth.Principal) *http.Request {
	return req.WithContext(auth.ContextWithPrincipal(req.Context(), p))
}

func TestHandlerGetDoctorStats_Own(t *testing.T) {
	h := NewHandler(&mockService{doctorStatsFunc: func(ctx context.Context, email string) (*DoctorStats, error) {
		return &DoctorStats{DoctorEmail: email, TodayCount: 1, TotalCount: 5}, nil
	}})

	req := httptest.NewRequest(http.MethodGet, "/doctor/patient-stats/rao@example.com", nil)
	req = mux.SetURLVars(req, map[string]string{"doctorEmail": "rao@example.com"})
	req = withPrincipal(req, &auth.Principal{UserID: "d1", Email: "rao@example.com", Roles: []string{"doctor"}})
	rec := httptest.NewRecorder()
	h.GetDoctorStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data DoctorStats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(5), body.Data.TotalCount)
}

func TestHandlerGetDoctorStats_OtherDoctorForbidden(t *testing.T) {
	h := NewHandler(&mockService{})

	req := httptest.NewRequest(http.MethodGet, "/doctor/patient-stats/sen@example.com", nil)
	req = mux.SetURLVars(req, map[string]string{"doctorEmail": "sen@example.com"})
	req = withPrincipal(req, &auth.Principal{UserID: "d1", Email: "rao@example.com", Roles: []string{"doctor"}})
	rec := httptest.NewRecorder()
	h.GetDoctorStats(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerGetDoctorStats_AdminMayReadAny(t *testing.T) {
	h := NewHandler(&mockService{doctorStatsFunc: func(ctx context.Context, email string) (*DoctorStats, error) {
		return &DoctorStats{DoctorEmail: email}, nil
	}})

	req := httptest.NewRequest(http.MethodGet, "/doctor/patient-stats/sen@example.com", nil)
	req = mux.SetURLVars(req, map[string]string{"doctorEmail": "sen@example.com"})
	req = withPrincipal(req, &auth.Principal{UserID: "a1", Email: "admin@example.com", Roles: []string{"admin"}})
	rec := httptest.NewRecorder()
	h.GetDoctorStats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerRecordConsult(t *testing.T) {
	var gotConsult string
	h := NewHandler(&mockService{recordConsultFunc: func(ctx context.Context, email, consultID string) (*DoctorStats, error) {
		gotConsult = consultID
		return &DoctorStats{DoctorEmail: email, TodayCount: 1, TotalCount: 1}, nil
	}})

	req := httptest.NewRequest(http.MethodPost, "/doctor/patient-consult/rao@example.com", strings.NewReader(`{"consultId":"c-1"}`))
	req = mux.SetURLVars(req, map[string]string{"doctorEmail": "Rao@example.com"})
	req = withPrincipal(req, &auth.Principal{UserID: "d1", Email: "rao@example.com", Roles: []string{"doctor"}})
	rec := httptest.NewRecorder()
	h.RecordConsult(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "c-1", gotConsult)
}

func TestHandlerRecordConsult_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"bad json", "{", nil, http.StatusBadRequest},
		{"missing consult", `{}`, ErrMissingConsult, http.StatusBadRequest},
		{"unknown consult", `{"consultId":"c-9"}`, ErrConsultNotFound, http.StatusNotFound},
		{"someone else's consult", `{"consultId":"c-9"}`, ErrConsultNotAssigned, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&mockService{recordConsultFunc: func(ctx context.Context, email, consultID string) (*DoctorStats, error) {
				return nil, tt.err
			}})

			req := httptest.NewRequest(http.MethodPost, "/doctor/patient-consult/rao@example.com", strings.NewReader(tt.body))
			req = mux.SetURLVars(req, map[string]string{"doctorEmail": "rao@example.com"})
			req = withPrincipal(req, &auth.Principal{UserID: "d1", Email: "rao@example.com", Roles: []string{"doctor"}})
			rec := httptest.NewRecorder()
			h.RecordConsult(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandlerAllDoctorsStats(t *testing.T) {
	var gotSort string
	h := NewHandler(&mockService{allDoctorsStatsFunc: func(ctx context.Context, sortBy string) ([]DoctorStats, error) {
		gotSort = sortBy
		return []DoctorStats{{DoctorEmail: "a@example.com", TotalCount: 3}}, nil
	}})

	rec := httptest.NewRecorder()
	h.AllDoctorsStats(rec, httptest.NewRequest(http.MethodGet, "/admin/alldoctors-stats?sort=total", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "total", gotSort)
	var body struct {
		Count int           `json:"count"`
		Data  []DoctorStats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
}

func TestHandlerAllDoctorsStats_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid sort", ErrInvalidSort, http.StatusBadRequest},
		{"storage", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(&mockService{allDoctorsStatsFunc: func(ctx context.Context, sortBy string) ([]DoctorStats, error) {
				return nil, tc.err
			}})
			rec := httptest.NewRecorder()
			h.AllDoctorsStats(rec, httptest.NewRequest(http.MethodGet, "/admin/alldoctors-stats", nil))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
