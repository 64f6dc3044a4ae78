package stats

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/doctorsaathi/consult-service/internal/accounts"
	"github.com/doctorsaathi/consult-service/internal/auth"
	"github.com/doctorsaathi/consult-service/internal/logging"
	"github.com/doctorsaathi/consult-service/internal/response"
	"github.com/gorilla/mux"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// GetDoctorStats serves GET /doctor/patient-stats/{doctorEmail}.
// Doctors read their own numbers, admins anyone's.
func (h *Handler) GetDoctorStats(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}

	email := mux.Vars(r)["doctorEmail"]
	if !principal.HasRole(auth.RoleAdmin) && !sameEmail(principal.Email, email) {
		response.Error(w, http.StatusForbidden, response.CodeForbidden, "doctors may only view their own statistics")
		return
	}

	st, err := h.service.DoctorStats(r.Context(), email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, st)
}

// RecordConsult serves POST /doctor/patient-consult/{doctorEmail} with a
// {"consultId": ...} body.
func (h *Handler) RecordConsult(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}

	email := mux.Vars(r)["doctorEmail"]
	if !sameEmail(principal.Email, email) {
		response.Error(w, http.StatusForbidden, response.CodeForbidden, "doctors may only record their own consultations")
		return
	}

	var body struct {
		ConsultID string `json:"consultId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "invalid request body")
		return
	}

	st, err := h.service.RecordConsult(r.Context(), email, body.ConsultID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Message(w, http.StatusCreated, "consultation recorded", st)
}

// AllDoctorsStats serves GET /admin/alldoctors-stats?sort=today|total.
func (h *Handler) AllDoctorsStats(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.AllDoctorsStats(r.Context(), r.URL.Query().Get("sort"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.List(w, all, nil)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidSort):
		response.ValidationError(w, err.Error(), []string{"sort"})
	case errors.Is(err, ErrMissingEmail):
		response.ValidationError(w, err.Error(), []string{"doctorEmail"})
	case errors.Is(err, ErrMissingConsult):
		response.ValidationError(w, err.Error(), []string{"consultId"})
	case errors.Is(err, accounts.ErrDoctorNotFound), errors.Is(err, ErrConsultNotFound):
		response.Error(w, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, ErrConsultNotAssigned):
		response.Error(w, http.StatusForbidden, response.CodeForbidden, err.Error())
	default:
		logging.FromContext(r.Context()).Error().Err(err).Msg("statistics request failed")
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, "failed to load statistics")
	}
}

func sameEmail(a, b string) bool {
	a = strings.TrimSpace(a)
	return a != "" && strings.EqualFold(a, strings.TrimSpace(b))
}
