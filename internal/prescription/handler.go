package prescription

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/doctorsaathi/consult-service/internal/accounts"
	"github.com/doctorsaathi/consult-service/internal/auth"
	"github.com/doctorsaathi/consult-service/internal/logging"
	"github.com/doctorsaathi/consult-service/internal/pagination"
	"github.com/doctorsaathi/consult-service/internal/response"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// Add serves POST /doctor/addPrescription.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}

	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "invalid request body")
		return
	}

	p, err := h.service.Add(r.Context(), principal.UserID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Message(w, http.StatusCreated, "prescription added", p)
}

// ListMine serves GET /user/prescription.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}

	items, meta, err := pagination.Page(h.service.ListForPatient(r.Context(), principal.Email), pagination.ParseParams(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.List(w, items, &meta)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		response.ValidationError(w, "missing required fields", ve.Fields)
	case errors.Is(err, ErrConsultNotFound), errors.Is(err, accounts.ErrPatientNotFound):
		response.Error(w, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, ErrConsultNotActive):
		response.Error(w, http.StatusConflict, response.CodeConflict, err.Error())
	case errors.Is(err, ErrNotAssignedDoctor):
		response.Error(w, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, ErrMissingPrincipal):
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
	default:
		logging.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("prescription request failed")
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, "internal storage error")
	}
}
