package consult

import (
	"encoding/json"
	"errors"
	"iter"
	"net/http"

	"github.com/doctorsaathi/consult-service/internal/accounts"
	"github.com/doctorsaathi/consult-service/internal/auth"
	"github.com/doctorsaathi/consult-service/internal/chat"
	"github.com/doctorsaathi/consult-service/internal/logging"
	"github.com/doctorsaathi/consult-service/internal/pagination"
	"github.com/doctorsaathi/consult-service/internal/response"
	"github.com/gorilla/mux"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// Submit serves POST /user/bookconsult. The caller's verified email wins over
// the one in the body.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeBadRequest, "invalid request body")
		return
	}
	if principal.Email != "" {
		req.Email = principal.Email
	}

	c, err := h.service.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Message(w, http.StatusCreated, "consultation request submitted", c)
}

// ListMine serves GET /user/consults.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}
	h.writePage(w, r, h.service.ListForPatient(r.Context(), principal.Email))
}

// GetMine serves GET /user/consults/{id}. Other patients' consults look missing.
func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}

	c, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err == nil && c.PatientEmail != principal.Email {
		err = ErrConsultNotFound
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, c)
}

// Cancel serves DELETE /user/consults/{id}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}

	if err := h.service.Cancel(r.Context(), mux.Vars(r)["id"], principal.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Message(w, http.StatusOK, "consultation request cancelled", nil)
}

// ListPending serves GET /doctor/pendingConsults, filtered by the caller's
// registered specialty.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}

	specialist, err := h.service.SpecialistOf(r.Context(), principal.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writePage(w, r, h.service.ListPending(r.Context(), specialist))
}

// Accept serves PUT /doctor/consult/accept/{id}.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}

	acc, err := h.service.Accept(r.Context(), mux.Vars(r)["id"], principal.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Message(w, http.StatusOK, "consultation accepted", acc)
}

// Complete serves PUT /doctor/consult/complete/{id}.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}

	c, err := h.service.Complete(r.Context(), mux.Vars(r)["id"], principal.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Message(w, http.StatusOK, "consultation completed", c)
}

// ListApproved serves GET /doctor/approvedConsults.
func (h *Handler) ListApproved(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}
	h.writePage(w, r, h.service.ListApproved(r.Context(), principal.UserID))
}

// ListAll serves GET /admin/allConsults.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.writePage(w, r, h.service.ListAll(r.Context()))
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, seq iter.Seq2[ConsultRequest, error]) {
	items, meta, err := pagination.Page(seq, pagination.ParseParams(r))
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
	case errors.Is(err, ErrConsultNotFound),
		errors.Is(err, accounts.ErrDoctorNotFound),
		errors.Is(err, accounts.ErrPatientNotFound):
		response.Error(w, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, ErrAlreadyHandled), errors.Is(err, ErrInvalidTransition):
		response.Error(w, http.StatusConflict, response.CodeConflict, err.Error())
	case errors.Is(err, ErrNotAssignedDoctor),
		errors.Is(err, ErrSpecialistMismatch),
		errors.Is(err, ErrNotOwner):
		response.Error(w, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, ErrMissingPrincipal):
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
	case errors.Is(err, chat.ErrProvisioningUnavailable):
		logging.FromContext(r.Context()).Warn().Err(err).Msg("chat provisioning unavailable")
		w.Header().Set("Retry-After", "5")
		response.Error(w, http.StatusServiceUnavailable, response.CodeUnavailable,
			"chat provider unavailable, consultation left pending; retry later")
	default:
		logging.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("consult request failed")
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, "internal storage error")
	}
}
