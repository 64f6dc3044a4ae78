package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/doctorsaathi/consult-service/internal/auth"
	"github.com/doctorsaathi/consult-service/internal/logging"
	"github.com/doctorsaathi/consult-service/internal/response"
)

// TokenIssuer is satisfied by *Provisioner.
type TokenIssuer interface {
	Token(ctx context.Context, userID, name string) (string, error)
}

type Handler struct {
	issuer TokenIssuer
	apiKey string
}

func NewHandler(issuer TokenIssuer, apiKey string) *Handler {
	return &Handler{issuer: issuer, apiKey: apiKey}
}

// TokenResponse is what the frontend needs to open a chat session.
type TokenResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
	APIKey string `json:"apiKey"`
}

// Token issues a chat token for the authenticated caller.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, response.CodeUnauthorized, "unauthenticated")
		return
	}

	userID := PatientUserID(principal.UserID)
	if principal.HasRole(auth.RoleDoctor) {
		userID = DoctorUserID(principal.UserID)
	}

	token, err := h.issuer.Token(r.Context(), userID, displayName(principal))
	if err != nil {
		logging.FromContext(r.Context()).Error().Err(err).Str("chat_user", userID).Msg("failed to issue chat token")
		if errors.Is(err, ErrProvisioningUnavailable) {
			response.Error(w, http.StatusServiceUnavailable, response.CodeUnavailable, "chat provider unavailable, retry later")
			return
		}
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, "failed to issue chat token")
		return
	}

	response.JSON(w, http.StatusOK, TokenResponse{UserID: userID, Token: token, APIKey: h.apiKey})
}

// displayName is the token's "name" claim. The email is never shown to the
// other chat member, so callers without a name get an empty one.
func displayName(pr *auth.Principal) string {
	name, _ := pr.Claims["name"].(string)
	return strings.TrimSpace(name)
}
