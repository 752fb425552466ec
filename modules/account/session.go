package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/pkg/auth"
)

type sessionHandler struct {
	tokens *auth.TokenService
	users  auth.UserStorage
}

func (h *sessionHandler) mount(r chi.Router) {
	r.Post("/refresh", h.refresh)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// refresh exchanges a refresh token for a new access token carrying the
// user's current role and credentials, not those at sign-in time.
func (h *sessionHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claims, err := h.tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil || user.IsDeleted() {
		writeError(w, auth.ErrTokenInvalid)
		return
	}

	access, err := h.tokens.Refresh(req.RefreshToken, user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: access})
}
