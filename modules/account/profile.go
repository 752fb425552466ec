package account

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/pkg/auth"
)

// profileHandler serves the authenticated account surface: inspecting the
// current user and linking or unlinking credential methods.
type profileHandler struct {
	passwords passwordAuthenticator
	wallets   walletAuthenticator
	federated federatedAuthenticator
	mailer    accountMailer
	logger    *slog.Logger
}

func (h *profileHandler) mount(r chi.Router) {
	r.Get("/", h.me)
	r.Post("/password", h.changePassword)
	r.Post("/email", h.linkEmail)
	r.Delete("/email", h.unlinkEmail)
	r.Post("/wallet", h.linkWallet)
	r.Delete("/wallet", h.unlinkWallet)
	r.Delete("/provider", h.unlinkProvider)
}

func (h *profileHandler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *profileHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.passwords.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated."})
}

type linkEmailRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *profileHandler) linkEmail(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}

	var req linkEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, verificationToken, err := h.passwords.LinkEmail(r.Context(), user.ID, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.mailer.SendVerification(r.Context(), updated.Email, verificationToken, auth.DefaultVerificationTokenTTL); err != nil {
		h.logger.Warn("failed to send verification email", "user_id", updated.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(updated)})
}

func (h *profileHandler) unlinkEmail(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}

	updated, err := h.passwords.UnlinkEmail(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(updated)})
}

type linkWalletRequest struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

func (h *profileHandler) linkWallet(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}

	var req linkWalletRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.wallets.LinkWallet(r.Context(), user.ID, req.Address, req.Message, req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(updated)})
}

func (h *profileHandler) unlinkWallet(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}

	updated, err := h.wallets.UnlinkWallet(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(updated)})
}

func (h *profileHandler) unlinkProvider(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}

	updated, err := h.federated.UnlinkProvider(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(updated)})
}
