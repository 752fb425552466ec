package account

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/pkg/auth"
)

// passwordAuthenticator is the slice of auth.PasswordService this module uses.
type passwordAuthenticator interface {
	Register(ctx context.Context, reg auth.Registration) (*auth.User, string, error)
	Authenticate(ctx context.Context, email, password string) (*auth.User, error)
	VerifyEmail(ctx context.Context, token string) (*auth.User, error)
	ForgotPassword(ctx context.Context, email string) (*auth.PasswordResetRequest, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
	LinkEmail(ctx context.Context, userID int64, email, password string) (*auth.User, string, error)
	UnlinkEmail(ctx context.Context, userID int64) (*auth.User, error)
}

// accountMailer delivers the verification and reset emails.
type accountMailer interface {
	SendVerification(ctx context.Context, to, token string, ttl time.Duration) error
	SendPasswordReset(ctx context.Context, to, token string, expiresAt time.Time) error
}

type passwordHandler struct {
	passwords passwordAuthenticator
	tokens    *auth.TokenService
	mailer    accountMailer
	logger    *slog.Logger
}

func (h *passwordHandler) mount(r chi.Router) {
	r.Post("/password/register", h.register)
	r.Post("/password/login", h.login)
	r.Post("/password/forgot", h.forgot)
	r.Post("/password/reset", h.reset)
	r.Get("/email/verify", h.verify)
	r.Post("/email/verify", h.verify)
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func (h *passwordHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, verificationToken, err := h.passwords.Register(r.Context(), auth.Registration{
		Email:       req.Email,
		Password:    req.Password,
		Username:    req.Username,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Registration already succeeded; a failed delivery only costs the
	// user a resend.
	if err := h.mailer.SendVerification(r.Context(), user.Email, verificationToken, auth.DefaultVerificationTokenTTL); err != nil {
		h.logger.Warn("failed to send verification email", "user_id", user.ID, "error", err)
	}

	pair, err := h.tokens.Issue(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: toUserResponse(user), Tokens: pair, IsNew: true})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *passwordHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.passwords.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.tokens.Issue(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: toUserResponse(user), Tokens: pair})
}

type forgotRequest struct {
	Email string `json:"email"`
}

// forgot always answers 202 with the same body. Whether the address has
// an account is decided internally and never reflected in the response.
func (h *passwordHandler) forgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reset, err := h.passwords.ForgotPassword(r.Context(), req.Email)
	switch {
	case err == nil:
		if err := h.mailer.SendPasswordReset(r.Context(), reset.Email, reset.Token, reset.ExpiresAt); err != nil {
			h.logger.Warn("failed to send password reset email", "error", err)
		}
	case errors.Is(err, auth.ErrUserNotFound):
		// Unknown address gets the same answer as a known one.
		h.logger.Debug("password reset not issued", "error", err)
	default:
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "If that email is registered, a reset link is on its way.",
	})
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *passwordHandler) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.passwords.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated. Sign in with your new password."})
}

type verifyRequest struct {
	Token string `json:"token"`
}

// verify accepts the token from the query string (email link) or the
// request body (API clients).
func (h *passwordHandler) verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" && r.Method == http.MethodPost {
		var req verifyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		token = req.Token
	}

	user, err := h.passwords.VerifyEmail(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}
