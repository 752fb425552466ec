package account

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/pkg/auth"
	"github.com/dmitrymomot/authkit/pkg/siwe"
)

// walletAuthenticator is the slice of auth.WalletService this module uses.
type walletAuthenticator interface {
	Challenge(ctx context.Context, address string) (string, error)
	Login(ctx context.Context, address, message, signature string) (*auth.User, bool, error)
	LinkWallet(ctx context.Context, userID int64, address, message, signature string) (*auth.User, error)
	UnlinkWallet(ctx context.Context, userID int64) (*auth.User, error)
}

type walletHandler struct {
	cfg     Config
	wallets walletAuthenticator
	tokens  *auth.TokenService
}

func (h *walletHandler) mount(r chi.Router) {
	r.Post("/wallet/challenge", h.challenge)
	r.Post("/wallet/login", h.login)
}

type challengeRequest struct {
	Address string `json:"address"`
}

type challengeResponse struct {
	Message string `json:"message"`
}

// challenge issues a nonce and returns the full message the wallet must
// sign. Re-requesting a challenge invalidates the previous one.
func (h *walletHandler) challenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	nonce, err := h.wallets.Challenge(r.Context(), req.Address)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, challengeResponse{
		Message: siwe.Build(req.Address, nonce, h.cfg.AppDomain, h.cfg.ChainID),
	})
}

type walletLoginRequest struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

func (h *walletHandler) login(w http.ResponseWriter, r *http.Request) {
	var req walletLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, isNew, err := h.wallets.Login(r.Context(), req.Address, req.Message, req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.tokens.Issue(user)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, sessionResponse{User: toUserResponse(user), Tokens: pair, IsNew: isNew})
}
