package account

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/pkg/auth"
	"github.com/dmitrymomot/authkit/pkg/ratelimit"
)

// Deps carries everything the account module mounts. Google and Limiter
// are optional: a nil adapter leaves the provider routes unmounted, a nil
// limiter disables rate limiting.
type Deps struct {
	Config Config

	Users     auth.UserStorage
	Tokens    *auth.TokenService
	Wallets   walletAuthenticator
	Passwords passwordAuthenticator
	Federated federatedAuthenticator
	Google    auth.ProviderAdapter
	States    stateStore
	Mailer    accountMailer

	Limiter *ratelimit.SlidingWindow
	Logger  *slog.Logger
}

// Router builds the account HTTP surface:
//
//	POST /auth/wallet/challenge     issue a sign-in challenge
//	POST /auth/wallet/login         verify signature, sign in or sign up
//	POST /auth/password/register    create an email/password account
//	POST /auth/password/login       email/password sign-in
//	POST /auth/password/forgot      request a reset link
//	POST /auth/password/reset       consume a reset token
//	GET  /auth/email/verify         consume a verification token (email link)
//	POST /auth/email/verify         consume a verification token (API)
//	GET  /auth/google               redirect to provider consent
//	GET  /auth/google/callback      finish provider sign-in
//	POST /auth/refresh              exchange a refresh token
//	GET  /me                        current account
//	POST /me/password               change password
//	POST /me/email,  DELETE /me/email      link/unlink email credential
//	POST /me/wallet, DELETE /me/wallet     link/unlink wallet
//	DELETE /me/provider                    unlink federated identity
func Router(deps Deps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	wallet := &walletHandler{cfg: deps.Config, wallets: deps.Wallets, tokens: deps.Tokens}
	password := &passwordHandler{passwords: deps.Passwords, tokens: deps.Tokens, mailer: deps.Mailer, logger: logger}
	session := &sessionHandler{tokens: deps.Tokens, users: deps.Users}
	profile := &profileHandler{
		passwords: deps.Passwords,
		wallets:   deps.Wallets,
		federated: deps.Federated,
		mailer:    deps.Mailer,
		logger:    logger,
	}

	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(ratelimit.Middleware(deps.Limiter, ratelimit.Composite(ratelimit.KeyByPath, ratelimit.KeyByIP)))
		}

		wallet.mount(r)
		password.mount(r)
		session.mount(r)

		if deps.Google != nil {
			google := &federatedHandler{
				adapter:   deps.Google,
				federated: deps.Federated,
				states:    deps.States,
				tokens:    deps.Tokens,
			}
			google.mount(r)
		} else {
			logger.Warn("google sign-in disabled: provider credentials not configured")
		}
	})

	r.Route("/me", func(r chi.Router) {
		r.Use(auth.Middleware(deps.Tokens, deps.Users))
		profile.mount(r)
	})

	return r
}
