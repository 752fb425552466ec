package account

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/pkg/auth"
)

// federatedAuthenticator is the slice of auth.FederatedService this module uses.
type federatedAuthenticator interface {
	Authenticate(ctx context.Context, profile auth.ProviderProfile) (*auth.User, bool, error)
	UnlinkProvider(ctx context.Context, userID int64) (*auth.User, error)
}

// stateStore issues and consumes single-use CSRF state values for the
// provider redirect round trip. Each state lives independently so
// overlapping sign-ins never invalidate each other. Satisfied by
// nonce.Service.
type stateStore interface {
	IssueState(ctx context.Context, scope string) (string, error)
	ConsumeState(ctx context.Context, scope, token string) (bool, error)
}

type federatedHandler struct {
	adapter   auth.ProviderAdapter
	federated federatedAuthenticator
	states    stateStore
	tokens    *auth.TokenService
}

func (h *federatedHandler) mount(r chi.Router) {
	name := h.adapter.Name()
	r.Get("/"+name, h.begin)
	r.Get("/"+name+"/callback", h.callback)
}

func (h *federatedHandler) stateKey() string {
	return "oauth:" + h.adapter.Name()
}

// begin redirects to the provider consent page with a single-use state.
func (h *federatedHandler) begin(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.IssueState(r.Context(), h.stateKey())
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, h.adapter.AuthURL(state), http.StatusFound)
}

// callback finishes the provider round trip. State is consumed before the
// code exchange so a replayed callback dies on the state check.
func (h *federatedHandler) callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	ok, err := h.states.ConsumeState(r.Context(), h.stateKey(), state)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok || code == "" {
		writeError(w, auth.ErrInvalidCredentials)
		return
	}

	profile, err := h.adapter.ResolveProfile(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}

	user, isNew, err := h.federated.Authenticate(r.Context(), profile)
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
