// Package auth unifies wallet signature, email/password, and federated
// provider sign-in behind a single user model with signed session tokens.
//
// Each credential method has its own service (WalletService,
// PasswordService, FederatedService) sharing one UserStorage, so an
// account created through any method can later link or unlink the others.
// An account always keeps at least one credential method.
//
// TokenService issues stateless access/refresh token pairs, and the HTTP
// middleware resolves bearer tokens to the current user with role,
// ownership, and verified-email guards layered on top.
package auth
