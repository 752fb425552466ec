package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for every authentication failure
	// regardless of cause so that callers cannot distinguish an unknown
	// account from a wrong password or signature.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned by storage lookups for missing or
	// soft-deleted accounts. Handlers must not expose it on
	// authentication paths.
	ErrUserNotFound = errors.New("user not found")

	ErrEmailAlreadyExists    = errors.New("email already in use")
	ErrUsernameAlreadyExists = errors.New("username already in use")
	ErrWalletAlreadyLinked   = errors.New("wallet address already linked to an account")
	ErrProviderAlreadyLinked = errors.New("provider identity already linked to an account")
	ErrEmailAlreadyLinked    = errors.New("account already has an email credential")

	// ErrLastAuthMethod is returned when unlinking a credential would
	// leave the account with no way to sign in.
	ErrLastAuthMethod = errors.New("cannot remove the last authentication method")

	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")

	// ErrProviderNotConfigured is returned when a federated sign-in is
	// attempted against a provider whose credentials were not supplied.
	ErrProviderNotConfigured = errors.New("identity provider is not configured")

	// ErrStorageUnavailable wraps backend failures that are neither a
	// caller mistake nor a credential problem.
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
