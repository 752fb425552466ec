package wallet

import "errors"

var (
	// ErrMalformedMessage indicates the sign-in message did not parse.
	ErrMalformedMessage = errors.New("malformed sign-in message")

	// ErrAddressMismatch indicates the claimed address differs from the one
	// embedded in the message.
	ErrAddressMismatch = errors.New("claimed address does not match message")

	// ErrNonceInvalid indicates the challenge nonce was wrong, expired or
	// already consumed.
	ErrNonceInvalid = errors.New("invalid or expired nonce")

	// ErrInvalidSignature indicates signature recovery failed or recovered a
	// different address than claimed.
	ErrInvalidSignature = errors.New("invalid signature")
)
