// Package nonce issues single-use random challenge values that prevent
// signature replay. A nonce is bound to one wallet address, expires after a
// short TTL, and is destroyed the moment it is checked: delete-on-read
// semantics guarantee it can never validate twice.
package nonce
