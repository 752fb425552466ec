// Package siwe builds and parses the human-readable sign-in challenge text a
// wallet signs to prove control of an address (EIP-4361 style). The codec is
// deliberately strict: Build produces one canonical layout and Parse accepts
// only that layout, degrading to nil on anything else.
package siwe
