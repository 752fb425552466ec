// Package pgstore is the PostgreSQL implementation of the auth user,
// token, and wallet nonce storages.
//
// Uniqueness of email, username, wallet address, and provider identity is
// enforced by partial unique indexes over live rows, and conflicts are
// mapped back to the auth package's sentinel errors. Single-use semantics
// for nonces and tokens come from single-statement conditional deletes
// and updates rather than application-level locking. The schema ships as
// embedded goose migrations; apply them with Migrate.
package pgstore
