// Package pg wires pgx connection pooling, goose migrations, and error
// classification helpers for PostgreSQL-backed storages.
//
// Connect retries with backoff so service restarts survive brief database
// outages. The Is*Error helpers translate SQLSTATE codes into questions
// storage code actually asks, like "was this a unique index conflict".
package pg
