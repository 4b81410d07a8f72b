// Package postgres persists terminal task records to PostgreSQL and owns the
// schema migrations for them. The database is optional: when no URL is
// configured the service runs with the in-memory history only.
package postgres
