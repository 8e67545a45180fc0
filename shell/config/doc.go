// Package config builds the service configuration from environment variables
// and provides ready-made Postgres connection configurations for the pgxpool,
// sql.DB, and sqlx connection types the booking engine accepts.
package config
