// Package config loads application configuration from FARMBOOK_*
// environment variables with sensible defaults.
//
// The zero configuration runs a single-binary deployment: SQLite at
// ./farmbook.db, listening on :8080, JSON logs at info level, no rate
// limiting. Set FARMBOOK_DB_BACKEND=postgres and FARMBOOK_POSTGRES_URL
// for a multi-user deployment, and FARMBOOK_REDIS_URL to enable the
// request rate limiter.
//
// LoadConfig validates the result; an invalid combination (for example
// a postgres backend without a URL) fails fast at startup.
package config
