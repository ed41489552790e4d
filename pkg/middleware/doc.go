// Package middleware provides the HTTP middleware chain: bearer-token
// authentication, request logging with UUID request ids, panic recovery,
// and Redis-backed rate limiting.
//
// Authentication resolves the token to a live user row on every request;
// the user's system role is never read from the token itself. Farm-scoped
// authorization lives in pkg/access and runs after this layer.
//
// The rate limiter fails open: if Redis is unreachable, requests pass
// and the outage is logged.
package middleware
