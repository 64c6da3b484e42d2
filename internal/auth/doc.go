// Package auth provides authentication middleware for the germitrack server.
//
// APIKeyMiddleware(mode, header, key, next) wraps an http.Handler and
// validates the API key from the named request header, comparing in constant
// time.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). When the key is incorrect or absent,
// the middleware responds 401 with a JSON error body.
//
// The /metrics and /healthz endpoints are mounted outside this middleware so
// scrapers and probes work unauthenticated.
package auth
