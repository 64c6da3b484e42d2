// Package metrics exposes the server's operational state in Prometheus text
// exposition format on /metrics. The endpoint is mounted outside the auth
// middleware so scrapers work unauthenticated.
package metrics
