// Package api implements the JSON HTTP endpoints served under /api/v1.
// Responses are assembled from the treatment store and the alert engine;
// the package also derives the plain-English diagnostic hints shown on
// treatment cards.
package api
