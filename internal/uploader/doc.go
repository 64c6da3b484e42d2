// Package uploader pushes finished treatment results to a running
// germitrackd over HTTP. Results are buffered so a batch run completes even
// when the server is briefly unreachable; delivery retries with exponential
// backoff.
package uploader
