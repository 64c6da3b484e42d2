// Package store holds the latest analysis result per treatment in memory.
// It backs the REST API, the WebSocket hub, and the metrics endpoint.
// Results arrive from the file-watch re-analysis loop or from CLI pushes;
// an optional TTL evicts treatments that stop being refreshed.
package store
