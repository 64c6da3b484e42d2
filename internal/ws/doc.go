// Package ws streams treatment snapshots to dashboard clients over
// WebSocket. Every connected client receives the full snapshot on connect,
// on every broadcast tick, and whenever a new result is ingested.
package ws
