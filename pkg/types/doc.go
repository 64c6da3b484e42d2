// Package types defines shared Go types used by both the germitrack CLI and
// the germitrackd server. These are the canonical in-memory representations of
// germination trial data and derived kinetics results, separate from any file
// or wire format.
package types
