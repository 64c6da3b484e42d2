package api

import "github.com/Montcharles/germitrack/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State                string  `json:"state"`
	TreatmentCount       int     `json:"treatment_count"`
	ReplicateCount       int     `json:"replicate_count"`
	MeanGerminabilityPct float64 `json:"mean_germinability_pct"`
	OkCount              int     `json:"ok_count"`
	AttentionCount       int     `json:"attention_count"`
	CriticalCount        int     `json:"critical_count"`
	AlertCount           int     `json:"alert_count"`
}

// TreatmentSummary is one treatment entry in GET /api/v1/treatments.
type TreatmentSummary struct {
	Treatment                 string  `json:"treatment"`
	SourceFile                string  `json:"source_file,omitempty"`
	Replicates                int     `json:"replicates"`
	MeanGerminabilityPct      float64 `json:"mean_germinability_pct"`
	MeanGerminationTime       float64 `json:"mean_germination_time"`
	MeanTimeToHalfGermination float64 `json:"mean_time_to_half_germination"`
	State                     string  `json:"state"`
	AnalyzedAt                string  `json:"analyzed_at"` // RFC3339
}

// TreatmentDetail is the payload for GET /api/v1/treatments/{name}: the
// summary plus the full per-replicate records, curves, and diagnostics.
type TreatmentDetail struct {
	TreatmentSummary
	Records     []types.GerminationRecord `json:"records"`
	Curves      *types.CurveSet           `json:"curves,omitempty"`
	Diagnostics []DiagnosticHint          `json:"diagnostics"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the body of
// the websocket "snapshot" event.
type SnapshotResponse struct {
	Treatments  []TreatmentDetail `json:"treatments"`
	GeneratedAt string            `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
