package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Montcharles/germitrack/internal/alerts"
	"github.com/Montcharles/germitrack/internal/store"
	"github.com/Montcharles/germitrack/pkg/types"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads treatment results from the store and returns JSON responses.
type Handler struct {
	store  *store.Store
	alerts *alerts.Engine

	// OnIngest, when set, is called after a pushed result has been stored
	// and evaluated. The server uses it to trigger a websocket broadcast.
	OnIngest func(res *types.TreatmentResult)

	mux *http.ServeMux
}

// New creates a Handler wired to the given store and alert engine and
// registers all routes. The alert engine may be nil when alerting is not
// configured.
func New(st *store.Store, al *alerts.Engine) *Handler {
	h := &Handler{store: st, alerts: al, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/treatments", h.listTreatments)
	h.mux.HandleFunc("/api/v1/treatments/", h.getTreatment) // subtree, extracts {name}
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)
	h.mux.HandleFunc("/api/v1/ingest", h.ingest)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: overall lot state and state counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	resp := HealthResponse{
		TreatmentCount: len(entries),
	}
	if h.alerts != nil {
		resp.AlertCount = h.alerts.FiringCount()
	}

	if len(entries) == 0 {
		resp.State = "unknown"
		jsonResp(w, http.StatusOK, resp)
		return
	}

	var totalGerm float64
	for _, e := range entries {
		resp.ReplicateCount += len(e.Result.Records)
		g := meanGerminability(e.Result)
		totalGerm += g
		switch stateFromGerminability(g) {
		case "ok":
			resp.OkCount++
		case "attention":
			resp.AttentionCount++
		case "critical":
			resp.CriticalCount++
		}
	}

	resp.MeanGerminabilityPct = totalGerm / float64(len(entries))
	resp.State = stateFromGerminability(resp.MeanGerminabilityPct)
	jsonResp(w, http.StatusOK, resp)
}

// listTreatments returns GET /api/v1/treatments: all live treatments.
func (h *Handler) listTreatments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	out := make([]TreatmentSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, toSummary(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// getTreatment returns GET /api/v1/treatments/{name}: one treatment in full.
func (h *Handler) getTreatment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/treatments/")
	if name == "" {
		// Redirect bare /api/v1/treatments/ to list handler.
		h.listTreatments(w, r)
		return
	}

	e, ok := h.store.Get(name)
	if !ok {
		jsonErr(w, http.StatusNotFound, "treatment not found")
		return
	}
	// Exclude stale entries, treat them as not found.
	if ttl := h.store.TTL(); ttl > 0 && time.Since(e.UpdatedAt) > ttl {
		jsonErr(w, http.StatusNotFound, "treatment not found")
		return
	}

	jsonResp(w, http.StatusOK, toDetail(e))
}

// listAlerts returns GET /api/v1/alerts: firing plus recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []struct{}{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// snapshot returns GET /api/v1/snapshot: full JSON dump of all live treatments.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildSnapshot(h.store))
}

// ingest accepts POST /api/v1/ingest: a treatment result pushed from a batch
// run on another machine. The result is stored, evaluated against alert
// rules, and handed to OnIngest.
func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var res types.TreatmentResult
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if res.Treatment == "" {
		jsonErr(w, http.StatusBadRequest, "treatment name is required")
		return
	}
	if res.AnalyzedAt.IsZero() {
		res.AnalyzedAt = time.Now().UTC()
	}

	h.store.Put(&res)
	if h.alerts != nil {
		h.alerts.Evaluate(&res)
	}
	if h.OnIngest != nil {
		h.OnIngest(&res)
	}
	jsonResp(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// --- helpers ----------------------------------------------------------------

// BuildSnapshot assembles the full dashboard state from the store. The
// websocket hub broadcasts the same payload on its push interval.
func BuildSnapshot(st *store.Store) SnapshotResponse {
	entries := st.List()
	out := make([]TreatmentDetail, 0, len(entries))
	for _, e := range entries {
		out = append(out, toDetail(e))
	}
	return SnapshotResponse{
		Treatments:  out,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// stateFromGerminability converts a germination percentage to a lot state.
// Seventy percent is the usual commercial viability floor; below forty the
// lot is unlikely to be usable.
func stateFromGerminability(pct float64) string {
	switch {
	case pct >= 70:
		return "ok"
	case pct >= 40:
		return "attention"
	default:
		return "critical"
	}
}

// toSummary maps a store.Entry to its list representation.
func toSummary(e *store.Entry) TreatmentSummary {
	res := e.Result
	g := meanGerminability(res)
	return TreatmentSummary{
		Treatment:            res.Treatment,
		SourceFile:           res.SourceFile,
		Replicates:           len(res.Records),
		MeanGerminabilityPct: g,
		MeanGerminationTime: meanRecordField(res, func(r types.GerminationRecord) float64 {
			return r.MeanGerminationTime
		}),
		MeanTimeToHalfGermination: meanRecordField(res, func(r types.GerminationRecord) float64 {
			return r.TimeToHalfGermination
		}),
		State:      stateFromGerminability(g),
		AnalyzedAt: res.AnalyzedAt.UTC().Format(time.RFC3339),
	}
}

// toDetail maps a store.Entry to its full representation.
func toDetail(e *store.Entry) TreatmentDetail {
	res := e.Result
	return TreatmentDetail{
		TreatmentSummary: toSummary(e),
		Records:          res.Records,
		Curves:           res.Curves,
		Diagnostics:      computeDiagnostics(res),
	}
}

// meanRecordField averages one statistic across a treatment's replicates.
func meanRecordField(res *types.TreatmentResult, pick func(types.GerminationRecord) float64) float64 {
	if len(res.Records) == 0 {
		return 0
	}
	var sum float64
	for _, rec := range res.Records {
		sum += pick(rec)
	}
	return sum / float64(len(res.Records))
}

func meanGerminability(res *types.TreatmentResult) float64 {
	return meanRecordField(res, func(r types.GerminationRecord) float64 { return r.GerminabilityPct })
}
