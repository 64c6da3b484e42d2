package api_test

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Montcharles/germitrack/internal/alerts"
	"github.com/Montcharles/germitrack/internal/api"
	"github.com/Montcharles/germitrack/internal/config"
	"github.com/Montcharles/germitrack/internal/store"
	"github.com/Montcharles/germitrack/pkg/types"
)

// --- test helpers -----------------------------------------------------------

func newStore(results ...*types.TreatmentResult) *store.Store {
	st := store.New(5 * time.Minute)
	for _, r := range results {
		st.Put(r)
	}
	return st
}

// result builds a treatment with one record per germinability percentage.
func result(treatment string, germPcts ...float64) *types.TreatmentResult {
	res := &types.TreatmentResult{
		Treatment:  treatment,
		SourceFile: "trial.xlsx",
		AnalyzedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	for i, g := range germPcts {
		res.Records = append(res.Records, types.GerminationRecord{
			ReplicateID:           fmt.Sprintf("R%d", i+1),
			TotalSeeds:            25,
			GerminatedSeeds:       int(math.Round(g / 100 * 25)),
			GerminabilityPct:      g,
			MeanGerminationTime:   4,
			SynchronyIndex:        0.5,
			TimeToHalfGermination: 3,
		})
	}
	return res
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_EmptyStore(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)

	if resp["state"] != "unknown" {
		t.Errorf("state: got %v, want unknown", resp["state"])
	}
	if resp["treatment_count"].(float64) != 0 {
		t.Errorf("treatment_count: got %v, want 0", resp["treatment_count"])
	}
}

func TestHealth_SingleTreatment(t *testing.T) {
	h := api.New(newStore(result("Control", 90, 86)), nil)
	rr := get(t, h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)

	if resp["state"] != "ok" {
		t.Errorf("state: got %v, want ok", resp["state"])
	}
	if resp["mean_germinability_pct"].(float64) != 88 {
		t.Errorf("mean_germinability_pct: got %v, want 88", resp["mean_germinability_pct"])
	}
	if resp["replicate_count"].(float64) != 2 {
		t.Errorf("replicate_count: got %v, want 2", resp["replicate_count"])
	}
	if resp["ok_count"].(float64) != 1 {
		t.Errorf("ok_count: got %v, want 1", resp["ok_count"])
	}
}

func TestHealth_MixedStates(t *testing.T) {
	h := api.New(newStore(
		result("Control", 90),
		result("Saline", 55),
		result("Drought", 20),
	), nil)
	rr := get(t, h, "/api/v1/health")
	var resp map[string]interface{}
	decode(t, rr, &resp)

	if resp["ok_count"].(float64) != 1 {
		t.Errorf("ok_count: got %v, want 1", resp["ok_count"])
	}
	if resp["attention_count"].(float64) != 1 {
		t.Errorf("attention_count: got %v, want 1", resp["attention_count"])
	}
	if resp["critical_count"].(float64) != 1 {
		t.Errorf("critical_count: got %v, want 1", resp["critical_count"])
	}
	// overall = (90+55+20)/3 = 55 -> attention
	if resp["state"] != "attention" {
		t.Errorf("state: got %v, want attention", resp["state"])
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/health", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/treatments -----------------------------------------------------

func TestListTreatments_Empty(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/treatments")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []interface{}
	decode(t, rr, &resp)
	if len(resp) != 0 {
		t.Errorf("treatments: got %d items, want 0", len(resp))
	}
}

func TestListTreatments_SortedByName(t *testing.T) {
	h := api.New(newStore(
		result("Saline 100mM", 60),
		result("Control", 92),
		result("Drought", 45),
	), nil)
	rr := get(t, h, "/api/v1/treatments")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []map[string]interface{}
	decode(t, rr, &resp)
	if len(resp) != 3 {
		t.Fatalf("treatments: got %d, want 3", len(resp))
	}
	if resp[0]["treatment"] != "Control" || resp[2]["treatment"] != "Saline 100mM" {
		t.Errorf("order: got %v, %v, %v", resp[0]["treatment"], resp[1]["treatment"], resp[2]["treatment"])
	}
}

func TestListTreatments_FieldsPresent(t *testing.T) {
	h := api.New(newStore(result("Control", 90, 86)), nil)
	rr := get(t, h, "/api/v1/treatments")
	var resp []map[string]interface{}
	decode(t, rr, &resp)

	if len(resp) != 1 {
		t.Fatalf("got %d items, want 1", len(resp))
	}
	s := resp[0]
	if s["treatment"] != "Control" {
		t.Errorf("treatment: got %v", s["treatment"])
	}
	if s["replicates"].(float64) != 2 {
		t.Errorf("replicates: got %v, want 2", s["replicates"])
	}
	if s["mean_germinability_pct"].(float64) != 88 {
		t.Errorf("mean_germinability_pct: got %v, want 88", s["mean_germinability_pct"])
	}
	if s["state"] != "ok" {
		t.Errorf("state: got %v, want ok", s["state"])
	}
	if s["analyzed_at"] == "" || s["analyzed_at"] == nil {
		t.Error("analyzed_at: missing")
	}
	if s["source_file"] != "trial.xlsx" {
		t.Errorf("source_file: got %v", s["source_file"])
	}
}

func TestListTreatments_MethodNotAllowed(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/treatments", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/treatments/{name} ----------------------------------------------

func TestGetTreatment_Found(t *testing.T) {
	h := api.New(newStore(result("Saline 100mM", 60, 52)), nil)
	rr := get(t, h, "/api/v1/treatments/Saline%20100mM")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	var d map[string]interface{}
	decode(t, rr, &d)
	if d["treatment"] != "Saline 100mM" {
		t.Errorf("treatment: got %v", d["treatment"])
	}
	records := d["records"].([]interface{})
	if len(records) != 2 {
		t.Errorf("records: got %d, want 2", len(records))
	}
	diags := d["diagnostics"].([]interface{})
	if len(diags) == 0 {
		t.Error("diagnostics: missing")
	}
}

func TestGetTreatment_NotFound(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/treatments/does-not-exist")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestGetTreatment_StaleEntryIsNotFound(t *testing.T) {
	st := store.New(time.Nanosecond)
	st.Put(result("Control", 90))
	h := api.New(st, nil)

	time.Sleep(time.Millisecond)
	rr := get(t, h, "/api/v1/treatments/Control")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestGetTreatment_TrailingSlashLists(t *testing.T) {
	h := api.New(newStore(result("Control", 90)), nil)
	rr := get(t, h, "/api/v1/treatments/")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []interface{}
	decode(t, rr, &resp)
	if len(resp) != 1 {
		t.Errorf("treatments: got %d, want 1", len(resp))
	}
}

func TestGetTreatment_MethodNotAllowed(t *testing.T) {
	h := api.New(newStore(result("Control", 90)), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/treatments/Control", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/alerts ---------------------------------------------------------

func TestAlerts_EmptyArrayWithoutEngine(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/alerts")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []interface{}
	decode(t, rr, &resp)
	if resp == nil {
		t.Error("alerts: got null, want []")
	}
	if len(resp) != 0 {
		t.Errorf("alerts: got %d items, want 0", len(resp))
	}
}

func TestAlerts_ReportsFiring(t *testing.T) {
	eng := alerts.New(config.AlertsConfig{
		Rules: []config.AlertRule{{
			Name:      "low-germinability",
			Condition: "germinability_pct < 70",
			Severity:  "critical",
		}},
	})
	res := result("Saline", 40)
	eng.Evaluate(res)

	h := api.New(newStore(res), eng)
	rr := get(t, h, "/api/v1/alerts")

	var resp []map[string]interface{}
	decode(t, rr, &resp)
	if len(resp) != 1 {
		t.Fatalf("alerts: got %d, want 1", len(resp))
	}
	if resp[0]["rule_name"] != "low-germinability" {
		t.Errorf("rule_name: got %v", resp[0]["rule_name"])
	}
	if resp[0]["state"] != "firing" {
		t.Errorf("state: got %v", resp[0]["state"])
	}
}

// --- /api/v1/snapshot -------------------------------------------------------

func TestSnapshot_Empty(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/snapshot")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)
	if resp["generated_at"] == "" || resp["generated_at"] == nil {
		t.Error("generated_at: missing")
	}
	treatments := resp["treatments"].([]interface{})
	if len(treatments) != 0 {
		t.Errorf("treatments: got %d, want 0", len(treatments))
	}
}

func TestSnapshot_AllLiveTreatments(t *testing.T) {
	h := api.New(newStore(
		result("Control", 90),
		result("Saline", 60),
	), nil)
	rr := get(t, h, "/api/v1/snapshot")

	var resp map[string]interface{}
	decode(t, rr, &resp)
	treatments := resp["treatments"].([]interface{})
	if len(treatments) != 2 {
		t.Fatalf("treatments: got %d, want 2", len(treatments))
	}
	first := treatments[0].(map[string]interface{})
	if _, ok := first["records"]; !ok {
		t.Error("snapshot treatments should include records")
	}
	if _, ok := first["diagnostics"]; !ok {
		t.Error("snapshot treatments should include diagnostics")
	}
}

func TestSnapshot_MethodNotAllowed(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/api/v1/snapshot", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/ingest ---------------------------------------------------------

func TestIngest_StoresResult(t *testing.T) {
	st := newStore()
	h := api.New(st, nil)

	var hooked *types.TreatmentResult
	h.OnIngest = func(res *types.TreatmentResult) { hooked = res }

	body, _ := json.Marshal(result("Pushed", 80, 76))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader(string(body))))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202 (body: %s)", rr.Code, rr.Body.String())
	}
	if _, ok := st.Get("Pushed"); !ok {
		t.Error("ingested treatment not in store")
	}
	if hooked == nil || hooked.Treatment != "Pushed" {
		t.Errorf("OnIngest hook: got %+v", hooked)
	}
}

func TestIngest_DefaultsAnalyzedAt(t *testing.T) {
	st := newStore()
	h := api.New(st, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/ingest",
		strings.NewReader(`{"treatment":"Pushed","records":[]}`)))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", rr.Code)
	}
	e, ok := st.Get("Pushed")
	if !ok {
		t.Fatal("ingested treatment not in store")
	}
	if e.Result.AnalyzedAt.IsZero() {
		t.Error("analyzed_at was not defaulted")
	}
}

func TestIngest_RejectsMissingTreatment(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/ingest",
		strings.NewReader(`{"records":[]}`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestIngest_RejectsBadJSON(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/ingest",
		strings.NewReader(`{nope`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestIngest_MethodNotAllowed(t *testing.T) {
	h := api.New(newStore(), nil)
	rr := get(t, h, "/api/v1/ingest")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- Content-Type -----------------------------------------------------------

func TestContentTypeJSON(t *testing.T) {
	h := api.New(newStore(), nil)
	for _, path := range []string{
		"/api/v1/health",
		"/api/v1/treatments",
		"/api/v1/alerts",
		"/api/v1/snapshot",
	} {
		rr := get(t, h, path)
		ct := rr.Header().Get("Content-Type")
		if ct != "application/json" {
			t.Errorf("%s Content-Type: got %q, want application/json", path, ct)
		}
	}
}
