package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Montcharles/germitrack/internal/config"
	"github.com/Montcharles/germitrack/pkg/types"
)

// mockIngest is an ingest endpoint that records deliveries and can be told
// to fail.
type mockIngest struct {
	mu       sync.Mutex
	received []string // treatment names in arrival order
	headers  []http.Header
	calls    int
	failN    int // respond 500 to the first N calls
	status   int // non-zero forces this status on every call
}

func (m *mockIngest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.headers = append(m.headers, r.Header.Clone())

	if m.failN > 0 {
		m.failN--
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	if m.status != 0 {
		http.Error(w, "rejected", m.status)
		return
	}

	var res types.TreatmentResult
	if err := json.NewDecoder(r.Body).Decode(&res); err == nil {
		m.received = append(m.received, res.Treatment)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (m *mockIngest) treatments() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.received))
	copy(out, m.received)
	return out
}

func (m *mockIngest) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockIngest) firstHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.headers) == 0 {
		return nil
	}
	return m.headers[0]
}

func pushCfg(endpoint string) config.PushConfig {
	return config.PushConfig{Endpoint: endpoint, BufferSize: 10}
}

func result(treatment string) *types.TreatmentResult {
	return &types.TreatmentResult{
		Treatment:  treatment,
		AnalyzedAt: time.Now().UTC(),
		Records: []types.GerminationRecord{
			{ReplicateID: "R1", TotalSeeds: 25, GerminatedSeeds: 20, GerminabilityPct: 80},
		},
	}
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// --- Tests ---

func TestUploader_DeliversResult(t *testing.T) {
	srv := &mockIngest{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	u := New(pushCfg(ts.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go u.Run(ctx)

	u.Ship(result("Control"))

	waitFor(t, 2*time.Second, func() bool { return len(srv.treatments()) == 1 })
	if got := srv.treatments()[0]; got != "Control" {
		t.Errorf("treatment = %q, want Control", got)
	}
	if ct := srv.firstHeader().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestUploader_MultipleResultsInOrder(t *testing.T) {
	srv := &mockIngest{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	u := New(pushCfg(ts.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go u.Run(ctx)

	for _, name := range []string{"Control", "Saline", "Drought"} {
		u.Ship(result(name))
	}

	waitFor(t, 2*time.Second, func() bool { return len(srv.treatments()) == 3 })
	got := srv.treatments()
	for i, want := range []string{"Control", "Saline", "Drought"} {
		if got[i] != want {
			t.Errorf("treatments[%d] = %q, want %q", i, got[i], want)
		}
	}
}

func TestUploader_SendsAPIKeyHeader(t *testing.T) {
	srv := &mockIngest{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	t.Setenv("GERMITRACK_TEST_KEY", "sekret")
	cfg := pushCfg(ts.URL)
	cfg.Auth = config.AuthConfig{Mode: "apikey", Header: "x-api-key", KeyEnv: "GERMITRACK_TEST_KEY"}

	u := New(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go u.Run(ctx)

	u.Ship(result("Control"))

	waitFor(t, 2*time.Second, func() bool { return len(srv.treatments()) == 1 })
	if got := srv.firstHeader().Get("x-api-key"); got != "sekret" {
		t.Errorf("x-api-key header = %q, want sekret", got)
	}
}

func TestUploader_RetriesTransientError(t *testing.T) {
	srv := &mockIngest{failN: 1}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	u := New(pushCfg(ts.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go u.Run(ctx)

	u.Ship(result("Control"))

	// First attempt fails, second lands after one backoff interval.
	waitFor(t, 4*time.Second, func() bool { return len(srv.treatments()) == 1 })
	if n := srv.callCount(); n < 2 {
		t.Errorf("callCount = %d, want at least 2", n)
	}
}

func TestUploader_DiscardsPermanentError(t *testing.T) {
	srv := &mockIngest{status: http.StatusBadRequest}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	u := New(pushCfg(ts.URL))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go u.Run(ctx)

	u.Ship(result("Control"))

	waitFor(t, 2*time.Second, func() bool { return srv.callCount() == 1 })
	time.Sleep(200 * time.Millisecond) // would retry in this window if it were going to
	if n := srv.callCount(); n != 1 {
		t.Errorf("callCount = %d, want 1 (no retry on 400)", n)
	}
	if len(srv.treatments()) != 0 {
		t.Errorf("treatments delivered = %v, want none", srv.treatments())
	}
}

func TestIsPermanentError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad request", &httpError{status: 400}, true},
		{"unauthorized", &httpError{status: 401}, true},
		{"not found", &httpError{status: 404}, true},
		{"too many requests", &httpError{status: 429}, false},
		{"server error", &httpError{status: 500}, false},
		{"bad gateway", &httpError{status: 502}, false},
		{"transport error", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPermanentError(tt.err); got != tt.want {
				t.Errorf("isPermanentError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestUploader_BufferEvictsOldest(t *testing.T) {
	// BufferSize=3; Ship 5 results while the uploader is not running.
	// Only the 3 most recent should survive.
	u := New(config.PushConfig{Endpoint: "http://unused", BufferSize: 3})

	for _, name := range []string{"A", "B", "C", "D", "E"} {
		u.Ship(result(name))
	}

	var names []string
drain:
	for {
		select {
		case res := <-u.buf:
			names = append(names, res.Treatment)
		default:
			break drain
		}
	}

	if len(names) != 3 {
		t.Fatalf("buffer has %d items, want 3", len(names))
	}
	for i, want := range []string{"C", "D", "E"} {
		if names[i] != want {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want)
		}
	}
}

func TestUploader_FlushDeliversBacklog(t *testing.T) {
	srv := &mockIngest{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	u := New(pushCfg(ts.URL))
	u.Ship(result("Control"))
	u.Ship(result("Saline"))

	if err := u.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := srv.treatments(); len(got) != 2 {
		t.Fatalf("delivered %d results, want 2", len(got))
	}
	if len(u.buf) != 0 {
		t.Errorf("buffer still holds %d items", len(u.buf))
	}
}

func TestUploader_FlushStopsOnTransientError(t *testing.T) {
	srv := &mockIngest{failN: 99}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	u := New(pushCfg(ts.URL))
	u.Ship(result("Control"))

	if err := u.Flush(context.Background()); err == nil {
		t.Fatal("Flush: expected error, got nil")
	}
}

func TestUploader_GracefulShutdown(t *testing.T) {
	srv := &mockIngest{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	u := New(pushCfg(ts.URL))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		u.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestBackoff_Resets(t *testing.T) {
	b := newBackoff()
	// First few calls should be small.
	first := b.next()
	if first > 2*time.Second {
		t.Errorf("first backoff too large: %v", first)
	}
	// Advance a few times.
	for i := 0; i < 10; i++ {
		b.next()
	}
	// After reset, should be small again.
	b.reset()
	after := b.next()
	if after > 2*time.Second {
		t.Errorf("backoff after reset too large: %v", after)
	}
}

func TestBackoff_NeverExceedsMax(t *testing.T) {
	b := newBackoff()
	for i := 0; i < 50; i++ {
		d := b.next()
		// With jitter, max is backoffMax * 1.25
		if d > backoffMax*2 {
			t.Errorf("backoff[%d] = %v, exceeds 2×max", i, d)
		}
	}
}
