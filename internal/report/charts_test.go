package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Montcharles/germitrack/pkg/types"
)

func TestRenderCharts(t *testing.T) {
	dir := t.TempDir()

	paths, err := RenderCharts(dir, "Control", sampleCurves(), 6)
	if err != nil {
		t.Fatalf("RenderCharts: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("got %d charts, want 4", len(paths))
	}

	wantSuffixes := []string{
		"_cumulative.png", "_cumulative_mean.png", "_daily.png", "_daily_mean.png",
	}
	for i, p := range paths {
		if !strings.HasSuffix(p, wantSuffixes[i]) {
			t.Errorf("paths[%d] = %q, want suffix %q", i, p, wantSuffixes[i])
		}
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", p)
		}
		// PNG magic bytes.
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		if len(data) < 8 || string(data[1:4]) != "PNG" {
			t.Errorf("%s is not a PNG", filepath.Base(p))
		}
	}
}

func TestRenderCharts_SkipsSingleDay(t *testing.T) {
	dir := t.TempDir()
	cs := &types.CurveSet{
		Days:           []float64{1},
		Cumulative:     []types.ReplicateSeries{{ID: "R1", Counts: []float64{3}}},
		Daily:          []types.ReplicateSeries{{ID: "R1", Counts: []float64{3}}},
		MeanCumulative: []float64{3},
		StdCumulative:  []float64{0},
		MeanDaily:      []float64{3},
		StdDaily:       []float64{0},
	}

	paths, err := RenderCharts(dir, "Control", cs, 6)
	if err != nil {
		t.Fatalf("RenderCharts: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("got %d charts, want none for a single day row", len(paths))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("unexpected files written: %v", entries)
	}
}

func TestReplicateSeries_Cap(t *testing.T) {
	days := []float64{1, 2}
	reps := make([]types.ReplicateSeries, 10)
	for i := range reps {
		reps[i] = types.ReplicateSeries{ID: "R", Counts: []float64{1, 2}}
	}

	if got := len(replicateSeries(days, reps, 6)); got != 6 {
		t.Errorf("capped series = %d, want 6", got)
	}
	if got := len(replicateSeries(days, reps[:3], 6)); got != 3 {
		t.Errorf("uncapped series = %d, want 3", got)
	}
}
