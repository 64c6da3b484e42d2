package metrics

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/Montcharles/germitrack/internal/store"
	"github.com/Montcharles/germitrack/pkg/types"
)

// Collector assembles the server's Prometheus exposition from the treatment
// store and the live server state. It implements http.Handler for /metrics.
type Collector struct {
	store *store.Store

	// ClientCount reports connected websocket clients when set.
	ClientCount func() int
	// AlertCount reports currently firing alerts when set.
	AlertCount func() int

	analyses atomic.Int64
}

// New creates a Collector reading from st. The live gauge callbacks start
// unset and report 0 until wired.
func New(st *store.Store) *Collector {
	return &Collector{store: st}
}

// IncAnalyses records one completed treatment analysis.
func (c *Collector) IncAnalyses() {
	c.analyses.Add(1)
}

// ServeHTTP renders the exposition in Prometheus text format.
func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))

	enc := expfmt.NewEncoder(w, format)
	for _, mf := range c.families() {
		if err := enc.Encode(mf); err != nil {
			slog.Debug("metrics: encode family failed", "family", mf.GetName(), "err", err)
			return
		}
	}
}

// families builds the full exposition. Families are emitted in a fixed order
// and per-treatment series follow the store's name ordering, so consecutive
// scrapes of unchanged state produce identical output.
func (c *Collector) families() []*dto.MetricFamily {
	entries := c.store.List()

	var replicates int
	for _, e := range entries {
		replicates += len(e.Result.Records)
	}

	clients, alerting := 0, 0
	if c.ClientCount != nil {
		clients = c.ClientCount()
	}
	if c.AlertCount != nil {
		alerting = c.AlertCount()
	}

	fams := []*dto.MetricFamily{
		gauge("germitrack_treatments",
			"Number of live treatments in the store.",
			float64(len(entries))),
		gauge("germitrack_replicates",
			"Total replicates across live treatments.",
			float64(replicates)),
		gauge("germitrack_ws_clients",
			"Connected websocket dashboard clients.",
			float64(clients)),
		gauge("germitrack_alerts_firing",
			"Alert rules currently firing.",
			float64(alerting)),
		counter("germitrack_analyses_total",
			"Treatment analyses completed since server start.",
			float64(c.analyses.Load())),
	}

	if len(entries) == 0 {
		return fams
	}

	germ := &dto.MetricFamily{
		Name: proto.String("germitrack_mean_germinability_pct"),
		Help: proto.String("Mean final germination percentage per treatment."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	t50 := &dto.MetricFamily{
		Name: proto.String("germitrack_time_to_half_germination_days"),
		Help: proto.String("Mean time to half of final germination per treatment, in days."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	for _, e := range entries {
		label := []*dto.LabelPair{{
			Name:  proto.String("treatment"),
			Value: proto.String(e.Result.Treatment),
		}}
		germ.Metric = append(germ.Metric, &dto.Metric{
			Label: label,
			Gauge: &dto.Gauge{Value: proto.Float64(meanField(e.Result, func(r types.GerminationRecord) float64 {
				return r.GerminabilityPct
			}))},
		})
		t50.Metric = append(t50.Metric, &dto.Metric{
			Label: label,
			Gauge: &dto.Gauge{Value: proto.Float64(meanField(e.Result, func(r types.GerminationRecord) float64 {
				return r.TimeToHalfGermination
			}))},
		})
	}
	return append(fams, germ, t50)
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(v)}}},
	}
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: proto.Float64(v)}}},
	}
}

// meanField averages one statistic across a treatment's replicates.
func meanField(res *types.TreatmentResult, pick func(types.GerminationRecord) float64) float64 {
	if len(res.Records) == 0 {
		return 0
	}
	var sum float64
	for _, rec := range res.Records {
		sum += pick(rec)
	}
	return sum / float64(len(res.Records))
}
