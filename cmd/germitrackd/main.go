package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Montcharles/germitrack/internal/alerts"
	"github.com/Montcharles/germitrack/internal/api"
	"github.com/Montcharles/germitrack/internal/auth"
	"github.com/Montcharles/germitrack/internal/batch"
	"github.com/Montcharles/germitrack/internal/cli"
	"github.com/Montcharles/germitrack/internal/config"
	"github.com/Montcharles/germitrack/internal/kinetics"
	"github.com/Montcharles/germitrack/internal/loader"
	"github.com/Montcharles/germitrack/internal/metrics"
	"github.com/Montcharles/germitrack/internal/schema"
	"github.com/Montcharles/germitrack/internal/store"
	"github.com/Montcharles/germitrack/internal/version"
	"github.com/Montcharles/germitrack/internal/ws"
	"github.com/Montcharles/germitrack/pkg/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	logLevel := flag.String("log-level", "info", "log level: debug | info | warn | error")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cli.Level(*logLevel)}))
	slog.SetDefault(logger)

	slog.Info("germitrackd starting", "version", version.Version, "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"inputs", len(cfg.Server.Inputs),
		"auth_mode", cfg.Server.Auth.Mode,
		"result_ttl", cfg.Server.ResultTTL,
		"alert_rules", len(cfg.Server.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Result store with background TTL eviction.
	st := store.New(cfg.Server.ResultTTL)
	go st.Run(ctx)

	// Alert engine evaluates rules on every analyzed or ingested result.
	alertEngine := alerts.New(cfg.Server.Alerts)

	// WebSocket hub broadcasts snapshots to dashboard clients.
	hub := ws.New(st, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	collector := metrics.New(st)
	collector.ClientCount = hub.Count
	collector.AlertCount = alertEngine.FiringCount

	// Analysis pipeline over the configured input files.
	a := cfg.Analysis
	eng := kinetics.New(kinetics.Config{TotalSeedsPerReplicate: a.SeedsPerReplicate})
	runner := batch.New(eng, a.Workers)
	ov := schema.Overrides{DayColumn: a.DayColumn, ReplicateColumns: a.ReplicateColumns}

	analyze := func(paths []string) {
		jobs := loadJobs(paths, ov)
		if len(jobs) == 0 {
			return
		}
		for _, out := range runner.Run(ctx, jobs) {
			if out.Err != nil {
				slog.Warn("analysis failed", "treatment", out.Treatment, "err", out.Err)
				continue
			}
			st.Put(out.Result)
			alertEngine.Evaluate(out.Result)
			collector.IncAnalyses()
			slog.Info("treatment analyzed",
				"treatment", out.Treatment,
				"replicates", len(out.Result.Records),
				"germinated", out.Result.TotalGerminated())
		}
		hub.Notify()
	}

	analyze(cfg.Server.Inputs)
	if st.Count() == 0 {
		slog.Warn("no treatments loaded at startup; waiting for ingest or file changes",
			"inputs", len(cfg.Server.Inputs))
	}

	// Re-analyze an input file whenever it changes on disk.
	go func() {
		if err := batch.Watch(ctx, cfg.Server.Inputs, func(path string) {
			analyze([]string{path})
		}); err != nil {
			slog.Error("input watcher stopped", "err", err)
		}
	}()

	// Hot-reload alert rules and webhooks on config change. The rest of the
	// config (ports, inputs, auth) requires a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			alertEngine.Reconfigure(updated.Server.Alerts)
			slog.Info("alert config reloaded",
				"rules", len(updated.Server.Alerts.Rules),
				"webhooks", len(updated.Server.Alerts.Webhooks))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// REST API; a result pushed by the CLI triggers an immediate broadcast.
	handler := api.New(st, alertEngine)
	handler.OnIngest = func(res *types.TreatmentResult) {
		slog.Info("result ingested", "treatment", res.Treatment, "source", res.SourceFile)
		hub.Notify()
	}

	guard := func(h http.Handler) http.Handler {
		return auth.APIKeyMiddleware(
			cfg.Server.Auth.Mode,
			cfg.Server.Auth.EffectiveHeader(),
			cfg.Server.Auth.Key(),
			h,
		)
	}

	// /metrics and /healthz stay outside auth: scrapers and load balancers
	// do not carry API keys.
	mux := http.NewServeMux()
	mux.Handle("/api/", guard(handler))
	mux.Handle("/ws/stream", guard(hub))
	mux.Handle("/metrics", collector)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok") //nolint:errcheck
	})

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: mux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("germitrackd shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}

// loadJobs reads every treatment from the given files. Single-table inputs
// are named after their file so two watched CSVs do not collide in the store.
func loadJobs(paths []string, ov schema.Overrides) []batch.Job {
	var jobs []batch.Job
	for _, path := range paths {
		inputs, err := loader.Load(path, ov)
		if err != nil {
			slog.Error("failed to load input", "path", path, "err", err)
			continue
		}
		for _, in := range inputs {
			name := in.Treatment
			if name == loader.DelimitedTreatment {
				name = treatmentFromPath(path)
			}
			jobs = append(jobs, batch.Job{Treatment: name, SourceFile: path, Table: in.Table})
		}
	}
	return jobs
}

// treatmentFromPath names a single-table input after its file stem.
func treatmentFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
