package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Montcharles/germitrack/internal/batch"
	"github.com/Montcharles/germitrack/internal/cli"
	"github.com/Montcharles/germitrack/internal/config"
	"github.com/Montcharles/germitrack/internal/kinetics"
	"github.com/Montcharles/germitrack/internal/loader"
	"github.com/Montcharles/germitrack/internal/report"
	"github.com/Montcharles/germitrack/internal/schema"
	"github.com/Montcharles/germitrack/internal/uploader"
	"github.com/Montcharles/germitrack/internal/version"
	"github.com/Montcharles/germitrack/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := cli.NewFlagSet("germitrack")
	opt, err := cli.ParseArgs(fs, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "germitrack: %v\n", err)
		return 2
	}
	if opt.Version {
		fmt.Printf("germitrack %s\n", version.Version)
		return 0
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cli.Level(opt.LogLevel)}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if opt.ConfigPath != "" {
		cfg, err = config.Load(opt.ConfigPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			return 1
		}
	}
	cli.Apply(fs, opt, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := cfg.Analysis
	eng := kinetics.New(kinetics.Config{TotalSeedsPerReplicate: a.SeedsPerReplicate})
	ov := schema.Overrides{DayColumn: a.DayColumn, ReplicateColumns: a.ReplicateColumns}

	// Load every treatment from every input file. A broken file is reported
	// and the remaining files still run.
	var jobs []batch.Job
	loadFailed := 0
	for _, path := range opt.Inputs {
		inputs, err := loader.Load(path, ov)
		if err != nil {
			slog.Error("failed to load input", "path", path, "err", err)
			loadFailed++
			continue
		}
		for _, in := range inputs {
			name := in.Treatment
			if name == loader.DelimitedTreatment && opt.Treatment != "" {
				name = opt.Treatment
			}
			jobs = append(jobs, batch.Job{Treatment: name, SourceFile: path, Table: in.Table})
			slog.Info("loaded treatment",
				"treatment", name,
				"file", path,
				"days", len(in.Table.Days),
				"replicates", len(in.Table.Replicates))
		}
	}
	if len(jobs) == 0 {
		slog.Error("no treatments loaded", "inputs", len(opt.Inputs))
		return 1
	}

	outcomes := batch.New(eng, a.Workers).Run(ctx, jobs)

	if err := os.MkdirAll(a.OutputDir, 0o755); err != nil {
		slog.Error("cannot create output directory", "dir", a.OutputDir, "err", err)
		return 1
	}

	var up *uploader.Uploader
	if a.Push.Endpoint != "" {
		up = uploader.New(a.Push)
	}

	wantCSV, wantXLSX := false, false
	for _, f := range a.Formats {
		switch f {
		case "csv":
			wantCSV = true
		case "xlsx":
			wantXLSX = true
		}
	}

	failed := loadFailed
	var results []*types.TreatmentResult
	for _, out := range outcomes {
		if out.Err != nil {
			slog.Error("analysis failed", "treatment", out.Treatment, "err", out.Err)
			failed++
			continue
		}
		res := out.Result
		results = append(results, res)
		slog.Info("analyzed treatment",
			"treatment", res.Treatment,
			"replicates", len(res.Records),
			"germinated", res.TotalGerminated())

		if err := writeArtifacts(a, res, wantCSV, wantXLSX); err != nil {
			slog.Error("failed to write reports", "treatment", res.Treatment, "err", err)
			failed++
			continue
		}
		if up != nil {
			up.Ship(res)
		}
	}

	if wantXLSX && len(results) > 0 {
		path := filepath.Join(a.OutputDir, report.CompleteWorkbookName)
		if err := report.WriteCompleteWorkbook(path, results); err != nil {
			slog.Error("failed to write combined workbook", "path", path, "err", err)
			failed++
		}
	}

	if up != nil {
		flushCtx, cancelFlush := context.WithTimeout(ctx, 30*time.Second)
		defer cancelFlush()
		if err := up.Flush(flushCtx); err != nil {
			slog.Warn("could not push all results", "endpoint", a.Push.Endpoint, "err", err)
		} else {
			slog.Info("results pushed", "endpoint", a.Push.Endpoint, "treatments", len(results))
		}
	}

	slog.Info("analysis complete",
		"treatments", len(results),
		"failed", failed,
		"output_dir", a.OutputDir)
	if failed > 0 {
		return 1
	}
	return 0
}

// writeArtifacts writes the per-treatment report files selected by the
// formats and charts settings.
func writeArtifacts(a config.AnalysisConfig, res *types.TreatmentResult, wantCSV, wantXLSX bool) error {
	if wantCSV {
		err := writeFile(filepath.Join(a.OutputDir, report.ResultsFileName(res.Treatment)), func(w io.Writer) error {
			return report.WriteResults(w, res.Records)
		})
		if err != nil {
			return err
		}
		err = writeFile(filepath.Join(a.OutputDir, report.CurvesCSVName(res.Treatment)), func(w io.Writer) error {
			return report.WriteCurves(w, res.Curves)
		})
		if err != nil {
			return err
		}
	}
	if wantXLSX {
		path := filepath.Join(a.OutputDir, report.CurvesWorkbookName(res.Treatment))
		if err := report.WriteCurvesWorkbook(path, res.Treatment, res.Curves); err != nil {
			return err
		}
	}
	if a.Charts {
		files, err := report.RenderCharts(a.OutputDir, res.Treatment, res.Curves, a.ChartReplicates)
		if err != nil {
			return err
		}
		slog.Debug("charts rendered", "treatment", res.Treatment, "files", len(files))
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
