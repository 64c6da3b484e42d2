package batch

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Montcharles/germitrack/internal/curves"
	"github.com/Montcharles/germitrack/internal/kinetics"
	"github.com/Montcharles/germitrack/pkg/types"
)

// Job is one treatment awaiting analysis.
type Job struct {
	Treatment  string
	SourceFile string
	Table      types.ObservationTable
}

// Outcome pairs a job with its result or failure.
type Outcome struct {
	Treatment string
	Result    *types.TreatmentResult
	Err       error
}

// Runner analyzes treatments on a bounded worker pool.
type Runner struct {
	eng     *kinetics.Engine
	workers int
	now     func() time.Time // injectable for deterministic tests
}

// New creates a Runner. workers < 1 means one worker per CPU.
func New(eng *kinetics.Engine, workers int) *Runner {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Runner{eng: eng, workers: workers, now: time.Now}
}

// Run analyzes every job and returns one Outcome per job, in input order.
// A shape error in one treatment is reported in its Outcome and does not
// stop the others. Jobs left unprocessed after ctx is cancelled carry the
// context error.
func (r *Runner) Run(ctx context.Context, jobs []Job) []Outcome {
	type indexedJob struct {
		i   int
		job Job
	}
	type indexedOutcome struct {
		i   int
		out Outcome
	}

	feed := make(chan indexedJob, r.workers*2)
	results := make(chan indexedOutcome, r.workers*2)

	var wg sync.WaitGroup
	wg.Add(r.workers)
	for w := 0; w < r.workers; w++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-feed:
					if !ok {
						return
					}
					out := indexedOutcome{i: j.i, out: r.analyze(j.job)}
					select {
					case results <- out:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	outs := make([]Outcome, len(jobs))
	done := make([]bool, len(jobs))
	var cwg sync.WaitGroup
	cwg.Add(1)
	go func() {
		defer cwg.Done()
		for res := range results {
			outs[res.i] = res.out
			done[res.i] = true
		}
	}()

feedLoop:
	for i, j := range jobs {
		select {
		case <-ctx.Done():
			break feedLoop
		case feed <- indexedJob{i: i, job: j}:
		}
	}

	close(feed)
	wg.Wait()
	close(results)
	cwg.Wait()

	// Jobs the pool never reached (cancellation) still get an outcome.
	for i := range outs {
		if !done[i] {
			outs[i] = Outcome{Treatment: jobs[i].Treatment, Err: ctx.Err()}
		}
	}
	return outs
}

func (r *Runner) analyze(j Job) Outcome {
	records, err := r.eng.Analyze(j.Table)
	if err != nil {
		return Outcome{Treatment: j.Treatment, Err: err}
	}
	slog.Debug("analyzed treatment",
		"treatment", j.Treatment,
		"days", len(j.Table.Days),
		"replicates", len(records))
	return Outcome{
		Treatment: j.Treatment,
		Result: &types.TreatmentResult{
			Treatment:  j.Treatment,
			SourceFile: j.SourceFile,
			Records:    records,
			Curves:     curves.Build(j.Table),
			AnalyzedAt: r.now(),
		},
	}
}
