// Package batch runs evaluation units through the scoring registry outside of
// Temporal. It is the only place that knows about many patients at once.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-adhere/internal/aggregation"
	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/scoring"
	"github.com/ahrav/go-adhere/internal/sink"
)

// Options tune a Runner. Zero values pick defaults.
type Options struct {
	// Concurrency bounds in-flight evaluations; defaults to GOMAXPROCS.
	Concurrency int
	// RatePerSecond throttles unit dispatch; zero disables throttling.
	RatePerSecond float64
	Burst         int
	Metrics       *Metrics
	Logger        *slog.Logger
}

// Job is one batch run.
type Job struct {
	RunID string
	// Configs must not change while the job runs; pass a snapshot.
	Configs domain.ConfigLookup
	Units   []domain.EvaluationUnit
	// Cache is scoped to this job. Nil disables caching.
	Cache   Cache
	Summary domain.AggregationPolicy
}

// Runner evaluates jobs with a bounded worker pool.
type Runner struct {
	registry    *scoring.Registry
	out         sink.ResultSink
	limiter     *rate.Limiter
	concurrency int
	metrics     *Metrics
	log         *slog.Logger
}

// NewRunner creates a Runner that streams every unit result to out. A nil
// registry uses the built-in evaluators; a nil out discards results after
// they are collected into the report.
func NewRunner(registry *scoring.Registry, out sink.ResultSink, opts Options) *Runner {
	if registry == nil {
		registry = scoring.NewRegistry()
	}
	r := &Runner{
		registry:    registry,
		out:         out,
		concurrency: opts.Concurrency,
		metrics:     opts.Metrics,
		log:         opts.Logger,
	}
	if r.concurrency <= 0 {
		r.concurrency = runtime.GOMAXPROCS(0)
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if opts.RatePerSecond > 0 {
		burst := max(opts.Burst, 1)
		r.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return r
}

// Run evaluates every unit of job. Unit failures are recorded in the report
// and never stop the run. Cancelling ctx abandons the units not yet started
// and returns the context error; a sink failure also aborts the run.
func (r *Runner) Run(ctx context.Context, job Job) (*domain.BatchReport, error) {
	if job.RunID == "" {
		return nil, errors.New("batch: run id is required")
	}
	if job.Configs == nil {
		return nil, errors.New("batch: configuration lookup is required")
	}
	policy := job.Summary
	if policy.Method == "" {
		policy = domain.DefaultAggregationPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("batch: invalid summary policy: %w", err)
	}

	log := r.log.With("batch_run_id", job.RunID)
	log.Info("batch run started", "units", len(job.Units), "concurrency", r.concurrency)
	started := time.Now()

	results := make([]domain.UnitResult, len(job.Units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	// A limiter wait can fail before ctx is done, when the next reservation
	// would land past the deadline; the remaining units are then abandoned.
	var waitErr error
	for i, unit := range job.Units {
		i, unit := i, unit // per-iteration copy (go 1.21 loop semantics)
		if waitErr = r.wait(gctx); waitErr != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.evaluate(gctx, log, job, unit)
			results[i] = res
			if r.out == nil {
				return nil
			}
			if err := r.out.Write(gctx, res); err != nil {
				return fmt.Errorf("write result %s: %w", unit.Key(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("batch run aborted", "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		log.Warn("batch run cancelled", "error", err)
		return nil, err
	}
	if waitErr != nil {
		log.Warn("batch run abandoned", "error", waitErr)
		return nil, fmt.Errorf("batch: dispatch: %w", waitErr)
	}

	report := &domain.BatchReport{RunID: job.RunID, Results: results}
	report.Tally()
	summaries, err := aggregation.Summarize(results, policy)
	if err != nil {
		return nil, fmt.Errorf("batch: summarize: %w", err)
	}
	report.Summaries = summaries

	log.Info("batch run completed",
		"scored", report.Scored,
		"insufficient", report.Insufficient,
		"failed", report.Failed,
		"summaries", len(summaries),
		"duration", time.Since(started))
	return report, nil
}

func (r *Runner) wait(ctx context.Context) error {
	if r.limiter != nil {
		return r.limiter.Wait(ctx)
	}
	return ctx.Err()
}

func (r *Runner) evaluate(ctx context.Context, log *slog.Logger, job Job, unit domain.EvaluationUnit) domain.UnitResult {
	algorithm := "unknown"
	cfg, known := job.Configs.Config(unit.ConfigID)
	if known {
		algorithm = string(cfg.Method)
	}

	var key string
	if known && job.Cache != nil {
		k, err := CacheKey(cfg, unit.Input)
		if err == nil {
			key = k
			if res, ok := r.lookup(ctx, log, job.Cache, key); ok {
				out := domain.NewUnitResult(unit, res)
				out.Cached = true
				r.metrics.Units.WithLabelValues(algorithm, outcome(out)).Inc()
				return out
			}
		}
	}

	start := time.Now()
	out := r.registry.EvaluateUnit(job.Configs, unit)
	r.metrics.ObserveUnit(algorithm, out, time.Since(start))

	if out.Failed() {
		log.Debug("unit failed", "unit", unit.Key(), "error_kind", out.ErrorKind, "error", out.Error)
	} else if key != "" {
		if err := job.Cache.Set(ctx, key, *out.Result); err != nil {
			log.Warn("cache store failed", "unit", unit.Key(), "error", err)
		}
	}
	return out
}

// lookup reads the cache. Cache errors degrade to a miss.
func (r *Runner) lookup(ctx context.Context, log *slog.Logger, cache Cache, key string) (domain.ScoreResult, bool) {
	res, ok, err := cache.Get(ctx, key)
	switch {
	case err != nil:
		r.metrics.CacheLookups.WithLabelValues("error").Inc()
		log.Warn("cache lookup failed", "key", key, "error", err)
		return domain.ScoreResult{}, false
	case ok:
		r.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return res, true
	default:
		r.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return domain.ScoreResult{}, false
	}
}
