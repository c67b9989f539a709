package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-adhere/internal/batch"
	"github.com/ahrav/go-adhere/internal/configstore"
	"github.com/ahrav/go-adhere/internal/configuration"
	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/metricsource"
	"github.com/ahrav/go-adhere/internal/sink"
)

type scoreOptions struct {
	configsDir string
	dataFile   string
	dsn        string
	out        string
	kafka      bool
	cache      string
	summary    string
	trim       float64
	patients   []string
	runID      string
	metricsOut string
}

func scoreCmd(a *app) *cobra.Command {
	var opts scoreOptions
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score every patient window against a configuration directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("cache") {
				a.cfg.Cache.Backend = opts.cache
			}
			if cmd.Flags().Changed("summary") {
				a.cfg.Batch.Summary.Method = domain.AggregationMethod(opts.summary)
			}
			if cmd.Flags().Changed("trim") {
				a.cfg.Batch.Summary.TrimFraction = opts.trim
			}
			if opts.dsn != "" {
				a.cfg.Database.DSN = opts.dsn
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.score(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.configsDir, "configs", "", "directory of configuration files (required)")
	f.StringVar(&opts.dataFile, "data", "", "JSON metric document; overrides the database")
	f.StringVar(&opts.dsn, "dsn", "", "Postgres DSN (default: PG_DSN)")
	f.StringVarP(&opts.out, "out", "o", "-", "JSON Lines result file, - for stdout")
	f.BoolVar(&opts.kafka, "kafka", false, "also publish results to Kafka")
	f.StringVar(&opts.cache, "cache", "", "score cache: none, memory or redis (default: ADHERE_CACHE)")
	f.StringVar(&opts.summary, "summary", "", "summary method: mean, median or trimmed_mean")
	f.Float64Var(&opts.trim, "trim", 0, "fraction trimmed from each end for trimmed_mean")
	f.StringSliceVar(&opts.patients, "patients", nil, "score only these patients")
	f.StringVar(&opts.runID, "run-id", "", "run identifier (default: random UUID)")
	f.StringVar(&opts.metricsOut, "metrics-out", "", "write run metrics in Prometheus text format to this file")
	_ = cmd.MarkFlagRequired("configs")
	return cmd
}

func (a *app) score(ctx context.Context, stdout, stderr io.Writer, opts scoreOptions) (err error) {
	log := a.logger
	runID := opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log = log.With("run_id", runID)

	store, err := configstore.NewStore(opts.configsDir, log)
	if err != nil {
		return err
	}
	snap := store.Current()

	src, closeSrc, err := a.openSource(ctx, opts.dataFile)
	if err != nil {
		return err
	}
	defer closeSrc()

	var patients []string
	if len(opts.patients) > 0 {
		patients = opts.patients
	}
	units, err := batch.Plan(ctx, src, snap.Configs(), patients)
	if err != nil {
		return err
	}
	log.Info("units planned", "units", len(units))

	out, err := a.openSink(stdout, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	cache, closeCache, err := a.openCache(runID)
	if err != nil {
		return err
	}
	defer closeCache()

	reg := prometheus.NewRegistry()
	runOpts := a.cfg.RunnerOptions()
	runOpts.Logger = log
	runOpts.Metrics = batch.NewMetrics(reg)
	runner := batch.NewRunner(nil, out, runOpts)
	report, err := runner.Run(ctx, batch.Job{
		RunID:   runID,
		Configs: snap,
		Units:   units,
		Cache:   cache,
		Summary: a.cfg.Batch.Summary,
	})
	if err != nil {
		return err
	}
	log.Info("run complete",
		"scored", report.Scored,
		"insufficient", report.Insufficient,
		"failed", report.Failed)

	if opts.metricsOut != "" {
		if err := prometheus.WriteToTextfile(opts.metricsOut, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	summaryOut := stdout
	if opts.out == "-" {
		summaryOut = stderr
	}
	return writeSummaries(summaryOut, report.Summaries)
}

func (a *app) openSource(ctx context.Context, dataFile string) (metricsource.Source, func(), error) {
	if dataFile != "" {
		src, err := metricsource.LoadFile(dataFile)
		return src, func() {}, err
	}
	if a.cfg.Database.DSN == "" {
		return nil, nil, errors.New("no metric source: pass --data or set PG_DSN")
	}
	db, err := metricsource.OpenPostgres(ctx, a.cfg.SQL())
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
	return metricsource.NewSQLSource(db, a.cfg.Database.QueryTimeout), closeDB, nil
}

// nopCloser keeps the JSONL sink from closing the process's stdout.
type nopCloser struct{ io.Writer }

func (a *app) openSink(stdout io.Writer, opts scoreOptions) (sink.ResultSink, error) {
	var w io.Writer = nopCloser{stdout}
	if opts.out != "-" {
		f, err := os.Create(opts.out)
		if err != nil {
			return nil, fmt.Errorf("create output: %w", err)
		}
		w = f
	}
	sinks := sink.Multi{sink.NewJSONLSink(w)}
	if opts.kafka {
		k, err := sink.NewKafkaSink(a.cfg.KafkaSink(), a.logger)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, k)
	}
	return sinks, nil
}

func (a *app) openCache(runID string) (batch.Cache, func(), error) {
	switch a.cfg.Cache.Backend {
	case configuration.CacheNone:
		return nil, func() {}, nil
	case configuration.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Cache.RedisAddr,
			Password: a.cfg.Cache.RedisPassword,
			DB:       a.cfg.Cache.RedisDB,
		})
		closeClient := func() { _ = client.Close() }
		cache, err := batch.NewRedisCache(client, runID, a.cfg.Cache.TTL)
		if err != nil {
			closeClient()
			return nil, nil, err
		}
		return cache, closeClient, nil
	default:
		return batch.NewMemoryCache(), func() {}, nil
	}
}

func writeSummaries(w io.Writer, summaries []domain.WindowSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATIENT\tCONFIG\tALGORITHM\tSCORE\tPASS RATE\tWINDOWS\tSTATUS")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.2f\t%d/%d\t%s\n",
			s.PatientID, s.ConfigID, s.Algorithm, s.Score, s.PassRate, s.ScoredWindows, s.Windows, s.Status)
	}
	return tw.Flush()
}
