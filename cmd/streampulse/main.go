package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v2"

	"github.com/shockwave22/StreamPulse/internal/adapter/httpserver"
	"github.com/shockwave22/StreamPulse/internal/adapter/memstore"
	"github.com/shockwave22/StreamPulse/internal/adapter/postgres"
	"github.com/shockwave22/StreamPulse/internal/adapter/redisq"
	"github.com/shockwave22/StreamPulse/internal/app"
	"github.com/shockwave22/StreamPulse/internal/config"
	"github.com/shockwave22/StreamPulse/internal/domain"
	apperrors "github.com/shockwave22/StreamPulse/internal/errors"
	"github.com/shockwave22/StreamPulse/internal/logging"
	"github.com/shockwave22/StreamPulse/internal/metrics"
	"github.com/shockwave22/StreamPulse/internal/normalize"
	"github.com/shockwave22/StreamPulse/internal/platform/version"
	"github.com/shockwave22/StreamPulse/internal/scoring"
)

const dateLayout = "2006-01-02"

func main() {
	cliApp := &cli.App{
		Name:  "streampulse",
		Usage: "Sentiment scoring and aggregation pipeline for tracked titles",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the dashboard API server",
				Action: func(c *cli.Context) error {
					return runServe(c.Context)
				},
			},
			{
				Name:  "run",
				Usage: "Run the full pipeline: ingest, score, aggregate",
				Flags: rangeFlags(),
				Action: func(c *cli.Context) error {
					return withService(c.Context, func(ctx context.Context, svc *app.Service) error {
						from, to, err := parseRange(c)
						if err != nil {
							return err
						}
						summary, err := svc.Run(ctx, from, to)
						logSummary(summary)
						return err
					})
				},
			},
			{
				Name:  "ingest",
				Usage: "Drain the ingest queue, or load records from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "JSON file with an array of raw records"},
				},
				Action: func(c *cli.Context) error {
					return withService(c.Context, func(ctx context.Context, svc *app.Service) error {
						var summary *domain.RunSummary
						var err error
						if path := c.String("file"); path != "" {
							var records []domain.RawRecord
							if records, err = readRecords(path); err != nil {
								return err
							}
							summary, err = svc.IngestRecords(ctx, records)
						} else {
							summary, err = svc.Ingest(ctx)
						}
						logSummary(summary)
						return err
					})
				},
			},
			{
				Name:  "score",
				Usage: "Score items that the active model has not scored yet",
				Action: func(c *cli.Context) error {
					return withService(c.Context, func(ctx context.Context, svc *app.Service) error {
						summary, err := svc.Score(ctx)
						logSummary(summary)
						return err
					})
				},
			},
			{
				Name:  "rescore",
				Usage: "Re-score already scored items in a date range with the active model",
				Flags: rangeFlags(),
				Action: func(c *cli.Context) error {
					return withService(c.Context, func(ctx context.Context, svc *app.Service) error {
						from, to, err := parseRange(c)
						if err != nil {
							return err
						}
						summary, err := svc.Rescore(ctx, from, to)
						logSummary(summary)
						return err
					})
				},
			},
			{
				Name:  "aggregate",
				Usage: "Recompute all daily buckets in a date range",
				Flags: rangeFlags(),
				Action: func(c *cli.Context) error {
					return withService(c.Context, func(ctx context.Context, svc *app.Service) error {
						from, to, err := parseRange(c)
						if err != nil {
							return err
						}
						summary, err := svc.AggregateRange(ctx, from, to)
						logSummary(summary)
						return err
					})
				},
			},
			{
				Name:  "compare",
				Usage: "Print the survey-vs-social alignment report for a title",
				Flags: append(rangeFlags(),
					&cli.StringFlag{Name: "title", Usage: "title slug", Required: true},
				),
				Action: func(c *cli.Context) error {
					return withService(c.Context, func(ctx context.Context, svc *app.Service) error {
						from, to, err := parseRange(c)
						if err != nil {
							return err
						}
						report, err := svc.Compare(ctx, c.String("title"), from, to)
						if err != nil {
							return err
						}
						enc := json.NewEncoder(os.Stdout)
						enc.SetIndent("", "  ")
						return enc.Encode(report)
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations and exit",
				Action: func(c *cli.Context) error {
					return runMigrate(c.Context)
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "start day (YYYY-MM-DD, inclusive)"},
		&cli.StringFlag{Name: "to", Usage: "end day (YYYY-MM-DD, exclusive)"},
	}
}

// parseRange reads --from/--to; the default range is the trailing month up to
// and including today.
func parseRange(c *cli.Context) (from, to time.Time, err error) {
	to = domain.Day(time.Now()).AddDate(0, 0, 1)
	if raw := c.String("to"); raw != "" {
		if to, err = time.Parse(dateLayout, raw); err != nil {
			return from, to, apperrors.ValidationError("invalid --to date, want YYYY-MM-DD").WithField("to", raw)
		}
	}

	from = to.AddDate(0, 0, -30)
	if raw := c.String("from"); raw != "" {
		if from, err = time.Parse(dateLayout, raw); err != nil {
			return from, to, apperrors.ValidationError("invalid --from date, want YYYY-MM-DD").WithField("from", raw)
		}
	}

	if !from.Before(to) {
		return from, to, apperrors.ValidationError("--from must be before --to")
	}
	return from, to, nil
}

func readRecords(path string) ([]domain.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}
	var records []domain.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records file: %w", err)
	}
	return records, nil
}

func logSummary(summary *domain.RunSummary) {
	if summary == nil {
		return
	}
	slog.Info("Run finished",
		"run_id", summary.RunID,
		"ingested", summary.Ingested,
		"rejected", summary.TotalRejected(),
		"scored", summary.ScoredByModel,
		"scoring_failures", summary.ScoringFailures,
		"fallbacks", summary.Fallbacks,
		"deferred", summary.Deferred,
		"aggregates_recomputed", summary.AggregatesRecomputed,
		"buckets_failed", summary.BucketsFailed,
	)
}

// --- setup helpers ---

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRegistry(cfg *config.Config) (*normalize.Registry, error) {
	titles, err := config.LoadTitles(cfg.TitlesFile)
	if err != nil {
		return nil, err
	}
	return normalize.NewRegistry(titles)
}

type runtimeDeps struct {
	store   domain.Store
	queue   *redisq.Queue
	service *app.Service
	cleanup func()
}

func setupDeps(ctx context.Context, cfg *config.Config, m *metrics.PipelineMetrics, tracer pgx.QueryTracer) (*runtimeDeps, error) {
	registry, err := setupRegistry(cfg)
	if err != nil {
		return nil, err
	}

	deps := &runtimeDeps{cleanup: func() {}}

	if cfg.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pool, err := postgres.Connect(connectCtx, cfg.DatabaseURL, tracer)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrationsWithLock(connectCtx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		deps.store = postgres.NewStore(pool)
		deps.cleanup = pool.Close
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		deps.store = memstore.New()
	}

	if cfg.RedisURL != "" {
		queue, err := redisq.New(cfg.RedisURL)
		if err != nil {
			deps.cleanup()
			return nil, err
		}
		deps.queue = queue
		prev := deps.cleanup
		deps.cleanup = func() {
			_ = queue.Close()
			prev()
		}
	}

	var transformer *scoring.TransformerScorer
	if cfg.Model() == domain.ModelTransformer {
		transformer = scoring.NewTransformerScorer(cfg.InferenceURL, cfg.InferenceTimeout,
			cfg.InferenceRateLimit, cfg.MaxTextChars)
	}

	var queue app.IngestQueue
	if deps.queue != nil {
		queue = deps.queue
	}
	deps.service = app.NewService(cfg, deps.store, queue, registry, transformer,
		m, clockwork.NewRealClock())

	return deps, nil
}

func withService(ctx context.Context, fn func(ctx context.Context, svc *app.Service) error) error {
	cfg := setupConfig()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	reg := metrics.NewRegistry()
	deps, err := setupDeps(ctx, cfg, metrics.NewPipelineMetrics(reg),
		postgres.NewMetricsTracer(metrics.NewDBMetrics(reg)))
	if err != nil {
		return err
	}
	defer deps.cleanup()

	return fn(ctx, deps.service)
}

func runMigrate(ctx context.Context) error {
	cfg := setupConfig()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.DatabaseURL == "" {
		return apperrors.ValidationError("DATABASE_URL is required for migrate")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := postgres.Connect(connectCtx, cfg.DatabaseURL, nil)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.RunMigrationsWithLock(connectCtx, pool); err != nil {
		return err
	}
	slog.Info("Migrations complete")
	return nil
}

func runServe(ctx context.Context) error {
	cfg := setupConfig()
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "build", version.Get().String(), "env", cfg.AppEnv, "port", cfg.Port)

	promReg := metrics.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(promReg)
	httpMetrics := metrics.NewHTTPMetrics(promReg)

	deps, err := setupDeps(ctx, cfg, pipelineMetrics,
		postgres.NewMetricsTracer(metrics.NewDBMetrics(promReg)))
	if err != nil {
		return err
	}
	defer deps.cleanup()

	checks := []httpserver.HealthCheck{
		{Name: "store", Check: pingStore(deps.store)},
	}
	if deps.queue != nil {
		checks = append(checks, httpserver.HealthCheck{Name: "redis", Check: deps.queue.Ping})
	}

	srv := httpserver.NewServer(cfg, deps.service, metrics.Handler(promReg),
		httpMetrics.Middleware(), apperrors.Middleware(pipelineMetrics.HTTPErrors), checks)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigChan:
		slog.Info("Shutdown signal received, cleaning up...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func pingStore(store domain.Store) func(ctx context.Context) error {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := store.(pinger); ok {
		return p.Ping
	}
	return func(context.Context) error { return nil }
}
