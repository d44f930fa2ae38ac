// Command ingest runs the event ingestion pipeline for one source or for
// every registered source, as a single traceable job.
//
// Examples:
//
//	DATABASE_URL="..." ingest -source all -location "Austin" -limit 25
//	ingest -source carshowfinder -range-start 2026-09-01 -range-end 2026-12-31
//	ingest -source all -dry-run   # full pipeline, no writes
//
// Exit code 0 on a clean run, non-zero if the job failed outright.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mikearonapi/autorev-sub014/internal/config"
	"github.com/mikearonapi/autorev-sub014/internal/metrics"
	"github.com/mikearonapi/autorev-sub014/internal/models"
	"github.com/mikearonapi/autorev-sub014/internal/repository"
	"github.com/mikearonapi/autorev-sub014/internal/resolver"
	"github.com/mikearonapi/autorev-sub014/internal/service"
	"github.com/mikearonapi/autorev-sub014/internal/sources"
)

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func main() {
	var (
		sourceKey   = flag.String("source", envString("INGEST_SOURCE", "all"), "Source key to ingest, or \"all\". Env: INGEST_SOURCE")
		location    = flag.String("location", envString("INGEST_LOCATION", ""), "Target location. Env: INGEST_LOCATION")
		rangeStart  = flag.String("range-start", "", "Earliest event date (YYYY-MM-DD)")
		rangeEnd    = flag.String("range-end", "", "Latest event date (YYYY-MM-DD)")
		limit       = flag.Int("limit", 50, "Per-source candidate limit")
		dryRun      = flag.Bool("dry-run", false, "Run the full pipeline but perform no writes")
		sourcesFile = flag.String("sources-file", "", "Path to the YAML source registry. Env: SOURCES_FILE")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *sourcesFile != "" {
		cfg.SourcesFile = *sourcesFile
	}

	var logger *zap.Logger
	if cfg.LogLevel == "debug" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	opts := service.RunOptions{
		SourceKey: *sourceKey,
		Location:  *location,
		Limit:     *limit,
		DryRun:    *dryRun,
	}
	if *rangeStart != "" {
		opts.RangeStart, err = models.ParseFlexibleDate(*rangeStart)
		if err != nil {
			logger.Fatal("Invalid -range-start", zap.Error(err))
		}
	}
	if *rangeEnd != "" {
		opts.RangeEnd, err = models.ParseFlexibleDate(*rangeEnd)
		if err != nil {
			logger.Fatal("Invalid -range-end", zap.Error(err))
		}
	}

	registry, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		logger.Fatal("Failed to load source registry", zap.String("file", cfg.SourcesFile), zap.Error(err))
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to create database connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	// Reference data is loaded once and injected; the resolver never
	// queries it mid-run.
	refCtx, refCancel := context.WithTimeout(context.Background(), cfg.DBTimeout)
	eventTypeNames, err := repository.NewReferenceRepository(pool).EventTypes(refCtx)
	refCancel()
	if err != nil {
		logger.Fatal("Failed to load event types", zap.Error(err))
	}
	eventTypesByName := make(map[string]int64, len(eventTypeNames))
	for id, name := range eventTypeNames {
		eventTypesByName[strings.ToLower(name)] = id
	}

	svc := service.NewIngestionService(
		repository.NewEventRepository(pool),
		repository.NewIngestionJobRepository(pool),
		registry,
		resolver.New(registry.TrustedKeys(), eventTypesByName, nil),
		metrics.New(prometheus.NewRegistry()),
		logger,
		cfg.FetchWorkers,
		cfg.DBTimeout,
	)

	// A shutdown signal cancels the run; the service lands the job in a
	// terminal failed state before returning.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	summary, err := svc.Run(ctx, opts)
	if err != nil {
		logger.Error("Ingestion run could not start", zap.Error(err))
		os.Exit(1)
	}

	printSummary(summary, time.Since(start))
	if summary.Failed() {
		os.Exit(1)
	}
}

func printSummary(s *service.RunSummary, elapsed time.Duration) {
	fmt.Printf("job %s (%s) %s in %s\n", s.JobID, s.SourceKey, s.Status, elapsed.Round(time.Millisecond))
	fmt.Printf("  sources: %d attempted, %d succeeded, %d failed\n",
		s.SourcesAttempted, s.SourcesSucceeded, s.SourcesFailed)
	fmt.Printf("  candidates: %d discovered, %d rejected, %d duplicates\n",
		s.Counters.Discovered, s.Counters.Rejected, s.Counters.Duplicates)
	fmt.Printf("  writes: %d inserted, %d updated, %d skipped", s.Counters.Inserted, s.Counters.Updated, s.Counters.Skipped)
	if s.DryRun {
		fmt.Print(" (dry run, nothing written)")
	}
	fmt.Println()
	for _, e := range s.SourceErrors {
		fmt.Printf("  source error: %s\n", e)
	}
	if s.Error != "" {
		fmt.Printf("  error: %s\n", s.Error)
	}
}
