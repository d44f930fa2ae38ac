// Command audit runs the whole-catalog quality audit and renders a
// severity-classified report. It exits non-zero if and only if the catalog
// has gating findings: missing required fields, ERROR-severity data-quality
// violations, or dangling references. WARNING-only catalogs pass, which is
// the contract CI gates rely on.
//
// The engine itself is read-only over the catalog; unless -no-record is
// set, the verdict is recorded in audit_runs for the status API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mikearonapi/autorev-sub014/internal/audit"
	"github.com/mikearonapi/autorev-sub014/internal/config"
	"github.com/mikearonapi/autorev-sub014/internal/repository"
)

func main() {
	var (
		jsonOut  = flag.String("json", "", "Also write the machine-readable report to this file")
		noRecord = flag.Bool("no-record", false, "Do not record the verdict in audit_runs")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logger *zap.Logger
	if cfg.LogLevel == "debug" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to create database connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	eventRepo := repository.NewEventRepository(pool)
	refRepo := repository.NewReferenceRepository(pool)

	ctx := context.Background()
	events, err := eventRepo.ListAll(ctx)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}
	affinities, err := eventRepo.ListCarAffinities(ctx)
	if err != nil {
		logger.Fatal("Failed to load car affinities", zap.Error(err))
	}
	eventTypes, err := refRepo.EventTypes(ctx)
	if err != nil {
		logger.Fatal("Failed to load event types", zap.Error(err))
	}
	cars, err := refRepo.Cars(ctx)
	if err != nil {
		logger.Fatal("Failed to load cars", zap.Error(err))
	}

	engine := audit.NewEngine(nil)
	report := engine.Audit(events, affinities, audit.ReferenceData{
		EventTypes: eventTypes,
		Cars:       cars,
	})

	report.Render(os.Stdout)

	if *jsonOut != "" {
		raw, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			logger.Fatal("Failed to marshal report", zap.Error(err))
		}
		if err := os.WriteFile(*jsonOut, raw, 0o644); err != nil {
			logger.Fatal("Failed to write report file", zap.String("path", *jsonOut), zap.Error(err))
		}
	}

	if !*noRecord {
		run := report.Run(uuid.New())
		if err := repository.NewAuditRunRepository(pool).Create(ctx, run); err != nil {
			logger.Error("Failed to record audit run", zap.Error(err))
		}
	}

	logger.Info("quality audit finished",
		zap.Int("events", report.Stats.TotalEvents),
		zap.Int("findings", len(report.Findings)),
		zap.Int("gating", report.GatingCount()),
		zap.Bool("passed", report.Passed()),
	)

	if !report.Passed() {
		os.Exit(1)
	}
}
