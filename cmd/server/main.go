package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/auditcore/freight-audit/internal/audit"
	"github.com/auditcore/freight-audit/internal/config"
	"github.com/auditcore/freight-audit/internal/infrastructure/persistence/repository"
	"github.com/auditcore/freight-audit/internal/ingestion"
	"github.com/auditcore/freight-audit/internal/interfaces/http"
	"github.com/auditcore/freight-audit/internal/report"
	"github.com/auditcore/freight-audit/internal/worker"
	"github.com/auditcore/freight-audit/pkg/database"
	"github.com/auditcore/freight-audit/pkg/utils"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Local overrides from .env, if present.
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting freight audit service",
		zap.String("config", *configPath),
		zap.Int("carrier_programs", len(cfg.Carriers)))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories
	rateRepo := repository.NewRateCardRepository(db, logger)
	invoiceRepo := repository.NewInvoiceRepository(db, logger)
	resultRepo := repository.NewAuditResultRepository(db, logger)

	// Audit engine
	policies, aliases := buildPolicies(cfg.Carriers)
	registry, err := audit.NewPolicyRegistry(policies)
	if err != nil {
		logger.Fatal("Invalid carrier policy configuration", zap.Error(err))
	}
	engine := audit.NewEngine(rateRepo, invoiceRepo, resultRepo, registry, aliases, logger)

	loader := ingestion.NewRateCardLoader(rateRepo, logger)
	exporter := report.NewExporter(cfg.Report.OutputDir, logger)

	// Background workers
	manager := worker.NewManager(logger)
	if cfg.Audit.WorkerEnabled {
		manager.Register(worker.NewAuditWorker(engine, cfg.Audit.PollInterval, cfg.Audit.BatchLimit, logger))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// HTTP server
	httpLogger := http.NewZapLogger(logger)
	handlers := http.NewHandlers(engine, invoiceRepo, resultRepo, loader, exporter, httpLogger)
	server := http.NewServer(http.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, httpLogger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancel()
	manager.StopAll()
	logger.Info("Server exited")
}

// buildPolicies translates carrier configuration into audit policies.
// Zero-valued numeric fields keep the built-in defaults.
func buildPolicies(carriers []config.CarrierConfig) ([]audit.Policy, map[string]string) {
	policies := make([]audit.Policy, 0, len(carriers))
	aliases := make(map[string]string)

	for _, c := range carriers {
		p := audit.DefaultPolicy(c.Program)
		if c.PassTolerancePercent > 0 {
			p.PassTolerancePercent = c.PassTolerancePercent
		}
		if c.ReviewTolerancePercent > 0 {
			p.ReviewTolerancePercent = c.ReviewTolerancePercent
		}
		if c.HeavyWeightThresholdKg > 0 {
			p.HeavyWeightThresholdKg = c.HeavyWeightThresholdKg
		}
		if c.TaxRatePercent > 0 {
			p.TaxRatePercent = c.TaxRatePercent
		}
		if c.FuelDefaultRatePercent > 0 {
			p.FuelDefaultRatePercent = c.FuelDefaultRatePercent
		}
		p.FuelPassThrough = c.FuelPassThrough
		if c.CustomerBenefitOverride != nil {
			p.CustomerBenefitOverride = *c.CustomerBenefitOverride
		}
		policies = append(policies, p)

		for code, country := range c.ZoneAliases {
			aliases[code] = country
		}
	}
	return policies, aliases
}
