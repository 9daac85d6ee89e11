package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/identity-api/config"
	"github.com/jwalitptl/identity-api/internal/repository/postgres"
	"github.com/jwalitptl/identity-api/internal/service/expiry"
	"github.com/jwalitptl/identity-api/internal/worker"
	"github.com/jwalitptl/identity-api/pkg/logger"
	"github.com/jwalitptl/identity-api/pkg/metrics"
)

const sweepInterval = 15 * time.Minute

func setupHealthCheck(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLogger := logger.NewLogger(nil)
	m := metrics.NewMetrics("identity", "worker")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	baseRepo := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(baseRepo)
	ruleRepo := postgres.NewExpiryRuleRepository(baseRepo)

	// The worker reconciles too: whichever process starts first converges
	// the rule set, later ones are no-ops.
	engine := expiry.NewEngine(ruleRepo, cfg.Validation, appLogger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconcileCtx, reconcileCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := engine.Reconcile(reconcileCtx); err != nil {
		reconcileCancel()
		appLogger.Fatal(err, "Failed to reconcile expiry rules")
	}
	reconcileCancel()

	sweep := worker.NewExpirySweepWorker(userRepo, ruleRepo, sweepInterval, appLogger, m)

	setupHealthCheck(appLogger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.ZL.Info().Msg("Shutting down...")
		cancel()
	}()

	sweep.Start(ctx)
}
