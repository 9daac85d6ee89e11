package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/identity-api/config"
	"github.com/jwalitptl/identity-api/internal/handler"
	userHandler "github.com/jwalitptl/identity-api/internal/handler/user"
	"github.com/jwalitptl/identity-api/internal/notifier"
	"github.com/jwalitptl/identity-api/internal/repository/postgres"
	redisrepo "github.com/jwalitptl/identity-api/internal/repository/redis"
	"github.com/jwalitptl/identity-api/internal/router"
	"github.com/jwalitptl/identity-api/internal/service/expiry"
	"github.com/jwalitptl/identity-api/internal/service/role"
	userService "github.com/jwalitptl/identity-api/internal/service/user"
	"github.com/jwalitptl/identity-api/pkg/logger"
	"github.com/jwalitptl/identity-api/pkg/metrics"
	"github.com/jwalitptl/identity-api/pkg/security"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	m := metrics.NewMetrics("identity", "api")

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize repositories
	baseRepo := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(baseRepo)
	ruleRepo := postgres.NewExpiryRuleRepository(baseRepo)
	roleRepo := postgres.NewRoleRepository(baseRepo)

	redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid redis URL")
	}
	redisClient := goredis.NewClient(redisOpts)
	defer redisClient.Close()
	limiter := redisrepo.NewAttemptLimiter(redisClient)

	// Initialize the credential stack
	hasher := security.NewPasswordHasher(security.HasherConfig{
		DefaultAlgorithm: security.Algorithm(cfg.Security.DefaultAlgorithm),
		BcryptCost:       cfg.Security.BcryptCost,
		PBKDF2Iterations: cfg.Security.PBKDF2Iterations,
	})
	policy := security.NewPasswordPolicy(security.PolicyConfig{
		MinLength:    cfg.Policy.MinLength,
		MinClasses:   cfg.Policy.MinClasses,
		MaxRepeatRun: cfg.Policy.MaxRepeatRun,
		Blocklist:    cfg.Policy.Blocklist,
	})
	passphrase := security.NewPassphraseGenerator(policy)

	// Initialize collaborators
	emailSender := notifier.NewEmailSender(cfg.SMTP)
	smsSender := notifier.NewSMSSender(cfg.SMS)
	roleValidator := role.NewValidator(roleRepo)

	// Initialize services
	userSvc := userService.NewService(
		userRepo,
		hasher,
		policy,
		passphrase,
		roleValidator,
		emailSender,
		smsSender,
		limiter,
		cfg.Validation,
		cfg.Defaults,
		appLogger,
		m,
	)

	// Reconcile the TTL rule for unvalidated accounts before serving
	expiryEngine := expiry.NewEngine(ruleRepo, cfg.Validation, appLogger, m)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := expiryEngine.Reconcile(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to reconcile expiry rules")
	}
	cancel()

	// Initialize handlers and router
	h := handler.NewHandler(db)
	userH := userHandler.NewHandler(userSvc)

	r := router.NewRouter(h, userH, router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Setup(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
