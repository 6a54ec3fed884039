package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/antispam"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/handlers"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/mailer"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/config"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/dedupe"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/observability"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/platform/ratelimit"
	"github.com/PatrizioAcquadro/castelloMongivetto/internal/services"
)

func main() {
	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("contact")

	cfg, err := config.Load()
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	rules, err := loadRules(cfg, logger)
	if err != nil {
		logger.Fatal("failed to load anti-spam rules", zap.Error(err))
	}
	provider := antispam.NewProvider(rules)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchWG sync.WaitGroup
	if cfg.AntiSpam.RulesFile != "" && cfg.AntiSpam.WatchRules {
		watcher, err := antispam.NewWatcher(cfg.AntiSpam.RulesFile, provider, logger.Named("antispam"))
		if err != nil {
			logger.Fatal("failed to watch anti-spam rules file", zap.Error(err))
		}
		watchWG.Add(1)
		go func() {
			defer watchWG.Done()
			if err := watcher.Run(watchCtx); err != nil {
				logger.Warn("rules watcher stopped", zap.Error(err))
			}
		}()
	}

	sender := mailer.NewClient(cfg.Contact.ResendAPIKey, mailer.WithBaseURL(cfg.Contact.ResendBaseURL))
	if !sender.Configured() {
		logger.Warn("resend api key not set; submissions will fail until configured")
	}

	contactService := services.NewSubmissionService(services.Deps{
		Risk:           services.NewRequestRiskEvaluator(provider),
		Spam:           services.NewContentSpamEvaluator(provider),
		Deliverability: services.NewDNSDeliverabilityChecker(provider),
		Limiter:        ratelimit.NewLimiter(),
		Duplicates:     dedupe.NewStore(),
		Sender:         sender,
		FromEmail:      cfg.Contact.FromEmail,
		ToEmail:        cfg.Contact.ToEmail,
	})

	contactHandlers := handlers.NewContactHandlers(contactService)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthVersion(buildVersion()),
		handlers.WithReadinessChecks(handlers.ReadinessCheck{
			Name: "mailer",
			Probe: func(context.Context) error {
				if !sender.Configured() || strings.TrimSpace(cfg.Contact.FromEmail) == "" {
					return errors.New("outbound email not configured")
				}
				return nil
			},
		}),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.ClientIPMiddleware(),
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.TraceMiddleware(),
			observability.RecoveryMiddleware(logger.Named("http")),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithContactRoutes(contactHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("contact api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	watchCancel()
	watchWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func loadRules(cfg config.Config, logger *zap.Logger) (*antispam.Rules, error) {
	if cfg.AntiSpam.RulesFile == "" {
		return antispam.Default(), nil
	}
	rules, err := antispam.LoadFile(cfg.AntiSpam.RulesFile)
	if err != nil {
		return nil, err
	}
	logger.Info("anti-spam rules loaded", zap.String("path", cfg.AntiSpam.RulesFile))
	return rules, nil
}

func buildVersion() string {
	if version := strings.TrimSpace(os.Getenv("CONTACT_BUILD_VERSION")); version != "" {
		return version
	}
	return "dev"
}
