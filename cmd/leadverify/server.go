package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/threeeaglesforge/leadverify/internal/config"
	"github.com/threeeaglesforge/leadverify/internal/domain"
	httpserver "github.com/threeeaglesforge/leadverify/internal/http"
	"github.com/threeeaglesforge/leadverify/internal/metrics"
	"github.com/threeeaglesforge/leadverify/internal/notification"
	"github.com/threeeaglesforge/leadverify/internal/repository"
	"github.com/threeeaglesforge/leadverify/internal/verification"
)

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Connect to database
	db, err := repository.NewDB(repository.Config{
		URL:             cfg.DatabaseURL(),
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("connected to database")

	var (
		recorder       metrics.Recorder = metrics.NoOp{}
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheusRecorder("leadverify")
		recorder, metricsHandler = prom, prom.Handler()
	}

	sender, closeSender, err := newSender(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSender()

	// Initialize repositories
	subjectsRepo := repository.NewSubjectsRepository()
	tokensRepo := repository.NewVerificationTokensRepository()

	// Initialize services
	mailer := notification.NewMailer(notification.MailerConfig{
		SiteName:         cfg.SiteName,
		SiteURL:          cfg.SiteURL,
		OperatorEmail:    cfg.ContactToEmail,
		NewsletterSource: cfg.NewsletterSource,
		WelcomeIssuePath: cfg.NewsletterIssuePath,
		WelcomeSubject:   cfg.NewsletterWelcomeSubject,
	}, sender)
	tokenStore := verification.NewTokenStore(tokensRepo)
	effects := verification.NewBestEffort(logger, recorder, cfg.NotificationTimeout)

	flows := verification.DefaultFlows()
	flows[domain.SubjectKindLead] = withTTL(flows[domain.SubjectKindLead], cfg.ContactTokenTTL)
	flows[domain.SubjectKindSubscription] = withTTL(flows[domain.SubjectKindSubscription], cfg.NewsletterTokenTTL)

	intakeService := verification.NewIntakeService(
		verification.IntakeConfig{Flows: flows, MinMessageLength: cfg.Validation.MinMessageLength},
		db, subjectsRepo, tokenStore, mailer, effects, recorder, logger,
	)
	redemptionService := verification.NewRedemptionService(
		db, subjectsRepo, tokenStore, mailer, effects, recorder, logger,
	)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:                 logger,
		TrustProxyHeaders:      cfg.TrustProxyHeaders,
		Submitter:              intakeService,
		Redeemer:               redemptionService,
		Metrics:                metricsHandler,
		SiteURL:                cfg.SiteURL,
		ContactConfirmedURL:    cfg.ContactConfirmedURL,
		NewsletterConfirmedURL: cfg.NewsletterConfirmedURL,
		RateLimitConfig:        cfg.RateLimit,
		SecurityHeaders:        cfg.SecurityHeaders,
		Validation:             cfg.Validation,
	})

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr, "notify_driver", cfg.NotifyDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

func withTTL(f verification.Flow, ttl time.Duration) verification.Flow {
	f.TokenTTL = ttl
	return f
}

// newSender picks the outbound transport for NOTIFY_DRIVER.
func newSender(cfg *config.Config, logger *slog.Logger) (notification.Sender, func(), error) {
	switch cfg.NotifyDriver {
	case config.NotifyDriverSMTP:
		return notification.NewSMTPSender(smtpConfig(cfg)), func() {}, nil
	case config.NotifyDriverAMQP:
		q, err := notification.NewQueueSender(cfg.AMQPURL, cfg.AMQPQueue, logger)
		if err != nil {
			return nil, nil, err
		}
		return q, q.Close, nil
	default:
		logger.Warn("email delivery disabled, messages are logged only")
		return notification.NewLogSender(logger), func() {}, nil
	}
}

func smtpConfig(cfg *config.Config) notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
	}
}
