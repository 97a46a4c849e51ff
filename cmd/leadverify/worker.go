package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/threeeaglesforge/leadverify/internal/config"
	"github.com/threeeaglesforge/leadverify/internal/mailworker"
	"github.com/threeeaglesforge/leadverify/internal/metrics"
	"github.com/threeeaglesforge/leadverify/internal/notification"
)

func runMailWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is required for the mail worker")
	}
	if !cfg.HasSMTP() {
		return fmt.Errorf("SMTP_HOST is required for the mail worker")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var recorder metrics.Recorder = metrics.NoOp{}
	metricsDone := make(chan struct{})
	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheusRecorder("leadverify")
		recorder = prom
		srv := metrics.NewServer(cfg.WorkerMetricsAddr, prom.Handler(), logger)
		go func() {
			defer close(metricsDone)
			if err := srv.Run(ctx); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	} else {
		close(metricsDone)
	}

	worker := mailworker.New(notification.NewSMTPSender(smtpConfig(cfg)), recorder, logger)

	logger.Info("starting mail worker", "queue", cfg.AMQPQueue)
	err := worker.Run(ctx, cfg.AMQPURL, cfg.AMQPQueue)
	logger.Info("mail worker stopped")

	cancel()
	<-metricsDone
	return err
}
