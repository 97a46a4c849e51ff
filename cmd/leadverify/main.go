package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/threeeaglesforge/leadverify/internal/config"
	"github.com/threeeaglesforge/leadverify/internal/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "leadverify",
		Usage: "Email verification for contact and newsletter submissions",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "migrate",
						Usage: "Apply pending migrations before serving",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, logger, err := setup()
					if err != nil {
						return err
					}
					if cmd.Bool("migrate") {
						if err := repository.Migrate(cfg.DatabaseURL(), logger); err != nil {
							return err
						}
					}
					return runServer(ctx, cfg, logger)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, logger, err := setup()
					if err != nil {
						return err
					}
					return repository.Migrate(cfg.DatabaseURL(), logger)
				},
			},
			{
				Name:  "mail-worker",
				Usage: "Deliver queued email over SMTP",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, logger, err := setup()
					if err != nil {
						return err
					}
					return runMailWorker(ctx, cfg, logger)
				},
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
