// Command notifyd serves the notification REST API over a pluggable storage
// backend selected by NOTIFY_STORAGE.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicops/notifysync/pkg/config"
	"github.com/clinicops/notifysync/pkg/httpserver"
	"github.com/clinicops/notifysync/pkg/logger"
	"github.com/clinicops/notifysync/pkg/notifyapi"
	"github.com/clinicops/notifysync/pkg/requestid"
)

type appConfig struct {
	Env          string        `env:"APP_ENV" envDefault:"development"`
	Service      string        `env:"SERVICE_NAME" envDefault:"notifyd"`
	Storage      string        `env:"NOTIFY_STORAGE" envDefault:"memory"`
	CheckTimeout time.Duration `env:"HEALTH_CHECK_TIMEOUT" envDefault:"2s"`
	HTTP         httpserver.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "notifyd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Service),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	b, err := openBackend(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer b.close(context.WithoutCancel(ctx))

	log.LogAttrs(ctx, slog.LevelInfo, "Storage backend ready", slog.String("backend", b.name))

	r := chi.NewRouter()
	r.Get("/healthz", httpserver.HealthHandler(log, cfg.CheckTimeout))
	r.Get("/readyz", httpserver.HealthHandler(log, cfg.CheckTimeout, b.checks...))
	r.Mount("/", notifyapi.Handler(b.storage, notifyapi.WithHandlerLogger(log)))

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}
