package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"imagejobs/internal/http/handlers"
	httpapi "imagejobs/internal/http/httpapi"
	"imagejobs/internal/infra"
	"imagejobs/internal/service"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx := context.Background()
	svc, err := service.New(ctx, cfg, logger, service.Options{Registerer: reg})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise job core")
	}
	defer svc.Close()

	var orders handlers.OrderLedger
	if svc.Orders != nil {
		orders = svc.Orders
	} else {
		logger.Warn().Msg("DATABASE_URL not set; order ledger disabled")
	}

	app := handlers.NewApp(svc.Workflow, svc.Catalog, orders, cfg.MaxUploadBytes)
	router := httpapi.NewRouter(app, httpapi.Deps{
		Logger:      logger,
		Collector:   svc.Collector,
		Gatherer:    reg,
		CORSOrigins: cfg.CORSOrigins,
		RatePerMin:  cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Int("operations", len(svc.Catalog.Names())).
			Int("poll_max_attempts", cfg.PollMaxAttempts).
			Dur("poll_interval", cfg.PollInterval).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
