// Package service assembles the job core from configuration for the API
// server and the CLI.
package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"imagejobs/internal/adapter/repo"
	"imagejobs/internal/catalog"
	"imagejobs/internal/infra"
	"imagejobs/internal/lightx"
	"imagejobs/internal/metrics"
)

// Services is the wired job core. Orders is nil when DATABASE_URL is unset.
type Services struct {
	Config    *infra.Config
	Logger    infra.Logger
	Client    *lightx.Client
	Workflow  *lightx.Workflow
	Catalog   *catalog.Catalog
	Orders    *repo.OrderRepository
	Collector *metrics.Collector

	pool *pgxpool.Pool
}

// Options selects the optional parts of the assembly.
type Options struct {
	// Registerer receives the workflow metrics. Nil disables them.
	Registerer prometheus.Registerer
	// SkipLedger leaves Orders nil even when DATABASE_URL is set.
	SkipLedger bool
}

// New builds the client, the order ledger and the workflow.
func New(ctx context.Context, cfg *infra.Config, logger infra.Logger, opts Options) (*Services, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	client, err := lightx.NewClient(lightx.Options{
		APIKey:           cfg.LightXAPIKey,
		BaseURL:          cfg.LightXBaseURL,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		MaxDownloadBytes: cfg.MaxDownloadBytes,
		RequestTimeout:   cfg.RequestTimeout,
		Logger:           &logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Services{
		Config:  cfg,
		Logger:  logger,
		Client:  client,
		Catalog: catalog.Default(),
	}

	wfOpts := lightx.WorkflowOptions{
		Policy: lightx.RetryPolicy{MaxAttempts: cfg.PollMaxAttempts, Interval: cfg.PollInterval},
		Logger: &logger,
	}
	if opts.Registerer != nil {
		s.Collector = metrics.NewCollector("lightx", opts.Registerer)
		wfOpts.Observer = s.Collector
	}

	if cfg.DatabaseURL != "" && !opts.SkipLedger {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		orders := repo.NewOrderRepository(infra.NewSQLRunner(pool, logger))
		if err := orders.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("prepare order ledger: %w", err)
		}
		s.pool = pool
		s.Orders = orders
		wfOpts.Recorder = orders
	}

	s.Workflow = lightx.NewWorkflow(client, wfOpts)
	return s, nil
}

// Close releases the database pool.
func (s *Services) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
