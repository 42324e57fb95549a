package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ledgerConnectTimeout   = 10 * time.Second
	ledgerStatementTimeout = 15 * time.Second
)

// NewDBPool opens the pgx pool backing the order ledger. Callers only invoke
// it when DATABASE_URL is set; the ledger is optional.
func NewDBPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	poolCfg, err := ledgerPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, ledgerConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect order ledger: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping order ledger: %w", err)
	}
	return pool, nil
}

// ledgerPoolConfig sizes the pool for the ledger's short single-row writes.
// Runtime params already present in DATABASE_URL win over the defaults.
func ledgerPoolConfig(cfg *Config) (*pgxpool.Config, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	// every batch worker and in-flight API job may record at the same time
	poolCfg.MaxConns = int32(max(cfg.DatabaseMaxConns, 1))
	poolCfg.MinConns = 0
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	params := poolCfg.ConnConfig.RuntimeParams
	if params["application_name"] == "" {
		params["application_name"] = "imagejobs-" + cfg.AppEnv
	}
	if params["statement_timeout"] == "" {
		params["statement_timeout"] = fmt.Sprint(ledgerStatementTimeout.Milliseconds())
	}
	return poolCfg, nil
}
