package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagejobs/internal/infra"
)

func testConfig() *infra.Config {
	return &infra.Config{
		LightXAPIKey:    "key",
		LightXBaseURL:   "http://127.0.0.1:1",
		MaxUploadBytes:  1024,
		PollMaxAttempts: 3,
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.LightXAPIKey = ""
	_, err := New(context.Background(), cfg, *infra.NopLogger(), Options{})
	require.Error(t, err)
}

func TestNewWithoutLedger(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := New(context.Background(), testConfig(), *infra.NopLogger(), Options{Registerer: reg})
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Orders)
	assert.NotNil(t, s.Workflow)
	assert.NotNil(t, s.Collector)
	assert.Equal(t, int64(1024), s.Client.MaxUploadBytes())
	assert.NotEmpty(t, s.Catalog.Names())
}

func TestNewSkipLedgerIgnoresDatabaseURL(t *testing.T) {
	cfg := testConfig()
	cfg.DatabaseURL = "postgres://nobody@127.0.0.1:1/none"
	s, err := New(context.Background(), cfg, *infra.NopLogger(), Options{SkipLedger: true})
	require.NoError(t, err)
	assert.Nil(t, s.Orders)
	assert.Nil(t, s.Collector)
}
