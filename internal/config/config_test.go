package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traderdesk/paper-engine/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30, cfg.Store.CacheTTLSeconds)
	assert.Equal(t, "50000", cfg.Paper.StartingCash)
	assert.Empty(t, cfg.Store.DatabaseURL)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
store:
  database_url: postgres://localhost/paper
  redis_url: localhost:6379
  cache_ttl_seconds: 5
paper:
  starting_cash: "100000"
  mock_prices:
    AAPL: "187.5"
auth:
  tokens:
    secret-token: user-1
  allow_dev_header: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/paper", cfg.Store.DatabaseURL)
	assert.Equal(t, 5, cfg.Store.CacheTTLSeconds)
	assert.Equal(t, "100000", cfg.Paper.StartingCash)
	assert.Equal(t, "user-1", cfg.Auth.Tokens["secret-token"])
	assert.True(t, cfg.Auth.AllowDevHeader)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("PAPER_STARTING_CASH", "250")
	t.Setenv("DATABASE_URL", "postgres://db/override")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "250", cfg.Paper.StartingCash)
	assert.Equal(t, "postgres://db/override", cfg.Store.DatabaseURL)
}

func TestStartingCash(t *testing.T) {
	cfg := config.Default()
	d, err := cfg.StartingCash()
	require.NoError(t, err)
	assert.Equal(t, "50000", d.String())

	cfg.Paper.StartingCash = "not-a-number"
	_, err = cfg.StartingCash()
	assert.Error(t, err)

	cfg.Paper.StartingCash = "-5"
	_, err = cfg.StartingCash()
	assert.Error(t, err)

	cfg.Paper.StartingCash = "0"
	_, err = cfg.StartingCash()
	assert.Error(t, err)
}

func TestMockPrices(t *testing.T) {
	cfg := config.Default()

	prices, err := cfg.MockPrices()
	require.NoError(t, err)
	assert.Nil(t, prices)

	cfg.Paper.MockPrices = map[string]string{"AAPL": "187.5", "MSFT": "400"}
	prices, err = cfg.MockPrices()
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "187.5", prices["AAPL"].String())

	cfg.Paper.MockPrices = map[string]string{"AAPL": "bogus"}
	_, err = cfg.MockPrices()
	assert.Error(t, err)
}
