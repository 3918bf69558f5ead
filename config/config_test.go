package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsOnEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "https://quote-api.jup.ag/v6", cfg.Jupiter.BaseURL)
	assert.Equal(t, "wss://pumpportal.fun/api/data", cfg.Feed.URL)
	assert.Equal(t, 4, cfg.Executor.MaxShards)
	assert.Equal(t, 0.05, cfg.Executor.MinShardSOL)
	assert.Equal(t, 3, cfg.Executor.ExitShards)
	assert.Equal(t, 8.0, cfg.Executor.HardImpactPct)
	assert.Equal(t, 3.0, cfg.Executor.SoftImpactPct)
	assert.Equal(t, 800*time.Millisecond, cfg.ShardDelay())
	assert.Equal(t, 10*time.Second, cfg.MonitorInterval())
	assert.Equal(t, "feed", cfg.Autopilot.Source)
	assert.Equal(t, "steady", cfg.Strategy.Profile)
	assert.Equal(t, "mintbot.db", cfg.Storage.DSN)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
executor:
  max_shards: 6
  hard_impact_pct: 5.5
monitor:
  interval_seconds: 30
autopilot:
  source: screener
`))
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Executor.MaxShards)
	assert.Equal(t, 5.5, cfg.Executor.HardImpactPct)
	assert.Equal(t, 30*time.Second, cfg.MonitorInterval())
	assert.Equal(t, "screener", cfg.Autopilot.Source)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "https://rpc.example.com")
	t.Setenv("WALLET_PRIVATE_KEY", "secret-key")

	cfg, err := Load(writeConfig(t, `
rpc:
  url: https://from-yaml.example.com
`))
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.com", cfg.RPC.URL)
	assert.Equal(t, "secret-key", cfg.WalletKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStrategyDefaults_SteadyProfile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	tp, sl, partials := cfg.StrategyDefaults()
	assert.Equal(t, 20.0, tp)
	assert.Equal(t, 10.0, sl)
	assert.True(t, partials)
}

func TestStrategyDefaults_ScalpProfile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
strategy:
  profile: scalp
`))
	require.NoError(t, err)

	tp, sl, partials := cfg.StrategyDefaults()
	assert.Equal(t, 5.0, tp)
	assert.Equal(t, 1.5, sl)
	assert.False(t, partials)
}

func TestStrategyDefaults_FieldOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
strategy:
  profile: scalp
  take_profit_pct: 8.0
  partial_exits: true
`))
	require.NoError(t, err)

	tp, sl, partials := cfg.StrategyDefaults()
	assert.Equal(t, 8.0, tp)
	assert.Equal(t, 1.5, sl, "el campo sin override conserva el perfil")
	assert.True(t, partials)
}
