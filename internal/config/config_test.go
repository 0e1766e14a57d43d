package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.PollInterval())
	assert.Equal(t, time.Hour, cfg.AlertCooldown())
	assert.Equal(t, 30*time.Second, cfg.EvaluationTimeout())
	assert.Equal(t, 10, cfg.AgeThresholdDays)
	assert.Equal(t, 20.0, cfg.ProfitThresholdPct)
	assert.Equal(t, DefaultKafkaTopic, cfg.KafkaTopic)
	assert.Equal(t, "logs/lp-monitor.log", cfg.Log.LogFile)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
poll_interval_ms: 15000
alert_cooldown_ms: 600000
profit_threshold_pct: 25
webhook_url: https://discord.com/api/webhooks/1/abc
kafka_brokers: ["localhost:9092"]
chains:
  - id: 42161
    name: arbitrum
    subgraph_url: https://api.thegraph.com/subgraphs/name/ianlapham/uniswap-arbitrum-one
  - id: 1
    name: ethereum
    subgraph_url: https://api.thegraph.com/subgraphs/name/uniswap/uniswap-v3
log:
  file: ""
  development: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.PollInterval())
	assert.Equal(t, 10*time.Minute, cfg.AlertCooldown())
	assert.Equal(t, 25.0, cfg.ProfitThresholdPct)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	require.Len(t, cfg.Chains, 2)
	assert.True(t, cfg.Log.Development)
	assert.Empty(t, cfg.Log.LogFile)

	arb, ok := cfg.Chain(42161)
	require.True(t, ok)
	assert.Equal(t, "arbitrum", arb.Name)
	_, ok = cfg.Chain(10)
	assert.False(t, ok)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "poll_interval_ms: 15000\n")
	t.Setenv("LP_MONITOR_POLL_INTERVAL_MS", "5000")
	t.Setenv("LP_MONITOR_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("LP_MONITOR_LOG_DEVELOPMENT", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.Log.Development)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zero poll interval", body: "poll_interval_ms: 0\n"},
		{name: "negative cooldown", body: "alert_cooldown_ms: -1\n"},
		{name: "zero profit threshold", body: "profit_threshold_pct: 0\n"},
		{name: "plain http webhook", body: "webhook_url: http://example.com/hook\n"},
		{name: "bad postgres url", body: "postgres_url: mysql://localhost/db\n"},
		{name: "duplicate chain", body: "chains:\n  - {id: 1, subgraph_url: https://a}\n  - {id: 1, subgraph_url: https://b}\n"},
		{name: "chain without subgraph", body: "chains:\n  - {id: 1, name: eth}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
