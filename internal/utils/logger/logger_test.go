package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.LogFile = filepath.Join(dir, "monitor.log")
	cfg.Compress = false

	log, err := New(cfg)
	require.NoError(t, err)

	log.WithPosition(795484, 42161).Info("evaluation finished", zap.Int("alerts", 1))
	_ = log.Sync()

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"position_id":795484`)
	assert.Contains(t, string(data), `"chain_id":42161`)
	assert.Contains(t, string(data), "evaluation finished")
}

func TestNewWithoutFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = ""
	cfg.Development = true

	log, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))

	end := log.TrackPerformance("noop")
	end()
}
