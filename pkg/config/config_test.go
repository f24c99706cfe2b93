package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/xlb/pkg/checkpoint"
	"github.com/cuemby/xlb/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
ranks: 8
servers: 2
peers:
  0: "127.0.0.1:9000"
  1: "127.0.0.1:9001"
checkpoint:
  block_size: 1048576
  path: /tmp/xlb-checkpoint
  flush:
    mode: periodic
    interval: 5s
inline_threshold: 512
steal_budget_bytes: 1048576
pending_sync_cap: 32
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesTopology(t *testing.T) {
	path := writeTemp(t, sampleYAML)

	c, err := config.Load(path)
	require.NoError(t, err)

	assert.EqualValues(t, 8, c.Ranks)
	assert.EqualValues(t, 2, c.Servers)
	assert.EqualValues(t, 6, c.Worker())
	assert.Equal(t, "127.0.0.1:9000", c.Peers[0])
	assert.Equal(t, int64(1048576), c.Checkpoint.BlockSize)
	assert.Equal(t, 512, c.InlineThreshold)
}

func TestHomeServerFollowsSpecFormula(t *testing.T) {
	c := &config.Cluster{Ranks: 8, Servers: 2}

	// W = N - S = 6; server(w) = W + (w mod S)
	assert.EqualValues(t, 6, c.HomeServer(0))
	assert.EqualValues(t, 7, c.HomeServer(1))
	assert.EqualValues(t, 6, c.HomeServer(2))
}

func TestHomeServerForIDHandlesNegativeIDs(t *testing.T) {
	c := &config.Cluster{Ranks: 8, Servers: 2}

	assert.EqualValues(t, 6, c.HomeServerForID(0))
	assert.EqualValues(t, 7, c.HomeServerForID(1))
	assert.EqualValues(t, 7, c.HomeServerForID(-1))
}

func TestLoadRejectsInvalidServerCount(t *testing.T) {
	path := writeTemp(t, "ranks: 4\nservers: 0\n")
	_, err := config.Load(path)
	assert.Error(t, err)

	path2 := writeTemp(t, "ranks: 4\nservers: 5\n")
	_, err = config.Load(path2)
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, "ranks: 4\nservers: 1\n")
	c, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(4<<20), c.Checkpoint.BlockSize)
	assert.Equal(t, 256, c.InlineThreshold)
	assert.Equal(t, 64, c.PendingSyncCap)
}

func TestFlushConfigConversion(t *testing.T) {
	f := config.FlushConfig{Mode: "periodic"}
	assert.Equal(t, checkpoint.PeriodicFlush, f.ToFlushPolicy().Mode)

	f = config.FlushConfig{Mode: "always"}
	assert.Equal(t, checkpoint.AlwaysFlush, f.ToFlushPolicy().Mode)

	f = config.FlushConfig{Mode: "bogus"}
	assert.Equal(t, checkpoint.NoFlush, f.ToFlushPolicy().Mode)
}

func TestEnvDefaultsAndOverrides(t *testing.T) {
	os.Unsetenv("ADLB_DEBUG")
	os.Unsetenv("ADLB_REPORT_LEAKS")
	env := config.LoadEnv()
	assert.True(t, env.Debug)
	assert.False(t, env.ReportLeaks)

	t.Setenv("ADLB_DEBUG", "0")
	t.Setenv("ADLB_REPORT_LEAKS", "1")
	env = config.LoadEnv()
	assert.False(t, env.Debug)
	assert.True(t, env.ReportLeaks)
}
