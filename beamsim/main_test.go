package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAppConfigDefaults(t *testing.T) {
	cfg, err := ReadAppConfig(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Resolution)
	assert.Equal(t, -25.0, cfg.MinX)
	assert.Equal(t, 40.0, cfg.MaxY)
	assert.Equal(t, 361, cfg.ProfilePoints)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Tracing)
}

func TestReadAppConfigFileAndEnv(t *testing.T) {
	t.Setenv("BEAMSIM_WORKERS", "5")
	cfg, err := ReadAppConfig("testdata", "")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Resolution)
	assert.Equal(t, -12.0, cfg.MinX)
	assert.Equal(t, 181, cfg.ProfilePoints)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, "json", cfg.LogFormat)

	require.NoError(t, cfg.SetupLogging())
	assert.Equal(t, log.WarnLevel, log.GetLevel())
	log.SetLevel(log.InfoLevel)
	log.SetFormatter(&log.TextFormatter{})
}

func TestReadAppConfigErrors(t *testing.T) {
	_, err := ReadAppConfig("", "testdata/missing.yaml")
	assert.Error(t, err)

	cfg, err := ReadAppConfig("", "testdata/bad.toml")
	require.NoError(t, err)
	assert.Error(t, cfg.SetupLogging())

	cfg.LogLevel = "info"
	cfg.LogFormat = "xml"
	assert.Error(t, cfg.SetupLogging())
}

func TestRunDefaultArray(t *testing.T) {
	cfg, err := ReadAppConfig(t.TempDir(), "")
	require.NoError(t, err)
	cfg.Resolution = 40
	out := t.TempDir()
	cfg.MetricsFile = filepath.Join(out, "beamsim.prom")

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, "", out, &stdout))

	for _, name := range []string{"field.png", "profile.png", "profile.m", "beamsim.prom"} {
		info, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
	metrics, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "beamsim_simulations_total 1")
	assert.Contains(t, stdout.String(), "Simulated 1 arrays on a 40x40 grid")
	assert.NoFileExists(t, filepath.Join(out, "profile.dat"))
}

func TestRunDemoScenario(t *testing.T) {
	cfg, err := ReadAppConfig(t.TempDir(), "")
	require.NoError(t, err)
	out := t.TempDir()

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, "testdata/demo.yaml", out, &stdout))
	assert.Contains(t, stdout.String(), "Simulated 5 arrays on a 120x120 grid")
	assert.FileExists(t, filepath.Join(out, "field.png"))
}

func TestRunRejectsBadProfileIndex(t *testing.T) {
	cfg, err := ReadAppConfig(t.TempDir(), "")
	require.NoError(t, err)
	cfg.Resolution = 10
	dir := t.TempDir()
	path := filepath.Join(dir, "one.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid: {resolution: 10}\nprofile: {array: 3}\narrays:\n  - count: 2\n"), 0o644))

	err = run(context.Background(), cfg, path, dir, &bytes.Buffer{})
	assert.Error(t, err)
}
