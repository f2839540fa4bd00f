package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regholl2023/minitrade/internal/config"
	"github.com/regholl2023/minitrade/internal/quotesource"
)

func TestMain(m *testing.M) {
	os.Setenv(config.EnvPath, config.TestFile)
	os.Exit(m.Run())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minitrade", "config.yaml")

	out, err := run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = run(t, "--config", path, "config", "init")
	assert.ErrorContains(t, err, "already exists")
	_, err = run(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)

	out, err = run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "source: Yahoo")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestConfigShow_ProxyFlag(t *testing.T) {
	out, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--proxy", "http://127.0.0.1:3128", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "proxy: http://127.0.0.1:3128")
}

func TestDailyCSV(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	out, err := run(t, "--config", cfgPath, "--source", "Mock", "daily", "SPY,QQQ", "--start", "2022-12-05", "--end", "2022-12-09", "--csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "time,ticker,open,high,low,close,volume", lines[0])
	assert.Len(t, lines, 11)
	assert.True(t, strings.HasPrefix(lines[1], "2022-12-05,SPY,"), lines[1])
}

func TestMinuteTable(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	out, err := run(t, "--config", cfgPath, "--source", "Mock", "minute", "SPY", "--interval", "60", "--start", "2022-12-08", "--end", "2022-12-08")
	require.NoError(t, err)
	assert.Contains(t, out, "2022-12-08 09:30:00 EST")
	assert.Contains(t, out, "Close")
}

func TestCommandErrors(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, err := run(t, "--config", cfgPath, "--source", "Mock", "minute", "SPY", "--interval", "3")
	assert.ErrorIs(t, err, quotesource.ErrInvalidArgument)

	_, err = run(t, "--config", cfgPath, "--source", "Mock", "daily", "AAPL , GOOG,META ")
	assert.ErrorIs(t, err, quotesource.ErrInvalidArgument)

	_, err = run(t, "--config", cfgPath, "--source", "NotExist", "spot", "SPY")
	assert.ErrorIs(t, err, quotesource.ErrUnknownSource)

	_, err = run(t, "--config", cfgPath, "--source", "Mock", "daily", "SPY", "--start", "yesterday")
	assert.ErrorContains(t, err, "invalid --start")
}

func TestSpot(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	out, err := run(t, "--config", cfgPath, "--source", "Mock", "spot", "SPY,BTC-USD")
	require.NoError(t, err)
	assert.Contains(t, out, "Spot prices at")
	assert.Contains(t, out, "BTC-USD")
	assert.Contains(t, out, "100.00", "crypto trades around the clock")
}

func TestConfigFlagDefaultsToEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	t.Setenv(config.EnvPath, path)

	out, err := run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
}
