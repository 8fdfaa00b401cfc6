package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"belssb/internal/config"
	"belssb/internal/readings"
)

// withInputs pins the global flag state and clears the BELSSB_* environment
// for one test, restoring everything afterwards.
func withInputs(t *testing.T, cfg config.Config, path string) {
	t.Helper()
	prevCfg, prevPath := flagCfg, configPath
	t.Cleanup(func() {
		flagCfg, configPath = prevCfg, prevPath
	})
	flagCfg = cfg
	configPath = path
	for _, key := range []string{
		"BELSSB_ACCOUNT", "BELSSB_TARIFF", "BELSSB_DAY",
		"BELSSB_NIGHT", "BELSSB_PEAK", "BELSSB_EMAIL", "BELSSB_PHONE",
	} {
		t.Setenv(key, "")
	}
}

func noConfigFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.yaml")
}

func TestResolveInputs_MissingAccount(t *testing.T) {
	withInputs(t, config.Config{Day: "123"}, noConfigFile(t))

	_, _, err := resolveInputs()
	require.Error(t, err)

	var uerr *usageError
	require.True(t, errors.As(err, &uerr), "missing account must map to exit code 2, got: %v", err)
	assert.Contains(t, err.Error(), "account")
}

func TestResolveInputs_InvalidTariff(t *testing.T) {
	withInputs(t, config.Config{Account: "1", Tariff: "quad-zone", Day: "123"}, noConfigFile(t))

	_, _, err := resolveInputs()
	var uerr *usageError
	require.True(t, errors.As(err, &uerr))
}

func TestResolveInputs_InvalidReading(t *testing.T) {
	withInputs(t, config.Config{Account: "1", Tariff: "two-zone", Day: "123"}, noConfigFile(t))

	_, _, err := resolveInputs()
	var uerr *usageError
	require.True(t, errors.As(err, &uerr))
	assert.Contains(t, err.Error(), "night")
}

func TestResolveInputs_Valid(t *testing.T) {
	withInputs(t, config.Config{Account: "12345", Day: "123,45"}, noConfigFile(t))

	cfg, tariff, err := resolveInputs()
	require.NoError(t, err)
	assert.Equal(t, readings.TariffSingle, tariff)
	assert.Equal(t, "12345", cfg.Account)
}

func TestResolveInputs_ConfigFileFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account: \"999\"\ntariff: two-zone\nnight: \"50\"\n"), 0o644))

	// Day from CLI, the rest from the file.
	withInputs(t, config.Config{Day: "100"}, path)

	cfg, tariff, err := resolveInputs()
	require.NoError(t, err)
	assert.Equal(t, "999", cfg.Account)
	assert.Equal(t, readings.TariffTwoZone, tariff)
	assert.Equal(t, "100", cfg.Day)
	assert.Equal(t, "50", cfg.Night)
}

func TestResolveInputs_EnvFallback(t *testing.T) {
	withInputs(t, config.Config{}, noConfigFile(t))
	t.Setenv("BELSSB_ACCOUNT", "env-acct")
	t.Setenv("BELSSB_DAY", "42")

	cfg, tariff, err := resolveInputs()
	require.NoError(t, err)
	assert.Equal(t, "env-acct", cfg.Account)
	assert.Equal(t, readings.TariffSingle, tariff)
}
