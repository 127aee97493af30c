package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BearBump/ParcelSync/config"
	"github.com/stretchr/testify/require"
)

func TestBuildConfig_Precedence(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
sync:
  days_back: 30
  max_per_run: 5
  max_age_days: 10
log:
  level: warn
`), 0o600))

	env := config.Env{"PARCEL_MAX_PER_RUN": "8", "MAX_SHIPMENT_AGE_DAYS": "20"}
	cmd := newRootCmd(env, defaultSyncFactories())
	require.NoError(t, cmd.ParseFlags([]string{"--config", p, "--max-age-days", "40", "--dry-run"}))

	var fl cliFlags
	fl.configPath, _ = cmd.Flags().GetString("config")
	fl.maxAgeDays, _ = cmd.Flags().GetInt("max-age-days")
	fl.dryRun, _ = cmd.Flags().GetBool("dry-run")

	cfg, err := buildConfig(cmd, fl, env)
	require.NoError(t, err)
	require.Equal(t, 30, cfg.Sync.DaysBack)  // yaml
	require.Equal(t, 8, cfg.Sync.MaxPerRun)  // env over yaml
	require.Equal(t, 40, cfg.Sync.MaxAgeDays) // flag over env
	require.True(t, cfg.Sync.DryRun)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "tracking_history.json", cfg.Sync.HistoryPath)
}

func TestBuildConfig_BadEnv(t *testing.T) {
	cmd := newRootCmd(config.Env{}, defaultSyncFactories())
	_, err := buildConfig(cmd, cliFlags{}, config.Env{"EBAY_DAYS_BACK": "ninety"})
	require.Error(t, err)
}

func TestRootCmd_RunsWithEnvOnly(t *testing.T) {
	dir := t.TempDir()
	env := config.Env{
		"TRACKING_HISTORY_PATH": filepath.Join(dir, "h.json"),
		"LOG_FORMAT":            "json",
	}
	// no eBay credentials: no account is discovered, nothing is written
	cmd := newRootCmd(env, defaultSyncFactories())
	cmd.SetArgs([]string{"--log-level", "error"})
	require.NoError(t, cmd.Execute())
	require.NoFileExists(t, filepath.Join(dir, "h.json"))
}
