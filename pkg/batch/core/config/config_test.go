package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/tigerroll/datalake/pkg/batch/core/config"
)

const embeddedYAML = `
surfin:
  system:
    timezone: Asia/Tokyo
  adapter:
    storage:
      input:
        type: local
        base_dir: ./data
      output:
        type: s3
        endpoint: ${TEST_S3_ENDPOINT}
        bucket_name: lake
datalake:
  output_root: analytics
  dedup:
    policy: natural_key
`

// TestNewConfig_Defaults verifies the defaults the job relies on when nothing is configured.
func TestNewConfig_Defaults(t *testing.T) {
	cfg := coreconfig.NewConfig()

	assert.Equal(t, "UTC", cfg.Surfin.System.Timezone)
	assert.Equal(t, "INFO", cfg.Surfin.System.Logging.Level)
	assert.Equal(t, "datalakeJob", cfg.Surfin.Batch.JobName)
	assert.Equal(t, "song_data/*/*/*/*.json", cfg.Datalake.SongGlob)
	assert.Equal(t, "log_data/*/*/*.json", cfg.Datalake.LogGlob)
	assert.Equal(t, coreconfig.DedupFullTuple, cfg.Datalake.Dedup.Policy)
	assert.Equal(t, coreconfig.JoinFanout, cfg.Datalake.Join.Policy)
	assert.Equal(t, "snappy", cfg.Datalake.Compression)
	assert.Equal(t, "inmemory", cfg.Repository.Type)
	assert.Greater(t, cfg.EffectiveParallelism(), 0)
}

func TestLoadConfig_LayersEmbeddedFileAndEnv(t *testing.T) {
	t.Setenv("TEST_S3_ENDPOINT", "minio:9000")
	t.Setenv("DATALAKE_INPUT_ROOT", "raw")
	t.Setenv("SURFIN_ADAPTER_STORAGE_OUTPUT_SECRET_ACCESS_KEY", "s3cr3t")

	dir := t.TempDir()
	file := filepath.Join(dir, "override.yaml")
	require.NoError(t, os.WriteFile(file, []byte("datalake:\n  join:\n    policy: lowest_song_id\n  engine:\n    parallelism: 3\n"), 0o644))

	cfg, err := coreconfig.LoadConfig("", file, coreconfig.EmbeddedConfig(embeddedYAML))
	require.NoError(t, err)

	assert.Equal(t, "Asia/Tokyo", cfg.Surfin.System.Timezone)
	assert.Equal(t, "analytics", cfg.Datalake.OutputRoot)
	assert.Equal(t, "raw", cfg.Datalake.InputRoot)
	assert.Equal(t, coreconfig.DedupNaturalKey, cfg.Datalake.Dedup.Policy)
	assert.Equal(t, coreconfig.JoinLowestSongID, cfg.Datalake.Join.Policy)
	assert.Equal(t, 3, cfg.EffectiveParallelism())
	// Untouched defaults survive the merge.
	assert.Equal(t, "log_data/*/*/*.json", cfg.Datalake.LogGlob)

	output, ok := cfg.Surfin.Adapter.Storage["output"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "minio:9000", output["endpoint"])
	assert.Equal(t, "lake", output["bucket_name"])
	assert.Equal(t, "s3cr3t", output["secret_access_key"])

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverridesTimezone(t *testing.T) {
	t.Setenv("SURFIN_SYSTEM_TIMEZONE", "America/New_York")

	cfg, err := coreconfig.LoadConfig("", "", coreconfig.EmbeddedConfig(embeddedYAML))
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", cfg.Surfin.System.Timezone)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := coreconfig.LoadConfig("", "", coreconfig.EmbeddedConfig("surfin: [unterminated"))
	assert.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := coreconfig.NewConfig()
	cfg.Surfin.System.Timezone = "Mars/Olympus"
	cfg.Datalake.Dedup.Policy = "whatever"
	cfg.Datalake.Join.Policy = "random"
	cfg.Datalake.Engine.Parallelism = -1

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "Mars/Olympus")
	assert.Contains(t, msg, "datalake.dedup.policy")
	assert.Contains(t, msg, "datalake.join.policy")
	assert.Contains(t, msg, "parallelism")
	assert.Contains(t, msg, "storage connection 'input'")
}

func TestOverrides_Apply(t *testing.T) {
	cfg := coreconfig.NewConfig()
	coreconfig.Overrides{OutputRoot: "out", Timezone: "Europe/Paris"}.Apply(cfg)

	assert.Equal(t, "out", cfg.Datalake.OutputRoot)
	assert.Equal(t, "Europe/Paris", cfg.Surfin.System.Timezone)
	assert.Equal(t, "", cfg.Datalake.InputRoot)
	assert.Equal(t, "INFO", cfg.Surfin.System.Logging.Level)
}
