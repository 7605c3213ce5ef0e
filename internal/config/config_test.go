package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"AISEN_CONFIG", "AISEN_SINK", "AISEN_VERBOSE", "AISEN_ASYNC_QUEUE_SIZE",
	"AISEN_METRICS", "AISEN_MIN_SEVERITY", "AISEN_LOG_LEVEL", "AISEN_LOG_JSON",
	"AISEN_LOG_CLASS_PREFIX", "AISEN_SCRUB",
	"AISEN_MAX_MESSAGE_SIZE",
}

// clearEnv unsets every AISEN_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aisen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, SinkStderr, cfg.Sink.Kind)
	assert.Equal(t, "UnityLog", cfg.Capture.LogClassPrefix)
	assert.True(t, cfg.Scrub.Enabled)
	assert.Equal(t, 4096, cfg.Scrub.MaxMessageSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AISEN_SINK", "jsonl")
	t.Setenv("AISEN_VERBOSE", "true")
	t.Setenv("AISEN_ASYNC_QUEUE_SIZE", "64")
	t.Setenv("AISEN_MIN_SEVERITY", "error")
	t.Setenv("AISEN_LOG_CLASS_PREFIX", "GoLog")
	t.Setenv("AISEN_SCRUB", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SinkJSONL, cfg.Sink.Kind)
	assert.True(t, cfg.Sink.Verbose)
	assert.Equal(t, 64, cfg.Sink.AsyncQueueSize)
	assert.Equal(t, "error", cfg.Sink.MinSeverity)
	assert.Equal(t, "GoLog", cfg.Capture.LogClassPrefix)
	assert.False(t, cfg.Scrub.Enabled)
}

func TestLoad_InvalidEnvValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("AISEN_VERBOSE", "sometimes")
	t.Setenv("AISEN_MAX_MESSAGE_SIZE", "lots")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Sink.Verbose)
	assert.Equal(t, 4096, cfg.Scrub.MaxMessageSize)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("AISEN_CONFIG", writeConfig(t, `
sink:
  kind: noop
  metrics: true
log:
  level: debug
  json: true
capture:
  log_class_prefix: GoLog
`))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SinkNoop, cfg.Sink.Kind)
	assert.True(t, cfg.Sink.Metrics)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "GoLog", cfg.Capture.LogClassPrefix)
	assert.True(t, cfg.Scrub.Enabled, "unset keys keep their defaults")
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("AISEN_CONFIG", writeConfig(t, "sink:\n  kind: noop\n"))
	t.Setenv("AISEN_SINK", "stderr")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SinkStderr, cfg.Sink.Kind)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "unknown sink", env: map[string]string{"AISEN_SINK": "kafka"}},
		{name: "unknown severity", env: map[string]string{"AISEN_MIN_SEVERITY": "fatal"}},
		{name: "negative queue", env: map[string]string{"AISEN_ASYNC_QUEUE_SIZE": "-1"}},
		{name: "bad yaml", file: "sink: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				t.Setenv("AISEN_CONFIG", writeConfig(t, tt.file))
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("AISEN_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
