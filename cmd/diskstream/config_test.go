package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	diskstream "github.com/tphakala/go-audio-diskstream"
)

// newFlagCmd returns a command carrying every flag loadConfig binds, parsed
// from args.
func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addStreamFlags(cmd.Flags())
	cmd.Flags().String("metrics-listen", "", "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diskstream.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newFlagCmd(t))
	require.NoError(t, err)

	assert.Equal(t, "balanced", cfg.Stream.Preset)
	assert.Zero(t, cfg.Stream.BlockFrames)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Empty(t, cfg.Metrics.Listen)

	sc, err := cfg.streamConfig()
	require.NoError(t, err)
	assert.Equal(t, diskstream.PresetBalanced, sc.Preset)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("DISKSTREAM_STREAM_PRESET", "safe")
	t.Setenv("DISKSTREAM_LOGGING_LEVEL", "DEBUG")
	t.Setenv("DISKSTREAM_METRICS_LISTEN", ":9999")

	cfg, err := loadConfig(newFlagCmd(t))
	require.NoError(t, err)

	assert.Equal(t, "safe", cfg.Stream.Preset)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, ":9999", cfg.Metrics.Listen)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfigFile(t, `
stream:
  preset: custom
  block_frames: 1024
  lookahead_blocks: 6
  max_jump_points: 3
logging:
  format: json
`)

	cfg, err := loadConfig(newFlagCmd(t, "--config", path))
	require.NoError(t, err)

	sc, err := cfg.streamConfig()
	require.NoError(t, err)
	assert.Equal(t, diskstream.PresetCustom, sc.Preset)
	assert.Equal(t, 1024, sc.BlockFrames)
	assert.Equal(t, 6, sc.LookaheadBlocks)
	assert.Equal(t, 3, sc.MaxJumpPoints)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfig_FlagsOverrideFileAndEnv(t *testing.T) {
	t.Setenv("DISKSTREAM_STREAM_LOOKAHEAD_BLOCKS", "12")
	path := writeConfigFile(t, "stream:\n  preset: low-latency\n  lookahead_blocks: 10\n")

	cfg, err := loadConfig(newFlagCmd(t, "--config", path, "--preset", "safe", "--metrics-listen", ":9090"))
	require.NoError(t, err)

	assert.Equal(t, "safe", cfg.Stream.Preset)
	assert.Equal(t, 12, cfg.Stream.LookaheadBlocks, "environment beats the file")
	assert.Equal(t, ":9090", cfg.Metrics.Listen)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(newFlagCmd(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
}

func TestStreamConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		stream StreamConfig
	}{
		{"Unknown_Preset", StreamConfig{Preset: "huge"}},
		{"Custom_Without_Geometry", StreamConfig{Preset: "custom"}},
		{"Block_Too_Small", StreamConfig{Preset: "custom", BlockFrames: 8, LookaheadBlocks: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Stream: tt.stream}
			_, err := cfg.streamConfig()
			assert.ErrorIs(t, err, diskstream.ErrInvalidConfig)
		})
	}
}
