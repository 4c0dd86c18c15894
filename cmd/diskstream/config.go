package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	diskstream "github.com/tphakala/go-audio-diskstream"
	"github.com/tphakala/go-audio-diskstream/internal/logger"
)

// envPrefix prefixes every environment override.
const envPrefix = "DISKSTREAM"

// Config is the command line configuration.
type Config struct {
	Stream  StreamConfig  `mapstructure:"stream"`
	Logging logger.Config `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StreamConfig mirrors diskstream.Config.
type StreamConfig struct {
	Preset          string `mapstructure:"preset"`
	BlockFrames     int    `mapstructure:"block_frames"`
	LookaheadBlocks int    `mapstructure:"lookahead_blocks"`
	MaxJumpPoints   int    `mapstructure:"max_jump_points"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address to serve /metrics on. Empty disables metrics.
	Listen string `mapstructure:"listen"`
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"preset":          "stream.preset",
	"block-frames":    "stream.block_frames",
	"lookahead":       "stream.lookahead_blocks",
	"max-jump-points": "stream.max_jump_points",
	"log-level":       "logging.level",
	"log-format":      "logging.format",
	"log-output":      "logging.output",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("stream.preset", diskstream.PresetBalanced.String())
	v.SetDefault("stream.block_frames", 0)
	v.SetDefault("stream.lookahead_blocks", 0)
	v.SetDefault("stream.max_jump_points", 0)
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("metrics.listen", "")
}

// addStreamFlags registers the flags shared by every subcommand.
func addStreamFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (YAML)")
	fs.String("preset", diskstream.PresetBalanced.String(), "buffering preset: low-latency, balanced, safe, custom")
	fs.Int("block-frames", 0, "block length in frames (0 = preset)")
	fs.Int("lookahead", 0, "prefetched blocks (0 = preset)")
	fs.Int("max-jump-points", 0, "seek cache limit (0 = default)")
	fs.String("log-level", "INFO", "log level: DEBUG, INFO, WARN, ERROR")
	fs.String("log-format", "text", "log format: text, json")
	fs.String("log-output", "stderr", "log output: stdout, stderr, or a file path")
}

// loadConfig resolves configuration with the precedence
// flags > environment > config file > defaults.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	flags := cmd.Flags()
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}
	if f := flags.Lookup("metrics-listen"); f != nil {
		if err := v.BindPFlag("metrics.listen", f); err != nil {
			return nil, fmt.Errorf("failed to bind flag metrics-listen: %w", err)
		}
	}

	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// streamConfig converts the CLI settings into a validated stream config.
func (c *Config) streamConfig() (*diskstream.Config, error) {
	preset, err := diskstream.ParsePreset(c.Stream.Preset)
	if err != nil {
		return nil, err
	}

	cfg := &diskstream.Config{
		Preset:          preset,
		BlockFrames:     c.Stream.BlockFrames,
		LookaheadBlocks: c.Stream.LookaheadBlocks,
		MaxJumpPoints:   c.Stream.MaxJumpPoints,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
