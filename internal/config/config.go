package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Sink kinds understood by the CLI.
const (
	SinkStderr = "stderr"
	SinkJSONL  = "jsonl"
	SinkNoop   = "noop"
)

// Config holds all aisen CLI configuration.
type Config struct {
	Sink    SinkConfig    `yaml:"sink"`
	Log     LogConfig     `yaml:"log"`
	Capture CaptureConfig `yaml:"capture"`
	Scrub   ScrubConfig   `yaml:"scrub"`
}

// SinkConfig selects where events go.
type SinkConfig struct {
	Kind    string `yaml:"kind"` // "stderr", "jsonl" or "noop"
	Verbose bool   `yaml:"verbose"`

	// AsyncQueueSize wraps the sink in an async queue when positive.
	AsyncQueueSize int `yaml:"async_queue_size"`

	// Metrics counts events in a prometheus registry and prints them on exit.
	Metrics bool `yaml:"metrics"`

	// MinSeverity routes only events at or above this severity.
	MinSeverity string `yaml:"min_severity"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CaptureConfig holds log exception building settings.
type CaptureConfig struct {
	LogClassPrefix string `yaml:"log_class_prefix"`
}

// ScrubConfig holds redaction settings.
type ScrubConfig struct {
	Enabled        bool `yaml:"enabled"`
	MaxMessageSize int  `yaml:"max_message_size"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Sink: SinkConfig{
			Kind: SinkStderr,
		},
		Log: LogConfig{
			Level: "info",
		},
		Capture: CaptureConfig{
			LogClassPrefix: "UnityLog",
		},
		Scrub: ScrubConfig{
			Enabled:        true,
			MaxMessageSize: 4096,
		},
	}
}

// Load reads the YAML file named by AISEN_CONFIG, if any, over the defaults
// and then applies AISEN_* environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("AISEN_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Sink.Kind = getenv("AISEN_SINK", cfg.Sink.Kind)
	cfg.Sink.Verbose = getenvBool("AISEN_VERBOSE", cfg.Sink.Verbose)
	cfg.Sink.AsyncQueueSize = getenvInt("AISEN_ASYNC_QUEUE_SIZE", cfg.Sink.AsyncQueueSize)
	cfg.Sink.Metrics = getenvBool("AISEN_METRICS", cfg.Sink.Metrics)
	cfg.Sink.MinSeverity = getenv("AISEN_MIN_SEVERITY", cfg.Sink.MinSeverity)
	cfg.Log.Level = getenv("AISEN_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.JSON = getenvBool("AISEN_LOG_JSON", cfg.Log.JSON)
	cfg.Capture.LogClassPrefix = getenv("AISEN_LOG_CLASS_PREFIX", cfg.Capture.LogClassPrefix)
	cfg.Scrub.Enabled = getenvBool("AISEN_SCRUB", cfg.Scrub.Enabled)
	cfg.Scrub.MaxMessageSize = getenvInt("AISEN_MAX_MESSAGE_SIZE", cfg.Scrub.MaxMessageSize)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the CLI cannot act on.
func (c Config) Validate() error {
	switch c.Sink.Kind {
	case SinkStderr, SinkJSONL, SinkNoop:
	default:
		return fmt.Errorf("unknown sink %q", c.Sink.Kind)
	}
	switch c.Sink.MinSeverity {
	case "", "warning", "error", "crash":
	default:
		return fmt.Errorf("unknown min severity %q", c.Sink.MinSeverity)
	}
	if c.Sink.AsyncQueueSize < 0 {
		return fmt.Errorf("async queue size must not be negative, got %d", c.Sink.AsyncQueueSize)
	}
	if c.Scrub.MaxMessageSize < 0 {
		return fmt.Errorf("max message size must not be negative, got %d", c.Scrub.MaxMessageSize)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
