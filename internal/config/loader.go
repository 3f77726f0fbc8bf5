package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Unrecognised keys are a hard error.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-value fields with the service's documented
// defaults, mirroring the constants in original_source/config.py.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}

	if cfg.Decoder.Mode == "" {
		cfg.Decoder.Mode = "subprocess"
	}
	if len(cfg.Decoder.Command) == 0 {
		cfg.Decoder.Command = []string{"ffmpeg", "-f", "webm", "-i", "-", "-f", "s16le", "-ac", "1", "-ar", "16000", "-"}
	}
	if cfg.Decoder.StartupTimeout == 0 {
		cfg.Decoder.StartupTimeout = 5 * time.Second
	}

	if cfg.Segmenter.SilenceThresholdSeconds == 0 {
		cfg.Segmenter.SilenceThresholdSeconds = 0.8
	}
	if cfg.Segmenter.MinAudioDurationSeconds == 0 {
		cfg.Segmenter.MinAudioDurationSeconds = 1.2
	}
	if cfg.Segmenter.Aggressiveness == 0 {
		cfg.Segmenter.Aggressiveness = 3
	}

	if cfg.Aggregator.FlushTimeout == 0 {
		cfg.Aggregator.FlushTimeout = 1500 * time.Millisecond
	}
	if cfg.Aggregator.MinLengthForTimeout == 0 {
		cfg.Aggregator.MinLengthForTimeout = 5
	}

	if cfg.Broadcast.CacheCapacity == 0 {
		cfg.Broadcast.CacheCapacity = 8
	}

	if cfg.Storage.UploadsDir == "" {
		cfg.Storage.UploadsDir = "uploads"
	}

	if cfg.Transcribe.MaxConcurrent == 0 {
		cfg.Transcribe.MaxConcurrent = 4
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing every validation failure found.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Server.LogLevel {
	case LogDebug, LogInfo, LogWarn, LogError:
	default:
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	switch cfg.Decoder.Mode {
	case "subprocess", "opus":
	default:
		errs = append(errs, fmt.Errorf("decoder.mode %q is invalid; valid values: subprocess, opus", cfg.Decoder.Mode))
	}
	if cfg.Decoder.Mode == "subprocess" && len(cfg.Decoder.Command) == 0 {
		errs = append(errs, errors.New("decoder.command must not be empty when decoder.mode is subprocess"))
	}

	if cfg.Segmenter.SilenceThresholdSeconds <= 0 {
		errs = append(errs, errors.New("segmenter.silence_threshold_seconds must be positive"))
	}
	if cfg.Segmenter.Aggressiveness < 0 || cfg.Segmenter.Aggressiveness > 3 {
		errs = append(errs, fmt.Errorf("segmenter.aggressiveness %d is out of range [0,3]", cfg.Segmenter.Aggressiveness))
	}

	for name, entry := range cfg.Translators {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("translators[%s].name is required", name))
		}
	}

	if cfg.Transcribe.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("transcribe.max_concurrent must be positive"))
	}

	return errors.Join(errs...)
}
