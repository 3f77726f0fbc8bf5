// Package config provides the configuration schema, loader, and provider
// registry for the live ASR and translation broadcasting service.
package config

import "time"

// LogLevel controls slog verbosity. Valid values: "debug", "info", "warn", "error".
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// Config is the root configuration structure for the service.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server       ServerConfig         `yaml:"server"`
	Decoder      DecoderConfig        `yaml:"decoder"`
	VAD          ProviderEntry        `yaml:"vad"`
	ASR          ProviderEntry        `yaml:"asr"`
	Translators  map[string]ProviderEntry `yaml:"translators"`
	Segmenter    SegmenterConfig      `yaml:"segmenter"`
	Aggregator   AggregatorConfig     `yaml:"aggregator"`
	Broadcast    BroadcastConfig      `yaml:"broadcast"`
	Storage      StorageConfig        `yaml:"storage"`
	Transcribe   TranscribeConfig     `yaml:"transcribe"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// DecoderConfig selects and tunes the audio decoder.
type DecoderConfig struct {
	// Mode selects the Decoder implementation. Valid values: "subprocess" (the
	// default, spec-faithful ffmpeg child process) or "opus" (in-process
	// gopus decode of length-prefixed raw Opus packets).
	Mode string `yaml:"mode"`

	// Command is the subprocess command line used when Mode is "subprocess".
	// Defaults to the ffmpeg invocation set in loader.go (WebM on stdin to
	// 16 kHz mono s16le PCM on stdout).
	Command []string `yaml:"command"`

	// StartupTimeout is parsed and defaulted (5s) but not read by the
	// decoder: Subprocess.Close waits for the child process to exit with no
	// deadline of its own.
	StartupTimeout time.Duration `yaml:"startup_timeout"`
}

// SegmenterConfig tunes the VAD-driven utterance segmenter.
type SegmenterConfig struct {
	// SilenceThresholdSeconds is parsed, defaulted and validated but not
	// passed to sessions: each session starts from
	// constants.DefaultSilenceThresholdSeconds, which a "config" control
	// message can override.
	SilenceThresholdSeconds float64 `yaml:"silence_threshold_seconds"`

	// MinAudioDurationSeconds is parsed and defaulted but not passed to
	// sessions: the segmenter always uses
	// constants.DefaultMinAudioDurationSeconds.
	MinAudioDurationSeconds float64 `yaml:"min_audio_duration_seconds"`

	// Aggressiveness selects the VAD engine's sensitivity (0-3, matching
	// classic frame-energy VAD conventions: 0 is most permissive, 3 is most
	// aggressive about classifying frames as silence).
	Aggressiveness int `yaml:"aggressiveness"`
}

// AggregatorConfig holds text aggregation/flush settings. Both fields are
// parsed and defaulted but not read by the aggregator, which uses
// constants.TranslationTimeoutSeconds and
// constants.MinLengthForTimeoutTranslation.
type AggregatorConfig struct {
	FlushTimeout       time.Duration `yaml:"flush_timeout"`
	MinLengthForTimeout int          `yaml:"min_length_for_timeout"`
}

// BroadcastConfig tunes the replay cache and viewer fan-out.
type BroadcastConfig struct {
	// CacheCapacity is the maximum number of cached messages replayed to a
	// newly connected viewer.
	CacheCapacity int `yaml:"cache_capacity"`
}

// StorageConfig locates the tuning-parameter persistence directory.
type StorageConfig struct {
	// UploadsDir is the directory holding "{streamId}.json" tuning files.
	UploadsDir string `yaml:"uploads_dir"`
}

// TranscribeConfig tunes preprocessing and the transcription worker pool.
type TranscribeConfig struct {
	// MaxConcurrent bounds the number of transcription calls in flight across
	// all sessions at once.
	MaxConcurrent int `yaml:"max_concurrent"`

	// BandPassFilter enables the Butterworth band-pass preprocessing step.
	BandPassFilter bool `yaml:"band_pass_filter"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "deepl", "whispercpp").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API.
	APIKey string `yaml:"api_key"`

	// APISecret is a second credential some providers require (e.g. Papago's
	// client secret alongside its client ID).
	APISecret string `yaml:"api_secret"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g. a whisper.cpp
	// model path, or an OpenAI chat model name).
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}
