package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Audio         AudioConfig         `yaml:"audio"`
	VAD           VADConfig           `yaml:"vad"`
	Dispatch      DispatchConfig      `yaml:"dispatch"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Diarization   DiarizationConfig   `yaml:"diarization"`
	Session       SessionConfig       `yaml:"session"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// AudioConfig contains audio stream parameters
type AudioConfig struct {
	SampleRate    int     `yaml:"sample_rate"`
	Channels      int     `yaml:"channels"`
	BitDepth      int     `yaml:"bit_depth"`
	PhraseTimeout float64 `yaml:"phrase_timeout"` // seconds of silence before a phrase completes
	MinDuration   float64 `yaml:"min_duration"`   // seconds of audio required before a transcription call
}

// VADConfig contains Voice Activity Detection configuration
type VADConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Aggressiveness  int     `yaml:"aggressiveness"`   // 0 (permissive) to 3 (aggressive)
	FrameDuration   int     `yaml:"frame_duration"`   // milliseconds per frame
	SilenceDuration float64 `yaml:"silence_duration"` // seconds of silence before a boundary fires
}

// DispatchConfig contains live transcription dispatch configuration
type DispatchConfig struct {
	LiveUpdateInterval float64 `yaml:"live_update_interval"` // seconds between live re-transcriptions
	PollInterval       float64 `yaml:"poll_interval"`        // seconds between queue polls
	QueueSize          int     `yaml:"queue_size"`           // ingest queue capacity in chunks
}

// TranscriptionConfig contains transcription API configuration
type TranscriptionConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Language      string `yaml:"language"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// DiarizationConfig contains diarization API configuration
type DiarizationConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Timeout     int    `yaml:"timeout"` // seconds
	MinSpeakers int    `yaml:"min_speakers"`
	MaxSpeakers int    `yaml:"max_speakers"`
}

// SessionConfig contains session lifecycle configuration
type SessionConfig struct {
	IdleTimeout  int    `yaml:"idle_timeout"` // seconds before an inactive session is reaped
	RecordingDir string `yaml:"recording_dir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Diarization.Validate(); err != nil {
		return fmt.Errorf("diarization config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.PhraseTimeout <= 0 {
		return fmt.Errorf("phrase_timeout must be positive, got %f", a.PhraseTimeout)
	}

	if a.MinDuration <= 0 {
		return fmt.Errorf("min_duration must be positive, got %f", a.MinDuration)
	}

	if a.MinDuration >= a.PhraseTimeout {
		return fmt.Errorf("min_duration (%f) must be less than phrase_timeout (%f)",
			a.MinDuration, a.PhraseTimeout)
	}

	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	if !v.Enabled {
		return nil
	}

	if v.Aggressiveness < 0 || v.Aggressiveness > 3 {
		return fmt.Errorf("aggressiveness must be between 0 and 3, got %d", v.Aggressiveness)
	}

	if v.FrameDuration != 10 && v.FrameDuration != 20 && v.FrameDuration != 30 {
		return fmt.Errorf("frame_duration must be 10, 20 or 30 ms, got %d", v.FrameDuration)
	}

	if v.SilenceDuration <= 0 {
		return fmt.Errorf("silence_duration must be positive, got %f", v.SilenceDuration)
	}

	return nil
}

// Validate validates dispatch configuration
func (d *DispatchConfig) Validate() error {
	if d.LiveUpdateInterval <= 0 {
		return fmt.Errorf("live_update_interval must be positive, got %f", d.LiveUpdateInterval)
	}

	if d.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %f", d.PollInterval)
	}

	if d.PollInterval > 1 {
		return fmt.Errorf("poll_interval must be at most 1 second, got %f", d.PollInterval)
	}

	if d.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", d.QueueSize)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates diarization configuration
func (d *DiarizationConfig) Validate() error {
	if d.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if d.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", d.Timeout)
	}

	if d.MinSpeakers < 1 {
		return fmt.Errorf("min_speakers must be at least 1, got %d", d.MinSpeakers)
	}

	if d.MaxSpeakers < d.MinSpeakers {
		return fmt.Errorf("max_speakers (%d) must be at least min_speakers (%d)",
			d.MaxSpeakers, d.MinSpeakers)
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.IdleTimeout < 1 {
		return fmt.Errorf("idle_timeout must be at least 1 second, got %d", s.IdleTimeout)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetPhraseTimeout returns the phrase timeout as a time.Duration
func (a *AudioConfig) GetPhraseTimeout() time.Duration {
	return time.Duration(a.PhraseTimeout * float64(time.Second))
}

// GetMinDuration returns the minimum dispatch duration as a time.Duration
func (a *AudioConfig) GetMinDuration() time.Duration {
	return time.Duration(a.MinDuration * float64(time.Second))
}

// GetFrameDuration returns the VAD frame duration as a time.Duration
func (v *VADConfig) GetFrameDuration() time.Duration {
	return time.Duration(v.FrameDuration) * time.Millisecond
}

// GetSilenceDuration returns the VAD silence duration as a time.Duration
func (v *VADConfig) GetSilenceDuration() time.Duration {
	return time.Duration(v.SilenceDuration * float64(time.Second))
}

// GetLiveUpdateInterval returns the live update interval as a time.Duration
func (d *DispatchConfig) GetLiveUpdateInterval() time.Duration {
	return time.Duration(d.LiveUpdateInterval * float64(time.Second))
}

// GetPollInterval returns the queue poll interval as a time.Duration
func (d *DispatchConfig) GetPollInterval() time.Duration {
	return time.Duration(d.PollInterval * float64(time.Second))
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the diarization timeout as a time.Duration
func (d *DiarizationConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(d.Timeout) * time.Second
}

// GetIdleTimeout returns the session idle timeout as a time.Duration
func (s *SessionConfig) GetIdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}
