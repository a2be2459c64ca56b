// Package config loads and validates the YAML session configuration used by
// the aura command. Fields mirror the dialogue package's functional options;
// an empty field always means "use the built-in default", so a zero-value
// Config is valid and an empty file is a complete configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Config is the root of the session configuration file.
type Config struct {
	Audio       AudioConfig       `yaml:"audio,omitempty" json:"audio,omitempty"`
	Recognition RecognitionConfig `yaml:"recognition,omitempty" json:"recognition,omitempty"`
	Generation  GenerationConfig  `yaml:"generation,omitempty" json:"generation,omitempty"`
	Synthesis   SynthesisConfig   `yaml:"synthesis,omitempty" json:"synthesis,omitempty"`
	Session     SessionConfig     `yaml:"session,omitempty" json:"session,omitempty"`
	Silence     SilenceConfig     `yaml:"silence,omitempty" json:"silence,omitempty"`
	Feedback    FeedbackConfig    `yaml:"feedback,omitempty" json:"feedback,omitempty"`
}

// AudioConfig selects the capture/playback backend.
type AudioConfig struct {
	// Backend is "miniaudio" (default, split capture and playback devices)
	// or "portaudio" (single duplex stream, for hosts where miniaudio
	// misbehaves).
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty"`
	// BufferSize is the per-read frame count for the portaudio backend.
	BufferSize int `yaml:"buffer_size,omitempty" json:"buffer_size,omitempty"`
}

// RecognitionConfig tunes the speech-to-text session.
type RecognitionConfig struct {
	// Model is the Deepgram listen model, e.g. "nova-3".
	Model string `yaml:"model,omitempty" json:"model,omitempty"`
	// Language is the transcription language hint, e.g. "en-US" or "multi".
	Language string `yaml:"language,omitempty" json:"language,omitempty"`
	// APIKey overrides the DEEPGRAM_API_KEY environment variable.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

// ProviderConfig names one reply provider. Order in the providers list is
// fallback order: the first entry is tried first on every turn.
type ProviderConfig struct {
	// Name is "groq" or "openai".
	Name string `yaml:"name" json:"name"`
	// Model overrides the provider's default model.
	Model string `yaml:"model,omitempty" json:"model,omitempty"`
	// APIKey overrides the provider's API key environment variable.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

// GenerationConfig tunes reply generation.
type GenerationConfig struct {
	Providers []ProviderConfig `yaml:"providers,omitempty" json:"providers,omitempty"`
	// Instructions is the persona prepended to every prompt.
	Instructions string `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	// MaxReplyTokens caps the reply length so it stays speakable.
	MaxReplyTokens int `yaml:"max_reply_tokens,omitempty" json:"max_reply_tokens,omitempty"`
	// Timeout bounds one pass over all providers, e.g. "20s". "0" disables
	// the deadline.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// SynthesisConfig tunes text-to-speech.
type SynthesisConfig struct {
	// Voices maps a reply language code ("en", "zh") to a voice model.
	Voices map[string]string `yaml:"voices,omitempty" json:"voices,omitempty"`
	// LocalFallback enables the offline beep synthesizer when the provider
	// fails.
	LocalFallback *bool `yaml:"local_fallback,omitempty" json:"local_fallback,omitempty"`
	// Timeout bounds one synthesis call, e.g. "30s". "0" disables the
	// deadline.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// APIKey overrides the DEEPGRAM_API_KEY environment variable.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

// SessionConfig tunes the turn cycle.
type SessionConfig struct {
	// RestartDelay is the pause between a turn ending and listening
	// reopening, e.g. "500ms".
	RestartDelay string `yaml:"restart_delay,omitempty" json:"restart_delay,omitempty"`
}

// SilenceConfig tunes end-of-speech detection.
type SilenceConfig struct {
	// Threshold is the intensity in (0, 1] above which a poll counts as
	// speech.
	Threshold float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	// Duration is how long the user must stay quiet after speaking before
	// the turn ends, e.g. "3.5s".
	Duration string `yaml:"duration,omitempty" json:"duration,omitempty"`
	// PollInterval is how often intensity is sampled, e.g. "150ms".
	PollInterval string `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty"`
}

// FeedbackConfig tunes the visual feedback mapper.
type FeedbackConfig struct {
	// Smoothing is the per-tick interpolation factor in (0, 1].
	Smoothing float64 `yaml:"smoothing,omitempty" json:"smoothing,omitempty"`
	// BrightnessGain scales how much intensity lifts brightness.
	BrightnessGain float64 `yaml:"brightness_gain,omitempty" json:"brightness_gain,omitempty"`
	// BloomGain scales how much intensity widens the bloom.
	BloomGain float64 `yaml:"bloom_gain,omitempty" json:"bloom_gain,omitempty"`
	// ScaleGain scales how much intensity grows the orb.
	ScaleGain float64 `yaml:"scale_gain,omitempty" json:"scale_gain,omitempty"`
}

// Audio backend names accepted by AudioConfig.Backend.
const (
	BackendMiniaudio = "miniaudio"
	BackendPortAudio = "portaudio"
)

// Reply provider names accepted by ProviderConfig.Name.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
)

// Default returns a configuration populated with the same values the
// dialogue package would fall back to, suitable for writing out as a
// starting-point file.
func Default() *Config {
	localFallback := true
	return &Config{
		Audio: AudioConfig{
			Backend: BackendMiniaudio,
		},
		Recognition: RecognitionConfig{
			Model:    "nova-3",
			Language: "multi",
		},
		Generation: GenerationConfig{
			Providers: []ProviderConfig{{Name: ProviderGroq}},
			Timeout:   "20s",
		},
		Synthesis: SynthesisConfig{
			Voices: map[string]string{
				"en": "aura-2-thalia-en",
				"zh": "aura-2-luna-zh",
			},
			LocalFallback: &localFallback,
			Timeout:       "30s",
		},
		Session: SessionConfig{
			RestartDelay: "500ms",
		},
		Silence: SilenceConfig{
			Threshold:    0.08,
			Duration:     "3.5s",
			PollInterval: "150ms",
		},
		Feedback: FeedbackConfig{
			Smoothing:      0.15,
			BrightnessGain: 0.8,
			BloomGain:      1.2,
			ScaleGain:      0.25,
		},
	}
}

// Load reads and validates a configuration file. A missing path is not an
// error for the caller to special-case; pass "" to get the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field formats and ranges. It does not verify that API keys
// are present; providers report that themselves at connect time.
func (c *Config) Validate() error {
	switch c.Audio.Backend {
	case "", BackendMiniaudio, BackendPortAudio:
	default:
		return fmt.Errorf("unknown audio backend %q", c.Audio.Backend)
	}
	if c.Audio.BufferSize < 0 {
		return fmt.Errorf("audio buffer_size must not be negative, got %d", c.Audio.BufferSize)
	}

	for i, provider := range c.Generation.Providers {
		switch provider.Name {
		case ProviderGroq, ProviderOpenAI:
		case "":
			return fmt.Errorf("generation provider %d is missing a name", i)
		default:
			return fmt.Errorf("unknown generation provider %q", provider.Name)
		}
	}
	if c.Generation.MaxReplyTokens < 0 {
		return fmt.Errorf("generation max_reply_tokens must not be negative, got %d", c.Generation.MaxReplyTokens)
	}
	if err := validateDuration("generation timeout", c.Generation.Timeout); err != nil {
		return err
	}

	for code := range c.Synthesis.Voices {
		if code != "en" && code != "zh" {
			return fmt.Errorf("unknown voice language %q, expected \"en\" or \"zh\"", code)
		}
	}
	if err := validateDuration("synthesis timeout", c.Synthesis.Timeout); err != nil {
		return err
	}

	if err := validateDuration("session restart_delay", c.Session.RestartDelay); err != nil {
		return err
	}

	if c.Silence.Threshold < 0 || c.Silence.Threshold > 1 {
		return fmt.Errorf("silence threshold must be in [0, 1], got %g", c.Silence.Threshold)
	}
	if err := validateDuration("silence duration", c.Silence.Duration); err != nil {
		return err
	}
	if err := validateDuration("silence poll_interval", c.Silence.PollInterval); err != nil {
		return err
	}

	if c.Feedback.Smoothing < 0 || c.Feedback.Smoothing > 1 {
		return fmt.Errorf("feedback smoothing must be in [0, 1], got %g", c.Feedback.Smoothing)
	}

	return nil
}

func validateDuration(field, raw string) error {
	if raw == "" {
		return nil
	}
	if _, err := time.ParseDuration(raw); err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return nil
}

// TimeoutDuration returns the generation timeout, or def when unset. An
// explicit "0" is returned as zero, which disables the deadline.
func (g GenerationConfig) TimeoutDuration(def time.Duration) time.Duration {
	return durationOr(g.Timeout, def)
}

// TimeoutDuration returns the synthesis timeout, or def when unset.
func (s SynthesisConfig) TimeoutDuration(def time.Duration) time.Duration {
	return durationOr(s.Timeout, def)
}

// LocalFallbackEnabled reports whether the offline synthesizer should back
// the provider. Defaults to true when the field is absent.
func (s SynthesisConfig) LocalFallbackEnabled() bool {
	return s.LocalFallback == nil || *s.LocalFallback
}

// RestartDelayDuration returns the restart delay, or def when unset.
func (s SessionConfig) RestartDelayDuration(def time.Duration) time.Duration {
	return durationOr(s.RestartDelay, def)
}

// DurationValue returns the silence duration, or def when unset.
func (s SilenceConfig) DurationValue(def time.Duration) time.Duration {
	return durationOr(s.Duration, def)
}

// PollIntervalDuration returns the poll interval, or def when unset.
func (s SilenceConfig) PollIntervalDuration(def time.Duration) time.Duration {
	return durationOr(s.PollInterval, def)
}

func durationOr(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

// Schema returns the JSON schema for the configuration file, for editor
// completion and CI validation of checked-in configs.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		ExpandedStruct:             true,
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: false,
	}

	schema := reflector.Reflect(&Config{})

	schema.Version = "https://json-schema.org/draft-07/schema"
	schema.ID = jsonschema.ID("https://auraloop.dev/schemas/aura-config.json")
	schema.Title = "Aura session configuration"
	schema.Description = "Configuration file for the aura voice companion"

	return schema
}
