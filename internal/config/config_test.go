package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("expected to write config file, got %v", err)
	}
	return path
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.Audio.Backend != BackendMiniaudio {
		t.Fatalf("expected miniaudio backend, got %q", cfg.Audio.Backend)
	}
	if cfg.Recognition.Language != "multi" {
		t.Fatalf("expected language \"multi\", got %q", cfg.Recognition.Language)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfigFile(t, `
recognition:
  language: en-US
generation:
  providers:
    - name: openai
      model: gpt-4o-mini
    - name: groq
  timeout: 5s
silence:
  duration: 2s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}

	if cfg.Recognition.Language != "en-US" {
		t.Fatalf("expected overridden language, got %q", cfg.Recognition.Language)
	}
	if cfg.Recognition.Model != "nova-3" {
		t.Fatalf("expected default model to survive, got %q", cfg.Recognition.Model)
	}
	if len(cfg.Generation.Providers) != 2 {
		t.Fatalf("expected provider list to be replaced, got %v", cfg.Generation.Providers)
	}
	if cfg.Generation.Providers[0].Name != ProviderOpenAI || cfg.Generation.Providers[0].Model != "gpt-4o-mini" {
		t.Fatalf("expected openai first, got %+v", cfg.Generation.Providers[0])
	}
	if got := cfg.Generation.TimeoutDuration(20 * time.Second); got != 5*time.Second {
		t.Fatalf("expected 5s generation timeout, got %v", got)
	}
	if got := cfg.Silence.DurationValue(3500 * time.Millisecond); got != 2*time.Second {
		t.Fatalf("expected 2s silence duration, got %v", got)
	}
	if got := cfg.Silence.PollIntervalDuration(150 * time.Millisecond); got != 150*time.Millisecond {
		t.Fatalf("expected default poll interval to survive, got %v", got)
	}
}

func TestLoadRejectsInvalidConfigs(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown backend", "audio:\n  backend: jack\n"},
		{"unknown provider", "generation:\n  providers:\n    - name: cerebras\n"},
		{"unnamed provider", "generation:\n  providers:\n    - model: gpt-4o\n"},
		{"bad timeout", "generation:\n  timeout: soon\n"},
		{"bad voice language", "synthesis:\n  voices:\n    fr: aura-2-thalia-en\n"},
		{"threshold out of range", "silence:\n  threshold: 1.5\n"},
		{"bad restart delay", "session:\n  restart_delay: 500\n"},
		{"smoothing out of range", "feedback:\n  smoothing: 2\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfigFile(t, tc.body)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected load to fail for %s", tc.name)
			}
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected load to fail for a missing file")
	}
}

func TestDurationAccessors(t *testing.T) {
	var generation GenerationConfig
	if got := generation.TimeoutDuration(20 * time.Second); got != 20*time.Second {
		t.Fatalf("expected default when unset, got %v", got)
	}

	generation.Timeout = "0"
	if got := generation.TimeoutDuration(20 * time.Second); got != 0 {
		t.Fatalf("expected explicit zero to disable the deadline, got %v", got)
	}

	session := SessionConfig{RestartDelay: "750ms"}
	if got := session.RestartDelayDuration(500 * time.Millisecond); got != 750*time.Millisecond {
		t.Fatalf("expected 750ms, got %v", got)
	}

	synthesis := SynthesisConfig{Timeout: "1m"}
	if got := synthesis.TimeoutDuration(30 * time.Second); got != time.Minute {
		t.Fatalf("expected 1m, got %v", got)
	}
}

func TestLocalFallbackDefaultsToEnabled(t *testing.T) {
	var synthesis SynthesisConfig
	if !synthesis.LocalFallbackEnabled() {
		t.Fatal("expected local fallback to default to enabled")
	}

	disabled := false
	synthesis.LocalFallback = &disabled
	if synthesis.LocalFallbackEnabled() {
		t.Fatal("expected explicit false to disable local fallback")
	}
}

func TestSchemaDescribesAllSections(t *testing.T) {
	schema := Schema()

	if schema.Version != "https://json-schema.org/draft-07/schema" {
		t.Fatalf("expected draft-07 schema, got %q", schema.Version)
	}
	for _, section := range []string{"audio", "recognition", "generation", "synthesis", "session", "silence", "feedback"} {
		if _, ok := schema.Properties.Get(section); !ok {
			t.Fatalf("expected schema to describe section %q", section)
		}
	}
}
