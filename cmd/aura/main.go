// Command aura runs the voice companion loop in a terminal: microphone in,
// spoken reply out, with a live orb and transcript between them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	dialogue "github.com/auraloop/aura-core/core"
	"github.com/auraloop/aura-core/core/audio/miniaudio"
	"github.com/auraloop/aura-core/core/audio/portaudio"
	"github.com/auraloop/aura-core/core/generation/groq"
	"github.com/auraloop/aura-core/core/generation/openai"
	recognizer "github.com/auraloop/aura-core/core/recognition/deepgram"
	synthesizer "github.com/auraloop/aura-core/core/synthesis/deepgram"
	"github.com/auraloop/aura-core/core/synthesis/local"
	"github.com/auraloop/aura-core/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	printSchema := flag.Bool("schema", false, "print the configuration JSON schema and exit")
	flag.Parse()

	if *printSchema {
		data, err := json.MarshalIndent(config.Schema(), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "aura: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aura: %v\n", err)
		return 1
	}

	opts, cleanup, err := buildOptions(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aura: %v\n", err)
		return 1
	}
	defer cleanup()

	orchestrator := dialogue.NewOrchestrator(opts...)
	defer orchestrator.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sessionErrors := make(chan error, 8)
	program := tea.NewProgram(newModel(orchestrator, sessionErrors), tea.WithAltScreen(), tea.WithContext(ctx))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := orchestrator.Run(groupCtx, dialogue.WithSessionErrorCallback(func(err error) {
			select {
			case sessionErrors <- err:
			default:
			}
		}))
		if err != nil {
			program.Quit()
		}
		return err
	})

	group.Go(func() error {
		// Quitting the UI ends the session; cancelling the context (signal
		// or session setup failure) ends the UI.
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return orchestrator.Close()
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "aura: %v\n", err)
		return 1
	}
	return 0
}

// buildOptions assembles the orchestrator configuration from the loaded
// file. The returned cleanup releases the audio backend.
func buildOptions(cfg *config.Config) ([]dialogue.OrchestratorOption, func(), error) {
	var opts []dialogue.OrchestratorOption
	var cleanup func()

	switch cfg.Audio.Backend {
	case config.BackendPortAudio:
		client, err := portaudio.NewClient(cfg.Audio.BufferSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open portaudio: %w", err)
		}
		cleanup = client.Close
		opts = append(opts,
			dialogue.WithAudioInput(client),
			dialogue.WithAudioOutputV0(client),
		)
	default:
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open miniaudio: %w", err)
		}
		cleanup = client.Close
		opts = append(opts,
			dialogue.WithAudioInput(client.Capture()),
			dialogue.WithAudioOutputV1(client.Playback()),
		)
	}

	var recognitionOpts []recognizer.ClientOption
	if cfg.Recognition.Model != "" {
		recognitionOpts = append(recognitionOpts, recognizer.WithModel(cfg.Recognition.Model))
	}
	if cfg.Recognition.APIKey != "" {
		recognitionOpts = append(recognitionOpts, recognizer.WithAPIKey(cfg.Recognition.APIKey))
	}
	opts = append(opts, dialogue.WithSpeechRecognizer(recognizer.NewTranscriptionClient(recognitionOpts...)))
	if cfg.Recognition.Language != "" {
		opts = append(opts, dialogue.WithRecognitionLanguage(cfg.Recognition.Language))
	}

	for _, provider := range cfg.Generation.Providers {
		opts = append(opts, dialogue.WithReplyGenerator(provider.Name, newGenerator(provider)))
	}
	if cfg.Generation.Instructions != "" {
		opts = append(opts, dialogue.WithInstructions(cfg.Generation.Instructions))
	}
	if cfg.Generation.MaxReplyTokens > 0 {
		opts = append(opts, dialogue.WithMaxReplyTokens(cfg.Generation.MaxReplyTokens))
	}
	opts = append(opts, dialogue.WithGenerationTimeout(cfg.Generation.TimeoutDuration(dialogue.DefaultGenerationTimeout)))

	var synthesisOpts []synthesizer.ClientOption
	if cfg.Synthesis.APIKey != "" {
		synthesisOpts = append(synthesisOpts, synthesizer.WithAPIKey(cfg.Synthesis.APIKey))
	}
	opts = append(opts, dialogue.WithSpeechSynthesizer("deepgram", synthesizer.NewSpeechClient(synthesisOpts...)))
	if cfg.Synthesis.LocalFallbackEnabled() {
		opts = append(opts, dialogue.WithLocalSynthesisFallback(local.NewSynthesizer()))
	}
	for code, voice := range cfg.Synthesis.Voices {
		opts = append(opts, dialogue.WithVoice(dialogue.Language(code), voice))
	}
	opts = append(opts, dialogue.WithSynthesisTimeout(cfg.Synthesis.TimeoutDuration(dialogue.DefaultSynthesisTimeout)))

	opts = append(opts,
		dialogue.WithRestartDelay(cfg.Session.RestartDelayDuration(dialogue.DefaultRestartDelay)),
		dialogue.WithSilenceOptions(
			dialogue.WithSilenceThreshold(cfg.Silence.Threshold),
			dialogue.WithSilenceDuration(cfg.Silence.DurationValue(dialogue.DefaultSilenceDuration)),
			dialogue.WithSilencePollInterval(cfg.Silence.PollIntervalDuration(dialogue.DefaultSilencePollInterval)),
		),
	)

	var feedbackOpts []dialogue.FeedbackOption
	if cfg.Feedback.Smoothing > 0 {
		feedbackOpts = append(feedbackOpts, dialogue.WithFeedbackSmoothing(cfg.Feedback.Smoothing))
	}
	if cfg.Feedback.BrightnessGain > 0 {
		feedbackOpts = append(feedbackOpts, dialogue.WithBrightnessGain(cfg.Feedback.BrightnessGain))
	}
	if cfg.Feedback.BloomGain > 0 {
		feedbackOpts = append(feedbackOpts, dialogue.WithBloomGain(cfg.Feedback.BloomGain))
	}
	if cfg.Feedback.ScaleGain > 0 {
		feedbackOpts = append(feedbackOpts, dialogue.WithScaleGain(cfg.Feedback.ScaleGain))
	}
	if len(feedbackOpts) > 0 {
		opts = append(opts, dialogue.WithFeedbackOptions(feedbackOpts...))
	}

	return opts, cleanup, nil
}

// newGenerator builds the reply client for one provider entry. Unknown names
// are rejected by config validation before this runs.
func newGenerator(provider config.ProviderConfig) dialogue.ReplyGenerator {
	switch provider.Name {
	case config.ProviderOpenAI:
		var clientOpts []openai.ClientOption
		if provider.Model != "" {
			clientOpts = append(clientOpts, openai.WithModel(provider.Model))
		}
		if provider.APIKey != "" {
			clientOpts = append(clientOpts, openai.WithAPIKey(provider.APIKey))
		}
		return openai.NewClient(clientOpts...)
	default:
		var clientOpts []groq.ClientOption
		if provider.Model != "" {
			clientOpts = append(clientOpts, groq.WithModel(provider.Model))
		}
		if provider.APIKey != "" {
			clientOpts = append(clientOpts, groq.WithAPIKey(provider.APIKey))
		}
		return groq.NewClient(clientOpts...)
	}
}
