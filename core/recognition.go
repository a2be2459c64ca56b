package dialogue

import (
	"context"
	"fmt"

	"github.com/auraloop/aura-core/core/audio"
	"github.com/auraloop/aura-core/core/recognition"
)

// speechRecognition wraps the configured recognizer so session code never has
// to nil-check it. An unconfigured recognizer makes every call a no-op, which
// keeps injected-prompt-only sessions working.
type speechRecognition struct {
	// client stores the configured speech recognition implementation.
	client SpeechRecognizer
}

func newSpeechRecognition(client SpeechRecognizer) *speechRecognition {
	return &speechRecognition{client: client}
}

func (s *speechRecognition) set(client SpeechRecognizer) {
	if s != nil {
		s.client = client
	}
}

func (s *speechRecognition) isConfigured() bool {
	return s != nil && s.client != nil
}

// Listen opens one listening session. The session delivers interim
// transcripts, then exactly one final transcript, then stops on its own; the
// session loop reopens it for the next turn.
func (s *speechRecognition) Listen(
	ctx context.Context,
	encodingInfo audio.EncodingInfo,
	language string,
	onInterim func(transcript string),
	onFinal func(transcript string),
	onError func(err error),
) error {
	if !s.isConfigured() {
		return nil
	}

	listenOptions := []recognition.Option{
		recognition.WithInterimTranscriptCallback(onInterim),
		recognition.WithTranscriptCallback(onFinal),
		recognition.WithErrorCallback(onError),
		recognition.WithEncodingInfo(encodingInfo),
		recognition.WithLanguage(language),
	}

	if err := s.client.Listen(ctx, listenOptions...); err != nil {
		return fmt.Errorf("failed to start listening: %w", err)
	}

	return nil
}

func (s *speechRecognition) SendAudio(audio []byte) error {
	if !s.isConfigured() {
		return nil
	}

	return s.client.SendAudio(audio)
}

// Finalize asks the recognizer to flush the pending utterance as a final
// transcript. Recognizers without the capability rely on their own endpoint
// detection instead.
func (s *speechRecognition) Finalize() error {
	if !s.isConfigured() {
		return nil
	}

	if finalizer, ok := s.client.(interface{ Finalize() error }); ok {
		return finalizer.Finalize()
	}
	return nil
}

func (s *speechRecognition) Close(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	switch c := s.client.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close recognition client: %w", err)
		}
	case interface{ Close(context.Context) }:
		c.Close(ctx)
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close recognition client: %w", err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return nil
}
