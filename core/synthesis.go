package dialogue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/auraloop/aura-core/core/audio"
	"github.com/auraloop/aura-core/core/synthesis"
	"github.com/auraloop/aura-core/internal/resilience"
)

// DefaultSynthesisTimeout bounds one whole pass over the synthesis provider
// chain, local fallback included. Zero disables the deadline.
const DefaultSynthesisTimeout = 30 * time.Second

// speechSynthesis walks the ordered synthesis chain and, when every provider
// fails, falls back to the local synthesizer so the reply still makes a
// sound. Only when that also fails (or nothing is configured) does the turn
// proceed without audio; the caller annotates the transcript entry and keeps
// the text.
type speechSynthesis struct {
	chain *resilience.Chain[SpeechSynthesizer]
	// localFallback is offline synthesis of last resort, outside the chain so
	// a configuration with providers still reaches it on exhaustion.
	localFallback SpeechSynthesizer
	// voices maps a reply language to the provider voice that speaks it.
	voices  map[Language]string
	timeout time.Duration
}

func newSpeechSynthesis() *speechSynthesis {
	return &speechSynthesis{
		chain:   resilience.NewChain[SpeechSynthesizer](),
		voices:  map[Language]string{},
		timeout: DefaultSynthesisTimeout,
	}
}

func (s *speechSynthesis) register(name string, client SpeechSynthesizer) {
	if s == nil || client == nil {
		return
	}
	s.chain.Register(name, client)
}

func (s *speechSynthesis) setLocalFallback(client SpeechSynthesizer) {
	if s != nil {
		s.localFallback = client
	}
}

func (s *speechSynthesis) setVoice(language Language, voice string) {
	if s == nil || voice == "" {
		return
	}
	s.voices[language] = voice
}

func (s *speechSynthesis) isConfigured() bool {
	return s != nil && (s.chain.Len() > 0 || s.localFallback != nil)
}

// voiceFor picks the configured voice for a reply language. An empty result
// leaves the provider default in charge.
func (s *speechSynthesis) voiceFor(language Language) string {
	if s == nil {
		return ""
	}
	return s.voices[language]
}

// synthesize renders text as raw PCM in the requested encoding. The voice is
// chosen from the reply language once, before any provider is tried.
func (s *speechSynthesis) synthesize(ctx context.Context, text string, language Language, encodingInfo audio.EncodingInfo) ([]byte, error) {
	if !s.isConfigured() {
		return nil, fmt.Errorf("no synthesizer configured")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	synthesizeOptions := []synthesis.Option{
		synthesis.WithEncodingInfo(encodingInfo),
	}
	if voice := s.voiceFor(language); voice != "" {
		synthesizeOptions = append(synthesizeOptions, synthesis.WithVoice(voice))
	}

	pcm, provider, err := resilience.Execute(ctx, s.chain,
		func(ctx context.Context, client SpeechSynthesizer) ([]byte, error) {
			return client.Synthesize(ctx, text, synthesizeOptions...)
		})
	if err == nil {
		logger.Debug("speech synthesized", "provider", provider)
		return pcm, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	if s.localFallback == nil {
		return nil, err
	}

	logger.Warn("synthesis providers failed, using local fallback", "error", err)
	pcm, localErr := s.localFallback.Synthesize(ctx, text, synthesizeOptions...)
	if localErr != nil {
		return nil, errors.Join(err, localErr)
	}
	return pcm, nil
}

// synthesisEncoding picks what synthesis is asked to render: mono linear16 at
// the playback device rate when providers offer it, else a common rate the
// output path resamples from. Mono keeps provider output uniform; the output
// facade expands channels for stereo devices.
func synthesisEncoding(output audio.EncodingInfo) audio.EncodingInfo {
	sampleRate := output.SampleRate
	switch sampleRate {
	case 8000, 16000, 24000, 32000, 48000:
	default:
		sampleRate = 24000
	}

	return audio.EncodingInfo{
		SampleRate: sampleRate,
		Format:     audio.EncodingLinear16,
		Channels:   1,
	}
}
