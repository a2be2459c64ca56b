package dialogue

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/auraloop/aura-core/core/audio"
	"github.com/auraloop/aura-core/core/synthesis"
)

type synthesizerStub struct {
	synthesize func(ctx context.Context, text string, opts ...synthesis.Option) ([]byte, error)
}

func (stub synthesizerStub) Synthesize(ctx context.Context, text string, opts ...synthesis.Option) ([]byte, error) {
	return stub.synthesize(ctx, text, opts...)
}

func fixedSynthesizer(pcm []byte) synthesizerStub {
	return synthesizerStub{synthesize: func(context.Context, string, ...synthesis.Option) ([]byte, error) {
		return pcm, nil
	}}
}

func failingSynthesizer(err error) synthesizerStub {
	return synthesizerStub{synthesize: func(context.Context, string, ...synthesis.Option) ([]byte, error) {
		return nil, err
	}}
}

func monoEncoding(sampleRate int) audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: sampleRate, Format: audio.EncodingLinear16, Channels: 1}
}

func TestSynthesizeWithoutClientsFails(t *testing.T) {
	s := newSpeechSynthesis()

	if _, err := s.synthesize(context.Background(), "hello", LanguageEnglish, monoEncoding(24000)); err == nil {
		t.Fatalf("expected an error without synthesizers")
	}
}

func TestSynthesizeUsesTheProviderChain(t *testing.T) {
	expected := []byte{0x01, 0x02, 0x03, 0x04}

	s := newSpeechSynthesis()
	s.register("primary", failingSynthesizer(errors.New("unreachable")))
	s.register("secondary", fixedSynthesizer(expected))

	pcm, err := s.synthesize(context.Background(), "hello", LanguageEnglish, monoEncoding(24000))
	if err != nil {
		t.Fatalf("expected the fallback provider to answer, got %v", err)
	}
	if !bytes.Equal(pcm, expected) {
		t.Fatalf("expected the fallback audio, got %v", pcm)
	}
}

func TestSynthesizeFallsBackToLocalOnExhaustion(t *testing.T) {
	localCalls := atomic.Int32{}
	expected := []byte{0x0a, 0x0b}

	s := newSpeechSynthesis()
	s.register("primary", failingSynthesizer(errors.New("unreachable")))
	s.setLocalFallback(synthesizerStub{synthesize: func(context.Context, string, ...synthesis.Option) ([]byte, error) {
		localCalls.Add(1)
		return expected, nil
	}})

	pcm, err := s.synthesize(context.Background(), "hello", LanguageEnglish, monoEncoding(24000))
	if err != nil {
		t.Fatalf("expected the local fallback to answer, got %v", err)
	}
	if !bytes.Equal(pcm, expected) {
		t.Fatalf("expected the local audio, got %v", pcm)
	}
	if got := localCalls.Load(); got != 1 {
		t.Fatalf("expected one local synthesis call, got %d", got)
	}
}

func TestSynthesizeLocalFallbackWorksWithoutProviders(t *testing.T) {
	s := newSpeechSynthesis()
	s.setLocalFallback(fixedSynthesizer([]byte{0x01}))

	if _, err := s.synthesize(context.Background(), "hello", LanguageEnglish, monoEncoding(24000)); err != nil {
		t.Fatalf("expected the local fallback alone to work, got %v", err)
	}
}

func TestSynthesizeJoinsErrorsWhenEverythingFails(t *testing.T) {
	providerErr := errors.New("provider down")
	localErr := errors.New("local down")

	s := newSpeechSynthesis()
	s.register("primary", failingSynthesizer(providerErr))
	s.setLocalFallback(failingSynthesizer(localErr))

	_, err := s.synthesize(context.Background(), "hello", LanguageEnglish, monoEncoding(24000))
	if !errors.Is(err, providerErr) || !errors.Is(err, localErr) {
		t.Fatalf("expected both failures in the error, got %v", err)
	}
}

func TestSynthesizeSelectsTheVoiceForTheReplyLanguage(t *testing.T) {
	voices := make(chan string, 2)
	capturing := synthesizerStub{synthesize: func(_ context.Context, _ string, opts ...synthesis.Option) ([]byte, error) {
		options := synthesis.Options{}
		for _, opt := range opts {
			opt(&options)
		}
		voices <- options.Voice
		return []byte{0x01}, nil
	}}

	s := newSpeechSynthesis()
	s.register("capturing", capturing)
	s.setVoice(LanguageEnglish, "aura-2-thalia-en")
	s.setVoice(LanguageChinese, "aura-2-luna-zh")

	if _, err := s.synthesize(context.Background(), "hello", LanguageEnglish, monoEncoding(24000)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := s.synthesize(context.Background(), "你好", LanguageChinese, monoEncoding(24000)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if voice := <-voices; voice != "aura-2-thalia-en" {
		t.Fatalf("expected the English voice, got %q", voice)
	}
	if voice := <-voices; voice != "aura-2-luna-zh" {
		t.Fatalf("expected the Chinese voice, got %q", voice)
	}
}

func TestSynthesizeLeavesTheVoiceEmptyWithoutABinding(t *testing.T) {
	voices := make(chan string, 1)
	capturing := synthesizerStub{synthesize: func(_ context.Context, _ string, opts ...synthesis.Option) ([]byte, error) {
		options := synthesis.Options{}
		for _, opt := range opts {
			opt(&options)
		}
		voices <- options.Voice
		return []byte{0x01}, nil
	}}

	s := newSpeechSynthesis()
	s.register("capturing", capturing)

	if _, err := s.synthesize(context.Background(), "hello", LanguageEnglish, monoEncoding(24000)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if voice := <-voices; voice != "" {
		t.Fatalf("expected the provider default voice, got %q", voice)
	}
}

func TestSynthesisEncodingMatchesSupportedDeviceRates(t *testing.T) {
	encoding := synthesisEncoding(audio.EncodingInfo{SampleRate: 48000, Format: audio.EncodingLinear16, Channels: 2})

	if encoding.SampleRate != 48000 {
		t.Fatalf("expected the device rate to be requested directly, got %d", encoding.SampleRate)
	}
	if encoding.ChannelCount() != 1 {
		t.Fatalf("expected mono synthesis, got %d channels", encoding.ChannelCount())
	}
}

func TestSynthesisEncodingFallsBackToACommonRate(t *testing.T) {
	encoding := synthesisEncoding(audio.EncodingInfo{SampleRate: 44100, Format: audio.EncodingLinear16, Channels: 2})

	if encoding.SampleRate != 24000 {
		t.Fatalf("expected an unsupported device rate to fall back to 24000, got %d", encoding.SampleRate)
	}
}
