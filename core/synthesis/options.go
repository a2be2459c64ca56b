package synthesis

import "github.com/auraloop/aura-core/core/audio"

// Options configure a single synthesis request. Synthesizers are stateless
// between requests; everything they need to render one utterance is passed
// per call.
type Options struct {
	// Voice is a provider-specific voice identifier. Empty selects the
	// provider's default voice.
	Voice string

	EncodingInfo audio.EncodingInfo
}

type Option func(*Options)

func WithVoice(voice string) Option {
	return func(o *Options) {
		o.Voice = voice
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) Option {
	return func(o *Options) {
		if encodingInfo.IsZero() {
			return
		}

		o.EncodingInfo = encodingInfo
	}
}
