package recognition

import "github.com/auraloop/aura-core/core/audio"

// Options configure a single listening session. A session delivers zero or
// more interim transcripts followed by exactly one final transcript, then
// stops on its own; callers open a fresh session for the next utterance.
type Options struct {
	// InterimTranscriptCallback receives provisional transcripts that later
	// results replace.
	InterimTranscriptCallback func(transcript string)
	// TranscriptCallback receives the final transcript of the utterance.
	TranscriptCallback func(transcript string)
	// ErrorCallback receives failures that happen after the session was
	// established, such as a dropped connection. It is never called
	// concurrently with itself.
	ErrorCallback func(err error)

	EncodingInfo audio.EncodingInfo
	// Language is a BCP-47 tag passed through to the provider. Defaults to
	// en-US when empty.
	Language string
}

type Option func(*Options)

func WithInterimTranscriptCallback(callback func(transcript string)) Option {
	return func(o *Options) {
		o.InterimTranscriptCallback = callback
	}
}

func WithTranscriptCallback(callback func(transcript string)) Option {
	return func(o *Options) {
		o.TranscriptCallback = callback
	}
}

func WithErrorCallback(callback func(err error)) Option {
	return func(o *Options) {
		o.ErrorCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) Option {
	return func(o *Options) {
		o.EncodingInfo = encodingInfo
	}
}

func WithLanguage(language string) Option {
	return func(o *Options) {
		o.Language = language
	}
}
