package dialogue

import (
	"context"
	"time"

	"github.com/auraloop/aura-core/core/audio"
	"github.com/auraloop/aura-core/core/generation"
	"github.com/auraloop/aura-core/core/recognition"
	"github.com/auraloop/aura-core/core/synthesis"
)

type OrchestratorOption func(*Orchestrator)

// SpeechRecognizer streams capture audio to a transcription session that
// delivers zero or more interim transcripts and exactly one final transcript,
// then stops on its own. Recognizers may additionally implement
// Finalize() error to flush the pending utterance on demand, and any of the
// usual Close signatures.
type SpeechRecognizer interface {
	Listen(ctx context.Context, opts ...recognition.Option) error
	SendAudio(audio []byte) error
}

func WithSpeechRecognizer(client SpeechRecognizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.recognition.set(client)
	}
}

// WithRecognitionLanguage sets the language tag recognition sessions are
// opened with, for example "en-US" or "multi".
func WithRecognitionLanguage(language string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.recognitionLanguage = language
	}
}

// ReplyGenerator produces the assistant reply for a user prompt.
type ReplyGenerator interface {
	Reply(ctx context.Context, prompt string, opts ...generation.Option) (string, error)
}

// WithReplyGenerator appends a named provider to the reply chain. Providers
// are tried in registration order each turn.
func WithReplyGenerator(name string, client ReplyGenerator) OrchestratorOption {
	return func(o *Orchestrator) {
		o.generation.register(name, client)
	}
}

func WithInstructions(instructions string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.generation.instructions = instructions
	}
}

func WithMaxReplyTokens(maxTokens int) OrchestratorOption {
	return func(o *Orchestrator) {
		if maxTokens > 0 {
			o.generation.maxTokens = maxTokens
		}
	}
}

// WithGenerationTimeout bounds one pass over the reply chain. Zero disables
// the deadline.
func WithGenerationTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout >= 0 {
			o.generation.timeout = timeout
		}
	}
}

// SpeechSynthesizer renders text as raw PCM audio. Synthesizers are stateless
// between calls; voice and encoding travel with each request.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, opts ...synthesis.Option) ([]byte, error)
}

// WithSpeechSynthesizer appends a named provider to the synthesis chain.
func WithSpeechSynthesizer(name string, client SpeechSynthesizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.synthesis.register(name, client)
	}
}

// WithLocalSynthesisFallback sets the offline synthesizer used when every
// provider in the chain fails.
func WithLocalSynthesisFallback(client SpeechSynthesizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.synthesis.setLocalFallback(client)
	}
}

// WithVoice binds a provider voice to a reply language. Languages without a
// binding use the provider default voice.
func WithVoice(language Language, voice string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.synthesis.setVoice(language, voice)
	}
}

// WithSynthesisTimeout bounds one pass over the synthesis chain. Zero
// disables the deadline.
func WithSynthesisTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout >= 0 {
			o.synthesis.timeout = timeout
		}
	}
}

type AudioInput interface {
	audioInputBase
}

type AudioInputFine interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioInput.Set(client) }
}

type AudioOutputV0 interface {
	audioOutputBase
	AwaitMark() error
}

func WithAudioOutputV0(client AudioOutputV0) OrchestratorOption {
	return func(o *Orchestrator) { o.audioOutput.Set(client) }
}

type AudioOutputV1 interface {
	audioOutputBase
	Mark(string, func(string)) error
}

func WithAudioOutputV1(client AudioOutputV1) OrchestratorOption {
	return func(o *Orchestrator) { o.audioOutput.Set(client) }
}

// WithRestartDelay sets the pause between a turn ending and the next
// listening window opening.
func WithRestartDelay(delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if delay >= 0 {
			o.restartDelay = delay
		}
	}
}

func WithSilenceOptions(opts ...SilenceOption) OrchestratorOption {
	return func(o *Orchestrator) {
		o.silenceOptions = append(o.silenceOptions, opts...)
	}
}

func WithFeedbackOptions(opts ...FeedbackOption) OrchestratorOption {
	return func(o *Orchestrator) {
		o.feedbackOptions = append(o.feedbackOptions, opts...)
	}
}

func WithIntensityOptions(opts ...IntensityOption) OrchestratorOption {
	return func(o *Orchestrator) {
		o.intensityOptions = append(o.intensityOptions, opts...)
	}
}

type audioOutputBase interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	ClearBuffer()
}

type audioInputBase interface {
	EncodingInfo() audio.EncodingInfo
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}

// RunOptions hold the presentation callbacks for one session. All callbacks
// are invoked from session goroutines and must not block.
type RunOptions struct {
	onPhaseChanged      func(phase Phase)
	onInterimTranscript func(transcript string)
	onTranscript        func(transcript string)
	onReply             func(reply string)
	onConnectionStatus  func(status ConnectionStatus)
	onTurnLatency       func(latency time.Duration)
	onSessionError      func(err error)
}

type RunOption func(*RunOptions)

// WithPhaseChangedCallback registers a callback for phase transitions.
func WithPhaseChangedCallback(callback func(phase Phase)) RunOption {
	return func(o *RunOptions) {
		o.onPhaseChanged = callback
	}
}

// WithInterimTranscriptCallback registers a callback for provisional
// transcripts while the user is still speaking.
func WithInterimTranscriptCallback(callback func(transcript string)) RunOption {
	return func(o *RunOptions) {
		o.onInterimTranscript = callback
	}
}

// WithTranscriptCallback registers a callback for final transcripts.
func WithTranscriptCallback(callback func(transcript string)) RunOption {
	return func(o *RunOptions) {
		o.onTranscript = callback
	}
}

// WithReplyCallback registers a callback for assistant replies, fired when
// the reply text is decided, before synthesis.
func WithReplyCallback(callback func(reply string)) RunOption {
	return func(o *RunOptions) {
		o.onReply = callback
	}
}

// WithConnectionStatusCallback registers a callback for recognition
// transport status changes.
func WithConnectionStatusCallback(callback func(status ConnectionStatus)) RunOption {
	return func(o *RunOptions) {
		o.onConnectionStatus = callback
	}
}

// WithTurnLatencyCallback registers a callback for the per-turn latency
// measurement, the wall-clock gap between the previous turn's last message
// and the current final transcript.
func WithTurnLatencyCallback(callback func(latency time.Duration)) RunOption {
	return func(o *RunOptions) {
		o.onTurnLatency = callback
	}
}

// WithSessionErrorCallback registers a callback for session-level failures
// such as a lost recognition connection.
func WithSessionErrorCallback(callback func(err error)) RunOption {
	return func(o *RunOptions) {
		o.onSessionError = callback
	}
}
