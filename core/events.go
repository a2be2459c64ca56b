package dialogue

import "time"

// All session state changes travel as events through one ordered queue
// consumed by a single goroutine. Provider callbacks and timers only ever
// enqueue; they never touch phase or transcript state directly.

type eventKind string

const (
	kindInterimTranscript eventKind = "user.transcript_interim"
	kindFinalTranscript   eventKind = "user.transcript_final"
	kindEndOfSpeech       eventKind = "user.end_of_speech"
	kindInjectedPrompt    eventKind = "user.injected_prompt"
	kindReplyReady        eventKind = "assistant.reply_ready"
	kindReplyFailed       eventKind = "assistant.reply_failed"
	kindSpeechEnded       eventKind = "assistant.speech_ended"
	kindRestart           eventKind = "session.restart"
	kindRecognitionError  eventKind = "session.recognition_error"
)

type event interface {
	kind() eventKind
	timestamp() time.Time
}

type baseEvent struct {
	eventKind eventKind
	at        time.Time
}

func newBaseEvent(kind eventKind) baseEvent {
	return baseEvent{eventKind: kind, at: time.Now()}
}

func (b baseEvent) kind() eventKind      { return b.eventKind }
func (b baseEvent) timestamp() time.Time { return b.at }

type interimTranscriptEvent struct {
	baseEvent
	transcript string
}

func newInterimTranscriptEvent(transcript string) interimTranscriptEvent {
	return interimTranscriptEvent{baseEvent: newBaseEvent(kindInterimTranscript), transcript: transcript}
}

type finalTranscriptEvent struct {
	baseEvent
	transcript string
}

func newFinalTranscriptEvent(transcript string) finalTranscriptEvent {
	return finalTranscriptEvent{baseEvent: newBaseEvent(kindFinalTranscript), transcript: transcript}
}

type endOfSpeechEvent struct {
	baseEvent
}

func newEndOfSpeechEvent() endOfSpeechEvent {
	return endOfSpeechEvent{baseEvent: newBaseEvent(kindEndOfSpeech)}
}

// injectedPromptEvent carries typed text submitted through InjectPrompt. It
// follows the final-transcript path without a recognition session.
type injectedPromptEvent struct {
	baseEvent
	prompt string
}

func newInjectedPromptEvent(prompt string) injectedPromptEvent {
	return injectedPromptEvent{baseEvent: newBaseEvent(kindInjectedPrompt), prompt: prompt}
}

// replyReadyEvent is posted by the generation worker. turnID ties it to the
// turn that spawned the worker so stale completions can be discarded.
type replyReadyEvent struct {
	baseEvent
	turnID   uint64
	reply    string
	language Language
}

func newReplyReadyEvent(turnID uint64, reply string, language Language) replyReadyEvent {
	return replyReadyEvent{baseEvent: newBaseEvent(kindReplyReady), turnID: turnID, reply: reply, language: language}
}

type replyFailedEvent struct {
	baseEvent
	turnID   uint64
	err      error
	language Language
}

func newReplyFailedEvent(turnID uint64, err error, language Language) replyFailedEvent {
	return replyFailedEvent{baseEvent: newBaseEvent(kindReplyFailed), turnID: turnID, err: err, language: language}
}

// speechEndedEvent is posted when playback of the reply audibly finished, or
// when synthesis failed and the turn proceeds without audio.
type speechEndedEvent struct {
	baseEvent
	turnID     uint64
	annotation string
}

func newSpeechEndedEvent(turnID uint64, annotation string) speechEndedEvent {
	return speechEndedEvent{baseEvent: newBaseEvent(kindSpeechEnded), turnID: turnID, annotation: annotation}
}

// restartEvent asks the loop to open the next listening window. Timer-driven
// restarts only apply while Idle; forced restarts come from the Restart
// control and recover the session from any phase.
type restartEvent struct {
	baseEvent
	forced bool
}

func newRestartEvent() restartEvent {
	return restartEvent{baseEvent: newBaseEvent(kindRestart)}
}

func newForcedRestartEvent() restartEvent {
	return restartEvent{baseEvent: newBaseEvent(kindRestart), forced: true}
}

type recognitionErrorEvent struct {
	baseEvent
	err error
}

func newRecognitionErrorEvent(err error) recognitionErrorEvent {
	return recognitionErrorEvent{baseEvent: newBaseEvent(kindRecognitionError), err: err}
}
