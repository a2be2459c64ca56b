package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/auraloop/aura-core/core/generation"
)

// DefaultRestartDelay is the pause between a turn ending and the next
// listening window opening. It keeps the reopened microphone from picking up
// trailing audio of the turn that just finished.
const DefaultRestartDelay = 500 * time.Millisecond

const audioFailedAnnotation = "(audio failed)"

// Orchestrator drives the spoken conversation loop: capture the microphone,
// wait for the user to finish, transcribe, generate a reply, synthesize it,
// play it, then listen again. One orchestrator hosts one session at a time.
type Orchestrator struct {
	recognition *speechRecognition
	generation  *replyGeneration
	synthesis   *speechSynthesis
	audioInput  *audioInput
	audioOutput *audioOutput

	log       *transcriptLog
	intensity *IntensityAnalyzer
	feedback  *FeedbackMapper
	silence   *SilenceDetector

	runtime    *sessionRuntime
	runOptions RunOptions

	recognitionLanguage string
	restartDelay        time.Duration
	silenceOptions      []SilenceOption
	feedbackOptions     []FeedbackOption
	intensityOptions    []IntensityOption

	phase            atomic.Int32
	connectionStatus atomic.Int32
	lastLatency      atomic.Int64

	isRunning     atomic.Bool
	closed        atomic.Bool
	closeOnce     sync.Once
	sessionCancel context.CancelFunc
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		recognition:  newSpeechRecognition(nil),
		generation:   newReplyGeneration(),
		synthesis:    newSpeechSynthesis(),
		audioOutput:  newAudioOutput(nil),
		log:          &transcriptLog{},
		runtime:      newSessionRuntime(),
		restartDelay: DefaultRestartDelay,
	}
	o.audioInput = newAudioInput(nil, o.handleCaptureAudio, o.handleCaptureError)

	for _, opt := range opts {
		opt(o)
	}

	o.intensity = NewIntensityAnalyzer(o.intensityOptions...)
	o.feedback = NewFeedbackMapper(o.feedbackOptions...)
	o.silence = NewSilenceDetector(
		o.intensity.Intensity,
		func() { o.runtime.enqueue(newEndOfSpeechEvent()) },
		o.silenceOptions...,
	)

	return o
}

// Run starts the session: capture and silence detection begin, recognition
// opens, and the phase moves to listening. Presentation callbacks are
// registered per run. Cancelling ctx closes the orchestrator.
func (o *Orchestrator) Run(ctx context.Context, opts ...RunOption) error {
	if o.isClosed() {
		return fmt.Errorf("orchestrator is closed")
	}
	if !o.isRunning.CompareAndSwap(false, true) {
		return fmt.Errorf("session already running")
	}

	runOptions := RunOptions{}
	for _, opt := range opts {
		opt(&runOptions)
	}
	o.runOptions = runOptions

	sessionCtx, cancel := context.WithCancel(ctx)
	o.sessionCancel = cancel

	o.runtime.configure(sessionCtx)
	o.runtime.turnAnchor = time.Now()
	o.runtime.start(o)

	go func() {
		<-sessionCtx.Done()
		o.Close()
	}()

	o.audioInput.Start(sessionCtx)
	o.silence.Start(sessionCtx)
	o.runtime.enqueue(newRestartEvent())

	return nil
}

// Close tears the session down: the event loop stops, in-flight workers are
// cancelled and their late results discarded, recognition releases the
// microphone. Safe to call more than once.
func (o *Orchestrator) Close() (err error) {
	o.closeOnce.Do(func() {
		ctx, span := tracer.Start(context.Background(), "close orchestrator")
		defer span.End()

		o.closed.Store(true)
		o.runtime.end()
		if o.sessionCancel != nil {
			o.sessionCancel()
		}

		if closeErr := o.recognition.Close(ctx); closeErr != nil {
			span.RecordError(closeErr)
			span.SetStatus(codes.Error, "failed to close recognition client")
			err = errors.Join(err, closeErr)
		}
		if closeErr := o.audioInput.Close(); closeErr != nil {
			span.RecordError(closeErr)
			span.SetStatus(codes.Error, "failed to close audio input")
			err = errors.Join(err, closeErr)
		}
		o.audioOutput.Clear()

		o.runtime.waitUntilEnded()
	})

	return err
}

func (o *Orchestrator) isClosed() bool {
	return o.closed.Load()
}

// handleCaptureAudio receives every capture chunk. The intensity analyzer
// always gets it; the recognizer only while forwarding is enabled. Send
// errors are expected between turns, when no session is open.
func (o *Orchestrator) handleCaptureAudio(chunk []byte) {
	o.intensity.Process(chunk)

	if o.audioInput.IsForwarding() {
		o.recognition.SendAudio(chunk)
	}
}

// handleCaptureError receives capture startup failures. Losing the
// microphone is fatal to the session; it surfaces as an error status and
// waits for a manual restart.
func (o *Orchestrator) handleCaptureError(err error) {
	logger.Error("audio capture failed", "error", err)
	o.setConnectionStatus(StatusError)
	o.invokeSessionError(fmt.Errorf("audio capture failed: %w", err))
}

func (o *Orchestrator) startGenerationWorker(turnID uint64, prompt string, history []generation.Turn) {
	runtime := o.runtime
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				runtime.enqueue(newReplyFailedEvent(turnID,
					fmt.Errorf("reply generation panicked: %v", recovered),
					DetectLanguage(prompt)))
			}
		}()

		ctx, span := tracer.Start(runtime.baseContext, "generate reply",
			trace.WithAttributes(attribute.Int64("dialogue.turn.id", int64(turnID))))
		defer span.End()

		reply, language, err := o.generation.generate(ctx, prompt, history)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			runtime.enqueue(newReplyFailedEvent(turnID, err, language))
			return
		}

		runtime.enqueue(newReplyReadyEvent(turnID, reply, DetectLanguage(reply)))
	}()
}

func (o *Orchestrator) startSpeakingWorker(turnID uint64, reply string, language Language) {
	runtime := o.runtime
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("speech synthesis panicked", "panic", recovered)
				runtime.enqueue(newSpeechEndedEvent(turnID, audioFailedAnnotation))
			}
		}()

		ctx, span := tracer.Start(runtime.baseContext, "speak reply",
			trace.WithAttributes(attribute.Int64("dialogue.turn.id", int64(turnID))))
		defer span.End()

		encodingInfo := synthesisEncoding(o.audioOutput.EncodingInfo())
		pcm, err := o.synthesis.synthesize(ctx, reply, language, encodingInfo)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("synthesis failed, keeping reply text without audio", "error", err)
			runtime.enqueue(newSpeechEndedEvent(turnID, audioFailedAnnotation))
			return
		}

		// The mark resolves when playback audibly drains past the enqueued
		// audio, not when the bytes are accepted.
		o.audioOutput.SendAudio(pcm, encodingInfo)
		o.audioOutput.Mark(strconv.FormatUint(turnID, 10), func(string) {
			runtime.enqueue(newSpeechEndedEvent(turnID, ""))
		})
	}()
}

func (o *Orchestrator) currentPhase() Phase {
	return Phase(o.phase.Load())
}

func (o *Orchestrator) setPhase(phase Phase) {
	if Phase(o.phase.Swap(int32(phase))) == phase {
		return
	}

	if callback := o.runOptions.onPhaseChanged; callback != nil {
		callback(phase)
	}
}

func (o *Orchestrator) currentConnectionStatus() ConnectionStatus {
	return ConnectionStatus(o.connectionStatus.Load())
}

func (o *Orchestrator) setConnectionStatus(status ConnectionStatus) {
	if ConnectionStatus(o.connectionStatus.Swap(int32(status))) == status {
		return
	}

	if callback := o.runOptions.onConnectionStatus; callback != nil {
		callback(status)
	}
}

func (o *Orchestrator) invokeSessionError(err error) {
	if callback := o.runOptions.onSessionError; callback != nil {
		callback(err)
	}
}
