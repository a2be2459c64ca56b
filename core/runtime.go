package dialogue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/auraloop/aura-core/core/recognition"
)

const sessionEventQueueCapacity = 16

type eventQueueItem struct {
	event    event
	queuedAt time.Time
}

// sessionRuntime owns the event queue and the single goroutine that consumes
// it. Phase transitions, transcript mutations and turn bookkeeping all happen
// on that goroutine; everything else only enqueues.
type sessionRuntime struct {
	baseContext context.Context

	queue   chan eventQueueItem
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool

	// Fields below are touched only on the loop goroutine.

	// turnID numbers generation/synthesis sequences; completion events carry
	// the ID of the turn that spawned them so stale results are discarded.
	turnID uint64
	// turnAnchor is when the previous turn's last message landed, the
	// reference point for the turn latency measurement.
	turnAnchor time.Time
	// restartTimer delays the next listening window after a turn ends.
	restartTimer *time.Timer
}

func newSessionRuntime() *sessionRuntime {
	return &sessionRuntime{
		baseContext: context.Background(),
		queue:       make(chan eventQueueItem, sessionEventQueueCapacity),
		closeCh:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (runtime *sessionRuntime) configure(ctx context.Context) {
	if runtime == nil {
		return
	}

	runtime.baseContext = ctx
}

func (runtime *sessionRuntime) start(o *Orchestrator) (started bool) {
	if runtime == nil || runtime.isClosed() {
		return false
	}

	runtime.startOnce.Do(func() {
		if runtime.isClosed() {
			return
		}

		started = true
		runtime.started.Store(true)
		go func() {
			defer close(runtime.done)

			for {
				select {
				case <-runtime.closeCh:
					return
				case queuedEvent := <-runtime.queue:
					if runtime.isClosed() {
						return
					}
					runtime.processQueuedEvent(o, queuedEvent)
				}
			}
		}()
	})

	return started
}

func (runtime *sessionRuntime) end() {
	if runtime == nil {
		return
	}

	runtime.endOnce.Do(func() {
		close(runtime.closeCh)
	})
}

func (runtime *sessionRuntime) waitUntilEnded() {
	if runtime == nil {
		return
	}

	if runtime.started.Load() {
		<-runtime.done
	}
}

func (runtime *sessionRuntime) enqueue(event event) bool {
	if runtime == nil || runtime.isClosed() {
		return false
	}

	queueItem := eventQueueItem{event: event, queuedAt: time.Now()}
	select {
	case <-runtime.closeCh:
		return false
	case runtime.queue <- queueItem:
		return true
	}
}

func (runtime *sessionRuntime) isClosed() bool {
	if runtime == nil {
		return false
	}

	select {
	case <-runtime.closeCh:
		return true
	default:
		return false
	}
}

func (runtime *sessionRuntime) processQueuedEvent(o *Orchestrator, queuedEvent eventQueueItem) {
	if runtime == nil || o == nil {
		return
	}

	ctx, span := tracer.Start(runtime.baseContext, "process event")
	defer span.End()

	span.SetAttributes(
		attribute.String("dialogue.event.kind", string(queuedEvent.event.kind())),
		attribute.Float64("dialogue.event.queued_time", time.Since(queuedEvent.queuedAt).Seconds()),
	)

	switch event := queuedEvent.event.(type) {
	case interimTranscriptEvent:
		o.handleInterimTranscript(event)
	case finalTranscriptEvent:
		o.handleTranscript(ctx, event.transcript, event.timestamp(), false)
	case injectedPromptEvent:
		o.handleTranscript(ctx, event.prompt, event.timestamp(), true)
	case endOfSpeechEvent:
		o.handleEndOfSpeech()
	case replyReadyEvent:
		o.handleReplyReady(event)
	case replyFailedEvent:
		o.handleReplyFailed(event)
	case speechEndedEvent:
		o.handleSpeechEnded(event)
	case restartEvent:
		o.handleRestart(event)
	case recognitionErrorEvent:
		o.handleRecognitionError(event)
	}
}

// scheduleRestart arms the delayed transition back to listening. A pending
// timer is replaced; wrong-phase restart events are dropped by the handler,
// so a stale timer that already fired stays harmless.
func (runtime *sessionRuntime) scheduleRestart(delay time.Duration) {
	if runtime.restartTimer != nil {
		runtime.restartTimer.Stop()
	}

	runtime.restartTimer = time.AfterFunc(delay, func() {
		runtime.enqueue(newRestartEvent())
	})
}

// Event handlers below run exclusively on the loop goroutine.

func (o *Orchestrator) handleInterimTranscript(event interimTranscriptEvent) {
	if o.currentPhase() != PhaseListening {
		logger.Debug("dropping interim transcript outside listening",
			"phase", o.currentPhase().String())
		return
	}

	o.log.upsertInterim(event.transcript)
	if callback := o.runOptions.onInterimTranscript; callback != nil {
		callback(event.transcript)
	}
}

// handleTranscript starts a turn from a final transcript or an injected
// prompt. Finals are only honored while listening; a final that lands during
// Processing or Speaking is dropped without touching the log or the phase,
// the session supports exactly one active turn.
func (o *Orchestrator) handleTranscript(ctx context.Context, text string, arrivedAt time.Time, injected bool) {
	phase := o.currentPhase()

	allowed := phase == PhaseListening
	if injected {
		allowed = phase == PhaseListening || phase == PhaseIdle
	}
	if !allowed {
		logger.Debug("dropping transcript for wrong phase",
			"phase", phase.String(), "injected", injected)
		return
	}

	if injected && phase == PhaseListening {
		// The open recognition session keeps streaming otherwise; its late
		// final would just be dropped, but the socket would leak.
		if err := o.recognition.Close(ctx); err != nil {
			logger.Debug("failed to close recognition before injected prompt", "error", err)
		}
	}

	if !o.runtime.turnAnchor.IsZero() {
		latency := arrivedAt.Sub(o.runtime.turnAnchor)
		o.lastLatency.Store(int64(latency))
		turnLatency.Record(ctx, latency.Seconds())
		if callback := o.runOptions.onTurnLatency; callback != nil {
			callback(latency)
		}
	}

	history := o.log.history()
	o.log.promoteFinal(text)
	if callback := o.runOptions.onTranscript; callback != nil {
		callback(text)
	}

	o.setPhase(PhaseProcessing)
	o.runtime.turnID++
	o.startGenerationWorker(o.runtime.turnID, text, history)
}

func (o *Orchestrator) handleEndOfSpeech() {
	if o.currentPhase() != PhaseListening {
		return
	}

	// The recognizer flushes the pending utterance and emits its final
	// transcript; the phase only moves when that final arrives.
	if err := o.recognition.Finalize(); err != nil {
		logger.Debug("failed to finalize utterance", "error", err)
	}
}

func (o *Orchestrator) handleReplyReady(event replyReadyEvent) {
	if o.currentPhase() != PhaseProcessing || event.turnID != o.runtime.turnID {
		logger.Debug("discarding stale reply", "turn_id", event.turnID)
		return
	}

	o.log.appendAssistant(event.reply, "")
	if callback := o.runOptions.onReply; callback != nil {
		callback(event.reply)
	}

	o.setPhase(PhaseSpeaking)
	o.startSpeakingWorker(event.turnID, event.reply, event.language)
}

func (o *Orchestrator) handleReplyFailed(event replyFailedEvent) {
	if o.currentPhase() != PhaseProcessing || event.turnID != o.runtime.turnID {
		logger.Debug("discarding stale reply failure", "turn_id", event.turnID)
		return
	}

	logger.Warn("reply generation failed", "error", event.err)

	apology := apologeticReply(event.language)
	o.log.appendAssistant(apology, event.err.Error())
	if callback := o.runOptions.onReply; callback != nil {
		callback(apology)
	}

	o.setPhase(PhaseIdle)
	o.runtime.turnAnchor = time.Now()
	o.runtime.scheduleRestart(o.restartDelay)
}

func (o *Orchestrator) handleSpeechEnded(event speechEndedEvent) {
	if o.currentPhase() != PhaseSpeaking || event.turnID != o.runtime.turnID {
		logger.Debug("discarding stale speech completion", "turn_id", event.turnID)
		return
	}

	if event.annotation != "" {
		o.log.annotateLastAssistant(event.annotation)
	}

	o.setPhase(PhaseIdle)
	o.runtime.turnAnchor = time.Now()
	o.runtime.scheduleRestart(o.restartDelay)
}

func (o *Orchestrator) handleRestart(event restartEvent) {
	phase := o.currentPhase()

	if event.forced {
		// Manual recovery: abandon whatever is in flight and reopen. Bumping
		// the turn ID makes late worker completions stale.
		o.runtime.turnID++
		if phase == PhaseListening {
			if err := o.recognition.Close(o.runtime.baseContext); err != nil {
				logger.Debug("failed to close recognition during restart", "error", err)
			}
		}
		o.setPhase(PhaseIdle)
	} else if phase != PhaseIdle {
		return
	}

	o.startListening()
}

// handleRecognitionError surfaces transport failures through the connection
// status without making them a phase. A turn already in flight is left to
// finish; its own completion reopens recognition. Only a dead listening
// window needs help here.
func (o *Orchestrator) handleRecognitionError(event recognitionErrorEvent) {
	logger.Warn("recognition connection failed", "error", event.err)
	o.setConnectionStatus(StatusError)
	o.invokeSessionError(event.err)

	if o.currentPhase() != PhaseListening {
		return
	}

	if err := o.recognition.Close(o.runtime.baseContext); err != nil {
		logger.Debug("failed to close recognition after error", "error", err)
	}
	o.setPhase(PhaseIdle)

	if errors.Is(event.err, recognition.ErrPermissionDenied) {
		// Not fixed by reconnecting; wait for a manual restart.
		return
	}
	o.runtime.scheduleRestart(o.restartDelay)
}

// startListening opens the next recognition session and, on success, moves to
// the listening phase. Connect failures surface through the connection status
// and re-arm the restart timer unless the failure is permission-class.
func (o *Orchestrator) startListening() {
	o.setConnectionStatus(StatusConnecting)

	err := o.recognition.Listen(
		o.runtime.baseContext,
		o.audioInput.EncodingInfo(),
		o.recognitionLanguage,
		func(transcript string) { o.runtime.enqueue(newInterimTranscriptEvent(transcript)) },
		func(transcript string) { o.runtime.enqueue(newFinalTranscriptEvent(transcript)) },
		func(err error) { o.runtime.enqueue(newRecognitionErrorEvent(err)) },
	)
	if err != nil {
		logger.Warn("failed to open recognition session", "error", err)
		o.setConnectionStatus(StatusError)
		o.invokeSessionError(err)

		if !errors.Is(err, recognition.ErrPermissionDenied) {
			o.runtime.scheduleRestart(o.restartDelay)
		}
		return
	}

	o.setConnectionStatus(StatusConnected)
	o.silence.Reset()
	o.setPhase(PhaseListening)
}
