package dialogue

// Phase is the conversational state of the session. It is owned by the
// session loop: every transition happens on the loop goroutine, in reaction
// to exactly one event.
type Phase int

const (
	// PhaseIdle is the rest state between turns and before the session starts.
	PhaseIdle Phase = iota
	// PhaseListening means the recognition session is open and capture audio
	// is being forwarded to it.
	PhaseListening
	// PhaseProcessing means a final transcript is being answered by the reply
	// chain.
	PhaseProcessing
	// PhaseSpeaking means the reply is being synthesized and played back.
	PhaseSpeaking
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseListening:
		return "listening"
	case PhaseProcessing:
		return "processing"
	case PhaseSpeaking:
		return "speaking"
	}
	return "unknown"
}

// Code maps the phase onto the numeric scale the visual layer animates over:
// idle 0, listening 1, processing and speaking 1.5. Processing and speaking
// share a code on purpose, the orb renders both as the same busy look.
func (p Phase) Code() float64 {
	switch p {
	case PhaseListening:
		return 1
	case PhaseProcessing, PhaseSpeaking:
		return 1.5
	}
	return 0
}

// ConnectionStatus tracks the recognition transport, not the phase. A fatal
// connection error surfaces here while the phase machine stays wherever it
// was.
type ConnectionStatus int

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	}
	return "unknown"
}
