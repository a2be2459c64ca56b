package dialogue

import "time"

// SessionState is a point-in-time view of the session for presentation
// layers. Entries are copies; mutating them does not touch the live log.
type SessionState struct {
	Phase            Phase
	ConnectionStatus ConnectionStatus
	Entries          []Entry
	// LastTurnLatency is the most recent gap between the previous turn's
	// last message and a final transcript arriving. Observability only.
	LastTurnLatency time.Duration
}

func (o *Orchestrator) Snapshot() SessionState {
	return SessionState{
		Phase:            o.currentPhase(),
		ConnectionStatus: o.currentConnectionStatus(),
		Entries:          o.log.snapshot(),
		LastTurnLatency:  time.Duration(o.lastLatency.Load()),
	}
}

// Feedback advances the visual state one step and returns it. Call it once
// per render tick; the renderer applies the values directly and has no write
// access to session state.
func (o *Orchestrator) Feedback() FeedbackState {
	return o.feedback.Tick(o.currentPhase(), o.intensity.Intensity())
}
