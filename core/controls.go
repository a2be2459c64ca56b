package dialogue

import "strings"

// InjectPrompt submits typed text as if it were a final transcript. It is
// honored while idle or listening and dropped during an active turn, the
// same single-flight rule spoken finals follow.
func (o *Orchestrator) InjectPrompt(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	o.runtime.enqueue(newInjectedPromptEvent(text))
}

// PauseListening stops forwarding capture audio to the recognizer without
// releasing the device; the intensity analyzer keeps running so the orb
// still reacts.
func (o *Orchestrator) PauseListening() {
	o.audioInput.SetForwarding(false)
}

// ResumeListening re-enables the capture-to-recognizer feed.
func (o *Orchestrator) ResumeListening() {
	o.audioInput.SetForwarding(true)
}

// Restart abandons whatever the session is doing and reopens recognition.
// It is the manual recovery path after the connection status reports an
// error.
func (o *Orchestrator) Restart() {
	o.runtime.enqueue(newForcedRestartEvent())
}
