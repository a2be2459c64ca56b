package dialogue

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/auraloop/aura-core/core/generation"
)

// Role tags a transcript entry with its speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one line of the conversation transcript.
type Entry struct {
	ID   string
	Role Role
	Text string
	// Interim marks the provisional user entry that live recognition keeps
	// rewriting until the final transcript promotes it.
	Interim bool
	// Annotation carries presentation notes such as "(audio failed)".
	Annotation string
	// Err holds the failure detail on apologetic assistant entries.
	Err       string
	CreatedAt time.Time
}

// transcriptLog is the in-memory conversation history. It is append-only with
// two exceptions: the most recent interim user entry is replaced in place
// (interim update or final promotion), and the most recent assistant entry
// can be annotated after the fact.
type transcriptLog struct {
	mu      sync.RWMutex
	entries []Entry
}

func (t *transcriptLog) upsertInterim(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last := t.lastLocked(); last != nil && last.Interim {
		last.Text = text
		return
	}

	t.entries = append(t.entries, Entry{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Text:      text,
		Interim:   true,
		CreatedAt: time.Now(),
	})
}

// promoteFinal turns the pending interim entry into the definitive user entry
// for the turn, or appends a fresh one when no interim preceded the final.
func (t *transcriptLog) promoteFinal(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last := t.lastLocked(); last != nil && last.Interim {
		last.Text = text
		last.Interim = false
		return
	}

	t.entries = append(t.entries, Entry{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Text:      text,
		CreatedAt: time.Now(),
	})
}

func (t *transcriptLog) appendAssistant(text string, errDetail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, Entry{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Text:      text,
		Err:       errDetail,
		CreatedAt: time.Now(),
	})
}

// annotateLastAssistant attaches a note to the most recent assistant entry.
// The entry's text is never touched, a reply whose audio failed still reads
// as a reply.
func (t *transcriptLog) annotateLastAssistant(annotation string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].Role == RoleAssistant {
			t.entries[i].Annotation = annotation
			return
		}
	}
}

func (t *transcriptLog) snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := []Entry{}
	copier.Copy(&entries, t.entries)
	return entries
}

func (t *transcriptLog) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *transcriptLog) lastLocked() *Entry {
	if len(t.entries) == 0 {
		return nil
	}
	return &t.entries[len(t.entries)-1]
}

// history converts finalized entries into generation turns so providers see
// the conversation so far. Interim entries and empty lines stay out of the
// prompt.
func (t *transcriptLog) history() []generation.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	turns := make([]generation.Turn, 0, len(t.entries))
	for _, entry := range t.entries {
		if entry.Interim || entry.Text == "" {
			continue
		}
		role := generation.RoleUser
		if entry.Role == RoleAssistant {
			role = generation.RoleAssistant
		}
		turns = append(turns, generation.Turn{Role: role, Content: entry.Text})
	}
	return turns
}
