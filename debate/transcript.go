package debate

import (
	"fmt"
	"strings"
	"time"

	"debatekit/core"
	"debatekit/personas"
)

// UserSpeaker is the sentinel speaker id for human-submitted questions.
const UserSpeaker = "user"

// Utterance is one turn of generated text. Append-only: once created it is
// never mutated, only appended to the transcript.
type Utterance struct {
	Speaker   string        `json:"character"`
	Text      string        `json:"content"`
	Timestamp int64         `json:"timestamp"`
	AudioRef  core.AudioRef `json:"audio,omitempty"`
}

// NewUtterance stamps an utterance with the current wall clock in
// milliseconds, the transcript's logical ordering key.
func NewUtterance(speaker, text string) Utterance {
	return Utterance{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Transcript is the ordered utterance history of one debate session. It is
// owned by the orchestrator; readers get copies.
type Transcript struct {
	entries []Utterance
}

// Append adds utterances in order, forcing timestamps to be strictly
// increasing so ordering stays deterministic even within one millisecond.
func (t *Transcript) Append(utterances ...Utterance) {
	for _, u := range utterances {
		if n := len(t.entries); n > 0 && u.Timestamp <= t.entries[n-1].Timestamp {
			u.Timestamp = t.entries[n-1].Timestamp + 1
		}
		t.entries = append(t.entries, u)
	}
}

// Len returns the number of utterances.
func (t *Transcript) Len() int {
	return len(t.entries)
}

// At returns the utterance at index i.
func (t *Transcript) At(i int) Utterance {
	return t.entries[i]
}

// Entries returns a copy of the utterance history.
func (t *Transcript) Entries() []Utterance {
	out := make([]Utterance, len(t.entries))
	copy(out, t.entries)
	return out
}

// SetAudioRef records the audio resource for the utterance at index i.
// The text itself is never touched.
func (t *Transcript) SetAudioRef(i int, ref core.AudioRef) {
	if i >= 0 && i < len(t.entries) {
		t.entries[i].AudioRef = ref
	}
}

// LastSpeaker returns the speaker of the most recent utterance, including
// the user sentinel. Empty when the transcript is empty.
func (t *Transcript) LastSpeaker() string {
	if len(t.entries) == 0 {
		return ""
	}
	return t.entries[len(t.entries)-1].Speaker
}

// PersonaPairs counts completed persona-utterance pairs, ignoring
// interleaved user questions.
func (t *Transcript) PersonaPairs() int {
	n := 0
	for _, u := range t.entries {
		if u.Speaker != UserSpeaker {
			n++
		}
	}
	return n / 2
}

// Clear drops the history. Used on reset only.
func (t *Transcript) Clear() {
	t.entries = nil
}

// Render formats the transcript as "Name: utterance" blocks, the shape fed
// back to the completion collaborator as shared debate context. User lines
// render as "Question: ...".
func (t *Transcript) Render(p1, p2 personas.Persona) string {
	var b strings.Builder
	for _, u := range t.entries {
		switch u.Speaker {
		case UserSpeaker:
			fmt.Fprintf(&b, "Question: %s\n\n", u.Text)
		case p1.ID:
			fmt.Fprintf(&b, "%s: %s\n\n", p1.Name, u.Text)
		case p2.ID:
			fmt.Fprintf(&b, "%s: %s\n\n", p2.Name, u.Text)
		}
	}
	return b.String()
}

// Restore replaces the history wholesale during session rehydration.
func (t *Transcript) Restore(entries []Utterance) {
	t.entries = make([]Utterance, len(entries))
	copy(t.entries, entries)
}
