package debate

// SessionSnapshot is the persisted view of a debate session, shaped like the
// browser-side session keys it replaces (character1, character2, topic,
// messages, isDebating, exchangeCount).
type SessionSnapshot struct {
	Character1    string      `json:"character1"`
	Character2    string      `json:"character2"`
	Topic         string      `json:"topic"`
	Messages      []Utterance `json:"messages"`
	IsDebating    bool        `json:"isDebating"`
	ExchangeCount int         `json:"exchangeCount"`
}

// SessionMirror receives best-effort snapshots of the session after every
// state-changing step. Save and Clear are called while the orchestrator holds
// its dispatch lock, so implementations must not block and must swallow their
// own storage errors.
type SessionMirror interface {
	Save(snap SessionSnapshot)
	Load() (SessionSnapshot, bool)
	Clear()
}
