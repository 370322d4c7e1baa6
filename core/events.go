package core

// DebateStartedEvent is fired once the start intent has been validated,
// before any network call resolves. CurrentSpeaker is already set so the
// UI can show an immediate "thinking" indicator.
type DebateStartedEvent struct {
	Topic          string `json:"topic"`
	Persona1       string `json:"persona1"`
	Persona2       string `json:"persona2"`
	CurrentSpeaker string `json:"current_speaker"`
}

func (e *DebateStartedEvent) GetId() string {
	return "debate.started"
}

// UtterancesAppendedEvent carries newly generated utterances, in speaking order.
type UtterancesAppendedEvent struct {
	Utterances []UtteranceInfo `json:"utterances"`
	Exchange   int             `json:"exchange"`
}

func (e *UtterancesAppendedEvent) GetId() string {
	return "debate.utterances_appended"
}

// UtteranceInfo is the wire view of a transcript entry.
type UtteranceInfo struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// AudioReadyEvent announces that synthesized audio for an utterance is ready
// to play. Readiness is not audibility: the speaker status stays "thinking"
// until a playback-started milestone arrives.
type AudioReadyEvent struct {
	Index    int      `json:"index"`
	Speaker  string   `json:"speaker"`
	AudioRef AudioRef `json:"audio"`
}

func (e *AudioReadyEvent) GetId() string {
	return "debate.audio_ready"
}

// SpeakerStatusEvent reports the current speaker and their status
// ("thinking", "speaking", "waiting" or empty).
type SpeakerStatusEvent struct {
	Speaker string `json:"speaker"`
	Status  string `json:"status"`
}

func (e *SpeakerStatusEvent) GetId() string {
	return "debate.speaker_status"
}

// WarningEvent carries a non-fatal problem, e.g. a skipped synthesis.
type WarningEvent struct {
	Error string `json:"error"`
}

func (e *WarningEvent) GetId() string {
	return "shared.warning"
}

// CriticalErrorEvent is fired when the session enters the Error phase.
type CriticalErrorEvent struct {
	Error string `json:"error"`
}

func (e *CriticalErrorEvent) GetId() string {
	return "shared.critical_error"
}

// InteractionRequiredEvent signals that the browser denied autoplay and a
// user gesture is needed before playback can resume.
type InteractionRequiredEvent struct {
	Reason string `json:"reason"`
}

func (e *InteractionRequiredEvent) GetId() string {
	return "debate.interaction_required"
}

// DebateFinishedEvent is fired when the exchange limit has been reached and
// the final utterance has finished playing. The session auto-resets after a
// grace delay.
type DebateFinishedEvent struct {
	Exchanges int `json:"exchanges"`
}

func (e *DebateFinishedEvent) GetId() string {
	return "debate.finished"
}

// DebateResetEvent is fired when the session returns to Idle.
type DebateResetEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e *DebateResetEvent) GetId() string {
	return "debate.reset"
}
