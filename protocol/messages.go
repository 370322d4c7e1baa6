package protocol

import (
	"encoding/json"

	"debatekit/core"
)

// MessageType enumerates all debate-session message types.
type MessageType string

const (
	// Client -> Server intents
	MsgStartDebate     MessageType = "start_debate"
	MsgPause           MessageType = "pause"
	MsgResume          MessageType = "resume"
	MsgReset           MessageType = "reset"
	MsgForceContinue   MessageType = "force_continue"
	MsgAsk             MessageType = "ask"
	MsgPlaybackStarted MessageType = "playback_started"
	MsgPlaybackEnded   MessageType = "playback_ended"
	MsgPlaybackFailed  MessageType = "playback_failed"

	// Server -> Client
	MsgState               MessageType = "state"
	MsgStarted             MessageType = "started"
	MsgUtterances          MessageType = "utterances"
	MsgAudioReady          MessageType = "audio_ready"
	MsgSpeakerStatus       MessageType = "speaker_status"
	MsgWarning             MessageType = "warning"
	MsgError               MessageType = "error"
	MsgFinished            MessageType = "finished"
	MsgInteractionRequired MessageType = "interaction_required"
	MsgSessionReset        MessageType = "session_reset"
)

// Envelope is the outer JSON wrapper for all WebSocket messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Client -> Server payloads ---

// StartDebatePayload kicks off a new session.
type StartDebatePayload struct {
	Character1 string `json:"character1"`
	Character2 string `json:"character2"`
	Topic      string `json:"topic"`
}

// PlaybackPayload reports a playback milestone for the utterance at Index.
// Blocked distinguishes an autoplay denial from an ordinary decode failure
// and is only meaningful with MsgPlaybackFailed.
type PlaybackPayload struct {
	Index   int  `json:"index"`
	Blocked bool `json:"blocked,omitempty"`
}

// AskPayload injects a listener question into the running debate.
type AskPayload struct {
	Question string `json:"question"`
}

// --- Server -> Client payloads ---

// StatePayload is the full observable session state, sent on connect and on
// request so a client can always resynchronize.
type StatePayload struct {
	Phase          string `json:"phase"`
	Topic          string `json:"topic,omitempty"`
	Persona1       string `json:"persona1,omitempty"`
	Persona2       string `json:"persona2,omitempty"`
	CurrentIndex   int    `json:"current_index"`
	CurrentSpeaker string `json:"current_speaker,omitempty"`
	SpeakerStatus  string `json:"speaker_status,omitempty"`
	ExchangeCount  int    `json:"exchange_count"`
	Utterances     int    `json:"utterances"`
	Autoplay       bool   `json:"autoplay"`
	RetryCount     int    `json:"retry_count,omitempty"`
	LastError      string `json:"last_error,omitempty"`
}

// StartedPayload announces a validated debate start.
type StartedPayload struct {
	Topic          string `json:"topic"`
	Persona1       string `json:"persona1"`
	Persona2       string `json:"persona2"`
	CurrentSpeaker string `json:"current_speaker"`
}

// UtterancesPayload carries newly generated utterances in speaking order.
type UtterancesPayload struct {
	Utterances []core.UtteranceInfo `json:"utterances"`
	Exchange   int                  `json:"exchange"`
}

// AudioReadyPayload announces playable audio for one utterance.
type AudioReadyPayload struct {
	Index   int           `json:"index"`
	Speaker string        `json:"speaker"`
	Audio   core.AudioRef `json:"audio"`
}

// SpeakerStatusPayload reports who holds the floor and what they are doing.
type SpeakerStatusPayload struct {
	Speaker string `json:"speaker"`
	Status  string `json:"status"`
}

// WarningPayload carries a non-fatal problem the client may surface.
type WarningPayload struct {
	Error string `json:"error"`
}

// ErrorPayload carries a fatal session error.
type ErrorPayload struct {
	Error string `json:"error"`
}

// FinishedPayload announces the exchange limit was reached.
type FinishedPayload struct {
	Exchanges int `json:"exchanges"`
}

// InteractionRequiredPayload asks the client for a user gesture.
type InteractionRequiredPayload struct {
	Reason string `json:"reason"`
}

// SessionResetPayload announces a return to idle.
type SessionResetPayload struct {
	Reason string `json:"reason,omitempty"`
}
