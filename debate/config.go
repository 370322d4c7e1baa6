package debate

import "time"

// Config consolidates the orchestration knobs. The source material disagreed
// with itself on several of these (exchange limits, retry counts, delays), so
// they are parameters with defaults rather than constants.
type Config struct {
	// MaxExchanges is the number of continuation rounds after the opening
	// pair. The opening pair counts as exchange 0; the session finishes once
	// the counter reaches this value (compared with >=).
	MaxExchanges int `json:"max_exchanges,omitempty"`

	// RetryAttempts is the number of consecutive continuation failures
	// tolerated before the session enters the Error phase.
	RetryAttempts int `json:"retry_attempts,omitempty"`

	// RetryDelay is the fixed delay between automatic continuation retries.
	RetryDelay time.Duration `json:"retry_delay,omitempty"`

	// RequestTimeout bounds every generation and synthesis call so a hung
	// upstream request cannot stall the session forever.
	RequestTimeout time.Duration `json:"request_timeout,omitempty"`

	// NextUtteranceDelay is the pause between one utterance's playback
	// ending and the next one being synthesized.
	NextUtteranceDelay time.Duration `json:"next_utterance_delay,omitempty"`

	// ContinueDelay is the pause between a pair finishing playback and the
	// next continuation request being issued.
	ContinueDelay time.Duration `json:"continue_delay,omitempty"`

	// FinishGrace is how long a finished session lingers before
	// auto-resetting, so the final utterance can be appreciated.
	FinishGrace time.Duration `json:"finish_grace,omitempty"`

	// HistoricalContext restricts personas to knowledge available during
	// their lifetime.
	HistoricalContext bool `json:"historical_context,omitempty"`
}

// DefaultConfig returns the defaults. MaxExchanges of 3 reproduces the
// source behavior of eight utterances per debate: one opening pair plus
// three continuation rounds.
func DefaultConfig() Config {
	return Config{
		MaxExchanges:       3,
		RetryAttempts:      3,
		RetryDelay:         2 * time.Second,
		RequestTimeout:     30 * time.Second,
		NextUtteranceDelay: 500 * time.Millisecond,
		ContinueDelay:      time.Second,
		FinishGrace:        2 * time.Second,
		HistoricalContext:  true,
	}
}
