package core

import (
	"errors"
	"fmt"
)

// InvalidRequestError marks caller mistakes: missing persona, empty topic,
// malformed transcript. Never retried.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// NewInvalidRequest builds an InvalidRequestError with a formatted reason.
func NewInvalidRequest(format string, args ...interface{}) *InvalidRequestError {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}

// GenerationFailedError marks a completion-collaborator failure. Status and
// Detail carry the upstream diagnostics; the orchestrator retries these.
type GenerationFailedError struct {
	Status int
	Detail string
	Err    error
}

func (e *GenerationFailedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("generation failed (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationFailedError) Unwrap() error {
	return e.Err
}

// SynthesisFailedError marks a text-to-speech failure. Absorbed by the
// orchestrator: the affected utterance plays silently.
type SynthesisFailedError struct {
	Voice string
	Err   error
}

func (e *SynthesisFailedError) Error() string {
	return fmt.Sprintf("synthesis failed for voice %q: %v", e.Voice, e.Err)
}

func (e *SynthesisFailedError) Unwrap() error {
	return e.Err
}

// TranscriptionFailedError marks a speech-to-text failure.
type TranscriptionFailedError struct {
	Detail string
	Err    error
}

func (e *TranscriptionFailedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("transcription failed: %s", e.Detail)
	}
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionFailedError) Unwrap() error {
	return e.Err
}

// PlaybackBlockedError marks an autoplay denial by the browser. The remedy
// is a user gesture, so it is surfaced separately from generic errors.
type PlaybackBlockedError struct {
	Reason string
}

func (e *PlaybackBlockedError) Error() string {
	return fmt.Sprintf("playback blocked: %s", e.Reason)
}

func IsInvalidRequest(err error) bool {
	var target *InvalidRequestError
	return errors.As(err, &target)
}

func IsGenerationFailed(err error) bool {
	var target *GenerationFailedError
	return errors.As(err, &target)
}

func IsSynthesisFailed(err error) bool {
	var target *SynthesisFailedError
	return errors.As(err, &target)
}

func IsTranscriptionFailed(err error) bool {
	var target *TranscriptionFailedError
	return errors.As(err, &target)
}

func IsPlaybackBlocked(err error) bool {
	var target *PlaybackBlockedError
	return errors.As(err, &target)
}
