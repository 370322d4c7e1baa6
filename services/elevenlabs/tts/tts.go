package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"

	"debatekit/core"
)

// ElevenLabsTTSConfig holds configuration for the ElevenLabs TTS service
type ElevenLabsTTSConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	ModelID string `json:"model_id"`

	// Voice settings
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`

	// MaxElapsedTime caps the retry window for one synthesis request.
	MaxElapsedTime time.Duration `json:"max_elapsed_time"`
}

// ElevenLabsTTS renders text through the ElevenLabs HTTP synthesis endpoint.
// The voice identifier is chosen per request, one voice per historical figure.
type ElevenLabsTTS struct {
	config ElevenLabsTTSConfig
	client *http.Client
	logger *core.Logger

	isInitialized bool
	mu            sync.RWMutex
}

type elSynthesisRequest struct {
	Text          string          `json:"text"`
	ModelID       string          `json:"model_id"`
	VoiceSettings elVoiceSettings `json:"voice_settings"`
}

type elVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// NewElevenLabsTTS creates a new ElevenLabs TTS service with the provided config
func NewElevenLabsTTS(config ElevenLabsTTSConfig, logger *core.Logger) *ElevenLabsTTS {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.elevenlabs.io/v1/text-to-speech"
	}
	if config.ModelID == "" {
		config.ModelID = "eleven_monolingual_v1"
	}
	if config.Stability == 0 {
		config.Stability = 0.5
	}
	if config.SimilarityBoost == 0 {
		config.SimilarityBoost = 0.75
	}
	if config.MaxElapsedTime == 0 {
		config.MaxElapsedTime = 20 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &ElevenLabsTTS{
		config: config,
		logger: logger,
	}
}

// Init initializes the ElevenLabs TTS service
func (e *ElevenLabsTTS) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isInitialized {
		return nil
	}
	if e.config.APIKey == "" {
		return errors.New("ElevenLabs API key is required")
	}

	e.client = &http.Client{Timeout: 30 * time.Second}
	e.isInitialized = true
	return nil
}

// Cleanup performs cleanup of the ElevenLabs TTS service
func (e *ElevenLabsTTS) Cleanup() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.client = nil
	e.isInitialized = false
	return nil
}

// Synthesize renders text with the given ElevenLabs voice and returns MP3
// bytes. Transient upstream failures (429, 5xx, network errors) are retried
// with exponential backoff until the configured window runs out.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	e.mu.RLock()
	if !e.isInitialized {
		e.mu.RUnlock()
		return nil, errors.New("ElevenLabs TTS service not initialized")
	}
	client := e.client
	e.mu.RUnlock()

	if text == "" {
		return nil, core.NewInvalidRequest("text cannot be empty")
	}
	if voiceID == "" {
		return nil, core.NewInvalidRequest("voice id cannot be empty")
	}

	payload, err := sonic.Marshal(elSynthesisRequest{
		Text:    text,
		ModelID: e.config.ModelID,
		VoiceSettings: elVoiceSettings{
			Stability:       e.config.Stability,
			SimilarityBoost: e.config.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, &core.SynthesisFailedError{Voice: voiceID, Err: err}
	}

	url := fmt.Sprintf("%s/%s", e.config.BaseURL, voiceID)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = e.config.MaxElapsedTime

	var audio []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "audio/mpeg")
		req.Header.Set("xi-api-key", e.config.APIKey)

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			err := fmt.Errorf("elevenlabs returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}

		audio, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if len(audio) == 0 {
			return backoff.Permanent(errors.New("empty audio response"))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		e.logger.Warn("elevenlabs synthesis retrying", "voice", voiceID, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, &core.SynthesisFailedError{Voice: voiceID, Err: err}
	}
	return audio, nil
}

// MIMEType reports the container format Synthesize produces.
func (e *ElevenLabsTTS) MIMEType() string {
	return "audio/mpeg"
}
