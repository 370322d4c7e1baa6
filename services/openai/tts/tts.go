package tts

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sashabaranov/go-openai"

	"debatekit/core"
)

// OpenAITTSService synthesizes speech through the OpenAI speech endpoint.
// It serves the built-in voice names (echo, nova, alloy, ...); configured
// ElevenLabs voice identifiers go through the ElevenLabs service instead.
type OpenAITTSService struct {
	client *openai.Client
	apiKey string
	model  openai.SpeechModel

	// Service state
	isInitialized bool
	mu            sync.RWMutex
}

// Config holds the configuration for the OpenAI speech service
type Config struct {
	APIKey string
	Model  string
}

// NewOpenAITTSService creates a new instance of OpenAITTSService
func NewOpenAITTSService(config Config) *OpenAITTSService {
	model := openai.SpeechModel(config.Model)
	if model == "" {
		model = openai.TTSModel1
	}
	return &OpenAITTSService{
		apiKey: config.APIKey,
		model:  model,
	}
}

// Init initializes the OpenAI speech service
func (s *OpenAITTSService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.apiKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}

	s.client = openai.NewClient(s.apiKey)
	s.isInitialized = true
	return nil
}

// Cleanup performs cleanup operations
func (s *OpenAITTSService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.client = nil
	s.isInitialized = false
	return nil
}

// Synthesize renders text with the given voice and returns MP3 bytes.
func (s *OpenAITTSService) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	s.mu.RLock()
	if !s.isInitialized {
		s.mu.RUnlock()
		return nil, fmt.Errorf("OpenAI speech service not initialized")
	}
	client := s.client
	s.mu.RUnlock()

	if text == "" {
		return nil, core.NewInvalidRequest("text cannot be empty")
	}
	if voice == "" {
		voice = string(openai.VoiceEcho)
	}

	resp, err := client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, &core.SynthesisFailedError{Voice: voice, Err: err}
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, &core.SynthesisFailedError{Voice: voice, Err: err}
	}
	if len(data) == 0 {
		return nil, &core.SynthesisFailedError{Voice: voice, Err: fmt.Errorf("empty audio response")}
	}
	return data, nil
}

// MIMEType reports the container format Synthesize produces.
func (s *OpenAITTSService) MIMEType() string {
	return "audio/mpeg"
}
