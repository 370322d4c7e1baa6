package stt

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"debatekit/core"
)

// Recordings below this size are mangled or empty captures and are rejected
// before any network call.
const MinAudioBytes = 1000

// OpenAISTTService transcribes recorded audio through Whisper.
type OpenAISTTService struct {
	client *openai.Client
	apiKey string
	model  string

	// Service state
	isInitialized bool
	mu            sync.RWMutex
}

// Config holds the configuration for the Whisper transcription service
type Config struct {
	APIKey string
	Model  string
}

// NewOpenAISTTService creates a new instance of OpenAISTTService
func NewOpenAISTTService(config Config) *OpenAISTTService {
	if config.Model == "" {
		config.Model = openai.Whisper1
	}
	return &OpenAISTTService{
		apiKey: config.APIKey,
		model:  config.Model,
	}
}

// Init initializes the Whisper transcription service
func (s *OpenAISTTService) Init(ctx context.Context) error {
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
func (s *OpenAISTTService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.client = nil
	s.isInitialized = false
	return nil
}

// Transcribe sends a recorded clip to Whisper and returns the transcript
// text. The filename's extension tells Whisper the container format.
func (s *OpenAISTTService) Transcribe(ctx context.Context, filename string, data []byte) (string, error) {
	s.mu.RLock()
	if !s.isInitialized {
		s.mu.RUnlock()
		return "", fmt.Errorf("Whisper service not initialized")
	}
	client := s.client
	s.mu.RUnlock()

	if len(data) < MinAudioBytes {
		return "", core.NewInvalidRequest("audio file too small to contain speech (%d bytes)", len(data))
	}

	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.model,
		FilePath: normalizeFilename(filename),
		Reader:   bytes.NewReader(data),
	})
	if err != nil {
		return "", &core.TranscriptionFailedError{Err: err}
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", &core.TranscriptionFailedError{Detail: "no speech detected"}
	}
	return resp.Text, nil
}

// normalizeFilename guarantees an extension Whisper recognizes; browser
// recorders commonly upload extension-less webm blobs.
func normalizeFilename(filename string) string {
	if filename == "" {
		return "recording.webm"
	}
	if filepath.Ext(filename) == "" {
		return filename + ".webm"
	}
	return filename
}
