package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"

	"debatekit/core"
)

// OpenAILLMService runs non-streaming chat completions against OpenAI.
type OpenAILLMService struct {
	client      *openai.Client
	apiKey      string
	model       string
	maxTokens   int
	temperature float32

	// Service state
	isInitialized bool
	mu            sync.RWMutex
}

// Config holds the configuration for the OpenAI completion service
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// NewOpenAILLMService creates a new instance of OpenAILLMService
func NewOpenAILLMService(config Config) *OpenAILLMService {
	if config.Model == "" {
		config.Model = openai.GPT4
	}
	return &OpenAILLMService{
		apiKey:      config.APIKey,
		model:       config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
	}
}

// Init initializes the OpenAI service
func (s *OpenAILLMService) Init(ctx context.Context) error {
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
func (s *OpenAILLMService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.client = nil
	s.isInitialized = false
	return nil
}

// Reset recreates the client with the same config
func (s *OpenAILLMService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.client = openai.NewClient(s.apiKey)
	return nil
}

// Complete runs one chat completion and returns the generated text. Upstream
// failures come back as GenerationFailedError so callers can retry.
func (s *OpenAILLMService) Complete(ctx context.Context, messages []core.Message) (string, error) {
	s.mu.RLock()
	if !s.isInitialized {
		s.mu.RUnlock()
		return "", fmt.Errorf("OpenAI service not initialized")
	}
	client := s.client
	s.mu.RUnlock()

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    convertMessages(messages),
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &core.GenerationFailedError{Status: apiErr.HTTPStatusCode, Detail: apiErr.Message, Err: err}
		}
		return "", &core.GenerationFailedError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &core.GenerationFailedError{Detail: "completion returned no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

// convertMessages converts core messages to OpenAI messages
func convertMessages(messages []core.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    convertRole(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}

// convertRole converts core role to OpenAI role
func convertRole(role core.MessageRole) string {
	switch role {
	case core.MessageRoleSystem:
		return openai.ChatMessageRoleSystem
	case core.MessageRoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
