package factories

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	"debatekit/debate"
	"debatekit/server"
	eltts "debatekit/services/elevenlabs/tts"
	"debatekit/store"
)

// LLMSettings tunes the completion backend. The API key comes from the
// environment, never from settings.json.
type LLMSettings struct {
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
}

// SpeechSettings tunes the synthesis and transcription backends.
type SpeechSettings struct {
	OpenAIModel       string                    `json:"openai_model,omitempty"`
	WhisperModel      string                    `json:"whisper_model,omitempty"`
	ElevenLabs        eltts.ElevenLabsTTSConfig `json:"elevenlabs,omitempty"`
	RequestsPerSecond float64                   `json:"requests_per_second,omitempty"`
	Burst             int                       `json:"burst,omitempty"`

	// Streaming enables the live-narration WebSocket endpoint.
	Streaming bool `json:"streaming,omitempty"`
}

// SettingsConfig is the top-level config loaded from settings.json.
type SettingsConfig struct {
	Server server.Config      `json:"server"`
	LLM    LLMSettings        `json:"llm"`
	Speech SpeechSettings     `json:"speech"`
	Debate debate.Config      `json:"debate"`
	Redis  *store.RedisConfig `json:"redis,omitempty"`
}

// DefaultSettingsConfig returns a SettingsConfig pre-filled with defaults.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Server: server.Config{
			Addr:      ":3000",
			ViewsDir:  "./static",
			StaticDir: "./static",
		},
		Debate: debate.DefaultConfig(),
	}
}

// SettingsConfigFromJSON parses a JSON blob into a SettingsConfig, layered
// over the defaults so partial files stay valid.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}
	return cfg, nil
}

// SettingsConfigFromFile reads and parses a SettingsConfig from a JSON file.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: read %q: %w", path, err)
	}
	return SettingsConfigFromJSON(data)
}

// APIKeys holds the provider credentials, sourced from the environment.
type APIKeys struct {
	OpenAI     string
	ElevenLabs string
}

// LoadAPIKeysFromEnv reads provider keys, accepting the legacy
// ELEVEN_LABS_API_KEY spelling as a fallback.
func LoadAPIKeysFromEnv() APIKeys {
	keys := APIKeys{
		OpenAI:     os.Getenv("OPENAI_API_KEY"),
		ElevenLabs: os.Getenv("ELEVENLABS_API_KEY"),
	}
	if keys.ElevenLabs == "" {
		keys.ElevenLabs = os.Getenv("ELEVEN_LABS_API_KEY")
	}
	return keys
}
