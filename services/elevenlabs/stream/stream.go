package stream

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"debatekit/core"
)

// Config holds configuration for the ElevenLabs streaming client
type Config struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	ModelID string `json:"model_id"`

	// Voice settings
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Streamer speaks the ElevenLabs stream-input protocol over WebSocket. Unlike
// the batch synthesis endpoint it starts delivering audio while generation is
// still running, which is what live narration needs.
//
// Each StreamSpeech call is one connection: BOS, the utterance text, EOS,
// then audio chunks until the server signals the final one.
type Streamer struct {
	config Config
	logger *core.Logger

	isInitialized bool
	mu            sync.RWMutex
}

// Client messages
type (
	// BOS (Beginning of Stream) - sent once on connect
	bosMessage struct {
		Text             string        `json:"text"`
		VoiceSettings    voiceSettings `json:"voice_settings"`
		GenerationConfig genConfig     `json:"generation_config"`
	}

	voiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	}

	genConfig struct {
		ChunkLengthSchedule []int `json:"chunk_length_schedule"`
	}

	textMessage struct {
		Text string `json:"text"`
	}
)

// Server messages
type audioMessage struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// NewStreamer creates a new ElevenLabs streaming client with the provided config
func NewStreamer(config Config, logger *core.Logger) *Streamer {
	if config.BaseURL == "" {
		config.BaseURL = "wss://api.elevenlabs.io/v1/text-to-speech"
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
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Streamer{config: config, logger: logger}
}

// Init initializes the streaming client
func (s *Streamer) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.APIKey == "" {
		return errors.New("ElevenLabs API key is required")
	}
	s.isInitialized = true
	return nil
}

// Cleanup performs cleanup operations
func (s *Streamer) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isInitialized = false
	return nil
}

// StreamSpeech synthesizes text with the given voice, delivering MP3 chunks
// on out as they arrive. It returns once the server marks the final chunk or
// the context is done. The out channel is not closed; the caller owns it.
func (s *Streamer) StreamSpeech(ctx context.Context, text, voiceID string, out chan<- []byte) error {
	s.mu.RLock()
	if !s.isInitialized {
		s.mu.RUnlock()
		return errors.New("streaming client not initialized")
	}
	cfg := s.config
	s.mu.RUnlock()

	if text == "" {
		return core.NewInvalidRequest("text cannot be empty")
	}
	if voiceID == "" {
		return core.NewInvalidRequest("voice id cannot be empty")
	}

	conn, err := s.dial(ctx, cfg, voiceID)
	if err != nil {
		return &core.SynthesisFailedError{Voice: voiceID, Err: err}
	}
	defer func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		conn.Close()
	}()

	// Close the connection when the context dies so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	bos := bosMessage{
		Text: " ",
		VoiceSettings: voiceSettings{
			Stability:       cfg.Stability,
			SimilarityBoost: cfg.SimilarityBoost,
		},
		GenerationConfig: genConfig{
			ChunkLengthSchedule: []int{120, 160, 250, 290},
		},
	}
	if err := s.sendJSON(conn, bos); err != nil {
		return &core.SynthesisFailedError{Voice: voiceID, Err: fmt.Errorf("failed to send BOS: %w", err)}
	}
	if err := s.sendJSON(conn, textMessage{Text: text + " "}); err != nil {
		return &core.SynthesisFailedError{Voice: voiceID, Err: err}
	}
	// EOS: empty text tells the server to finish generation and flush.
	if err := s.sendJSON(conn, textMessage{Text: ""}); err != nil {
		return &core.SynthesisFailedError{Voice: voiceID, Err: err}
	}

	for {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return &core.SynthesisFailedError{Voice: voiceID, Err: err}
		}

		var msg audioMessage
		if err := sonic.Unmarshal(message, &msg); err != nil {
			s.logger.Warn("elevenlabs stream: unparseable message", "error", err)
			continue
		}
		if msg.Error != "" {
			return &core.SynthesisFailedError{Voice: voiceID,
				Err: fmt.Errorf("elevenlabs error %d: %s", msg.Code, msg.Message)}
		}
		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				s.logger.Warn("elevenlabs stream: bad audio chunk", "error", err)
				continue
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if msg.IsFinal {
			return nil
		}
	}
}

func (s *Streamer) dial(ctx context.Context, cfg Config, voiceID string) (*websocket.Conn, error) {
	url := fmt.Sprintf("%s/%s/stream-input?model_id=%s&output_format=mp3_44100_128",
		cfg.BaseURL, voiceID, cfg.ModelID)

	headers := map[string][]string{
		"xi-api-key": {cfg.APIKey},
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *Streamer) sendJSON(conn *websocket.Conn, msg interface{}) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}
