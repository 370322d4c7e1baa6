package speech

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"debatekit/core"
)

// Engine is one synthesis backend.
type Engine interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	MIMEType() string
}

// GatewayConfig tunes the synthesis gateway.
type GatewayConfig struct {
	// RequestsPerSecond throttles outbound synthesis calls across all
	// sessions. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// Gateway routes synthesis requests to the right backend by inspecting the
// voice identifier, throttles them, and packages the audio as a playable
// reference. No caching: every utterance is fresh text, so identical requests
// essentially never repeat.
type Gateway struct {
	openai     Engine
	elevenlabs Engine
	limiter    *rate.Limiter
	logger     *core.Logger
}

// NewGateway wires a gateway over the two backends. elevenlabs may be nil
// when no ElevenLabs key is configured; its voices then fall back to the
// OpenAI default voice.
func NewGateway(openai, elevenlabs Engine, cfg GatewayConfig, logger *core.Logger) *Gateway {
	if logger == nil {
		logger = core.GetLogger()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Gateway{
		openai:     openai,
		elevenlabs: elevenlabs,
		limiter:    limiter,
		logger:     logger,
	}
}

// IsElevenLabsVoice reports whether a voice identifier looks like a
// configured ElevenLabs voice id rather than a built-in voice name: longer
// than ten characters and strictly alphanumeric.
func IsElevenLabsVoice(voice string) bool {
	if len(voice) <= 10 {
		return false
	}
	for _, r := range voice {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Synthesize renders text with the given voice and returns a self-contained
// data-URL audio reference.
func (g *Gateway) Synthesize(ctx context.Context, text, voice string) (core.AudioRef, error) {
	if text == "" {
		return core.AudioRef{}, core.NewInvalidRequest("text cannot be empty")
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return core.AudioRef{}, &core.SynthesisFailedError{Voice: voice, Err: err}
		}
	}

	engine := g.openai
	if IsElevenLabsVoice(voice) {
		if g.elevenlabs != nil {
			engine = g.elevenlabs
		} else {
			g.logger.Warn("elevenlabs voice requested but backend not configured, using default voice", "voice", voice)
			voice = ""
		}
	}
	if engine == nil {
		return core.AudioRef{}, &core.SynthesisFailedError{Voice: voice, Err: fmt.Errorf("no synthesis backend configured")}
	}

	data, err := engine.Synthesize(ctx, text, voice)
	if err != nil {
		return core.AudioRef{}, err
	}

	mime := engine.MIMEType()
	return core.AudioRef{
		ID:   uuid.New().String(),
		URL:  fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)),
		MIME: mime,
	}, nil
}
