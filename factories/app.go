package factories

import (
	"context"
	"fmt"

	"debatekit/core"
	"debatekit/debate"
	"debatekit/personas"
	"debatekit/server"
	"debatekit/services/elevenlabs/stream"
	eltts "debatekit/services/elevenlabs/tts"
	"debatekit/services/openai/llm"
	"debatekit/services/openai/stt"
	"debatekit/services/openai/tts"
	"debatekit/speech"
	"debatekit/store"
)

// App bundles the built server with everything that needs teardown.
type App struct {
	Server *server.Server

	llm    *llm.OpenAILLMService
	tts    *tts.OpenAITTSService
	stt    *stt.OpenAISTTService
	eltts  *eltts.ElevenLabsTTS
	stream *stream.Streamer
	mirror *store.Mirror
	store  store.Store
}

// BuildApp wires the whole application from settings and credentials.
func BuildApp(ctx context.Context, settings SettingsConfig, keys APIKeys, logger *core.Logger) (*App, error) {
	if logger == nil {
		logger = core.GetLogger()
	}
	if keys.OpenAI == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	app := &App{}

	registry := personas.NewDefaultRegistry(logger)

	app.llm = llm.NewOpenAILLMService(llm.Config{
		APIKey:      keys.OpenAI,
		Model:       settings.LLM.Model,
		MaxTokens:   settings.LLM.MaxTokens,
		Temperature: settings.LLM.Temperature,
	})
	if err := app.llm.Init(ctx); err != nil {
		return nil, fmt.Errorf("init completion service: %w", err)
	}

	app.tts = tts.NewOpenAITTSService(tts.Config{
		APIKey: keys.OpenAI,
		Model:  settings.Speech.OpenAIModel,
	})
	if err := app.tts.Init(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("init speech service: %w", err)
	}

	app.stt = stt.NewOpenAISTTService(stt.Config{
		APIKey: keys.OpenAI,
		Model:  settings.Speech.WhisperModel,
	})
	if err := app.stt.Init(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("init transcription service: %w", err)
	}

	var elEngine speech.Engine
	if keys.ElevenLabs != "" {
		elCfg := settings.Speech.ElevenLabs
		elCfg.APIKey = keys.ElevenLabs
		app.eltts = eltts.NewElevenLabsTTS(elCfg, logger)
		if err := app.eltts.Init(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("init elevenlabs service: %w", err)
		}
		elEngine = app.eltts

		if settings.Speech.Streaming {
			app.stream = stream.NewStreamer(stream.Config{
				APIKey:          keys.ElevenLabs,
				ModelID:         elCfg.ModelID,
				Stability:       elCfg.Stability,
				SimilarityBoost: elCfg.SimilarityBoost,
			}, logger)
			if err := app.stream.Init(ctx); err != nil {
				app.Close()
				return nil, fmt.Errorf("init elevenlabs streamer: %w", err)
			}
		}
	} else {
		logger.Warn("no ElevenLabs API key configured, using default voices only")
	}

	gateway := speech.NewGateway(app.tts, elEngine, speech.GatewayConfig{
		RequestsPerSecond: settings.Speech.RequestsPerSecond,
		Burst:             settings.Speech.Burst,
	}, logger)

	if settings.Redis != nil && settings.Redis.Addr != "" {
		redisStore, err := store.NewRedisStore(ctx, *settings.Redis)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.store = redisStore
	} else {
		logger.Info("no redis configured, using in-memory store")
		app.store = store.NewMemoryStore()
	}
	app.mirror = store.NewMirror(app.store, logger)

	app.Server = server.New(settings.Server, server.Deps{
		Logger:             logger,
		Registry:           registry,
		Turns:              debate.NewTurnGenerator(app.llm, logger),
		Gateway:            gateway,
		Transcriber:        speech.NewTranscriber(app.stt, logger),
		Streamer:           app.stream,
		Counter:            store.NewQuestionCounter(app.store),
		Mirror:             app.mirror,
		OrchestratorConfig: settings.Debate,
		TurnOptions:        debate.TurnOptions{HistoricalContext: settings.Debate.HistoricalContext},
	})
	return app, nil
}

// Close tears down every service the app owns. Safe on a partially built app.
func (a *App) Close() {
	if a.mirror != nil {
		a.mirror.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.stream != nil {
		a.stream.Cleanup()
	}
	if a.eltts != nil {
		a.eltts.Cleanup()
	}
	if a.stt != nil {
		a.stt.Cleanup()
	}
	if a.tts != nil {
		a.tts.Cleanup()
	}
	if a.llm != nil {
		a.llm.Cleanup()
	}
}
