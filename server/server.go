package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/gofiber/websocket/v2"

	"debatekit/core"
	"debatekit/debate"
	"debatekit/personas"
	"debatekit/services/elevenlabs/stream"
	"debatekit/speech"
	"debatekit/store"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr      string `json:"addr"`
	ViewsDir  string `json:"views_dir"`
	StaticDir string `json:"static_dir"`
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Logger      *core.Logger
	Registry    *personas.Registry
	Turns       *debate.TurnGenerator
	Gateway     *speech.Gateway
	Transcriber *speech.Transcriber
	Streamer    *stream.Streamer
	Counter     *store.QuestionCounter
	Mirror      *store.Mirror

	// OrchestratorConfig is applied to each per-connection debate session.
	OrchestratorConfig debate.Config
	TurnOptions        debate.TurnOptions
}

// Server exposes the debate REST API, the orchestrated WebSocket session and
// the static front end.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *core.Logger
	deps   Deps
}

func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = core.GetLogger()
	}

	fiberCfg := fiber.Config{
		DisableStartupMessage: true,
		// Data-URL audio payloads for a full exchange run into megabytes.
		BodyLimit: 16 * 1024 * 1024,
	}
	if cfg.ViewsDir != "" {
		fiberCfg.Views = html.New(cfg.ViewsDir, ".html")
	}

	app := fiber.New(fiberCfg)
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		app:    app,
		cfg:    cfg,
		logger: deps.Logger,
		deps:   deps,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	if s.cfg.ViewsDir != "" {
		s.app.Get("/", s.handleIndex)
	}
	if s.cfg.StaticDir != "" {
		s.app.Static("/static", s.cfg.StaticDir)
	}

	api := s.app.Group("/api")
	api.Get("/characters", s.handleCharacters)
	api.Get("/get-voice-ids", s.handleGetVoiceIDs)
	api.Post("/start-debate", s.handleStartDebate)
	api.Post("/auto-continue", s.handleAutoContinue)
	api.Post("/continue-debate", s.handleContinueDebate)
	api.Post("/ask", s.handleAsk)
	api.Post("/speak", s.handleSpeak)
	api.Post("/transcribe", s.handleTranscribe)
	api.Get("/question-count", s.handleQuestionCountGet)
	api.Post("/question-count", s.handleQuestionCountPost)
	api.Delete("/question-count", s.handleQuestionCountDelete)

	s.app.Get("/ws/debate", upgradeRequired, websocket.New(s.handleDebateSocket))
	if s.deps.Streamer != nil {
		s.app.Get("/ws/narrate/:character", upgradeRequired, websocket.New(s.handleNarrateSocket))
	}
}

func upgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	s.logger.Info("server listening", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
