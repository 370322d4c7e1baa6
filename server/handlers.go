package server

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"debatekit/core"
	"debatekit/debate"
	"debatekit/personas"
)

type debateRequest struct {
	Character1   string          `json:"character1"`
	Character2   string          `json:"character2"`
	Topic        string          `json:"topic"`
	Messages     []debateMessage `json:"messages"`
	UserQuestion string          `json:"userQuestion"`
}

type debateMessage struct {
	Character string `json:"character"`
	Content   string `json:"content"`
}

type speakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type askRequest struct {
	Character string `json:"character"`
	Question  string `json:"question"`
}

type questionCountRequest struct {
	Character string `json:"character"`
	Question  string `json:"question"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{
		"Characters": s.roster(),
	})
}

func (s *Server) handleCharacters(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"characters": s.roster()})
}

func (s *Server) roster() []personas.Persona {
	ids := s.deps.Registry.ListIDs()
	out := make([]personas.Persona, 0, len(ids))
	for _, id := range ids {
		if p, err := s.deps.Registry.Resolve(id); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) handleGetVoiceIDs(c *fiber.Ctx) error {
	voices := s.deps.Registry.Voices()
	if voices == nil {
		voices = personas.VoiceTable{}
	}
	return c.JSON(voices)
}

func (s *Server) handleStartDebate(c *fiber.Ctx) error {
	var req debateRequest
	if err := c.BodyParser(&req); err != nil {
		return s.httpError(c, core.NewInvalidRequest("malformed request body"))
	}

	p1, p2, err := s.resolvePair(req.Character1, req.Character2)
	if err != nil {
		return s.httpError(c, err)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	openings, err := s.deps.Turns.StartDebate(ctx, p1, p2, req.Topic, s.deps.TurnOptions)
	if err != nil {
		return s.httpError(c, err)
	}

	audio1 := s.synthesizeURL(ctx, p1.ID, openings.Opening1.Text)
	audio2 := s.synthesizeURL(ctx, p2.ID, openings.Opening2.Text)

	return c.JSON(fiber.Map{
		"opening1":  openings.Opening1.Text,
		"opening2":  openings.Opening2.Text,
		"audioUrl1": audio1,
		"audioUrl2": audio2,
	})
}

// handleAutoContinue advances the debate one exchange. The reply keys are in
// canonical participant order regardless of who spoke first this round.
func (s *Server) handleAutoContinue(c *fiber.Ctx) error {
	var req debateRequest
	if err := c.BodyParser(&req); err != nil {
		return s.httpError(c, core.NewInvalidRequest("malformed request body"))
	}

	p1, p2, err := s.resolvePair(req.Character1, req.Character2)
	if err != nil {
		return s.httpError(c, err)
	}
	transcript := transcriptFromMessages(req.Messages)

	ctx, cancel := s.requestContext(c)
	defer cancel()

	round, err := s.deps.Turns.ContinueDebate(ctx, p1, p2, transcript, req.Topic, s.deps.TurnOptions)
	if err != nil {
		return s.httpError(c, err)
	}

	byCharacter := map[string]string{
		round.First.Speaker:  round.First.Text,
		round.Second.Speaker: round.Second.Text,
	}
	return c.JSON(fiber.Map{
		"response1": byCharacter[p1.ID],
		"response2": byCharacter[p2.ID],
		"audioUrl1": s.synthesizeURL(ctx, p1.ID, byCharacter[p1.ID]),
		"audioUrl2": s.synthesizeURL(ctx, p2.ID, byCharacter[p2.ID]),
	})
}

// handleContinueDebate answers a listener question inside an unmanaged
// debate; both personas respond in canonical order.
func (s *Server) handleContinueDebate(c *fiber.Ctx) error {
	var req debateRequest
	if err := c.BodyParser(&req); err != nil {
		return s.httpError(c, core.NewInvalidRequest("malformed request body"))
	}

	p1, p2, err := s.resolvePair(req.Character1, req.Character2)
	if err != nil {
		return s.httpError(c, err)
	}
	transcript := transcriptFromMessages(req.Messages)

	ctx, cancel := s.requestContext(c)
	defer cancel()

	round, err := s.deps.Turns.RespondToQuestion(ctx, p1, p2, transcript, req.UserQuestion, s.deps.TurnOptions)
	if err != nil {
		return s.httpError(c, err)
	}

	return c.JSON(fiber.Map{
		"response1": round.First.Text,
		"response2": round.Second.Text,
		"audioUrl1": s.synthesizeURL(ctx, p1.ID, round.First.Text),
		"audioUrl2": s.synthesizeURL(ctx, p2.ID, round.Second.Text),
	})
}

func (s *Server) handleAsk(c *fiber.Ctx) error {
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return s.httpError(c, core.NewInvalidRequest("malformed request body"))
	}
	if req.Character == "" {
		req.Character = "daVinci"
	}

	p, err := s.deps.Registry.Resolve(req.Character)
	if err != nil {
		return s.httpError(c, err)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	answer, err := s.deps.Turns.Answer(ctx, p, req.Question, s.deps.TurnOptions)
	if err != nil {
		return s.httpError(c, err)
	}

	if s.deps.Counter != nil {
		if _, err := s.deps.Counter.Record(ctx, p.ID, req.Question); err != nil {
			s.logger.Warn("failed to record question count", "character", p.ID, "error", err)
		}
	}

	return c.JSON(fiber.Map{
		"answer":   answer.Text,
		"audioUrl": s.synthesizeURL(ctx, p.ID, answer.Text),
	})
}

func (s *Server) handleSpeak(c *fiber.Ctx) error {
	var req speakRequest
	if err := c.BodyParser(&req); err != nil {
		return s.httpError(c, core.NewInvalidRequest("malformed request body"))
	}
	if req.Text == "" {
		return s.httpError(c, core.NewInvalidRequest("text is required"))
	}
	if req.Voice == "" {
		req.Voice = "alloy"
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	ref, err := s.deps.Gateway.Synthesize(ctx, req.Text, req.Voice)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(fiber.Map{"audioUrl": ref.URL})
}

func (s *Server) handleTranscribe(c *fiber.Ctx) error {
	if s.deps.Transcriber == nil {
		return s.httpError(c, core.NewInvalidRequest("transcription is not configured"))
	}

	file, err := c.FormFile("audio")
	if err != nil {
		if file, err = c.FormFile("file"); err != nil {
			return s.httpError(c, core.NewInvalidRequest("missing audio upload"))
		}
	}
	data, err := readUpload(file)
	if err != nil {
		return s.httpError(c, core.NewInvalidRequest("unreadable audio upload"))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	text, err := s.deps.Transcriber.Transcribe(ctx, file.Filename, data)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(fiber.Map{"text": text})
}

func (s *Server) handleQuestionCountGet(c *fiber.Ctx) error {
	if s.deps.Counter == nil {
		return c.JSON(fiber.Map{"questions": []any{}})
	}
	character := c.Query("character", "daVinci")

	counts, err := s.deps.Counter.Popular(c.UserContext(), character)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(fiber.Map{"questions": counts})
}

func (s *Server) handleQuestionCountPost(c *fiber.Ctx) error {
	if s.deps.Counter == nil {
		return c.JSON(fiber.Map{"success": true})
	}
	var req questionCountRequest
	if err := c.BodyParser(&req); err != nil {
		return s.httpError(c, core.NewInvalidRequest("malformed request body"))
	}
	if req.Question == "" {
		return s.httpError(c, core.NewInvalidRequest("missing question"))
	}
	if req.Character == "" {
		req.Character = "daVinci"
	}

	if _, err := s.deps.Counter.Record(c.UserContext(), req.Character, req.Question); err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleQuestionCountDelete(c *fiber.Ctx) error {
	if s.deps.Counter == nil {
		return c.JSON(fiber.Map{"success": true})
	}
	character := c.Query("character")
	question := c.Query("question")

	ctx := c.UserContext()
	var err error
	switch {
	case character != "" && question != "":
		err = s.deps.Counter.Remove(ctx, character, question)
	case character != "":
		err = s.deps.Counter.Reset(ctx, character)
	default:
		err = s.deps.Counter.ResetAll(ctx, s.deps.Registry.ListIDs())
	}
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// --- helpers ----------------------------------------------------------------

func (s *Server) resolvePair(id1, id2 string) (personas.Persona, personas.Persona, error) {
	p1, err := s.deps.Registry.Resolve(id1)
	if err != nil {
		return personas.Persona{}, personas.Persona{}, err
	}
	p2, err := s.deps.Registry.Resolve(id2)
	if err != nil {
		return personas.Persona{}, personas.Persona{}, err
	}
	return p1, p2, nil
}

func (s *Server) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	timeout := s.deps.OrchestratorConfig.RequestTimeout
	if timeout <= 0 {
		timeout = debate.DefaultConfig().RequestTimeout
	}
	return context.WithTimeout(c.UserContext(), timeout)
}

// synthesizeURL renders audio for one REST reply, best effort: the debate
// text is still useful when a voice is unavailable.
func (s *Server) synthesizeURL(ctx context.Context, characterID, text string) string {
	if s.deps.Gateway == nil || text == "" {
		return ""
	}
	voice, err := s.deps.Registry.VoiceFor(characterID)
	if err != nil {
		return ""
	}
	ref, err := s.deps.Gateway.Synthesize(ctx, text, voice)
	if err != nil {
		s.logger.Warn("synthesis failed for reply", "character", characterID, "error", err)
		return ""
	}
	return ref.URL
}

func (s *Server) httpError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case core.IsInvalidRequest(err):
		status = fiber.StatusBadRequest
	case core.IsGenerationFailed(err), core.IsSynthesisFailed(err), core.IsTranscriptionFailed(err):
		status = fiber.StatusBadGateway
	}
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func transcriptFromMessages(messages []debateMessage) *debate.Transcript {
	t := &debate.Transcript{}
	for _, m := range messages {
		t.Append(debate.NewUtterance(m.Character, m.Content))
	}
	return t
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
