package debate

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"debatekit/core"
	"debatekit/personas"
)

// CompletionClient is the chat-completion collaborator. Implementations
// return the generated text for a non-streaming request or a
// GenerationFailedError.
type CompletionClient interface {
	Complete(ctx context.Context, messages []core.Message) (string, error)
}

// TurnOptions tune how turns are generated.
type TurnOptions struct {
	// HistoricalContext restricts each persona to knowledge available
	// during their lifetime.
	HistoricalContext bool
}

// Openings holds the two opening statements, in canonical participant order.
type Openings struct {
	Opening1 Utterance
	Opening2 Utterance
}

// Round holds one continuation exchange in speaking order: First belongs to
// the persona who did not speak last.
type Round struct {
	First  Utterance
	Second Utterance
}

// TurnGenerator produces utterance text by calling the chat-completion
// collaborator once per speaking persona.
type TurnGenerator struct {
	client CompletionClient
	logger *core.Logger
}

func NewTurnGenerator(client CompletionClient, logger *core.Logger) *TurnGenerator {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &TurnGenerator{client: client, logger: logger}
}

// StartDebate generates both opening statements. The two requests are
// independent (neither persona has heard the other yet), so they run
// concurrently.
func (g *TurnGenerator) StartDebate(ctx context.Context, p1, p2 personas.Persona, topic string, opts TurnOptions) (Openings, error) {
	if err := validateDebate(p1, p2, topic); err != nil {
		return Openings{}, err
	}

	var text1, text2 string
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		t, err := g.openingStatement(egCtx, p1, topic, opts)
		text1 = t
		return err
	})
	eg.Go(func() error {
		t, err := g.openingStatement(egCtx, p2, topic, opts)
		text2 = t
		return err
	})
	if err := eg.Wait(); err != nil {
		return Openings{}, err
	}

	return Openings{
		Opening1: NewUtterance(p1.ID, text1),
		Opening2: NewUtterance(p2.ID, text2),
	}, nil
}

func (g *TurnGenerator) openingStatement(ctx context.Context, p personas.Persona, topic string, opts TurnOptions) (string, error) {
	system := fmt.Sprintf(
		"%s You are participating in a debate on %q. Give a thoughtful opening statement from your perspective. Keep your response concise (2-3 sentences).%s",
		systemPromptFor(p), topic, historicalClause(opts),
	)
	user := fmt.Sprintf("Give your opening statement on the topic of %q.", topic)
	return g.complete(ctx, system, user)
}

// ContinueDebate generates the next exchange. The first new speaker is the
// persona who did not produce the transcript's last utterance; the second
// call's prompt embeds the first call's output, so the two calls are
// sequential by construction.
func (g *TurnGenerator) ContinueDebate(ctx context.Context, p1, p2 personas.Persona, transcript *Transcript, topic string, opts TurnOptions) (Round, error) {
	if err := validateDebate(p1, p2, topic); err != nil {
		return Round{}, err
	}
	if transcript == nil || transcript.Len() == 0 {
		return Round{}, core.NewInvalidRequest("transcript cannot be empty")
	}

	first, second := p1, p2
	if transcript.LastSpeaker() == p1.ID {
		first, second = p2, p1
	}

	debateContext := fmt.Sprintf("Topic: %s\n\n%s", topic, transcript.Render(p1, p2))

	firstSystem := fmt.Sprintf(
		"%s You are participating in a debate on %q. Here is the context of the debate so far:\n%s\nContinue the debate by responding to the previous points. Keep your response concise (2-3 sentences).%s",
		systemPromptFor(first), topic, debateContext, historicalClause(opts),
	)
	firstUser := fmt.Sprintf("As %s, continue the debate on %q by responding to the previous points.", first.Name, topic)
	firstText, err := g.complete(ctx, firstSystem, firstUser)
	if err != nil {
		return Round{}, err
	}

	secondSystem := fmt.Sprintf(
		"%s You are participating in a debate on %q. Here is the context of the debate so far:\n%s\n%s just said: %q\n\nContinue the debate by responding to %s's points. Keep your response concise (2-3 sentences).%s",
		systemPromptFor(second), topic, debateContext, first.Name, firstText, first.Name, historicalClause(opts),
	)
	secondUser := fmt.Sprintf("As %s, respond to %s's statement: %q", second.Name, first.Name, firstText)
	secondText, err := g.complete(ctx, secondSystem, secondUser)
	if err != nil {
		return Round{}, err
	}

	return Round{
		First:  NewUtterance(first.ID, firstText),
		Second: NewUtterance(second.ID, secondText),
	}, nil
}

// RespondToQuestion generates both personas' replies to a human-submitted
// question, the second reply conditioned on the first.
func (g *TurnGenerator) RespondToQuestion(ctx context.Context, p1, p2 personas.Persona, transcript *Transcript, question string, opts TurnOptions) (Round, error) {
	if err := validateDebate(p1, p2, "question"); err != nil {
		return Round{}, err
	}
	if strings.TrimSpace(question) == "" {
		return Round{}, core.NewInvalidRequest("question cannot be empty")
	}

	debateContext := ""
	if transcript != nil {
		debateContext = transcript.Render(p1, p2)
	}

	firstSystem := fmt.Sprintf(
		"%s You are participating in a debate. Here is the context of the debate so far:\n%s\nA user has asked: %q\n\nRespond to this question from your unique perspective and knowledge. Keep your response concise (2-3 sentences).%s",
		systemPromptFor(p1), debateContext, question, historicalClause(opts),
	)
	firstUser := fmt.Sprintf("How would you, %s, respond to the question: %q?", p1.Name, question)
	firstText, err := g.complete(ctx, firstSystem, firstUser)
	if err != nil {
		return Round{}, err
	}

	secondSystem := fmt.Sprintf(
		"%s You are participating in a debate. Here is the context of the debate so far:\n%s\nA user has asked: %q\n%s responded: %q\n\nRespond to both the question and %s's response from your unique perspective. Keep your response concise (2-3 sentences).%s",
		systemPromptFor(p2), debateContext, question, p1.Name, firstText, p1.Name, historicalClause(opts),
	)
	secondUser := fmt.Sprintf("How would you, %s, respond to the question: %q and to %s's response: %q?", p2.Name, question, p1.Name, firstText)
	secondText, err := g.complete(ctx, secondSystem, secondUser)
	if err != nil {
		return Round{}, err
	}

	return Round{
		First:  NewUtterance(p1.ID, firstText),
		Second: NewUtterance(p2.ID, secondText),
	}, nil
}

// Answer generates a single persona's reply to a standalone question.
func (g *TurnGenerator) Answer(ctx context.Context, p personas.Persona, question string, opts TurnOptions) (Utterance, error) {
	if strings.TrimSpace(question) == "" {
		return Utterance{}, core.NewInvalidRequest("question cannot be empty")
	}
	system := fmt.Sprintf("%s Keep your response concise.%s", systemPromptFor(p), historicalClause(opts))
	text, err := g.complete(ctx, system, question)
	if err != nil {
		return Utterance{}, err
	}
	return NewUtterance(p.ID, text), nil
}

func (g *TurnGenerator) complete(ctx context.Context, system, user string) (string, error) {
	text, err := g.client.Complete(ctx, []core.Message{
		core.SystemMessage(system),
		core.UserMessage(user),
	})
	if err != nil {
		if core.IsGenerationFailed(err) || core.IsInvalidRequest(err) {
			return "", err
		}
		return "", &core.GenerationFailedError{Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &core.GenerationFailedError{Detail: "completion returned empty content"}
	}
	return text, nil
}

func validateDebate(p1, p2 personas.Persona, topic string) error {
	if p1.ID == "" || p2.ID == "" {
		return core.NewInvalidRequest("two personas are required")
	}
	if p1.ID == p2.ID {
		return core.NewInvalidRequest("personas must be distinct")
	}
	if strings.TrimSpace(topic) == "" {
		return core.NewInvalidRequest("topic cannot be empty")
	}
	return nil
}

func systemPromptFor(p personas.Persona) string {
	if p.SystemPrompt != "" {
		return p.SystemPrompt
	}
	return fmt.Sprintf("You are %s, responding to questions.", p.Name)
}

func historicalClause(opts TurnOptions) string {
	if opts.HistoricalContext {
		return " Only use knowledge available during your lifetime."
	}
	return ""
}
