package debate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"debatekit/core"
	"debatekit/personas"
)

type mockClient struct {
	mu      sync.Mutex
	calls   [][]core.Message
	respond func(messages []core.Message) (string, error)
}

func (m *mockClient) Complete(ctx context.Context, messages []core.Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.mu.Unlock()
	if m.respond != nil {
		return m.respond(messages)
	}
	return "a fine argument", nil
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var (
	leo = personas.Persona{ID: "daVinci", Name: "Leonardo da Vinci", SystemPrompt: "You are Leonardo da Vinci."}
	soc = personas.Persona{ID: "socrates", Name: "Socrates", SystemPrompt: "You are Socrates."}
)

func TestStartDebateGeneratesBothOpenings(t *testing.T) {
	client := &mockClient{
		respond: func(messages []core.Message) (string, error) {
			if strings.Contains(messages[0].Content, "Leonardo") {
				return "Leonardo's opening", nil
			}
			return "Socrates' opening", nil
		},
	}
	g := NewTurnGenerator(client, nil)

	openings, err := g.StartDebate(context.Background(), leo, soc, "the nature of beauty", TurnOptions{})
	if err != nil {
		t.Fatalf("StartDebate returned error: %v", err)
	}
	if openings.Opening1.Speaker != "daVinci" || openings.Opening1.Text != "Leonardo's opening" {
		t.Errorf("opening1 wrong: %+v", openings.Opening1)
	}
	if openings.Opening2.Speaker != "socrates" || openings.Opening2.Text != "Socrates' opening" {
		t.Errorf("opening2 wrong: %+v", openings.Opening2)
	}
	if client.callCount() != 2 {
		t.Errorf("expected 2 completion calls, got %d", client.callCount())
	}
}

func TestStartDebateValidation(t *testing.T) {
	g := NewTurnGenerator(&mockClient{}, nil)

	tests := []struct {
		name   string
		p1, p2 personas.Persona
		topic  string
	}{
		{"missing persona", personas.Persona{}, soc, "topic"},
		{"same persona", leo, leo, "topic"},
		{"empty topic", leo, soc, "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.StartDebate(context.Background(), tt.p1, tt.p2, tt.topic, TurnOptions{})
			if !core.IsInvalidRequest(err) {
				t.Errorf("expected InvalidRequestError, got %v", err)
			}
		})
	}
}

func TestContinueDebateAlternatesSpeakers(t *testing.T) {
	client := &mockClient{}
	g := NewTurnGenerator(client, nil)

	tr := &Transcript{}
	tr.Append(NewUtterance("daVinci", "opening 1"), NewUtterance("socrates", "opening 2"))

	round, err := g.ContinueDebate(context.Background(), leo, soc, tr, "beauty", TurnOptions{})
	if err != nil {
		t.Fatalf("ContinueDebate returned error: %v", err)
	}
	// Socrates spoke last, so Leonardo opens this round.
	if round.First.Speaker != "daVinci" {
		t.Errorf("expected daVinci first, got %q", round.First.Speaker)
	}
	if round.Second.Speaker != "socrates" {
		t.Errorf("expected socrates second, got %q", round.Second.Speaker)
	}
}

func TestContinueDebateSwapsWhenOtherSpokeLast(t *testing.T) {
	g := NewTurnGenerator(&mockClient{}, nil)

	tr := &Transcript{}
	tr.Append(NewUtterance("socrates", "a"), NewUtterance("daVinci", "b"))

	round, err := g.ContinueDebate(context.Background(), leo, soc, tr, "beauty", TurnOptions{})
	if err != nil {
		t.Fatalf("ContinueDebate returned error: %v", err)
	}
	if round.First.Speaker != "socrates" || round.Second.Speaker != "daVinci" {
		t.Errorf("wrong speaking order: %q then %q", round.First.Speaker, round.Second.Speaker)
	}
}

func TestContinueDebateSecondHearsFirst(t *testing.T) {
	client := &mockClient{
		respond: func(messages []core.Message) (string, error) {
			return "machines will fly", nil
		},
	}
	g := NewTurnGenerator(client, nil)

	tr := &Transcript{}
	tr.Append(NewUtterance("socrates", "question everything"))

	if _, err := g.ContinueDebate(context.Background(), leo, soc, tr, "flight", TurnOptions{}); err != nil {
		t.Fatalf("ContinueDebate returned error: %v", err)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(client.calls))
	}
	secondSystem := client.calls[1][0].Content
	if !strings.Contains(secondSystem, "machines will fly") {
		t.Error("second speaker's prompt should embed the first speaker's statement")
	}
}

func TestContinueDebateRejectsEmptyTranscript(t *testing.T) {
	g := NewTurnGenerator(&mockClient{}, nil)

	_, err := g.ContinueDebate(context.Background(), leo, soc, &Transcript{}, "beauty", TurnOptions{})
	if !core.IsInvalidRequest(err) {
		t.Errorf("expected InvalidRequestError, got %v", err)
	}
}

func TestRespondToQuestionCanonicalOrder(t *testing.T) {
	g := NewTurnGenerator(&mockClient{}, nil)

	tr := &Transcript{}
	tr.Append(NewUtterance("daVinci", "a"), NewUtterance("socrates", "b"))

	round, err := g.RespondToQuestion(context.Background(), leo, soc, tr, "what is truth?", TurnOptions{})
	if err != nil {
		t.Fatalf("RespondToQuestion returned error: %v", err)
	}
	if round.First.Speaker != "daVinci" || round.Second.Speaker != "socrates" {
		t.Errorf("question responses must come in canonical order, got %q then %q",
			round.First.Speaker, round.Second.Speaker)
	}
}

func TestRespondToQuestionRejectsEmptyQuestion(t *testing.T) {
	g := NewTurnGenerator(&mockClient{}, nil)

	_, err := g.RespondToQuestion(context.Background(), leo, soc, &Transcript{}, "   ", TurnOptions{})
	if !core.IsInvalidRequest(err) {
		t.Errorf("expected InvalidRequestError, got %v", err)
	}
}

func TestCompleteWrapsUnknownErrors(t *testing.T) {
	client := &mockClient{
		respond: func([]core.Message) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	g := NewTurnGenerator(client, nil)

	_, err := g.Answer(context.Background(), leo, "hello?", TurnOptions{})
	if !core.IsGenerationFailed(err) {
		t.Errorf("expected GenerationFailedError, got %v", err)
	}
}

func TestCompleteRejectsEmptyContent(t *testing.T) {
	client := &mockClient{
		respond: func([]core.Message) (string, error) {
			return "   ", nil
		},
	}
	g := NewTurnGenerator(client, nil)

	_, err := g.Answer(context.Background(), leo, "hello?", TurnOptions{})
	if !core.IsGenerationFailed(err) {
		t.Errorf("expected GenerationFailedError for empty content, got %v", err)
	}
}

func TestHistoricalContextClause(t *testing.T) {
	client := &mockClient{}
	g := NewTurnGenerator(client, nil)

	if _, err := g.Answer(context.Background(), leo, "what of engines?", TurnOptions{HistoricalContext: true}); err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if !strings.Contains(client.calls[0][0].Content, "knowledge available during your lifetime") {
		t.Error("expected the historical-context clause in the system prompt")
	}
}
