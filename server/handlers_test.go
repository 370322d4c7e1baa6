package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"debatekit/core"
	"debatekit/debate"
	"debatekit/personas"
	"debatekit/speech"
	"debatekit/store"
)

type stubClient struct {
	respond func(messages []core.Message) (string, error)
}

func (s *stubClient) Complete(ctx context.Context, messages []core.Message) (string, error) {
	if s.respond != nil {
		return s.respond(messages)
	}
	return "a fine argument", nil
}

type stubEngine struct{}

func (stubEngine) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return []byte("mp3:" + text), nil
}

func (stubEngine) MIMEType() string { return "audio/mpeg" }

type stubRecognizer struct {
	text string
	err  error
}

func (r *stubRecognizer) Transcribe(ctx context.Context, filename string, data []byte) (string, error) {
	return r.text, r.err
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(Config{}, Deps{
		Registry:    personas.NewRegistry(personas.DefaultRoster(), nil),
		Turns:       debate.NewTurnGenerator(&stubClient{}, nil),
		Gateway:     speech.NewGateway(stubEngine{}, nil, speech.GatewayConfig{}, nil),
		Transcriber: speech.NewTranscriber(&stubRecognizer{text: " how do birds fly? "}, nil),
		Counter:     store.NewQuestionCounter(store.NewMemoryStore()),
	})
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		b, _ := sonic.Marshal(body)
		buf.Write(b)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	var out map[string]interface{}
	if err := sonic.Unmarshal(data, &out); err != nil {
		t.Fatalf("decoding response %q: %v", data, err)
	}
	return out
}

func TestCharactersEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/characters", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	characters, ok := body["characters"].([]interface{})
	if !ok || len(characters) != 5 {
		t.Errorf("expected 5 characters, got %v", body["characters"])
	}
}

func TestGetVoiceIDs(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/get-voice-ids", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	decodeBody(t, resp) // must at least be valid JSON
}

func TestStartDebateResponseShape(t *testing.T) {
	s := newTestServer(t)

	req := jsonRequest(http.MethodPost, "/api/start-debate", map[string]string{
		"character1": "daVinci",
		"character2": "socrates",
		"topic":      "the nature of beauty",
	})
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	for _, key := range []string{"opening1", "opening2"} {
		if text, _ := body[key].(string); text == "" {
			t.Errorf("missing %s in %v", key, body)
		}
	}
	for _, key := range []string{"audioUrl1", "audioUrl2"} {
		url, _ := body[key].(string)
		if !strings.HasPrefix(url, "data:audio/mpeg;base64,") {
			t.Errorf("%s is not a data URL: %q", key, url)
		}
	}
}

func TestStartDebateRejectsUnknownCharacter(t *testing.T) {
	s := newTestServer(t)

	req := jsonRequest(http.MethodPost, "/api/start-debate", map[string]string{
		"character1": "napoleon",
		"character2": "socrates",
		"topic":      "war",
	})
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if msg, _ := body["error"].(string); msg == "" {
		t.Error("expected an error message")
	}
}

func TestAutoContinueCanonicalOrder(t *testing.T) {
	s := newTestServer(t)

	req := jsonRequest(http.MethodPost, "/api/auto-continue", map[string]interface{}{
		"character1": "daVinci",
		"character2": "socrates",
		"topic":      "beauty",
		"messages": []map[string]string{
			{"character": "daVinci", "content": "opening 1"},
			{"character": "socrates", "content": "opening 2"},
		},
	})
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if r1, _ := body["response1"].(string); r1 == "" {
		t.Errorf("missing response1 in %v", body)
	}
	if r2, _ := body["response2"].(string); r2 == "" {
		t.Errorf("missing response2 in %v", body)
	}
}

func TestContinueDebateAnswersQuestion(t *testing.T) {
	s := newTestServer(t)

	req := jsonRequest(http.MethodPost, "/api/continue-debate", map[string]interface{}{
		"character1":   "daVinci",
		"character2":   "socrates",
		"topic":        "beauty",
		"userQuestion": "what of the soul?",
		"messages": []map[string]string{
			{"character": "daVinci", "content": "opening 1"},
		},
	})
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	r1, _ := body["response1"].(string)
	r2, _ := body["response2"].(string)
	if r1 == "" || r2 == "" {
		t.Errorf("incomplete answers: %v", body)
	}
}

func TestAskRecordsQuestionCount(t *testing.T) {
	s := newTestServer(t)

	req := jsonRequest(http.MethodPost, "/api/ask", map[string]string{
		"question": "How do birds fly?",
	})
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if answer, _ := body["answer"].(string); answer == "" {
		t.Errorf("missing answer: %v", body)
	}

	// The question lands in the default character's counts.
	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/api/question-count", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	counts := decodeBody(t, resp)
	questions, _ := counts["questions"].([]interface{})
	if len(questions) != 1 {
		t.Errorf("expected one recorded question, got %v", counts["questions"])
	}
}

func TestSpeakReturnsDataURL(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(jsonRequest(http.MethodPost, "/api/speak", map[string]string{"text": "hello"}), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if url, _ := body["audioUrl"].(string); !strings.HasPrefix(url, "data:audio/mpeg;base64,") {
		t.Errorf("audioUrl = %v", body["audioUrl"])
	}
}

func TestSpeakRequiresText(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(jsonRequest(http.MethodPost, "/api/speak", map[string]string{}), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTranscribeUpload(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", "clip.webm")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	part.Write(bytes.Repeat([]byte("a"), 2048))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["text"] != "how do birds fly?" {
		t.Errorf("text = %v", body["text"])
	}
}

func TestTranscribeWithoutUpload(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestQuestionCountLifecycle(t *testing.T) {
	s := newTestServer(t)

	post := jsonRequest(http.MethodPost, "/api/question-count", map[string]string{
		"character": "socrates",
		"question":  "What is virtue?",
	})
	resp, err := s.App().Test(post, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post status = %d", resp.StatusCode)
	}

	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/api/question-count?character=socrates", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body := decodeBody(t, resp)
	questions, _ := body["questions"].([]interface{})
	if len(questions) != 1 {
		t.Fatalf("expected one question, got %v", body["questions"])
	}

	resp, err = s.App().Test(httptest.NewRequest(http.MethodDelete, "/api/question-count", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, err = s.App().Test(httptest.NewRequest(http.MethodGet, "/api/question-count?character=socrates", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body = decodeBody(t, resp)
	questions, _ = body["questions"].([]interface{})
	if len(questions) != 0 {
		t.Errorf("delete left questions behind: %v", body["questions"])
	}
}

func TestQuestionCountPostRequiresQuestion(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(jsonRequest(http.MethodPost, "/api/question-count", map[string]string{}), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDebateSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/ws/debate", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}
