package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"debatekit/core"
)

type fakeEngine struct {
	mu     sync.Mutex
	name   string
	voices []string
	fail   bool
}

func (e *fakeEngine) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	e.mu.Lock()
	e.voices = append(e.voices, voice)
	e.mu.Unlock()
	if e.fail {
		return nil, &core.SynthesisFailedError{Voice: voice, Err: errors.New("backend down")}
	}
	return []byte(e.name + ":" + text), nil
}

func (e *fakeEngine) MIMEType() string { return "audio/mpeg" }

func (e *fakeEngine) calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.voices...)
}

func TestIsElevenLabsVoice(t *testing.T) {
	tests := []struct {
		voice string
		want  bool
	}{
		{"pNInz6obpgDQGcFmaJgB", true},
		{"abc123DEF456", true},
		{"echo", false},
		{"nova", false},
		{"", false},
		{"exactly10c", false},           // at the length boundary
		{"elevenchars", true},           // one past it
		{"pNInz6-bpgDQGcFmaJgB", false}, // dash disqualifies
		{"pNInz6 bpgDQGcFmaJgB", false},
	}
	for _, tt := range tests {
		if got := IsElevenLabsVoice(tt.voice); got != tt.want {
			t.Errorf("IsElevenLabsVoice(%q) = %v, want %v", tt.voice, got, tt.want)
		}
	}
}

func TestGatewayRoutesByVoice(t *testing.T) {
	oa := &fakeEngine{name: "openai"}
	el := &fakeEngine{name: "elevenlabs"}
	g := NewGateway(oa, el, GatewayConfig{}, nil)

	if _, err := g.Synthesize(context.Background(), "hello", "echo"); err != nil {
		t.Fatalf("openai route failed: %v", err)
	}
	if _, err := g.Synthesize(context.Background(), "hello", "pNInz6obpgDQGcFmaJgB"); err != nil {
		t.Fatalf("elevenlabs route failed: %v", err)
	}

	if got := oa.calls(); len(got) != 1 || got[0] != "echo" {
		t.Errorf("openai backend calls = %v", got)
	}
	if got := el.calls(); len(got) != 1 || got[0] != "pNInz6obpgDQGcFmaJgB" {
		t.Errorf("elevenlabs backend calls = %v", got)
	}
}

func TestGatewayFallsBackWithoutElevenLabs(t *testing.T) {
	oa := &fakeEngine{name: "openai"}
	g := NewGateway(oa, nil, GatewayConfig{}, nil)

	if _, err := g.Synthesize(context.Background(), "hello", "pNInz6obpgDQGcFmaJgB"); err != nil {
		t.Fatalf("fallback failed: %v", err)
	}
	// The configured voice id means nothing to OpenAI, so the default is used.
	if got := oa.calls(); len(got) != 1 || got[0] != "" {
		t.Errorf("expected default voice on fallback, got %v", got)
	}
}

func TestGatewayReturnsDataURL(t *testing.T) {
	g := NewGateway(&fakeEngine{name: "openai"}, nil, GatewayConfig{}, nil)

	ref, err := g.Synthesize(context.Background(), "hello", "echo")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if !strings.HasPrefix(ref.URL, "data:audio/mpeg;base64,") {
		t.Errorf("expected a data URL, got %q", ref.URL)
	}
	if ref.ID == "" || ref.MIME != "audio/mpeg" {
		t.Errorf("incomplete audio ref: %+v", ref)
	}
}

func TestGatewayRejectsEmptyText(t *testing.T) {
	g := NewGateway(&fakeEngine{}, nil, GatewayConfig{}, nil)

	if _, err := g.Synthesize(context.Background(), "", "echo"); !core.IsInvalidRequest(err) {
		t.Errorf("expected InvalidRequestError, got %v", err)
	}
}

func TestGatewayPropagatesBackendFailure(t *testing.T) {
	g := NewGateway(&fakeEngine{fail: true}, nil, GatewayConfig{}, nil)

	if _, err := g.Synthesize(context.Background(), "hello", "echo"); !core.IsSynthesisFailed(err) {
		t.Errorf("expected SynthesisFailedError, got %v", err)
	}
}

func TestGatewayThrottleHonorsContext(t *testing.T) {
	// One request per hour with no burst headroom left after the first call.
	g := NewGateway(&fakeEngine{name: "openai"}, nil, GatewayConfig{RequestsPerSecond: 1.0 / 3600, Burst: 1}, nil)

	if _, err := g.Synthesize(context.Background(), "first", "echo"); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Synthesize(ctx, "second", "echo"); err == nil {
		t.Error("expected the throttled call to fail with a cancelled context")
	}
}

type fakeRecognizer struct {
	text string
	err  error
}

func (r *fakeRecognizer) Transcribe(ctx context.Context, filename string, data []byte) (string, error) {
	return r.text, r.err
}

func TestTranscriberTrimsText(t *testing.T) {
	tr := NewTranscriber(&fakeRecognizer{text: "  hello there \n"}, nil)

	text, err := tr.Transcribe(context.Background(), "clip.webm", []byte("audio"))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if text != "hello there" {
		t.Errorf("expected trimmed text, got %q", text)
	}
}

func TestTranscriberWithoutRecognizer(t *testing.T) {
	tr := NewTranscriber(nil, nil)

	if _, err := tr.Transcribe(context.Background(), "clip.webm", []byte("audio")); !core.IsInvalidRequest(err) {
		t.Errorf("expected InvalidRequestError, got %v", err)
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"clip.mp3", "audio/mpeg"},
		{"clip.WAV", "audio/wav"},
		{"clip.webm", "audio/webm"},
		{"clip.m4a", "audio/mp4"},
		{"clip", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := ContentTypeFor(tt.filename); got != tt.want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
