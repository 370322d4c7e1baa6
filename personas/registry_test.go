package personas

import (
	"sort"
	"testing"

	"debatekit/core"
)

func TestResolveKnownPersona(t *testing.T) {
	r := NewRegistry(DefaultRoster(), nil)

	p, err := r.Resolve("socrates")
	if err != nil {
		t.Fatalf("Resolve(socrates) returned error: %v", err)
	}
	if p.Name != "Socrates" {
		t.Errorf("expected name Socrates, got %q", p.Name)
	}
	if p.SystemPrompt == "" {
		t.Error("expected a system prompt")
	}
}

func TestResolveUnknownPersona(t *testing.T) {
	r := NewRegistry(DefaultRoster(), nil)

	_, err := r.Resolve("napoleon")
	if err == nil {
		t.Fatal("expected error for unknown persona")
	}
	if !core.IsInvalidRequest(err) {
		t.Errorf("expected InvalidRequestError, got %T", err)
	}
}

func TestResolveNeverSubstitutesDefault(t *testing.T) {
	r := NewRegistry(DefaultRoster(), nil)

	p, err := r.Resolve("")
	if err == nil {
		t.Fatalf("expected error for empty id, got persona %q", p.ID)
	}
}

func TestListIDsSorted(t *testing.T) {
	r := NewRegistry(DefaultRoster(), nil)

	ids := r.ListIDs()
	if len(ids) != 5 {
		t.Fatalf("expected 5 personas, got %d", len(ids))
	}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("expected sorted ids, got %v", ids)
	}
}

func TestVoiceForAppliesOverride(t *testing.T) {
	r := NewRegistry(DefaultRoster(), VoiceTable{"davinci": "pNInz6obpgDQGcFmaJgB"})

	voice, err := r.VoiceFor("daVinci")
	if err != nil {
		t.Fatalf("VoiceFor returned error: %v", err)
	}
	if voice != "pNInz6obpgDQGcFmaJgB" {
		t.Errorf("expected override voice, got %q", voice)
	}
}

func TestVoiceForFallsBack(t *testing.T) {
	r := NewRegistry(DefaultRoster(), nil)

	tests := []struct {
		id   string
		want string
	}{
		{"socrates", "echo"},
		{"frida", "nova"},
	}
	for _, tt := range tests {
		voice, err := r.VoiceFor(tt.id)
		if err != nil {
			t.Fatalf("VoiceFor(%s) returned error: %v", tt.id, err)
		}
		if voice != tt.want {
			t.Errorf("VoiceFor(%s) = %q, want %q", tt.id, voice, tt.want)
		}
	}
}
