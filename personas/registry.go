package personas

import (
	"sort"

	"debatekit/core"
)

// Persona is a historical-figure identity. The roster is resolved once at
// startup and never mutated afterwards; lookups copy the record.
type Persona struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	SystemPrompt string   `json:"systemPrompt"`
	VoiceID      string   `json:"voiceId,omitempty"`
	FemaleVoice  bool     `json:"-"`
	Image        string   `json:"image,omitempty"`
	Podcast      string   `json:"podcast,omitempty"`
	Questions    []string `json:"questions,omitempty"`
}

// Registry maps persona identifiers to their records and owns the resolved
// voice-override table.
type Registry struct {
	personas map[string]Persona
	voices   VoiceTable
}

// NewRegistry builds a registry over the given roster. The voice table may
// be nil when no overrides were loaded.
func NewRegistry(roster map[string]Persona, voices VoiceTable) *Registry {
	personas := make(map[string]Persona, len(roster))
	for id, p := range roster {
		if p.ID == "" {
			p.ID = id
		}
		personas[id] = p
	}
	return &Registry{personas: personas, voices: voices}
}

// NewDefaultRegistry builds a registry over the built-in roster with voice
// overrides loaded from the environment.
func NewDefaultRegistry(logger *core.Logger) *Registry {
	return NewRegistry(DefaultRoster(), LoadVoiceTableFromEnv(logger))
}

// Resolve returns the persona for id. A miss is an InvalidRequestError and
// must never be substituted with a default for debate operations.
func (r *Registry) Resolve(id string) (Persona, error) {
	p, ok := r.personas[id]
	if !ok {
		return Persona{}, core.NewInvalidRequest("invalid character selection: %q", id)
	}
	return p, nil
}

// ListIDs returns all persona identifiers in a stable order.
func (r *Registry) ListIDs() []string {
	ids := make([]string, 0, len(r.personas))
	for id := range r.personas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// VoiceFor resolves the voice identifier for a persona, applying the
// override/default/fallback priority policy.
func (r *Registry) VoiceFor(id string) (string, error) {
	p, err := r.Resolve(id)
	if err != nil {
		return "", err
	}
	return ResolveVoice(p, r.voices), nil
}

// Voices returns the loaded override table, keyed by folded persona key.
func (r *Registry) Voices() VoiceTable {
	return r.voices
}
