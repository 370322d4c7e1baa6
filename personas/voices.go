package personas

import (
	"os"
	"strings"

	"debatekit/core"
)

const (
	// Default OpenAI voices used when no override or configured voice exists.
	fallbackVoice       = "echo"
	fallbackVoiceFemale = "nova"

	voiceEnvSuffix = "_VOICE_ID"
)

// VoiceTable maps a folded persona key (lower-cased id, "daVinci" folded to
// "davinci") to a dynamically configured voice identifier. Populated once at
// startup and read-only thereafter.
type VoiceTable map[string]string

// VoiceKey folds a persona identifier to its voice-table key.
func VoiceKey(personaID string) string {
	return strings.ToLower(personaID)
}

// LoadVoiceTableFromEnv collects every *_VOICE_ID environment variable into
// a VoiceTable, keyed by the lower-cased prefix. The legacy ELEONARDO alias
// maps to da Vinci.
func LoadVoiceTableFromEnv(logger *core.Logger) VoiceTable {
	table := VoiceTable{}
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || value == "" || !strings.HasSuffix(key, voiceEnvSuffix) {
			continue
		}
		name := strings.ToLower(strings.TrimSuffix(key, voiceEnvSuffix))
		if name == "eleonardo" {
			name = "davinci"
		}
		table[name] = value
	}
	if logger != nil && len(table) > 0 {
		logger.With(map[string]interface{}{"voices": len(table)}).Info("loaded voice overrides")
	}
	return table
}

// ResolveVoice applies the voice priority policy:
//  1. dynamically loaded override for this persona, if any;
//  2. the persona's own configured voice identifier;
//  3. a hard-coded fallback, distinct for female-voice personas.
func ResolveVoice(p Persona, overrides VoiceTable) string {
	if v, ok := overrides[VoiceKey(p.ID)]; ok && v != "" {
		return v
	}
	if p.VoiceID != "" {
		return p.VoiceID
	}
	if p.FemaleVoice {
		return fallbackVoiceFemale
	}
	return fallbackVoice
}
