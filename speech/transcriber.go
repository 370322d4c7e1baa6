package speech

import (
	"context"
	"path/filepath"
	"strings"

	"debatekit/core"
)

// Recognizer is the speech-to-text backend.
type Recognizer interface {
	Transcribe(ctx context.Context, filename string, data []byte) (string, error)
}

// Transcriber validates uploaded recordings before handing them to the
// recognizer.
type Transcriber struct {
	recognizer Recognizer
	logger     *core.Logger
}

func NewTranscriber(recognizer Recognizer, logger *core.Logger) *Transcriber {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Transcriber{recognizer: recognizer, logger: logger}
}

// Transcribe turns an uploaded clip into text.
func (t *Transcriber) Transcribe(ctx context.Context, filename string, data []byte) (string, error) {
	if t.recognizer == nil {
		return "", core.NewInvalidRequest("transcription is not configured")
	}
	text, err := t.recognizer.Transcribe(ctx, filename, data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ContentTypeFor maps a recording filename to its upload content type.
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}
