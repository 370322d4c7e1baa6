package core

// AudioRef is a playable reference to synthesized speech. URL is either a
// data URL (base64 MP3, the default) or an HTTP URL served elsewhere.
type AudioRef struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	MIME string `json:"mime"`
}

// IsZero reports whether no audio was produced for an utterance, e.g. after
// a gracefully skipped synthesis failure.
func (r AudioRef) IsZero() bool {
	return r.URL == ""
}
