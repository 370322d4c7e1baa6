package protocol

import (
	"strings"
	"testing"
)

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	data, err := Marshal(MsgStartDebate, StartDebatePayload{
		Character1: "daVinci",
		Character2: "socrates",
		Topic:      "the nature of beauty",
	})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	msgType, raw, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if msgType != MsgStartDebate {
		t.Errorf("type = %q, want %q", msgType, MsgStartDebate)
	}

	payload, err := UnmarshalPayload[StartDebatePayload](raw)
	if err != nil {
		t.Fatalf("UnmarshalPayload returned error: %v", err)
	}
	if payload.Character1 != "daVinci" || payload.Character2 != "socrates" || payload.Topic != "the nature of beauty" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestMarshalNilPayload(t *testing.T) {
	data, err := Marshal(MsgPause, nil)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if strings.Contains(string(data), "payload") {
		t.Errorf("nil payload should be omitted: %s", data)
	}

	msgType, raw, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if msgType != MsgPause || raw != nil {
		t.Errorf("got type=%q payload=%s", msgType, raw)
	}
}

func TestUnmarshalRejectsMissingType(t *testing.T) {
	if _, _, err := Unmarshal([]byte(`{"payload":{}}`)); err == nil {
		t.Error("expected error for envelope without type")
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, _, err := Unmarshal([]byte("not json")); err == nil {
		t.Error("expected error for malformed envelope")
	}
}

func TestUnmarshalPayloadTypeMismatch(t *testing.T) {
	if _, err := UnmarshalPayload[PlaybackPayload]([]byte(`{"index":"three"}`)); err == nil {
		t.Error("expected error for mistyped payload field")
	}
}
