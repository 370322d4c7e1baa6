package store

import (
	"context"
	"testing"
	"time"

	"debatekit/debate"
)

func testSnapshot() debate.SessionSnapshot {
	return debate.SessionSnapshot{
		Character1: "daVinci",
		Character2: "socrates",
		Topic:      "the nature of beauty",
		Messages: []debate.Utterance{
			{Speaker: "daVinci", Text: "Art is science.", Timestamp: 1},
			{Speaker: "socrates", Text: "What is art?", Timestamp: 2},
		},
		IsDebating:    true,
		ExchangeCount: 1,
	}
}

func waitForMirror(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("mirror write did not land in time")
}

func TestMirrorSaveLoadRoundtrip(t *testing.T) {
	s := NewMemoryStore()
	m := NewMirror(s, nil)
	defer m.Close()

	m.Save(testSnapshot())
	waitForMirror(t, func() bool {
		v, ok, _ := s.Get(context.Background(), keyIsDebating)
		return ok && v == "true"
	})

	got, ok := m.Load()
	if !ok {
		t.Fatal("Load reported no session")
	}
	want := testSnapshot()
	if got.Character1 != want.Character1 || got.Character2 != want.Character2 ||
		got.Topic != want.Topic || got.ExchangeCount != want.ExchangeCount {
		t.Errorf("loaded snapshot = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[1].Text != "What is art?" {
		t.Errorf("loaded messages = %+v", got.Messages)
	}
}

func TestMirrorLoadRequiresActiveSession(t *testing.T) {
	s := NewMemoryStore()
	m := NewMirror(s, nil)
	defer m.Close()

	// Nothing persisted.
	if _, ok := m.Load(); ok {
		t.Error("Load reported a session from an empty store")
	}

	// A finished session is not resumable.
	snap := testSnapshot()
	snap.IsDebating = false
	m.Save(snap)
	waitForMirror(t, func() bool {
		v, ok, _ := s.Get(context.Background(), keyIsDebating)
		return ok && v == "false"
	})
	if _, ok := m.Load(); ok {
		t.Error("Load reported a session that was not debating")
	}
}

func TestMirrorClearRemovesSession(t *testing.T) {
	s := NewMemoryStore()
	m := NewMirror(s, nil)
	defer m.Close()

	m.Save(testSnapshot())
	waitForMirror(t, func() bool {
		_, ok, _ := s.Get(context.Background(), keyMessages)
		return ok
	})

	m.Clear()
	waitForMirror(t, func() bool {
		_, ok, _ := s.Get(context.Background(), keyIsDebating)
		return !ok
	})
	if _, ok := m.Load(); ok {
		t.Error("Load reported a session after Clear")
	}
}

func TestMirrorLatestSnapshotWins(t *testing.T) {
	s := NewMemoryStore()
	m := NewMirror(s, nil)
	defer m.Close()

	first := testSnapshot()
	second := testSnapshot()
	second.Topic = "flight"
	m.Save(first)
	m.Save(second)

	waitForMirror(t, func() bool {
		v, ok, _ := s.Get(context.Background(), keyTopic)
		return ok && v == "flight"
	})
	got, ok := m.Load()
	if !ok || got.Topic != "flight" {
		t.Errorf("expected the newest snapshot, got %+v ok=%v", got, ok)
	}
}

func TestMirrorLoadDiscardsCorruptHistory(t *testing.T) {
	s := NewMemoryStore()
	m := NewMirror(s, nil)
	defer m.Close()

	ctx := context.Background()
	s.Set(ctx, keyIsDebating, "true")
	s.Set(ctx, keyCharacter1, "daVinci")
	s.Set(ctx, keyCharacter2, "socrates")
	s.Set(ctx, keyTopic, "beauty")
	s.Set(ctx, keyMessages, "{not json")

	if _, ok := m.Load(); ok {
		t.Error("Load accepted a corrupt message history")
	}
}
