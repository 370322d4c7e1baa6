package store

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"debatekit/core"
	"debatekit/debate"
)

// Session state keys, one per field so partial reads stay cheap.
const (
	keyCharacter1    = "debate_character1"
	keyCharacter2    = "debate_character2"
	keyTopic         = "debate_topic"
	keyMessages      = "debate_messages"
	keyIsDebating    = "debate_isDebating"
	keyExchangeCount = "debate_exchangeCount"
)

var sessionKeys = []string{
	keyCharacter1, keyCharacter2, keyTopic,
	keyMessages, keyIsDebating, keyExchangeCount,
}

const mirrorWriteTimeout = 3 * time.Second

type mirrorOp struct {
	snap  debate.SessionSnapshot
	clear bool
}

// Mirror persists session snapshots through a Store, best effort. Writes go
// through a single worker with a latest-wins slot, so the orchestrator never
// blocks on storage and a burst of snapshots collapses to the newest one.
// Storage failures are logged and dropped; the debate does not depend on them.
type Mirror struct {
	store  Store
	logger *core.Logger
	ops    chan mirrorOp
	done   chan struct{}
}

func NewMirror(store Store, logger *core.Logger) *Mirror {
	if logger == nil {
		logger = core.GetLogger()
	}
	m := &Mirror{
		store:  store,
		logger: logger,
		ops:    make(chan mirrorOp, 1),
		done:   make(chan struct{}),
	}
	go m.run()
	return m
}

// Save queues a snapshot for persistence. Never blocks; if a previous
// snapshot is still queued it is replaced.
func (m *Mirror) Save(snap debate.SessionSnapshot) {
	m.push(mirrorOp{snap: snap})
}

// Clear queues removal of all session keys.
func (m *Mirror) Clear() {
	m.push(mirrorOp{clear: true})
}

func (m *Mirror) push(op mirrorOp) {
	for {
		select {
		case m.ops <- op:
			return
		default:
		}
		select {
		case <-m.ops:
		default:
		}
	}
}

// Load reads the persisted session back, reporting false when no resumable
// session exists or any field fails to decode.
func (m *Mirror) Load() (debate.SessionSnapshot, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorWriteTimeout)
	defer cancel()

	var snap debate.SessionSnapshot

	debating, ok, err := m.store.Get(ctx, keyIsDebating)
	if err != nil || !ok || debating != "true" {
		return debate.SessionSnapshot{}, false
	}
	snap.IsDebating = true

	if snap.Character1, ok, err = m.store.Get(ctx, keyCharacter1); err != nil || !ok {
		return debate.SessionSnapshot{}, false
	}
	if snap.Character2, ok, err = m.store.Get(ctx, keyCharacter2); err != nil || !ok {
		return debate.SessionSnapshot{}, false
	}
	if snap.Topic, ok, err = m.store.Get(ctx, keyTopic); err != nil || !ok {
		return debate.SessionSnapshot{}, false
	}

	raw, ok, err := m.store.Get(ctx, keyMessages)
	if err != nil || !ok {
		return debate.SessionSnapshot{}, false
	}
	if err := sonic.UnmarshalString(raw, &snap.Messages); err != nil {
		m.logger.Warn("mirror: undecodable message history, discarding session", "error", err)
		return debate.SessionSnapshot{}, false
	}

	if raw, ok, err = m.store.Get(ctx, keyExchangeCount); err == nil && ok {
		if n, err := strconv.Atoi(raw); err == nil {
			snap.ExchangeCount = n
		}
	}
	return snap, true
}

// Close stops the worker after flushing the queued operation.
func (m *Mirror) Close() {
	close(m.done)
}

func (m *Mirror) run() {
	for {
		select {
		case op := <-m.ops:
			m.apply(op)
		case <-m.done:
			select {
			case op := <-m.ops:
				m.apply(op)
			default:
			}
			return
		}
	}
}

func (m *Mirror) apply(op mirrorOp) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorWriteTimeout)
	defer cancel()

	if op.clear {
		if err := m.store.Delete(ctx, sessionKeys...); err != nil {
			m.logger.Warn("mirror: failed to clear session", "error", err)
		}
		return
	}

	messages, err := sonic.MarshalString(op.snap.Messages)
	if err != nil {
		m.logger.Warn("mirror: failed to encode message history", "error", err)
		return
	}

	writes := map[string]string{
		keyCharacter1:    op.snap.Character1,
		keyCharacter2:    op.snap.Character2,
		keyTopic:         op.snap.Topic,
		keyMessages:      messages,
		keyIsDebating:    strconv.FormatBool(op.snap.IsDebating),
		keyExchangeCount: strconv.Itoa(op.snap.ExchangeCount),
	}
	for key, value := range writes {
		if err := m.store.Set(ctx, key, value); err != nil {
			m.logger.Warn("mirror: failed to persist session field", "key", key, "error", err)
			return
		}
	}
}
