package core

import "github.com/google/uuid"

// EventPacket wraps an event for delivery to observers. Generation is the
// debate-session generation counter at the time the event was produced;
// observers and the orchestrator drop packets whose generation is stale.
type EventPacket struct {
	Event      IEvent
	Uid        string // Unique identifier for tracking the event packet.
	Relayer    string // Identifier of the component that relayed the event.
	Generation uint64
}

func NewEventPacket(event IEvent, relayer string, generation uint64) *EventPacket {
	uid := uuid.New().String() // Generate a unique identifier for the event packet.
	return &EventPacket{
		Event:      event,
		Uid:        uid,
		Relayer:    relayer,
		Generation: generation,
	}
}
