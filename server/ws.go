package server

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"

	"debatekit/core"
	"debatekit/debate"
	"debatekit/protocol"
	"debatekit/speech"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// handleDebateSocket runs one orchestrated debate session per connection.
// The client sends intents and playback milestones; the orchestrator's events
// stream back as protocol envelopes.
func (s *Server) handleDebateSocket(c *websocket.Conn) {
	defer c.Close()

	var synth debate.Synthesizer
	if s.deps.Gateway != nil {
		synth = s.deps.Gateway
	}
	orch := debate.NewOrchestrator(s.deps.Registry, s.deps.Turns, synth, s.deps.OrchestratorConfig, s.logger)
	if s.deps.Mirror != nil {
		orch.SetMirror(s.deps.Mirror)
	}

	out := make(chan []byte, 256)
	done := make(chan struct{})

	// Encoded under the orchestrator's lock, so the push must never block.
	orch.SetNotify(func(p *core.EventPacket) {
		data, err := eventEnvelope(p)
		if err != nil || data == nil {
			return
		}
		select {
		case out <- data:
		default:
			s.logger.Warn("session outbound queue full, dropping event", "event", p.Event.GetId())
		}
	})

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case data := <-out:
				c.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-ticker.C:
				c.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// A session mirrored by a previous connection comes back paused; the
	// client resumes it with a gesture.
	if s.deps.Mirror != nil {
		if snap, ok := s.deps.Mirror.Load(); ok {
			if err := orch.Rehydrate(snap); err != nil {
				s.logger.Warn("failed to rehydrate session", "error", err)
			}
		}
	}
	s.pushState(out, orch)

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			break
		}
		s.dispatchIntent(orch, out, message)
	}

	close(done)
	// Keep the session resumable: freeze it instead of tearing it down so
	// the mirror can bring it back on the next connection.
	orch.Pause()
}

func (s *Server) dispatchIntent(orch *debate.Orchestrator, out chan []byte, message []byte) {
	msgType, raw, err := protocol.Unmarshal(message)
	if err != nil {
		s.pushEnvelope(out, protocol.MsgWarning, protocol.WarningPayload{Error: err.Error()})
		return
	}

	switch msgType {
	case protocol.MsgStartDebate:
		payload, err := protocol.UnmarshalPayload[protocol.StartDebatePayload](raw)
		if err == nil {
			err = orch.Start(payload.Character1, payload.Character2, payload.Topic)
		}
		if err != nil {
			s.pushEnvelope(out, protocol.MsgWarning, protocol.WarningPayload{Error: err.Error()})
		}
	case protocol.MsgPause:
		orch.Pause()
	case protocol.MsgResume:
		orch.Resume()
	case protocol.MsgReset:
		orch.Reset()
	case protocol.MsgForceContinue:
		orch.ForceContinue()
	case protocol.MsgAsk:
		payload, err := protocol.UnmarshalPayload[protocol.AskPayload](raw)
		if err == nil {
			err = orch.SubmitQuestion(payload.Question)
		}
		if err != nil {
			s.pushEnvelope(out, protocol.MsgWarning, protocol.WarningPayload{Error: err.Error()})
		}
	case protocol.MsgPlaybackStarted:
		if payload, err := protocol.UnmarshalPayload[protocol.PlaybackPayload](raw); err == nil {
			orch.PlaybackStarted(payload.Index)
		}
	case protocol.MsgPlaybackEnded:
		if payload, err := protocol.UnmarshalPayload[protocol.PlaybackPayload](raw); err == nil {
			orch.PlaybackEnded(payload.Index)
		}
	case protocol.MsgPlaybackFailed:
		if payload, err := protocol.UnmarshalPayload[protocol.PlaybackPayload](raw); err == nil {
			orch.PlaybackFailed(payload.Index, payload.Blocked)
		}
	case protocol.MsgState:
		s.pushState(out, orch)
	default:
		s.pushEnvelope(out, protocol.MsgWarning,
			protocol.WarningPayload{Error: "unknown message type: " + string(msgType)})
	}
}

func (s *Server) pushState(out chan []byte, orch *debate.Orchestrator) {
	snap := orch.Snapshot()
	s.pushEnvelope(out, protocol.MsgState, protocol.StatePayload{
		Phase:          snap.Phase.String(),
		Topic:          snap.Topic,
		Persona1:       snap.Persona1,
		Persona2:       snap.Persona2,
		CurrentIndex:   snap.CurrentIndex,
		CurrentSpeaker: snap.CurrentSpeaker,
		SpeakerStatus:  snap.SpeakerStatus,
		ExchangeCount:  snap.ExchangeCount,
		Utterances:     snap.Utterances,
		Autoplay:       snap.Autoplay,
		RetryCount:     snap.RetryCount,
		LastError:      snap.LastError,
	})
}

func (s *Server) pushEnvelope(out chan []byte, msgType protocol.MessageType, payload interface{}) {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		s.logger.Error("failed to encode envelope", "type", msgType, "error", err)
		return
	}
	select {
	case out <- data:
	default:
		s.logger.Warn("session outbound queue full, dropping message", "type", msgType)
	}
}

// eventEnvelope maps an orchestrator event to its wire envelope. Unknown
// events encode to nil and are skipped.
func eventEnvelope(p *core.EventPacket) ([]byte, error) {
	switch ev := p.Event.(type) {
	case *core.DebateStartedEvent:
		return protocol.Marshal(protocol.MsgStarted, protocol.StartedPayload{
			Topic:          ev.Topic,
			Persona1:       ev.Persona1,
			Persona2:       ev.Persona2,
			CurrentSpeaker: ev.CurrentSpeaker,
		})
	case *core.UtterancesAppendedEvent:
		return protocol.Marshal(protocol.MsgUtterances, protocol.UtterancesPayload{
			Utterances: ev.Utterances,
			Exchange:   ev.Exchange,
		})
	case *core.AudioReadyEvent:
		return protocol.Marshal(protocol.MsgAudioReady, protocol.AudioReadyPayload{
			Index:   ev.Index,
			Speaker: ev.Speaker,
			Audio:   ev.AudioRef,
		})
	case *core.SpeakerStatusEvent:
		return protocol.Marshal(protocol.MsgSpeakerStatus, protocol.SpeakerStatusPayload{
			Speaker: ev.Speaker,
			Status:  ev.Status,
		})
	case *core.WarningEvent:
		return protocol.Marshal(protocol.MsgWarning, protocol.WarningPayload{Error: ev.Error})
	case *core.CriticalErrorEvent:
		return protocol.Marshal(protocol.MsgError, protocol.ErrorPayload{Error: ev.Error})
	case *core.InteractionRequiredEvent:
		return protocol.Marshal(protocol.MsgInteractionRequired, protocol.InteractionRequiredPayload{Reason: ev.Reason})
	case *core.DebateFinishedEvent:
		return protocol.Marshal(protocol.MsgFinished, protocol.FinishedPayload{Exchanges: ev.Exchanges})
	case *core.DebateResetEvent:
		return protocol.Marshal(protocol.MsgSessionReset, protocol.SessionResetPayload{Reason: ev.Reason})
	default:
		return nil, nil
	}
}

// handleNarrateSocket streams one narrated answer: the persona's reply as a
// text envelope, then raw MP3 chunks as they are generated.
func (s *Server) handleNarrateSocket(c *websocket.Conn) {
	defer c.Close()

	character := c.Params("character")
	question := c.Query("question")

	writeEnvelope := func(msgType protocol.MessageType, payload interface{}) error {
		data, err := protocol.Marshal(msgType, payload)
		if err != nil {
			return err
		}
		c.SetWriteDeadline(time.Now().Add(writeTimeout))
		return c.WriteMessage(websocket.TextMessage, data)
	}

	p, err := s.deps.Registry.Resolve(character)
	if err != nil {
		writeEnvelope(protocol.MsgError, protocol.ErrorPayload{Error: err.Error()})
		return
	}
	if question == "" {
		writeEnvelope(protocol.MsgError, protocol.ErrorPayload{Error: "question is required"})
		return
	}

	timeout := s.deps.OrchestratorConfig.RequestTimeout
	if timeout <= 0 {
		timeout = debate.DefaultConfig().RequestTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*timeout)
	defer cancel()

	answer, err := s.deps.Turns.Answer(ctx, p, question, s.deps.TurnOptions)
	if err != nil {
		writeEnvelope(protocol.MsgError, protocol.ErrorPayload{Error: err.Error()})
		return
	}
	if err := writeEnvelope(protocol.MsgUtterances, protocol.UtterancesPayload{
		Utterances: []core.UtteranceInfo{{Speaker: answer.Speaker, Text: answer.Text, Timestamp: answer.Timestamp}},
	}); err != nil {
		return
	}

	voice, err := s.deps.Registry.VoiceFor(p.ID)
	if err != nil || !speech.IsElevenLabsVoice(voice) {
		// Streaming needs a configured ElevenLabs voice; text-only otherwise.
		writeEnvelope(protocol.MsgFinished, protocol.FinishedPayload{})
		return
	}

	chunks := make(chan []byte, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- s.deps.Streamer.StreamSpeech(ctx, answer.Text, voice, chunks)
	}()

	writeChunk := func(chunk []byte) error {
		c.SetWriteDeadline(time.Now().Add(writeTimeout))
		return c.WriteMessage(websocket.BinaryMessage, chunk)
	}

	var streamErr error
	for streaming := true; streaming; {
		select {
		case chunk := <-chunks:
			if err := writeChunk(chunk); err != nil {
				cancel()
				<-errc
				return
			}
		case streamErr = <-errc:
			streaming = false
		}
	}
	for len(chunks) > 0 {
		if err := writeChunk(<-chunks); err != nil {
			return
		}
	}

	if streamErr != nil {
		writeEnvelope(protocol.MsgWarning, protocol.WarningPayload{Error: streamErr.Error()})
	}
	writeEnvelope(protocol.MsgFinished, protocol.FinishedPayload{})
}
