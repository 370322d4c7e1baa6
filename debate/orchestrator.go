package debate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"debatekit/core"
	"debatekit/personas"
)

// Phase is the orchestrator's lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhasePlaying
	PhaseAwaitingContinuation
	PhasePaused
	PhaseFinished
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhasePlaying:
		return "playing"
	case PhaseAwaitingContinuation:
		return "awaiting_continuation"
	case PhasePaused:
		return "paused"
	case PhaseFinished:
		return "finished"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Speaker status values surfaced to clients.
const (
	StatusThinking = "thinking"
	StatusSpeaking = "speaking"
	StatusWaiting  = "waiting"
)

// Synthesizer turns utterance text into a playable audio reference.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (core.AudioRef, error)
}

// State is a read-only snapshot of the orchestrator, for clients and tests.
type State struct {
	Phase          Phase
	Topic          string
	Persona1       string
	Persona2       string
	CurrentIndex   int
	CurrentSpeaker string
	SpeakerStatus  string
	ExchangeCount  int
	Utterances     int
	Autoplay       bool
	RetryCount     int
	LastError      string
}

const relayerName = "debate.orchestrator"

// Orchestrator drives one debate session: it sequences generation, synthesis
// and playback milestones into the ordered utterance flow a listener hears.
//
// Every intent and every completion is dispatched under a single lock, so
// state transitions are serialized. Slow work (generation, synthesis) runs in
// goroutines that re-enter the dispatch with the session generation they were
// launched under; a mismatch means the session was reset in the meantime and
// the result is dropped.
type Orchestrator struct {
	mu       sync.Mutex
	cfg      Config
	registry *personas.Registry
	turns    *TurnGenerator
	synth    Synthesizer
	mirror   SessionMirror
	logger   *core.Logger
	notify   func(*core.EventPacket)

	phase       Phase
	resumePhase Phase
	generation  uint64

	p1, p2     personas.Persona
	topic      string
	transcript Transcript
	exchange   int

	current          int
	speaker          string
	status           string
	autoplay         bool
	inFlight         bool
	retryCount       int
	lastErr          string
	pendingAdvance   bool
	awaitingPlayback bool
	synthesizing     bool
}

// NewOrchestrator wires an orchestrator. synth may be nil for a text-only
// session; utterances then advance without audio.
func NewOrchestrator(registry *personas.Registry, turns *TurnGenerator, synth Synthesizer, cfg Config, logger *core.Logger) *Orchestrator {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		turns:    turns,
		synth:    synth,
		logger:   logger,
		phase:    PhaseIdle,
		current:  -1,
	}
}

// SetMirror attaches a best-effort session mirror.
func (o *Orchestrator) SetMirror(m SessionMirror) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mirror = m
}

// SetNotify attaches the event observer. The callback runs while the
// orchestrator holds its dispatch lock and must not call back into it.
func (o *Orchestrator) SetNotify(fn func(*core.EventPacket)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notify = fn
}

// Start validates the pairing and kicks off opening-statement generation.
// Validation failures are returned synchronously and leave the session Idle.
func (o *Orchestrator) Start(character1, character2, topic string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != PhaseIdle {
		return core.NewInvalidRequest("a debate is already in progress")
	}
	p1, err := o.registry.Resolve(character1)
	if err != nil {
		return err
	}
	p2, err := o.registry.Resolve(character2)
	if err != nil {
		return err
	}
	if err := validateDebate(p1, p2, topic); err != nil {
		return err
	}

	o.generation++
	o.phase = PhaseStarting
	o.p1, o.p2 = p1, p2
	o.topic = topic
	o.transcript.Clear()
	o.exchange = 0
	o.current = -1
	o.retryCount = 0
	o.lastErr = ""
	o.autoplay = true
	o.inFlight = false
	o.pendingAdvance = false
	o.awaitingPlayback = false
	o.synthesizing = false

	o.emit(&core.DebateStartedEvent{
		Topic:          topic,
		Persona1:       p1.ID,
		Persona2:       p2.ID,
		CurrentSpeaker: p1.ID,
	})
	o.setStatus(p1.ID, StatusThinking)
	o.saveMirror()

	go o.generateOpenings(o.generation, p1, p2, topic)
	return nil
}

// Pause freezes advancement. Audio already playing is allowed to finish; the
// end-of-playback milestone is then held until Resume. Pausing while already
// paused, or outside an active phase, is a no-op.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.phase {
	case PhasePlaying, PhaseAwaitingContinuation:
	default:
		return
	}
	o.resumePhase = o.phase
	o.phase = PhasePaused
	o.autoplay = false
	o.saveMirror()
}

// Resume re-enables advancement and picks the sequence back up from wherever
// the pause left it. A no-op outside Paused.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != PhasePaused {
		return
	}
	o.autoplay = true
	o.phase = o.resumePhase

	switch {
	case o.pendingAdvance:
		o.pendingAdvance = false
		o.advanceFrom(o.current)
	case o.phase == PhaseAwaitingContinuation:
		o.after(o.cfg.ContinueDelay, func() { o.requestContinuation() })
	case o.phase == PhasePlaying && o.awaitingPlayback:
		u := o.transcript.At(o.current)
		o.setStatus(u.Speaker, StatusThinking)
		o.emit(&core.AudioReadyEvent{Index: o.current, Speaker: u.Speaker, AudioRef: u.AudioRef})
	case o.phase == PhasePlaying && o.synthesizing:
		// Synthesis for the current utterance is still in flight; its
		// completion announces the audio now that the pause is over.
	case o.phase == PhasePlaying && o.current >= 0 && o.current < o.transcript.Len():
		o.beginUtterance(o.current)
	}
}

// Reset tears the session down to Idle from any state. In-flight results and
// pending timers carry the old generation and are dropped when they land.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetLocked("user requested reset")
}

// ForceContinue is the manual escape hatch from Error and from a stalled
// continuation wait. It clears the retry counter and re-issues the request
// that failed.
func (o *Orchestrator) ForceContinue() {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.phase {
	case PhaseError, PhaseAwaitingContinuation:
	default:
		return
	}
	o.retryCount = 0
	o.lastErr = ""
	o.autoplay = true

	if o.transcript.Len() == 0 {
		// The openings never landed; retry the whole start.
		o.phase = PhaseStarting
		o.setStatus(o.p1.ID, StatusThinking)
		go o.generateOpenings(o.generation, o.p1, o.p2, o.topic)
		return
	}
	if o.pendingAdvance {
		o.pendingAdvance = false
		o.phase = PhasePlaying
		o.advanceFrom(o.current)
		return
	}
	o.phase = PhaseAwaitingContinuation
	o.requestContinuation()
}

// PlaybackStarted is the client milestone that audio for the given utterance
// is audible. Stale or out-of-order indexes are ignored.
func (o *Orchestrator) PlaybackStarted(index int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if index != o.current || !o.awaitingPlayback {
		return
	}
	o.setStatus(o.transcript.At(index).Speaker, StatusSpeaking)
}

// PlaybackEnded is the client milestone that audio for the given utterance
// finished. It is what moves the sequence forward.
func (o *Orchestrator) PlaybackEnded(index int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if index != o.current || !o.awaitingPlayback {
		return
	}
	o.awaitingPlayback = false
	o.advanceFrom(index)
}

// PlaybackFailed reports a client-side playback problem. A blocked autoplay
// parks the session in Paused and asks for a user gesture; any other failure
// is logged and skipped so the debate keeps moving.
func (o *Orchestrator) PlaybackFailed(index int, blocked bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if index != o.current || !o.awaitingPlayback {
		return
	}
	if blocked {
		if o.phase != PhasePaused {
			o.resumePhase = o.phase
			o.phase = PhasePaused
		}
		o.autoplay = false
		o.setStatus(o.speaker, StatusWaiting)
		o.emit(&core.InteractionRequiredEvent{Reason: "browser blocked audio playback until a user gesture"})
		return
	}
	o.awaitingPlayback = false
	o.logger.Warn("playback failed, skipping utterance audio", "index", index)
	o.emit(&core.WarningEvent{Error: "audio playback failed, continuing without it"})
	o.advanceFrom(index)
}

// SubmitQuestion injects a listener question between exchanges. Both personas
// answer it in order and the answers count as a regular exchange.
func (o *Orchestrator) SubmitQuestion(question string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != PhaseAwaitingContinuation {
		return core.NewInvalidRequest("questions are accepted between exchanges")
	}
	if strings.TrimSpace(question) == "" {
		return core.NewInvalidRequest("question cannot be empty")
	}
	if o.inFlight {
		return core.NewInvalidRequest("a response is already being generated")
	}

	q := NewUtterance(UserSpeaker, question)
	o.transcript.Append(q)
	o.saveMirror()
	o.emit(&core.UtterancesAppendedEvent{Utterances: utteranceInfos(q), Exchange: o.exchange})
	o.setStatus(o.p1.ID, StatusThinking)

	o.inFlight = true
	var history Transcript
	history.Restore(o.transcript.Entries())
	go o.generateQuestionRound(o.generation, o.p1, o.p2, &history, question)
	return nil
}

// Rehydrate restores a mirrored session into an idle orchestrator. The
// session parks in Paused; resuming replays the most recent utterance and
// carries on from there.
func (o *Orchestrator) Rehydrate(snap SessionSnapshot) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != PhaseIdle {
		return core.NewInvalidRequest("cannot rehydrate over an active debate")
	}
	if !snap.IsDebating || len(snap.Messages) == 0 {
		return core.NewInvalidRequest("snapshot does not describe an active debate")
	}
	p1, err := o.registry.Resolve(snap.Character1)
	if err != nil {
		return err
	}
	p2, err := o.registry.Resolve(snap.Character2)
	if err != nil {
		return err
	}

	o.generation++
	o.p1, o.p2 = p1, p2
	o.topic = snap.Topic
	o.transcript.Restore(snap.Messages)
	o.exchange = snap.ExchangeCount
	o.current = o.transcript.Len() - 1
	o.phase = PhasePaused
	o.resumePhase = PhasePlaying
	o.autoplay = false
	o.inFlight = false
	o.retryCount = 0
	o.lastErr = ""
	o.pendingAdvance = false
	o.awaitingPlayback = false
	o.synthesizing = false

	o.emit(&core.DebateStartedEvent{
		Topic:          snap.Topic,
		Persona1:       p1.ID,
		Persona2:       p2.ID,
		CurrentSpeaker: o.transcript.LastSpeaker(),
	})
	o.emit(&core.UtterancesAppendedEvent{
		Utterances: utteranceInfos(o.transcript.Entries()...),
		Exchange:   o.exchange,
	})
	return nil
}

// Snapshot returns a copy of the observable state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return State{
		Phase:          o.phase,
		Topic:          o.topic,
		Persona1:       o.p1.ID,
		Persona2:       o.p2.ID,
		CurrentIndex:   o.current,
		CurrentSpeaker: o.speaker,
		SpeakerStatus:  o.status,
		ExchangeCount:  o.exchange,
		Utterances:     o.transcript.Len(),
		Autoplay:       o.autoplay,
		RetryCount:     o.retryCount,
		LastError:      o.lastErr,
	}
}

// Utterance returns a copy of the transcript entry at index i.
func (o *Orchestrator) Utterance(i int) (Utterance, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i < 0 || i >= o.transcript.Len() {
		return Utterance{}, false
	}
	return o.transcript.At(i), true
}

// --- async completions -----------------------------------------------------

func (o *Orchestrator) generateOpenings(gen uint64, p1, p2 personas.Persona, topic string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.RequestTimeout)
	defer cancel()
	openings, err := o.turns.StartDebate(ctx, p1, p2, topic, o.turnOptions())

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation || o.phase != PhaseStarting {
		return
	}
	if err != nil {
		o.failCritical(err)
		return
	}

	o.transcript.Append(openings.Opening1, openings.Opening2)
	o.saveMirror()
	o.emit(&core.UtterancesAppendedEvent{
		Utterances: utteranceInfos(openings.Opening1, openings.Opening2),
		Exchange:   0,
	})
	o.beginUtterance(0)
}

func (o *Orchestrator) generateContinuation(gen uint64, p1, p2 personas.Persona, topic string, history *Transcript) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.RequestTimeout)
	defer cancel()
	round, err := o.turns.ContinueDebate(ctx, p1, p2, history, topic, o.turnOptions())

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return
	}
	o.inFlight = false
	if err != nil {
		o.continuationFailed(err)
		return
	}
	o.acceptRound(round)
}

func (o *Orchestrator) generateQuestionRound(gen uint64, p1, p2 personas.Persona, history *Transcript, question string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.RequestTimeout)
	defer cancel()
	round, err := o.turns.RespondToQuestion(ctx, p1, p2, history, question, o.turnOptions())

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return
	}
	o.inFlight = false
	if err != nil {
		// A failed question round is not retried; the next auto-continuation
		// sees the question in the shared context anyway.
		o.logger.Warn("question round failed", "error", err)
		o.emit(&core.WarningEvent{Error: fmt.Sprintf("could not answer the question: %v", err)})
		o.setStatus("", "")
		if o.phase == PhaseAwaitingContinuation {
			o.after(o.cfg.RetryDelay, func() { o.requestContinuation() })
		}
		return
	}
	o.acceptRound(round)
}

func (o *Orchestrator) synthesize(gen uint64, index int, text, voice string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.RequestTimeout)
	defer cancel()
	ref, err := o.synth.Synthesize(ctx, text, voice)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation || index != o.current {
		return
	}
	o.synthesizing = false
	if err != nil {
		// The debate survives a lost voice: log, warn, move on to the text.
		o.logger.Error("speech synthesis failed, skipping audio", "index", index, "voice", voice, "error", err)
		o.emit(&core.WarningEvent{Error: fmt.Sprintf("audio unavailable for this utterance: %v", err)})
		o.advanceFrom(index)
		return
	}

	o.transcript.SetAudioRef(index, ref)
	o.awaitingPlayback = true
	if o.phase == PhasePaused {
		// Resume re-announces the audio.
		return
	}
	o.emit(&core.AudioReadyEvent{Index: index, Speaker: o.transcript.At(index).Speaker, AudioRef: ref})
}

// --- dispatch-locked transitions -------------------------------------------

func (o *Orchestrator) acceptRound(round Round) {
	o.retryCount = 0
	o.lastErr = ""
	o.exchange++
	base := o.transcript.Len()
	o.transcript.Append(round.First, round.Second)
	o.saveMirror()
	o.emit(&core.UtterancesAppendedEvent{
		Utterances: utteranceInfos(round.First, round.Second),
		Exchange:   o.exchange,
	})

	if o.phase == PhasePaused {
		o.current = base - 1
		o.pendingAdvance = true
		o.resumePhase = PhasePlaying
		return
	}
	o.beginUtterance(base)
}

func (o *Orchestrator) beginUtterance(i int) {
	o.phase = PhasePlaying
	o.current = i
	o.awaitingPlayback = false
	o.synthesizing = false

	u := o.transcript.At(i)
	if u.Speaker == UserSpeaker {
		o.advanceFrom(i)
		return
	}
	o.setStatus(u.Speaker, StatusThinking)

	if !u.AudioRef.IsZero() {
		o.awaitingPlayback = true
		o.emit(&core.AudioReadyEvent{Index: i, Speaker: u.Speaker, AudioRef: u.AudioRef})
		return
	}
	if o.synth == nil {
		o.advanceFrom(i)
		return
	}

	voice, err := o.registry.VoiceFor(u.Speaker)
	if err != nil {
		voice = ""
	}
	o.synthesizing = true
	go o.synthesize(o.generation, i, u.Text, voice)
}

func (o *Orchestrator) advanceFrom(i int) {
	if !o.autoplay {
		o.pendingAdvance = true
		o.setStatus(o.speaker, StatusWaiting)
		return
	}

	next := i + 1
	if next < o.transcript.Len() {
		o.phase = PhasePlaying
		o.after(o.cfg.NextUtteranceDelay, func() {
			if !o.autoplay {
				o.pendingAdvance = true
				return
			}
			o.beginUtterance(next)
		})
		return
	}

	if o.exchange >= o.cfg.MaxExchanges {
		o.finish()
		return
	}

	o.phase = PhaseAwaitingContinuation
	o.setStatus("", "")
	o.after(o.cfg.ContinueDelay, func() { o.requestContinuation() })
}

func (o *Orchestrator) requestContinuation() {
	if o.phase != PhaseAwaitingContinuation || o.inFlight || !o.autoplay {
		return
	}
	next := o.p2.ID
	if o.transcript.LastSpeaker() == o.p2.ID {
		next = o.p1.ID
	}
	o.setStatus(next, StatusThinking)

	o.inFlight = true
	var history Transcript
	history.Restore(o.transcript.Entries())
	go o.generateContinuation(o.generation, o.p1, o.p2, o.topic, &history)
}

func (o *Orchestrator) continuationFailed(err error) {
	if core.IsInvalidRequest(err) {
		o.failCritical(err)
		return
	}
	o.retryCount++
	o.lastErr = err.Error()
	if o.retryCount >= o.cfg.RetryAttempts {
		o.failCritical(err)
		return
	}
	o.logger.Warn("continuation failed, retrying", "attempt", o.retryCount, "error", err)
	o.emit(&core.WarningEvent{Error: fmt.Sprintf("continuation attempt %d failed: %v", o.retryCount, err)})
	o.after(o.cfg.RetryDelay, func() { o.requestContinuation() })
}

func (o *Orchestrator) failCritical(err error) {
	o.phase = PhaseError
	o.lastErr = err.Error()
	o.setStatus("", "")
	o.logger.Error("debate entered error state", "error", err)
	o.emit(&core.CriticalErrorEvent{Error: err.Error()})
	o.saveMirror()
}

func (o *Orchestrator) finish() {
	o.phase = PhaseFinished
	o.setStatus("", "")
	o.emit(&core.DebateFinishedEvent{Exchanges: o.exchange})
	o.saveMirror()
	o.after(o.cfg.FinishGrace, func() {
		if o.phase == PhaseFinished {
			o.resetLocked("debate complete")
		}
	})
}

func (o *Orchestrator) resetLocked(reason string) {
	o.generation++
	o.phase = PhaseIdle
	o.p1, o.p2 = personas.Persona{}, personas.Persona{}
	o.topic = ""
	o.transcript.Clear()
	o.exchange = 0
	o.current = -1
	o.speaker, o.status = "", ""
	o.autoplay = false
	o.inFlight = false
	o.retryCount = 0
	o.lastErr = ""
	o.pendingAdvance = false
	o.awaitingPlayback = false
	o.synthesizing = false
	if o.mirror != nil {
		o.mirror.Clear()
	}
	o.emit(&core.DebateResetEvent{Reason: reason})
}

// --- helpers ----------------------------------------------------------------

// after schedules fn on the dispatch lock. The callback is dropped if the
// session generation moved on before the timer fired.
func (o *Orchestrator) after(d time.Duration, fn func()) {
	gen := o.generation
	time.AfterFunc(d, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if gen != o.generation {
			return
		}
		fn()
	})
}

func (o *Orchestrator) emit(event core.IEvent) {
	if o.notify != nil {
		o.notify(core.NewEventPacket(event, relayerName, o.generation))
	}
}

func (o *Orchestrator) setStatus(speaker, status string) {
	o.speaker = speaker
	o.status = status
	o.emit(&core.SpeakerStatusEvent{Speaker: speaker, Status: status})
}

func (o *Orchestrator) saveMirror() {
	if o.mirror == nil {
		return
	}
	o.mirror.Save(SessionSnapshot{
		Character1:    o.p1.ID,
		Character2:    o.p2.ID,
		Topic:         o.topic,
		Messages:      o.transcript.Entries(),
		IsDebating:    o.phase != PhaseIdle && o.phase != PhaseError,
		ExchangeCount: o.exchange,
	})
}

func (o *Orchestrator) turnOptions() TurnOptions {
	return TurnOptions{HistoricalContext: o.cfg.HistoricalContext}
}

func utteranceInfos(us ...Utterance) []core.UtteranceInfo {
	out := make([]core.UtteranceInfo, len(us))
	for i, u := range us {
		out[i] = core.UtteranceInfo{Speaker: u.Speaker, Text: u.Text, Timestamp: u.Timestamp}
	}
	return out
}
