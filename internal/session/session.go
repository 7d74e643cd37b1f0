package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/WhatsDiscuss/voicebridge/internal/knowledge"
	"github.com/WhatsDiscuss/voicebridge/internal/media"
	"github.com/WhatsDiscuss/voicebridge/internal/metrics"
	"github.com/WhatsDiscuss/voicebridge/internal/realtime"
)

const (
	defaultCallTimeout = 300 * time.Second
	defaultGreeting    = "It's time to take your medicine"
	terminateTimeout   = 5 * time.Second
)

// InitiatedEvent is the validated call-initiated webhook event.
type InitiatedEvent struct {
	CallID string
	Offer  string
}

// AISession is the duplex assistant conversation the bridge drives.
// Satisfied by *realtime.Session.
type AISession interface {
	Events() <-chan realtime.Event
	SendGreeting(text string) error
	SendAudio(payload []byte) error
	CommitAudio() error
	Close() error
}

// AIClient opens assistant sessions.
type AIClient interface {
	Open(ctx context.Context, instructions string) (AISession, error)
}

// Signaler delivers call control actions to the messaging platform.
type Signaler interface {
	Answer(ctx context.Context, callID, sdpAnswer string) error
	Terminate(ctx context.Context, callID, reason string) error
}

// AdapterFactory creates the media transport for one call.
type AdapterFactory func(callID string) media.Adapter

// CallSession is the single entity the orchestrator owns for one call.
// Only the orchestrator mutates it; collaborators report events and the
// orchestrator applies transitions.
type CallSession struct {
	CallID string

	mu         sync.RWMutex
	state      State
	history    []State
	offer      string
	answer     string
	context    knowledge.MedicineContext
	startedAt  time.Time
	deadlineAt time.Time
	reason     TerminationReason
	failure    error
	answered   bool
	stopReason TerminationReason

	adapter media.Adapter
	ai      AISession

	cancel       context.CancelFunc
	done         chan struct{}
	greetingSent chan struct{}
	greetingOnce sync.Once
	teardownOnce sync.Once
}

// State returns the current session state.
func (s *CallSession) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Reason returns the termination reason, ReasonNone while live.
func (s *CallSession) Reason() TerminationReason {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// Failure returns the error that failed the session, if any.
func (s *CallSession) Failure() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failure
}

// AnswerSDP returns the answer produced for the caller's offer.
func (s *CallSession) AnswerSDP() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answer
}

// DeadlineAt returns the hard deadline for this call.
func (s *CallSession) DeadlineAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deadlineAt
}

// Context returns the knowledge document attached at session start.
func (s *CallSession) Context() knowledge.MedicineContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.context
}

// Done is closed when teardown has completed.
func (s *CallSession) Done() <-chan struct{} {
	return s.done
}

// History returns every state the session has visited, in order.
func (s *CallSession) History() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]State, len(s.history))
	copy(out, s.history)
	return out
}

// transition applies a state change, enforcing the transition table.
func (s *CallSession) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !canTransition(s.state, to) {
		return &TransitionError{CallID: s.CallID, From: s.state, To: to}
	}
	from := s.state
	s.state = to
	s.history = append(s.history, to)
	slog.Debug("[Session] State changed", "call_id", s.CallID, "from", from, "to", to)
	return nil
}

// setReason records the termination reason exactly once.
func (s *CallSession) setReason(r TerminationReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason == ReasonNone {
		s.reason = r
	}
}

// recordFailure moves the session to Failed and records the cause.
// Later cleanup errors never overwrite the recorded failure.
func (s *CallSession) recordFailure(err error, reason TerminationReason) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsTerminal() {
		return
	}
	s.state = StateFailed
	s.history = append(s.history, StateFailed)
	if s.reason == ReasonNone {
		s.reason = reason
	}
	if s.failure == nil {
		s.failure = err
	}
}

// requestStop asks the session to end cooperatively with the given
// reason. Used for process shutdown.
func (s *CallSession) requestStop(r TerminationReason) {
	s.mu.Lock()
	if s.stopReason == ReasonNone {
		s.stopReason = r
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *CallSession) stopReasonOr(fallback TerminationReason) TerminationReason {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopReason != ReasonNone {
		return s.stopReason
	}
	return fallback
}

func (s *CallSession) stopRequested() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopReason != ReasonNone
}

func (s *CallSession) markAnswered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answered = true
}

func (s *CallSession) wasAnswered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answered
}

// openGreetingGate releases caller audio forwarding. Single-use.
func (s *CallSession) openGreetingGate() {
	s.greetingOnce.Do(func() {
		close(s.greetingSent)
	})
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Registry  *Registry
	Media     AdapterFactory
	AI        AIClient
	Signaler  Signaler
	Knowledge *knowledge.Store

	CallTimeout time.Duration
	Greeting    string
	Metrics     *metrics.Metrics
}

// Orchestrator owns every call session's lifecycle: it validates the
// event, drives the answer handshake, supervises the audio bridge, and
// guarantees teardown on every exit path.
type Orchestrator struct {
	cfg Config

	callbackMu   sync.RWMutex
	onTerminated []func(callID string, reason TerminationReason)
}

// NewOrchestrator creates an orchestrator. Registry, Media, AI,
// Signaler and Knowledge are required; timeout, greeting and metrics
// get defaults.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Greeting == "" {
		cfg.Greeting = defaultGreeting
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	return &Orchestrator{cfg: cfg}
}

// ActiveCalls returns the number of live sessions.
func (o *Orchestrator) ActiveCalls() int {
	return o.cfg.Registry.Len()
}

// OnTerminated registers a callback invoked after a session's teardown
// completes. Callbacks run on the session's goroutine and must not block.
func (o *Orchestrator) OnTerminated(fn func(callID string, reason TerminationReason)) {
	o.callbackMu.Lock()
	defer o.callbackMu.Unlock()
	o.onTerminated = append(o.onTerminated, fn)
}

func (o *Orchestrator) notifyTerminated(callID string, reason TerminationReason) {
	o.callbackMu.RLock()
	callbacks := o.onTerminated
	o.callbackMu.RUnlock()

	for _, fn := range callbacks {
		fn(callID, reason)
	}
}

// Start runs the full lifecycle for one call-initiated event. It
// blocks until the session reaches a terminal state; callers that must
// not block run it in its own goroutine.
//
// Returns ErrDuplicateCall without creating a session if the id is
// already live.
func (o *Orchestrator) Start(ctx context.Context, ev InitiatedEvent) error {
	if ev.CallID == "" {
		return fmt.Errorf("call-initiated event missing call id")
	}

	now := time.Now()
	sessCtx, cancel := context.WithCancel(ctx)

	s := &CallSession{
		CallID:       ev.CallID,
		state:        StateReceived,
		history:      []State{StateReceived},
		offer:        ev.Offer,
		context:      o.cfg.Knowledge.Context(),
		startedAt:    now,
		deadlineAt:   now.Add(o.cfg.CallTimeout),
		cancel:       cancel,
		done:         make(chan struct{}),
		greetingSent: make(chan struct{}),
	}

	if err := o.cfg.Registry.Add(s); err != nil {
		cancel()
		slog.Warn("[Orchestrator] Rejected duplicate call event", "call_id", ev.CallID)
		return err
	}

	o.cfg.Metrics.ActiveSessions.Inc()
	slog.Info("[Orchestrator] Session created",
		"call_id", s.CallID,
		"deadline", s.deadlineAt.Format(time.RFC3339),
	)

	o.run(sessCtx, s)
	return nil
}

// run drives the lifecycle stages. Every failure path funnels into
// teardown; no stage error is swallowed without cleanup.
func (o *Orchestrator) run(ctx context.Context, s *CallSession) {
	defer s.cancel()

	// Stage 1: media answer.
	_ = s.transition(StateAnswering)
	adapter := o.cfg.Media(s.CallID)
	s.mu.Lock()
	s.adapter = adapter
	s.mu.Unlock()

	answer, err := adapter.CreateAnswer(s.offer)
	if err != nil {
		o.fail(ctx, s, "answer", ErrMediaNegotiation, err)
		return
	}
	s.mu.Lock()
	s.answer = answer
	s.mu.Unlock()

	// Stage 2: deliver the answer.
	if err := o.cfg.Signaler.Answer(ctx, s.CallID, answer); err != nil {
		o.fail(ctx, s, "signal", ErrSignaling, err)
		return
	}
	_ = s.transition(StateAnswered)
	s.markAnswered()
	o.cfg.Metrics.CallsAnswered.Inc()

	// Stage 3: open the AI session seeded with the knowledge context,
	// then dispatch the greeting. The assistant speaks first: caller
	// audio stays gated until the greeting is on the wire.
	ai, err := o.cfg.AI.Open(ctx, o.cfg.Knowledge.Instructions())
	if err != nil {
		o.fail(ctx, s, "ai", ErrAIConnection, err)
		return
	}
	s.mu.Lock()
	s.ai = ai
	s.mu.Unlock()
	_ = s.transition(StateBridging)

	if err := ai.SendGreeting(o.cfg.Greeting); err != nil {
		o.fail(ctx, s, "ai", ErrAIConnection, err)
		return
	}
	s.openGreetingGate()

	// Stage 4: active bridge until an end condition fires.
	_ = s.transition(StateActive)
	slog.Info("[Orchestrator] Session active", "call_id", s.CallID)

	reason, bridgeErr := o.runBridge(ctx, s)
	if bridgeErr != nil {
		o.fail(ctx, s, "bridge", ErrBridge, bridgeErr)
		return
	}

	// Stage 5: normal ending.
	s.setReason(reason)
	_ = s.transition(StateEnding)
	o.teardown(s, false)
}

// fail records a stage failure and runs teardown. A cooperative stop
// (shutdown) that surfaces as context cancellation keeps its own
// termination reason.
func (o *Orchestrator) fail(ctx context.Context, s *CallSession, stage string, kind, cause error) {
	reason := ReasonError
	if s.stopRequested() && (errors.Is(cause, context.Canceled) || ctx.Err() != nil) {
		reason = s.stopReasonOr(ReasonShutdown)
	}

	stageErr := &StageError{CallID: s.CallID, Stage: stage, Kind: kind, Cause: cause}
	s.recordFailure(stageErr, reason)

	slog.Error("[Orchestrator] Stage failed",
		"call_id", s.CallID,
		"stage", stage,
		"error", cause,
	)
	o.teardown(s, true)
}

// teardown releases everything the session acquired, exactly once,
// regardless of which stage failed. Cleanup errors are logged, never
// re-raised, and never block removal from the registry.
func (o *Orchestrator) teardown(s *CallSession, failed bool) {
	s.teardownOnce.Do(func() {
		reason := s.Reason()
		slog.Info("[Orchestrator] Teardown started", "call_id", s.CallID, "reason", reason)

		s.mu.RLock()
		ai := s.ai
		adapter := s.adapter
		startedAt := s.startedAt
		s.mu.RUnlock()

		if ai != nil {
			if err := ai.Close(); err != nil {
				slog.Warn("[Orchestrator] AI session close failed", "call_id", s.CallID, "error", err)
			}
		}
		if adapter != nil {
			if err := adapter.Close(); err != nil {
				slog.Warn("[Orchestrator] Media adapter close failed", "call_id", s.CallID, "error", err)
			}
		}
		if s.wasAnswered() {
			ctx, cancel := context.WithTimeout(context.Background(), terminateTimeout)
			if err := o.cfg.Signaler.Terminate(ctx, s.CallID, wireReason(reason)); err != nil {
				slog.Warn("[Orchestrator] Terminate action failed", "call_id", s.CallID, "error", err)
			}
			cancel()
		}

		o.cfg.Registry.Remove(s.CallID)
		o.cfg.Metrics.ActiveSessions.Dec()
		o.cfg.Metrics.SessionsTotal.WithLabelValues(reason.String()).Inc()

		if !failed {
			_ = s.transition(StateEnded)
		}
		o.notifyTerminated(s.CallID, reason)
		close(s.done)

		slog.Info("[Orchestrator] Session ended",
			"call_id", s.CallID,
			"state", s.State(),
			"reason", reason,
			"duration", time.Since(startedAt).Round(time.Millisecond),
		)
	})
}

// Drain cooperatively stops every live session and waits for their
// teardowns to finish. Used on process shutdown so no answered call or
// open AI session is abandoned.
func (o *Orchestrator) Drain(ctx context.Context) error {
	sessions := o.cfg.Registry.All()
	if len(sessions) == 0 {
		return nil
	}

	slog.Info("[Orchestrator] Draining sessions", "count", len(sessions))
	for _, s := range sessions {
		s.requestStop(ReasonShutdown)
	}
	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return fmt.Errorf("drain interrupted: %w", ctx.Err())
		}
	}
	return nil
}

// wireReason maps a termination reason onto the terminate action's
// reason field.
func wireReason(r TerminationReason) string {
	switch r {
	case ReasonCallerHangup:
		return "caller_hangup"
	case ReasonAICompleted:
		return "completed"
	case ReasonTimeout:
		return "timeout"
	case ReasonShutdown:
		return "shutdown"
	default:
		return "error"
	}
}
