package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/WhatsDiscuss/voicebridge/internal/knowledge"
	"github.com/WhatsDiscuss/voicebridge/internal/media"
	"github.com/WhatsDiscuss/voicebridge/internal/metrics"
	"github.com/WhatsDiscuss/voicebridge/internal/realtime"
)

// --- fakes ---

type fakeAISession struct {
	mu          sync.Mutex
	events      chan realtime.Event
	ops         []string
	greetingErr error
	closeCalls  int
	eventsOnce  sync.Once

	// completeAfterGreeting emits audio then ends the event stream as
	// soon as the greeting is dispatched, simulating an assistant that
	// says its piece and finishes.
	completeAfterGreeting bool
}

func newFakeAISession() *fakeAISession {
	return &fakeAISession{events: make(chan realtime.Event, 32)}
}

func (f *fakeAISession) Events() <-chan realtime.Event { return f.events }

func (f *fakeAISession) SendGreeting(text string) error {
	f.record("greeting")
	if f.greetingErr != nil {
		return f.greetingErr
	}
	if f.completeAfterGreeting {
		f.events <- realtime.Event{Type: realtime.EventTypeAudioDelta, Audio: []byte("hello")}
		f.events <- realtime.Event{Type: realtime.EventTypeAudioDelta, Audio: []byte("world")}
		f.closeEvents()
	}
	return nil
}

func (f *fakeAISession) SendAudio(payload []byte) error {
	f.record("audio")
	return nil
}

func (f *fakeAISession) CommitAudio() error {
	f.record("commit")
	return nil
}

func (f *fakeAISession) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.closeEvents()
	return nil
}

func (f *fakeAISession) closeEvents() {
	f.eventsOnce.Do(func() { close(f.events) })
}

func (f *fakeAISession) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *fakeAISession) opsSnapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}

func (f *fakeAISession) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

type fakeAIClient struct {
	mu                    sync.Mutex
	openErr               error
	greetingErr           error
	completeAfterGreeting bool
	instructions          []string
	sessions              []*fakeAISession
}

func (c *fakeAIClient) Open(ctx context.Context, instructions string) (AISession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.instructions = append(c.instructions, instructions)
	if c.openErr != nil {
		return nil, c.openErr
	}
	s := newFakeAISession()
	s.greetingErr = c.greetingErr
	s.completeAfterGreeting = c.completeAfterGreeting
	c.sessions = append(c.sessions, s)
	return s, nil
}

func (c *fakeAIClient) session(t *testing.T) *fakeAISession {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sessions) == 0 {
		t.Fatal("no AI session was opened")
	}
	return c.sessions[0]
}

func (c *fakeAIClient) openCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

type controlCall struct {
	callID string
	arg    string
}

type fakeSignaler struct {
	mu           sync.Mutex
	answerErr    error
	terminateErr error
	answers      []controlCall
	terminates   []controlCall
}

func (f *fakeSignaler) Answer(ctx context.Context, callID, sdpAnswer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, controlCall{callID: callID, arg: sdpAnswer})
	return f.answerErr
}

func (f *fakeSignaler) Terminate(ctx context.Context, callID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminates = append(f.terminates, controlCall{callID: callID, arg: reason})
	return f.terminateErr
}

func (f *fakeSignaler) answerCalls() []controlCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]controlCall, len(f.answers))
	copy(out, f.answers)
	return out
}

func (f *fakeSignaler) terminateCalls() []controlCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]controlCall, len(f.terminates))
	copy(out, f.terminates)
	return out
}

// harness wires an orchestrator with fakes and captures the session
// and adapter each Start creates.
type harness struct {
	orch     *Orchestrator
	registry *Registry
	ai       *fakeAIClient
	signaler *fakeSignaler
	metrics  *metrics.Metrics

	mu       sync.Mutex
	adapters []*media.MockAdapter
	sessions []*CallSession

	mediaOpts []media.MockOption
	timeout   time.Duration
}

func newHarness(mutate ...func(*harness)) *harness {
	h := &harness{
		registry: NewRegistry(),
		ai:       &fakeAIClient{},
		signaler: &fakeSignaler{},
		metrics:  metrics.New(),
		timeout:  5 * time.Second,
	}
	for _, m := range mutate {
		m(h)
	}

	h.orch = NewOrchestrator(Config{
		Registry: h.registry,
		Media: func(callID string) media.Adapter {
			adapter := media.NewMockAdapter(callID, h.mediaOpts...)
			h.mu.Lock()
			h.adapters = append(h.adapters, adapter)
			if s, ok := h.registry.Get(callID); ok {
				h.sessions = append(h.sessions, s)
			}
			h.mu.Unlock()
			return adapter
		},
		AI:          h.ai,
		Signaler:    h.signaler,
		Knowledge:   knowledge.NewStore(),
		CallTimeout: h.timeout,
		Metrics:     h.metrics,
	})
	return h
}

func (h *harness) adapter(t *testing.T) *media.MockAdapter {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.adapters) == 0 {
		t.Fatal("no media adapter was created")
	}
	return h.adapters[0]
}

func (h *harness) session(t *testing.T) *CallSession {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sessions) == 0 {
		t.Fatal("no session was captured")
	}
	return h.sessions[0]
}

// waitSession polls for the first captured session, for tests that run
// Start in a goroutine.
func (h *harness) waitSession(t *testing.T) *CallSession {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		if len(h.sessions) > 0 {
			s := h.sessions[0]
			h.mu.Unlock()
			return s
		}
		h.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("timeout waiting for session creation")
	return nil
}

func waitForState(t *testing.T, s *CallSession, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("session state = %v, want %v", s.State(), want)
}

func waitForDone(t *testing.T, s *CallSession) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for session teardown")
	}
}
