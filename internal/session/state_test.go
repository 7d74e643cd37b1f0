package session

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateReceived, "Received"},
		{StateAnswering, "Answering"},
		{StateAnswered, "Answered"},
		{StateBridging, "Bridging"},
		{StateActive, "Active"},
		{StateEnding, "Ending"},
		{StateEnded, "Ended"},
		{StateFailed, "Failed"},
		{State(99), "Unknown(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestStateIsTerminal(t *testing.T) {
	for _, s := range []State{StateReceived, StateAnswering, StateAnswered, StateBridging, StateActive, StateEnding} {
		if s.IsTerminal() {
			t.Errorf("%v.IsTerminal() = true, want false", s)
		}
	}
	for _, s := range []State{StateEnded, StateFailed} {
		if !s.IsTerminal() {
			t.Errorf("%v.IsTerminal() = false, want true", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"received to answering", StateReceived, StateAnswering, true},
		{"answering to answered", StateAnswering, StateAnswered, true},
		{"answered to bridging", StateAnswered, StateBridging, true},
		{"bridging to active", StateBridging, StateActive, true},
		{"active to ending", StateActive, StateEnding, true},
		{"ending to ended", StateEnding, StateEnded, true},
		{"skip answer handshake", StateReceived, StateActive, false},
		{"backwards", StateActive, StateAnswered, false},
		{"ending cannot fail", StateEnding, StateFailed, false},
		{"ended is final", StateEnded, StateAnswering, false},
		{"failed is final", StateFailed, StateEnding, false},
		{"active can fail", StateActive, StateFailed, true},
		{"received can fail", StateReceived, StateFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("canTransition(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTerminationReasonString(t *testing.T) {
	tests := []struct {
		reason TerminationReason
		want   string
	}{
		{ReasonNone, "None"},
		{ReasonCallerHangup, "CallerHangup"},
		{ReasonAICompleted, "AICompleted"},
		{ReasonTimeout, "Timeout"},
		{ReasonError, "Error"},
		{ReasonShutdown, "Shutdown"},
	}

	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("TerminationReason(%d).String() = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

func TestWireReason(t *testing.T) {
	tests := []struct {
		reason TerminationReason
		want   string
	}{
		{ReasonCallerHangup, "caller_hangup"},
		{ReasonAICompleted, "completed"},
		{ReasonTimeout, "timeout"},
		{ReasonShutdown, "shutdown"},
		{ReasonError, "error"},
		{ReasonNone, "error"},
	}

	for _, tt := range tests {
		if got := wireReason(tt.reason); got != tt.want {
			t.Errorf("wireReason(%v) = %q, want %q", tt.reason, got, tt.want)
		}
	}
}
