// Package session implements the call session orchestrator: the state
// machine, registry, and bridge loop that own a call from webhook
// event to teardown.
package session

import "fmt"

// State represents the lifecycle position of a call session.
type State int

const (
	// StateReceived indicates the call-initiated event was validated
	// and the session registered.
	StateReceived State = iota
	// StateAnswering indicates the media adapter was asked to create
	// an answer for the offer.
	StateAnswering
	// StateAnswered indicates the signaling client confirmed delivery
	// of the answer.
	StateAnswered
	// StateBridging indicates the AI session is open and seeded with
	// the knowledge context.
	StateBridging
	// StateActive indicates the greeting was dispatched and the audio
	// bridge is running in both directions.
	StateActive
	// StateEnding indicates termination was triggered and teardown is
	// in progress.
	StateEnding
	// StateEnded indicates teardown completed after a normal end.
	StateEnded
	// StateFailed indicates a stage failure ended the session.
	StateFailed
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "Received"
	case StateAnswering:
		return "Answering"
	case StateAnswered:
		return "Answered"
	case StateBridging:
		return "Bridging"
	case StateActive:
		return "Active"
	case StateEnding:
		return "Ending"
	case StateEnded:
		return "Ended"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// IsTerminal returns true if the session is in a terminal state.
func (s State) IsTerminal() bool {
	return s == StateEnded || s == StateFailed
}

// validNext is the session state transition table.
var validNext = map[State][]State{
	StateReceived:  {StateAnswering, StateFailed},
	StateAnswering: {StateAnswered, StateFailed},
	StateAnswered:  {StateBridging, StateFailed},
	StateBridging:  {StateActive, StateFailed},
	StateActive:    {StateEnding, StateFailed},
	StateEnding:    {StateEnded},
}

// canTransition reports whether from → to is a legal transition.
func canTransition(from, to State) bool {
	for _, next := range validNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TerminationReason indicates why a session ended.
type TerminationReason int

const (
	// ReasonNone indicates no termination has occurred.
	ReasonNone TerminationReason = iota
	// ReasonCallerHangup indicates the caller ended the call.
	ReasonCallerHangup
	// ReasonAICompleted indicates the assistant session completed.
	ReasonAICompleted
	// ReasonTimeout indicates the call deadline expired.
	ReasonTimeout
	// ReasonError indicates a stage or bridge error ended the call.
	ReasonError
	// ReasonShutdown indicates process shutdown ended the call.
	ReasonShutdown
)

// String returns the string representation of TerminationReason.
func (r TerminationReason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonCallerHangup:
		return "CallerHangup"
	case ReasonAICompleted:
		return "AICompleted"
	case ReasonTimeout:
		return "Timeout"
	case ReasonError:
		return "Error"
	case ReasonShutdown:
		return "Shutdown"
	default:
		return fmt.Sprintf("Unknown(%d)", r)
	}
}
