package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrDuplicateCall indicates a call-initiated event for an id that
	// already has a live session. The event is rejected, no session is
	// created, and the existing session is untouched.
	ErrDuplicateCall = errors.New("call already active")

	// ErrMediaNegotiation indicates the media adapter could not
	// produce an answer for the offer.
	ErrMediaNegotiation = errors.New("media negotiation failed")

	// ErrSignaling indicates the answer or terminate action could not
	// be delivered to the messaging platform.
	ErrSignaling = errors.New("signaling failed")

	// ErrAIConnection indicates the realtime AI session could not be
	// opened or seeded.
	ErrAIConnection = errors.New("ai connection failed")

	// ErrBridge indicates a mid-call transport or AI fault while the
	// bridge was active.
	ErrBridge = errors.New("bridge failed")

	// ErrTimeoutExceeded indicates the call deadline expired.
	ErrTimeoutExceeded = errors.New("call timeout exceeded")

	// ErrInvalidTransition indicates an illegal state transition was
	// attempted.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// StageError records which lifecycle stage failed for which call.
type StageError struct {
	CallID string
	Stage  string // "answer", "signal", "ai", "bridge"
	Kind   error  // one of the sentinel errors above
	Cause  error  // the collaborator's error
}

// Error returns the error message.
func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("call %s: stage %s: %v: %v", e.CallID, e.Stage, e.Kind, e.Cause)
	}
	return fmt.Sprintf("call %s: stage %s: %v", e.CallID, e.Stage, e.Kind)
}

// Unwrap exposes both the sentinel kind and the collaborator's error
// so errors.Is matches either.
func (e *StageError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// TransitionError indicates an illegal state transition was attempted.
type TransitionError struct {
	CallID string
	From   State
	To     State
}

// Error returns the error message.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("call %s: cannot transition from %s to %s", e.CallID, e.From, e.To)
}

// Unwrap returns ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
