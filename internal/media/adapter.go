// Package media defines the audio transport capability a call session
// runs on, plus the mock implementation used outside production.
package media

import "time"

// Frame is one unit of caller or assistant audio.
// Payload is codec-encoded audio (PCMU in the mock), Sequence and
// Timestamp carry RTP-style ordering so a production adapter can map
// frames onto a real media stream without changing the orchestrator.
type Frame struct {
	Payload   []byte
	Sequence  uint16
	Timestamp uint32
	Received  time.Time
}

// Adapter is the media transport contract for one call.
//
// The orchestrator depends on nothing else about the transport: a
// production SDP/ICE/DTLS/RTP stack replaces the mock behind this
// exact method set.
//
// Thread Safety: all methods are safe for concurrent use.
type Adapter interface {
	// CreateAnswer produces a signaling answer for the caller's offer.
	// Called once per session, before any audio flows.
	CreateAnswer(offer string) (string, error)

	// InboundAudio returns the stream of caller audio frames.
	// The channel is closed when the caller hangs up or the adapter
	// is closed. Calling it again after Close returns a closed channel.
	InboundAudio() <-chan Frame

	// OutboundAudio plays a frame to the caller.
	// Returns an error once the adapter is closed.
	OutboundAudio(frame Frame) error

	// Close releases transport resources. Idempotent.
	Close() error
}
