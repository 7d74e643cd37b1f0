package media

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/sdp/v3"
)

// CannedAnswer is returned for offers that are not real SDP, so the
// mock stays deterministic in tests and scripted runs.
const CannedAnswer = "dummy-answer-sdp"

// ErrAdapterClosed indicates an operation on a closed adapter.
var ErrAdapterClosed = errors.New("media adapter closed")

// MockOption configures a mock adapter.
type MockOption func(*MockAdapter)

// WithFrameCount sets how many caller frames are produced before the
// mock caller hangs up. Default is 50.
func WithFrameCount(n int) MockOption {
	return func(m *MockAdapter) {
		m.frameCount = n
	}
}

// WithFrameInterval sets the pacing between caller frames.
// Zero disables pacing (tests). Default is the codec frame duration.
func WithFrameInterval(d time.Duration) MockOption {
	return func(m *MockAdapter) {
		m.interval = d
	}
}

// WithAnswerError makes CreateAnswer fail, simulating negotiation failure.
func WithAnswerError(err error) MockOption {
	return func(m *MockAdapter) {
		m.answerErr = err
	}
}

// WithCallerScript replaces the silent caller audio with scripted
// payloads, cycled until the frame count is reached.
func WithCallerScript(payloads [][]byte) MockOption {
	return func(m *MockAdapter) {
		m.script = payloads
	}
}

// MockAdapter is the scripted media transport used outside production.
// It fabricates the caller leg: a finite inbound stream of µ-law frames
// carried over RTP-style packets, and an outbound sink that records
// what would be played to the caller.
type MockAdapter struct {
	callID     string
	codec      Codec
	frameCount int
	interval   time.Duration
	answerErr  error
	script     [][]byte

	mu       sync.Mutex
	inbound  chan Frame
	started  bool
	closed   bool
	outbound []Frame

	ssrc uint32
	seq  uint16
	ts   uint32

	done       chan struct{}
	closeOnce  sync.Once
	closeCalls atomic.Int32
}

// NewMockAdapter creates a mock transport for one call.
func NewMockAdapter(callID string, opts ...MockOption) *MockAdapter {
	m := &MockAdapter{
		callID:     callID,
		codec:      CodecPCMU,
		frameCount: 50,
		interval:   CodecPCMU.SampleDur,
		inbound:    make(chan Frame, 64),
		done:       make(chan struct{}),
		ssrc:       GenerateSSRC(),
		seq:        GenerateSequenceStart(),
		ts:         GenerateTimestampStart(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateAnswer produces the signaling answer for the caller's offer.
// Real SDP offers get a minimal PCMU answer; anything else gets the
// canned answer string.
func (m *MockAdapter) CreateAnswer(offer string) (string, error) {
	if m.answerErr != nil {
		return "", m.answerErr
	}

	var offerDesc sdp.SessionDescription
	if err := offerDesc.Unmarshal([]byte(offer)); err != nil {
		slog.Debug("[MediaMock] Offer is not SDP, returning canned answer", "call_id", m.callID)
		return CannedAnswer, nil
	}

	answer, err := buildAnswerSDP(&offerDesc)
	if err != nil {
		return "", fmt.Errorf("build answer sdp: %w", err)
	}
	return answer, nil
}

// buildAnswerSDP creates a minimal PCMU-only answer mirroring the
// offer's session identity.
func buildAnswerSDP(offer *sdp.SessionDescription) (string, error) {
	answer := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "voicebridge",
			SessionID:      offer.Origin.SessionID,
			SessionVersion: offer.Origin.SessionVersion + 1,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: "127.0.0.1",
		},
		SessionName: "Voicebridge Media Session",
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &sdp.Address{Address: "127.0.0.1"},
		},
		TimeDescriptions: []sdp.TimeDescription{{}},
		MediaDescriptions: []*sdp.MediaDescription{
			{
				MediaName: sdp.MediaName{
					Media:   "audio",
					Port:    sdp.RangedPort{Value: 4000},
					Protos:  []string{"RTP", "AVP"},
					Formats: []string{"0"},
				},
				Attributes: []sdp.Attribute{
					{Key: "rtpmap", Value: "0 PCMU/8000"},
					{Key: "sendrecv"},
				},
			},
		},
	}

	data, err := answer.Marshal()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// InboundAudio returns the caller audio stream, starting the scripted
// generator on first call.
func (m *MockAdapter) InboundAudio() <-chan Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started && !m.closed {
		m.started = true
		go m.generate()
	}
	return m.inbound
}

// generate fabricates the caller's wire stream: scripted payloads are
// packetized, serialized, and parsed back as if received off the wire.
func (m *MockAdapter) generate() {
	defer close(m.inbound)

	var ticker *time.Ticker
	if m.interval > 0 {
		ticker = time.NewTicker(m.interval)
		defer ticker.Stop()
	}

	for i := 0; i < m.frameCount; i++ {
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-m.done:
				return
			}
		} else {
			select {
			case <-m.done:
				return
			default:
			}
		}

		frame, err := m.nextWireFrame(i)
		if err != nil {
			slog.Warn("[MediaMock] Dropping malformed frame", "call_id", m.callID, "error", err)
			continue
		}

		select {
		case m.inbound <- frame:
		case <-m.done:
			return
		}
	}

	slog.Debug("[MediaMock] Caller script exhausted, hanging up", "call_id", m.callID, "frames", m.frameCount)
}

// nextWireFrame builds the i-th caller frame via a real RTP round trip.
func (m *MockAdapter) nextWireFrame(i int) (Frame, error) {
	payload := SilencePayload(m.codec)
	if len(m.script) > 0 {
		payload = m.script[i%len(m.script)]
	}

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    m.codec.PayloadType,
			SequenceNumber: m.seq,
			Timestamp:      m.ts,
			SSRC:           m.ssrc,
		},
		Payload: payload,
	}
	m.seq++
	m.ts += m.codec.TimestampIncrement()

	wire, err := pkt.Marshal()
	if err != nil {
		return Frame{}, err
	}

	var parsed rtp.Packet
	if err := parsed.Unmarshal(wire); err != nil {
		return Frame{}, err
	}

	return Frame{
		Payload:   parsed.Payload,
		Sequence:  parsed.SequenceNumber,
		Timestamp: parsed.Timestamp,
		Received:  time.Now(),
	}, nil
}

// OutboundAudio records a frame that would be played to the caller.
func (m *MockAdapter) OutboundAudio(frame Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrAdapterClosed
	}
	m.outbound = append(m.outbound, frame)
	return nil
}

// HangupCaller ends the inbound stream without closing the adapter,
// simulating the caller hanging up mid-conversation.
func (m *MockAdapter) HangupCaller() {
	m.closeOnceDone()
}

// Close releases the mock's resources. Idempotent.
func (m *MockAdapter) Close() error {
	m.closeCalls.Add(1)

	m.mu.Lock()
	m.closed = true
	started := m.started
	m.mu.Unlock()

	m.closeOnceDone()

	// If the generator never ran, close the inbound channel here so a
	// late InboundAudio call observes a finished stream.
	if !started {
		m.mu.Lock()
		if !m.started {
			m.started = true
			close(m.inbound)
		}
		m.mu.Unlock()
	}

	return nil
}

func (m *MockAdapter) closeOnceDone() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}

// OutboundFrames returns a copy of everything played to the caller.
func (m *MockAdapter) OutboundFrames() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Frame, len(m.outbound))
	copy(out, m.outbound)
	return out
}

// CloseCount reports how many times Close was called, for idempotence checks.
func (m *MockAdapter) CloseCount() int {
	return int(m.closeCalls.Load())
}

// Ensure MockAdapter implements Adapter
var _ Adapter = (*MockAdapter)(nil)
